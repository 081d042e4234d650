package domain

import "time"

// ResetCode is a stored password-reset code record. The 6-digit code itself
// is never persisted, only its fingerprint. Single use is enforced by
// deletion: whoever deletes the row first wins the redeem.
type ResetCode struct {
	ID          string
	UserID      string
	CodeHash    string // fingerprint of the 6-digit code
	Destination string // the email or phone the code was delivered to
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
