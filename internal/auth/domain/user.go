package domain

import (
	"fmt"
	"time"
)

// Status is the identity lifecycle state. FROZEN accounts keep their records
// and become ACTIVE again if the owner logs in within the reactivation
// window; cleanup of long-frozen accounts belongs to an external job.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusFrozen Status = "FROZEN"
)

// ParseStatus validates a stored or submitted status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive:
		return StatusActive, nil
	case StatusFrozen:
		return StatusFrozen, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// User is a stored identity. PasswordHash is always an argon2id PHC string;
// the entity itself never hashes anything - all hashing happens in the
// service layer before assignment.
type User struct {
	ID           string
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Status       Status
	FrozenAt     *time.Time // set while Status == FROZEN
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
