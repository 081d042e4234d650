package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
	"github.com/trinityvault/trinity/pkg/httpx"
)

type userResponse struct {
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	FrozenAt  *time.Time `json:"frozen_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role.String(),
		Status:    string(u.Status),
		FrozenAt:  u.FrozenAt,
		CreatedAt: u.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func toTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
	}
}

// decodeJSON reads the request body into dst, replying 400 on malformed
// input. Returns false when the caller should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "malformed JSON body")
		return false
	}
	return true
}

// writeServerError is the catch-all for unexpected failures. The response
// carries no internals; details go to the log at the call site.
func writeServerError(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusInternalServerError,
		"server_error", "an internal error occurred")
}
