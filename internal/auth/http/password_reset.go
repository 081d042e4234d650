package http

import (
	"errors"
	"net/http"

	"github.com/trinityvault/trinity/internal/auth/service"
	"github.com/trinityvault/trinity/pkg/httpx"
	"github.com/trinityvault/trinity/pkg/slogx"
)

type ForgotPasswordHandler struct {
	ResetService *service.ResetService
}

type forgotPasswordRequest struct {
	Destination string `json:"destination"`
}

// ServeHTTP issues a reset code to the email address or phone number given.
// The code travels out of band; the response body never contains it.
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.ResetService.Request(ctx, req.Destination)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "reset code sent",
		})
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"account_not_found", "no account matches that destination")
	case errors.Is(err, service.ErrDeliveryFailed):
		log.Error("reset code delivery failed", "err", err)
		httpx.WriteError(w, http.StatusBadGateway,
			"delivery_failed", "the reset code could not be delivered")
	default:
		log.Error("reset request failed", "err", err)
		writeServerError(w)
	}
}

type ResetPasswordHandler struct {
	ResetService *service.ResetService
}

type resetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ServeHTTP redeems a reset code and installs the new password. Codes are
// single use; a second redeem of the same code replies 400.
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.ResetService.Complete(ctx, req.Code, req.NewPassword)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "password updated",
		})
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_code", "reset code is unknown or already used")
	case errors.Is(err, service.ErrCodeExpired):
		httpx.WriteError(w, http.StatusBadRequest,
			"code_expired", "reset code has expired, request a new one")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest,
			"weak_password", "password must be at least 8 characters")
	default:
		log.Error("password reset failed", "err", err)
		writeServerError(w)
	}
}
