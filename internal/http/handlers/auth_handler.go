package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/internal/http/response"
)

// Register creates an identity and sends the first verification challenge.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	message, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusCreated, message, nil)
}

// Verify checks a submitted code against the active challenge.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	session, err := h.authService.VerifyEmail(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	// Pending-approval accounts verify without auto-login.
	if session == nil {
		response.Success(w, http.StatusOK, "Email verified. Your account is awaiting admin approval.", nil)
		return
	}

	response.Success(w, http.StatusOK, "Account verified successfully", session)
}

// ResendCode issues a fresh challenge, resetting the attempt counter.
func (h *Handlers) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := h.authService.ResendCode(r.Context(), req.Email); err != nil {
		response.Error(w, err)
		return
	}

	// Same reply whether or not the email exists.
	response.Success(w, http.StatusOK, "If the email is registered, a new code is on its way.", nil)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	session, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Welcome back", session)
}

// Refresh exchanges a refresh token for a brand-new access+refresh pair.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	session, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "OK", session)
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "If the email is registered, you'll receive a reset link.", nil)
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Password updated. You can sign in now.", nil)
}
