package handler

import (
	"net/http"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/transport/http/middleware"
)

// AuthHandler serves the user and admin credential endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.InitiateRegistration(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChallengeEnvelope{Message: res.Message, OTP: res.OTP})
}

func (h *AuthHandler) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRegistrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyRegistration(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authEnvelope("registration complete", res))
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.ResendRegistrationOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChallengeEnvelope{Message: res.Message, OTP: res.OTP})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope("login successful", res))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.AdminLogin(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChallengeEnvelope{Message: res.Message, OTP: res.OTP})
}

func (h *AuthHandler) AdminVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.AdminVerifyLogin(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope("login successful", res))
}

// Me returns the profile behind the Bearer token. Must run behind middleware.Auth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	payload, ok := middleware.PayloadFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.svc.Me(r.Context(), *payload)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func authEnvelope(msg string, res *auth.AuthResult) AuthEnvelope {
	return AuthEnvelope{
		Message:      msg,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User:         res.User,
		Admin:        res.Admin,
	}
}
