package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-auth-otp/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChallengeEnvelope acknowledges that a one-time code was sent. OTP is only
// present when code echoing is enabled.
type ChallengeEnvelope struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

// AuthEnvelope wraps login/register responses.
type AuthEnvelope struct {
	Message      string        `json:"message,omitempty"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         *domain.User  `json:"user,omitempty"`
	Admin        *domain.Admin `json:"admin,omitempty"`
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decodeJSON reads a JSON body into dst, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
