package domain

// PendingRegistration is an unverified sign-up parked in the ephemeral store
// until its OTP is confirmed. The password is already hashed.
type PendingRegistration struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password"`
}
