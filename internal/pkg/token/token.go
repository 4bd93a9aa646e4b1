package token

import "github.com/google/uuid"

// NewJTI returns a random UUIDv4 used as the jwt "jti" claim. A new value is
// drawn for every issuance so rotated pairs are always distinguishable.
func NewJTI() string {
	return uuid.NewString()
}
