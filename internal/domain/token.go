package domain

// TokenSubject is what a caller asks the issuer to sign.
type TokenSubject struct {
	SubjectID   string
	AccountType AccountType
}

// TokenPayload is the decoded content of an access or refresh token.
type TokenPayload struct {
	SubjectID   string      `json:"id"`
	AccountType AccountType `json:"accountType"`
	JTI         string      `json:"jti"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
