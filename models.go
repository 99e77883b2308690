package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// Credential is the sign-in payload submitted by the wallet client. It is
// used once per attempt and never persisted.
type Credential struct {
	Message   string `form:"message" json:"message"`
	Signature string `form:"signature" json:"signature"`
	CSRFToken string `form:"csrfToken" json:"csrfToken"`
}

// Validate checks that every field is present and non-empty
func (c Credential) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Message, validation.Required),
		validation.Field(&c.Signature, validation.Required),
		validation.Field(&c.CSRFToken, validation.Required),
	)
}

// VerifiedIdentity is the wallet address proven by a valid signature
type VerifiedIdentity struct {
	Address string `json:"address"`
}

// User is the application identity: a stable id assigned by the
// identity-sync backend and the wallet address it belongs to.
type User struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}
