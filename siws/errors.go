package siws

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidMessage   = "siws_invalid_message"
	TextCodeInvalidSignature = "siws_invalid_signature"
	TextCodeInvalidAddress   = "siws_invalid_address"
	TextCodeDomainMismatch   = "siws_domain_mismatch"
	TextCodeNonceMismatch    = "siws_nonce_mismatch"
	TextCodeExpired          = "siws_expired"
	TextCodeNotYetValid      = "siws_not_yet_valid"
)

var (
	ErrInvalidMessage = errors.New("invalid sign-in message", errors.CategoryBadInput).
				WithTextCode(TextCodeInvalidMessage).
				WithCode(errors.CodeBadRequest)

	ErrInvalidSignature = errors.New("signature does not match address", errors.CategoryAuth).
				WithTextCode(TextCodeInvalidSignature).
				WithCode(errors.CodeUnauthorized)

	ErrInvalidAddress = errors.New("invalid stacks address", errors.CategoryBadInput).
				WithTextCode(TextCodeInvalidAddress).
				WithCode(errors.CodeBadRequest)

	ErrDomainMismatch = errors.New("message domain does not match", errors.CategoryAuth).
				WithTextCode(TextCodeDomainMismatch).
				WithCode(errors.CodeUnauthorized)

	ErrNonceMismatch = errors.New("message nonce does not match", errors.CategoryAuth).
				WithTextCode(TextCodeNonceMismatch).
				WithCode(errors.CodeUnauthorized)

	ErrExpired = errors.New("message has expired", errors.CategoryAuth).
			WithTextCode(TextCodeExpired).
			WithCode(errors.CodeUnauthorized)

	ErrNotYetValid = errors.New("message is not yet valid", errors.CategoryAuth).
			WithTextCode(TextCodeNotYetValid).
			WithCode(errors.CodeUnauthorized)
)

func invalidMessage(reason string) error {
	return errors.New("invalid sign-in message: "+reason, errors.CategoryBadInput).
		WithTextCode(TextCodeInvalidMessage).
		WithCode(errors.CodeBadRequest)
}
