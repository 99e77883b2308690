package auth

// TokenValidator turns a session token back into its claims
type TokenValidator interface {
	Validate(tokenString string) (*JWTClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator
type TokenValidatorFunc func(tokenString string) (*JWTClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (*JWTClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// MultiTokenValidator accepts session tokens signed by any secret of a key
// rotation. The first validator holds the current secret. A signature
// mismatch falls through to the next validator, any other failure such as
// an expired session is final.
type MultiTokenValidator struct {
	validators []TokenValidator
	logger     Logger
}

// NewMultiTokenValidator drops nil validators and keeps the order given
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	m := &MultiTokenValidator{logger: defLogger{}}
	for _, v := range validators {
		if v != nil {
			m.validators = append(m.validators, v)
		}
	}
	return m
}

// NewSecretRotationValidator validates against the signing key of cfg, then
// against each previous secret. Blank secrets and repeats of an earlier
// secret are skipped.
func NewSecretRotationValidator(cfg Config, logger Logger, previous ...string) *MultiTokenValidator {
	logger = normalizeLogger(logger)
	seen := map[string]bool{}

	var validators []TokenValidator
	for _, secret := range append([]string{cfg.GetSigningKey()}, previous...) {
		if secret == "" || seen[secret] {
			continue
		}
		seen[secret] = true
		validators = append(validators, NewTokenService(
			[]byte(secret),
			cfg.GetSessionMaxAge(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
			logger,
		))
	}

	return NewMultiTokenValidator(validators...).WithLogger(logger)
}

func (m *MultiTokenValidator) WithLogger(logger Logger) *MultiTokenValidator {
	m.logger = normalizeLogger(logger)
	return m
}

// Len returns how many secrets are accepted
func (m *MultiTokenValidator) Len() int {
	return len(m.validators)
}

func (m *MultiTokenValidator) Validate(tokenString string) (*JWTClaims, error) {
	var mismatch error
	for i, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			if i > 0 {
				m.logger.Debug("session signed with a previous secret", "generation", i)
			}
			return claims, nil
		}
		if !IsMalformedError(err) {
			return nil, err
		}
		mismatch = err
	}

	if mismatch != nil {
		return nil, mismatch
	}
	return nil, ErrTokenMalformed
}
