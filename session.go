package auth

import (
	"fmt"
	"time"
)

// SessionUser is the identity part of the session object exposed to clients
type SessionUser struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// SessionView is the externally visible session, rebuilt from the token on
// every read.
type SessionView struct {
	User     SessionUser `json:"user"`
	Expires  time.Time   `json:"expires"`
	IssuedAt time.Time   `json:"-"`
	TokenID  string      `json:"-"`
}

// GetUserID returns the id of the signed in user
func (s *SessionView) GetUserID() string {
	return s.User.ID
}

// GetAddress returns the stacks address of the signed in user
func (s *SessionView) GetAddress() string {
	return s.User.Address
}

func (s SessionView) String() string {
	return fmt.Sprintf(
		"user=%s address=%s exp=%s",
		s.User.ID,
		s.User.Address,
		s.Expires.Format(time.RFC3339),
	)
}

// SessionFromClaims projects the token claims into the session object
func SessionFromClaims(claims *JWTClaims) (*SessionView, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	return &SessionView{
		User: SessionUser{
			ID:      claims.UserID(),
			Address: claims.WalletAddress(),
		},
		Expires:  claims.Expires(),
		IssuedAt: claims.IssuedAt(),
		TokenID:  claims.RegisteredClaims.ID,
	}, nil
}
