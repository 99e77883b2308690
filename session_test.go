package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sigle/sigle-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFromClaims(t *testing.T) {
	exp := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "tok-1",
			Subject:   "abc",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UID:     "abc",
		Address: testAddress,
	}

	session, err := auth.SessionFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "abc", session.GetUserID())
	assert.Equal(t, testAddress, session.GetAddress())
	assert.Equal(t, exp, session.Expires.UTC())
	assert.Equal(t, "tok-1", session.TokenID)
	assert.Contains(t, session.String(), "user=abc")

	raw, err := json.Marshal(session)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"id":"abc","address":"`+testAddress+`"},"expires":"2024-07-01T00:00:00Z"}`, string(raw))
}

func TestSessionFromClaims_Nil(t *testing.T) {
	_, err := auth.SessionFromClaims(nil)
	assert.ErrorIs(t, err, auth.ErrUnableToDecodeSession)
}

func TestClaims_UserIDFallsBackToSubject(t *testing.T) {
	claims := &auth.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub"}}
	assert.Equal(t, "sub", claims.UserID())
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
}
