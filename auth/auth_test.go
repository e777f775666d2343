package auth

import (
	"presence-hub/domain"
	"presence-hub/errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	secret = "a_test_secret_long_enough_for_hs256"
	issuer = "presence-hub"
)

func TestTokenValidator_Valid_Token(t *testing.T) {
	req := require.New(t)
	identity := domain.Identity{ID: "u-1", DisplayName: "xavier"}
	token, err := GenerateToken(secret, issuer, identity, time.Hour)
	req.NoError(err)

	got, err := NewTokenValidator(secret, issuer).Validate(token)

	req.NoError(err)
	req.Equal(identity, got)
}

func TestTokenValidator_Rejects(t *testing.T) {
	identity := domain.Identity{ID: "u-1", DisplayName: "xavier"}
	expired, err := GenerateToken(secret, issuer, identity, -time.Minute)
	require.NoError(t, err)
	otherSecret, err := GenerateToken("another_secret_of_some_length", issuer, identity, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := GenerateToken(secret, "someone-else", identity, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{UserID: "u-1", DisplayName: "xavier"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage", "not.a.token"},
		{"expired", expired},
		{"wrong secret", otherSecret},
		{"wrong issuer", otherIssuer},
		{"alg none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenValidator(secret, issuer).Validate(tt.token)
			require.ErrorIs(t, err, errors.ErrUnauthenticated)
		})
	}
}

func TestTokenValidator_Missing_Display_Name(t *testing.T) {
	req := require.New(t)
	token, err := GenerateToken(secret, issuer, domain.Identity{ID: "u-1"}, time.Hour)
	req.NoError(err)

	_, err = NewTokenValidator(secret, issuer).Validate(token)

	req.ErrorIs(err, errors.ErrIdentityRequired)
}
