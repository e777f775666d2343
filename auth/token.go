package auth

import (
	"fmt"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var _ contract.IdentityValidator = (*TokenValidator)(nil)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// TokenValidator checks HS256 tokens issued by the account service.
type TokenValidator struct {
	secret []byte
	issuer string
}

func NewTokenValidator(secret, issuer string) TokenValidator {
	return TokenValidator{secret: []byte(secret), issuer: issuer}
}

// GenerateToken creates a signed JWT for a specific user.
// Only used by tooling; identities are issued outside this service.
func GenerateToken(secret, issuer string, identity domain.Identity, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:      identity.ID,
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates the signature, issuer and expiration of a JWT string.
func (v TokenValidator) ValidateToken(tokenString string) (*CustomClaims, error) {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, options...)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// Validate turns a bearer token into an identity.
// A badly signed or expired token is ErrUnauthenticated; a valid token
// without user id or display name is ErrIdentityRequired.
func (v TokenValidator) Validate(credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, fmt.Errorf("%w: token is missing", errors.ErrUnauthenticated)
	}
	claims, err := v.ValidateToken(credential)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	identity := domain.Identity{ID: claims.UserID, DisplayName: claims.DisplayName}
	if err := domain.ValidateIdentity(identity); err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}
