// Package auth verifies identity provider session tokens and keeps the
// portal's user records in step with them.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hackutd/harp-sub001/internal/model"
)

var ErrMissingSecret = errors.New("jwt secret is required")

// Claims carry the identity, not the portal role. Roles live on the user
// record.
type Claims struct {
	Email      string           `json:"email"`
	AuthMethod model.AuthMethod `json:"auth_method"`
	Picture    *string          `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

func (v *Verifier) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Email == "" || !claims.AuthMethod.Valid() {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// NewAccessToken signs a session token the way the identity provider does.
// Used by tests and local tooling.
func NewAccessToken(secret, issuer string, ttl time.Duration, subject string, claims Claims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
