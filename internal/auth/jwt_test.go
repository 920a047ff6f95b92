package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackutd/harp-sub001/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, "st-1", Claims{
		Email:      "ada@example.com",
		AuthMethod: model.AuthMethodPasswordless,
	})
	require.NoError(t, err)

	verifier, err := NewVerifier("secret", "issuer")
	require.NoError(t, err)
	claims, err := verifier.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "st-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, model.AuthMethodPasswordless, claims.AuthMethod)
}

func TestVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("", "issuer")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerifierRejects(t *testing.T) {
	verifier, err := NewVerifier("secret", "issuer")
	require.NoError(t, err)
	valid := Claims{Email: "ada@example.com", AuthMethod: model.AuthMethodGoogle}

	cases := map[string]func() string{
		"wrong secret": func() string {
			token, _ := NewAccessToken("other", "issuer", time.Minute, "st-1", valid)
			return token
		},
		"wrong issuer": func() string {
			token, _ := NewAccessToken("secret", "someone-else", time.Minute, "st-1", valid)
			return token
		},
		"expired": func() string {
			token, _ := NewAccessToken("secret", "issuer", -time.Minute, "st-1", valid)
			return token
		},
		"missing subject": func() string {
			token, _ := NewAccessToken("secret", "issuer", time.Minute, "", valid)
			return token
		},
		"unknown auth method": func() string {
			token, _ := NewAccessToken("secret", "issuer", time.Minute, "st-1", Claims{Email: "ada@example.com", AuthMethod: "magic"})
			return token
		},
		"none algorithm": func() string {
			token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
				Email:            "ada@example.com",
				AuthMethod:       model.AuthMethodGoogle,
				RegisteredClaims: jwt.RegisteredClaims{Subject: "st-1", Issuer: "issuer"},
			})
			signed, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			return signed
		},
		"garbage": func() string { return "not-a-token" },
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Parse(build())
			assert.Error(t, err)
		})
	}
}
