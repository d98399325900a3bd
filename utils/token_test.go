package authUtils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("s3cret", Claims{UserID: "64f0c0ffee", Email: "ana@example.com", Role: "thinktank"})
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "64f0c0ffee", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "thinktank", claims.Role)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, err := GenerateToken("", Claims{UserID: "u", Role: "citizen"})
	assert.ErrorIs(t, err, ErrSecretMissing)
}

func TestParseTokenRejects(t *testing.T) {
	good, err := GenerateToken("s3cret", Claims{UserID: "u", Role: "citizen"})
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	expiredString, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "citizen"})
	noUserString, err := noUser.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name, secret, token string
	}{
		{"wrong secret", "other", good},
		{"garbage", "s3cret", "not.a.token"},
		{"expired", "s3cret", expiredString},
		{"missing user", "s3cret", noUserString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.NotContains(t, err.Error(), "<nil>")
		})
	}
}

func TestCheckParsedInvalidWithoutError(t *testing.T) {
	err := checkParsed(&jwt.Token{Valid: false}, nil)
	assert.Equal(t, ErrInvalidToken, err)
	assert.Equal(t, "invalid authorization token", err.Error())

	assert.NoError(t, checkParsed(&jwt.Token{Valid: true}, nil))
}
