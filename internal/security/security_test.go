package security_test

import (
	"testing"
	"time"

	"github.com/baechuer/property-recs/internal/security"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func baseClaims(uid string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"uid":  uid,
		"role": "user",
		"iat":  time.Now().Unix(),
		"exp":  exp.Unix(),
		"iss":  "auth-service",
	}
}

func TestHS256Verifier_VerifyAccessToken(t *testing.T) {
	v := security.NewHS256Verifier("supersecret", "")

	t.Run("valid token", func(t *testing.T) {
		token := sign(t, "supersecret", baseClaims("42", time.Now().Add(time.Hour)))
		claims, err := v.VerifyAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "user", claims.Role)
		assert.Equal(t, "auth-service", claims.Issuer)
	})

	t.Run("subject fallback", func(t *testing.T) {
		c := baseClaims("", time.Now().Add(time.Hour))
		c["sub"] = "7"
		claims, err := v.VerifyAccessToken(sign(t, "supersecret", c))
		require.NoError(t, err)
		assert.Equal(t, int64(7), claims.UserID)
	})

	t.Run("expired token", func(t *testing.T) {
		token := sign(t, "supersecret", baseClaims("42", time.Now().Add(-time.Minute)))
		_, err := v.VerifyAccessToken(token)
		assert.ErrorIs(t, err, security.ErrTokenExpired)
	})

	t.Run("wrong signature", func(t *testing.T) {
		token := sign(t, "othersecret", baseClaims("42", time.Now().Add(time.Hour)))
		_, err := v.VerifyAccessToken(token)
		assert.ErrorIs(t, err, security.ErrTokenInvalid)
	})

	t.Run("non numeric uid", func(t *testing.T) {
		token := sign(t, "supersecret", baseClaims("abc", time.Now().Add(time.Hour)))
		_, err := v.VerifyAccessToken(token)
		assert.ErrorIs(t, err, security.ErrTokenInvalid)
	})

	t.Run("wrong alg", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, baseClaims("42", time.Now().Add(time.Hour)))
		s, err := tok.SignedString([]byte("supersecret"))
		require.NoError(t, err)
		_, err = v.VerifyAccessToken(s)
		assert.ErrorIs(t, err, security.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.VerifyAccessToken("not-a-token")
		assert.ErrorIs(t, err, security.ErrTokenInvalid)
	})
}

func TestHS256Verifier_Issuer(t *testing.T) {
	v := security.NewHS256Verifier("supersecret", "auth-service")

	_, err := v.VerifyAccessToken(sign(t, "supersecret", baseClaims("42", time.Now().Add(time.Hour))))
	require.NoError(t, err)

	c := baseClaims("42", time.Now().Add(time.Hour))
	c["iss"] = "someone-else"
	_, err = v.VerifyAccessToken(sign(t, "supersecret", c))
	assert.ErrorIs(t, err, security.ErrTokenInvalid)
}
