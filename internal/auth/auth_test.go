package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-tracker/internal/model"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("", "anything"))
}

func TestRefreshTokenGeneration(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64) // 32 bytes hex
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashRefreshToken(raw))
}

func TestAccessTokenClaims(t *testing.T) {
	tokens := NewTokens("secret", "meetings", 15*time.Minute)
	raw, issued, err := tokens.Make("uid-1", model.RoleManager)
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UserID)
	assert.Equal(t, "MANAGER", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)

	diff := time.Until(claims.ExpiresAt.Time)
	assert.True(t, diff > 14*time.Minute && diff <= 15*time.Minute, "expiry %v", diff)
}

func TestAlgorithmConfusion(t *testing.T) {
	tokens := NewTokens("secret", "meetings", time.Minute)
	raw, _, err := tokens.Make("uid", model.RoleEmployee)
	require.NoError(t, err)

	_, err = NewTokens("wrong-secret", "meetings", time.Minute).Parse(raw)
	assert.Error(t, err)

	_, err = tokens.Parse("not.a.token")
	assert.Error(t, err)

	// unsigned token must be rejected
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "uid", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "meetings",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(s)
	assert.Error(t, err)
}

func TestWrongIssuerRejected(t *testing.T) {
	raw, _, err := NewTokens("secret", "other", time.Minute).Make("uid", model.RoleAdmin)
	require.NoError(t, err)
	_, err = NewTokens("secret", "meetings", time.Minute).Parse(raw)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tokens := NewTokens("secret", "meetings", time.Minute)
	c := &Claims{UserID: "uid", Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "meetings",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Parse(s)
	assert.Error(t, err)
}

func TestEmailAllowed(t *testing.T) {
	tests := []struct {
		email   string
		domains []string
		want    bool
	}{
		{"a@ey.com", nil, true},
		{"a@ey.com", []string{"ey.com"}, true},
		{"a@EY.com", []string{"@ey.com"}, true},
		{"a@evil-ey.com", []string{"ey.com"}, false},
		{"a@ey.com.evil.io", []string{"ey.com"}, false},
		{"no-at-sign", []string{"ey.com"}, false},
		{"a@other.org", []string{"ey.com", "other.org"}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EmailAllowed(tt.email, tt.domains), tt.email)
	}
}
