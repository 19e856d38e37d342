package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noticeboard/internal/model"
)

func TestGenerateAndParseToken(t *testing.T) {
	admin := &model.AdminUser{ID: 1, Username: "admin"}

	token, expiresAt, err := GenerateToken("test-secret", admin, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ParseToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "noticeboard", claims.Issuer)
}

func TestParseTokenWrongSecret(t *testing.T) {
	admin := &model.AdminUser{ID: 1, Username: "admin"}

	token, _, err := GenerateToken("secret-a", admin, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("secret-b", token)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	admin := &model.AdminUser{ID: 1, Username: "admin"}

	token, _, err := GenerateToken("test-secret", admin, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("test-secret", token)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("test-secret", "not-a-token")
	assert.Error(t, err)
}
