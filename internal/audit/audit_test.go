package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"noticeboard/internal/model"
	"noticeboard/pkg/logger"
)

// fakeCredentialStore 内存凭据存储，供审计测试使用
type fakeCredentialStore struct {
	admins []model.AdminUser
}

func (s *fakeCredentialStore) ListAdmins(ctx context.Context) ([]model.AdminUser, error) {
	out := make([]model.AdminUser, len(s.admins))
	copy(out, s.admins)
	return out, nil
}

func (s *fakeCredentialStore) GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	for i := range s.admins {
		if s.admins[i].Username == username {
			admin := s.admins[i]
			return &admin, nil
		}
	}
	return nil, assert.AnError
}

func (s *fakeCredentialStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	for i := range s.admins {
		if s.admins[i].ID == id {
			s.admins[i].PasswordHash = hash
			return nil
		}
	}
	return assert.AnError
}

func (s *fakeCredentialStore) hashOf(username string) string {
	for i := range s.admins {
		if s.admins[i].Username == username {
			return s.admins[i].PasswordHash
		}
	}
	return ""
}

func testLogger() *logger.Logger {
	return logger.NewLogger("error")
}

func mustHash(t *testing.T, plaintext string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestIsValidBcryptHash(t *testing.T) {
	valid := "$2b$12$" + "abcdefghijklmnopqrstuvABCDEFGHIJKLMNOPQRSTUVWXYZ01234"
	require.Len(t, valid, 60)

	tests := []struct {
		name  string
		hash  string
		valid bool
	}{
		{"60字符且前缀合法", valid, true},
		{"真实bcrypt输出", mustHash(t, "admin123"), true},
		{"明文密码", "plainpw", false},
		{"空哈希", "", false},
		{"长度不足", "$2b$12$short", false},
		{"前缀不认识", "$9z$12$" + "abcdefghijklmnopqrstuvABCDEFGHIJKLMNOPQRSTUVWXYZ01234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidBcryptHash(tt.hash))
		})
	}
}

func TestAuditorRunValidHashUntouched(t *testing.T) {
	original := mustHash(t, "real-password")
	store := &fakeCredentialStore{admins: []model.AdminUser{
		{ID: 1, Username: "admin", PasswordHash: original},
	}}

	report := NewAuditor(store, "admin123", testLogger()).Run(context.Background())

	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.NeedsMigration)
	assert.Equal(t, 0, report.Migrated)
	assert.Empty(t, report.Errors)
	assert.Equal(t, original, store.hashOf("admin"), "合法哈希必须原样保留")
}

func TestAuditorRunMigratesPlaintext(t *testing.T) {
	store := &fakeCredentialStore{admins: []model.AdminUser{
		{ID: 1, Username: "admin", PasswordHash: "admin123"},
	}}

	report := NewAuditor(store, "admin123", testLogger()).Run(context.Background())

	require.Len(t, report.NeedsMigration, 1)
	assert.Equal(t, ActionFromPlaintext, report.NeedsMigration[0].Action)
	assert.Equal(t, 1, report.Migrated)
	assert.Empty(t, report.Errors)

	newHash := store.hashOf("admin")
	assert.True(t, IsValidBcryptHash(newHash))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("admin123")),
		"修复后的哈希必须能验证配置的默认密码")
}

func TestAuditorRunMalformedHashReported(t *testing.T) {
	store := &fakeCredentialStore{admins: []model.AdminUser{
		{ID: 1, Username: "legacy", PasswordHash: "$1$md5crypt$abcdefghijklmnopqrstuvwxyz0123456789abcdefghijk0123"},
	}}

	report := NewAuditor(store, "admin123", testLogger()).Run(context.Background())

	require.Len(t, report.NeedsMigration, 1)
	assert.Equal(t, ActionMalformed, report.NeedsMigration[0].Action)
	assert.Equal(t, 1, report.Migrated)
	require.Len(t, report.Errors, 1, "无法识别的格式要进错误列表提醒运维")
	assert.Equal(t, "legacy", report.Errors[0].Username)
	assert.True(t, IsValidBcryptHash(store.hashOf("legacy")))
}

func TestAuditorRunMixedAccounts(t *testing.T) {
	store := &fakeCredentialStore{admins: []model.AdminUser{
		{ID: 1, Username: "good", PasswordHash: mustHash(t, "keep-me")},
		{ID: 2, Username: "plain", PasswordHash: "oldpassword"},
		{ID: 3, Username: "broken", PasswordHash: "???"},
	}}

	report := NewAuditor(store, "admin123", testLogger()).Run(context.Background())

	assert.Equal(t, 3, report.Checked)
	assert.Len(t, report.NeedsMigration, 2)
	assert.Equal(t, 2, report.Migrated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.hashOf("good")), []byte("keep-me")))
}

func TestForceRehash(t *testing.T) {
	store := &fakeCredentialStore{admins: []model.AdminUser{
		{ID: 1, Username: "admin", PasswordHash: mustHash(t, "old-password")},
	}}
	auditor := NewAuditor(store, "admin123", testLogger())

	require.NoError(t, auditor.ForceRehash(context.Background(), "admin", "new-password"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.hashOf("admin")), []byte("new-password")))

	assert.Error(t, auditor.ForceRehash(context.Background(), "nobody", "x"))
}
