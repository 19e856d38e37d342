package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"noticeboard/internal/model"
	"noticeboard/pkg/logger"
)

// bcrypt编码后的哈希固定60字符
const bcryptHashLength = 60

// 当前引擎认可的bcrypt版本前缀
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// 修复动作说明
const (
	ActionVersionMismatch = "rehashed: bcrypt version mismatch"
	ActionFromPlaintext   = "auto-migrated from plaintext"
	ActionMalformed       = "rehashed: unrecognized hash format"
)

// CredentialStore 审计所需的凭据存取能力
type CredentialStore interface {
	ListAdmins(ctx context.Context) ([]model.AdminUser, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// MigrationItem 单个账号的修复记录
type MigrationItem struct {
	Username string `json:"username"`
	Action   string `json:"action"`
}

// ErrorItem 审计中需要运维关注的问题
type ErrorItem struct {
	Username string `json:"username,omitempty"`
	Issue    string `json:"issue"`
}

// Report 凭据审计结果，供启动日志消费
type Report struct {
	Checked        int             `json:"checked"`
	NeedsMigration []MigrationItem `json:"needs_migration"`
	Migrated       int             `json:"migrated"`
	Errors         []ErrorItem     `json:"errors"`
}

// Auditor 凭据完整性审计器。扫描存量密码哈希，自动修复非法格式。
//
// 注意：自动修复用的是配置的默认管理员密码。只有账号真实密码恰好等于默认值
// 时修复才是无损的，否则等同于把密码重置为默认值。这是有意的运维取舍，
// 每次修复都会记录在报告和日志里。
type Auditor struct {
	store           CredentialStore
	defaultPassword string
	logger          *logger.Logger
}

// NewAuditor 创建审计器实例
func NewAuditor(store CredentialStore, defaultPassword string, logger *logger.Logger) *Auditor {
	return &Auditor{store: store, defaultPassword: defaultPassword, logger: logger}
}

// IsValidBcryptHash 判断哈希是否为合法的bcrypt编码：非空、恰好60字符、版本前缀可识别
func IsValidBcryptHash(hash string) bool {
	if len(hash) != bcryptHashLength {
		return false
	}
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}

// looksLikePlaintext 短于60字符且没有$前缀，按历史明文密码处理
func looksLikePlaintext(hash string) bool {
	return len(hash) > 0 && len(hash) < bcryptHashLength && !strings.HasPrefix(hash, "$")
}

// engineCompatible 用当前哈希引擎做一次探测比较。能得出"匹配"或"不匹配"
// 结论说明引擎认识这个哈希；解析类错误说明是不兼容的bcrypt版本。
func engineCompatible(hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("credential-audit-canary"))
	return err == nil || errors.Is(err, bcrypt.ErrMismatchedHashAndPassword)
}

// Run 扫描全部管理员凭据并自动修复。单行失败只记入报告，从不中断扫描，
// 也从不向上抛错中止启动。
func (a *Auditor) Run(ctx context.Context) *Report {
	report := &Report{
		NeedsMigration: []MigrationItem{},
		Errors:         []ErrorItem{},
	}

	admins, err := a.store.ListAdmins(ctx)
	if err != nil {
		a.logger.Error("凭据审计读取管理员列表失败", "error", err)
		report.Errors = append(report.Errors, ErrorItem{Issue: fmt.Sprintf("list admins: %v", err)})
		return report
	}

	for i := range admins {
		a.auditOne(ctx, &admins[i], report)
	}
	return report
}

// auditOne 审计单个账号，panic也被隔离成一条错误记录
func (a *Auditor) auditOne(ctx context.Context, admin *model.AdminUser, report *Report) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("凭据审计单行异常", "username", admin.Username, "panic", r)
			report.Errors = append(report.Errors, ErrorItem{
				Username: admin.Username,
				Issue:    fmt.Sprintf("audit panic: %v", r),
			})
		}
	}()

	report.Checked++
	hash := admin.PasswordHash

	switch {
	case IsValidBcryptHash(hash) && engineCompatible(hash):
		// 合法且当前引擎可校验，保持原样
		return

	case IsValidBcryptHash(hash):
		// 格式合法但引擎无法处理，按版本不匹配修复
		a.remediate(ctx, admin, ActionVersionMismatch, report, false)

	case looksLikePlaintext(hash):
		// 历史明文密码
		a.remediate(ctx, admin, ActionFromPlaintext, report, false)

	default:
		// 无法识别的格式，原密码不可恢复，需要运维关注
		a.remediate(ctx, admin, ActionMalformed, report, true)
	}
}

// remediate 用配置的默认密码重新哈希并落库
func (a *Auditor) remediate(ctx context.Context, admin *model.AdminUser, action string, report *Report, asError bool) {
	report.NeedsMigration = append(report.NeedsMigration, MigrationItem{
		Username: admin.Username,
		Action:   action,
	})

	newHash, err := bcrypt.GenerateFromPassword([]byte(a.defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		a.logger.Error("凭据修复生成哈希失败", "username", admin.Username, "error", err)
		report.Errors = append(report.Errors, ErrorItem{
			Username: admin.Username,
			Issue:    fmt.Sprintf("generate hash: %v", err),
		})
		return
	}

	if err := a.store.UpdatePasswordHash(ctx, admin.ID, string(newHash)); err != nil {
		a.logger.Error("凭据修复落库失败", "username", admin.Username, "error", err)
		report.Errors = append(report.Errors, ErrorItem{
			Username: admin.Username,
			Issue:    fmt.Sprintf("persist hash: %v", err),
		})
		return
	}

	report.Migrated++
	a.logger.Warn("凭据已用默认密码重置", "username", admin.Username, "action", action)

	if asError {
		report.Errors = append(report.Errors, ErrorItem{
			Username: admin.Username,
			Issue:    "unrecognized hash format, password reset to configured default",
		})
	}
}

// ForceRehash 运维已知某账号真实明文密码时的强制修复，与自动扫描无关
func (a *Auditor) ForceRehash(ctx context.Context, username, plaintext string) error {
	admin, err := a.store.GetAdminByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("查找管理员失败: %w", err)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("生成哈希失败: %w", err)
	}

	if err := a.store.UpdatePasswordHash(ctx, admin.ID, string(newHash)); err != nil {
		return fmt.Errorf("更新密码哈希失败: %w", err)
	}

	a.logger.Info("凭据已强制重置", "username", username)
	return nil
}
