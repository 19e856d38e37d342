package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"noticeboard/config"
	"noticeboard/internal/model"
	"noticeboard/internal/repository"
	"noticeboard/pkg/logger"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("invalid username or password")

// AdminService 管理员服务
type AdminService struct {
	adminRepo *repository.AdminUserRepository
	adminCfg  config.AdminConfig
	logger    *logger.Logger
}

// NewAdminService 创建管理员服务实例
func NewAdminService(adminRepo *repository.AdminUserRepository, adminCfg config.AdminConfig, logger *logger.Logger) *AdminService {
	return &AdminService{
		adminRepo: adminRepo,
		adminCfg:  adminCfg,
		logger:    logger,
	}
}

// Authenticate 校验用户名密码，失败一律返回ErrInvalidCredentials
func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*model.AdminUser, error) {
	admin, err := s.adminRepo.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !verifyPassword(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// GetByUsername 根据用户名获取管理员
func (s *AdminService) GetByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	return s.adminRepo.GetAdminByUsername(ctx, username)
}

// EnsureDefaultAdmin 不存在默认管理员时创建一个，身份来自配置
func (s *AdminService) EnsureDefaultAdmin(ctx context.Context) error {
	_, err := s.adminRepo.GetAdminByUsername(ctx, s.adminCfg.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.adminCfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.AdminUser{
		Username:     s.adminCfg.Username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.adminRepo.CreateAdmin(ctx, admin); err != nil {
		return err
	}

	s.logger.Info("已创建默认管理员", "username", admin.Username)
	return nil
}

// verifyPassword 校验密码。空哈希、格式非法、底层校验异常都按校验失败处理，
// 绝不向上抛出。
func verifyPassword(plain, hash string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
