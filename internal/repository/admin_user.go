package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"noticeboard/internal/model"
)

// AdminUserRepository 管理员存储库
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository 创建管理员存储库实例
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetAdminByUsername 根据用户名获取管理员
func (r *AdminUserRepository) GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	var admin model.AdminUser
	if err := r.db.GetContext(ctx, &admin, "SELECT * FROM admin_users WHERE username = ?", username); err != nil {
		return nil, err
	}
	return &admin, nil
}

// ListAdmins 获取全部管理员
func (r *AdminUserRepository) ListAdmins(ctx context.Context) ([]model.AdminUser, error) {
	admins := []model.AdminUser{}
	if err := r.db.SelectContext(ctx, &admins, "SELECT * FROM admin_users ORDER BY id"); err != nil {
		return nil, err
	}
	return admins, nil
}

// CreateAdmin 创建管理员并回填自增ID
func (r *AdminUserRepository) CreateAdmin(ctx context.Context, admin *model.AdminUser) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (username, password_hash, created_at) VALUES (?, ?, ?)
	`, admin.Username, admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	admin.ID = id
	return nil
}

// UpdatePasswordHash 更新管理员密码哈希
func (r *AdminUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE admin_users SET password_hash = ? WHERE id = ?", hash, id)
	return err
}
