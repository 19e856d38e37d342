package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"noticeboard/pkg/logger"
)

// Step 一次有版本号的结构迁移。只做加法，不删列不改名，可重复执行。
type Step struct {
	Version int
	Name    string
	Run     func(ctx context.Context, m *Migrator) error
}

// Migrator 结构演进管理器。启动时先于一切业务查询执行。
type Migrator struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewMigrator 创建迁移管理器实例
func NewMigrator(db *sqlx.DB, logger *logger.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// steps 全部迁移步骤，按版本号顺序执行
func steps() []Step {
	return []Step{
		{
			Version: 1,
			Name:    "notices_publish_date",
			Run:     ensurePublishDateColumn,
		},
		{
			Version: 2,
			Name:    "notices_is_active",
			Run:     ensureIsActiveColumn,
		},
	}
}

// Run 建基础表、补齐迁移账本，然后执行未应用的步骤。任一步骤失败即返回错误。
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.ensureBaseTables(ctx); err != nil {
		return fmt.Errorf("创建基础表失败: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at DATETIME NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`); err != nil {
		return fmt.Errorf("创建迁移账本失败: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("读取迁移账本失败: %w", err)
	}

	for _, step := range pendingSteps(applied, steps()) {
		if err := step.Run(ctx, m); err != nil {
			return fmt.Errorf("迁移 %d(%s) 执行失败: %w", step.Version, step.Name, err)
		}
		if _, err := m.db.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			step.Version, step.Name, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("记录迁移 %d 失败: %w", step.Version, err)
		}
		m.logger.Info("结构迁移已应用", "version", step.Version, "name", step.Name)
	}

	return nil
}

// pendingSteps 过滤掉已应用的步骤并按版本号升序返回
func pendingSteps(applied map[int]bool, all []Step) []Step {
	var pending []Step
	for _, step := range all {
		if !applied[step.Version] {
			pending = append(pending, step)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})
	return pending
}

// appliedVersions 读取已应用的版本集合
func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	var versions []int
	if err := m.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return nil, err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// ensureBaseTables 按当前模型建表（IF NOT EXISTS，已部署库不受影响）
func (m *Migrator) ensureBaseTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS admin_users (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE KEY uk_admin_users_username (username)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS notices (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			publish_to VARCHAR(32) NOT NULL,
			link VARCHAR(2048) NULL,
			file_url VARCHAR(2048) NULL,
			file_name VARCHAR(255) NULL,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			pinned TINYINT(1) NOT NULL DEFAULT 0,
			publish_date DATETIME NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			created_by_id BIGINT NULL,
			KEY idx_notices_publish_to (publish_to),
			KEY idx_notices_is_active (is_active),
			KEY idx_notices_publish_date (publish_date),
			KEY idx_notices_created_at (created_at),
			CONSTRAINT fk_notices_created_by FOREIGN KEY (created_by_id)
				REFERENCES admin_users (id) ON DELETE SET NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ensurePublishDateColumn notices表缺少publish_date列时补列，并从created_at回填存量行
func ensurePublishDateColumn(ctx context.Context, m *Migrator) error {
	exists, err := m.tableExists(ctx, "notices")
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	hasColumn, err := m.columnExists(ctx, "notices", "publish_date")
	if err != nil {
		return err
	}
	if !hasColumn {
		if _, err := m.db.ExecContext(ctx, "ALTER TABLE notices ADD COLUMN publish_date DATETIME NULL"); err != nil {
			return fmt.Errorf("添加publish_date列失败: %w", err)
		}
	}

	// 回填带WHERE守卫，补列后崩溃重跑也只会补齐漏掉的行
	if _, err := m.db.ExecContext(ctx, "UPDATE notices SET publish_date = created_at WHERE publish_date IS NULL"); err != nil {
		return fmt.Errorf("回填publish_date失败: %w", err)
	}
	return nil
}

// ensureIsActiveColumn notices表缺少is_active列时补列，存在历史published列时从其回填
func ensureIsActiveColumn(ctx context.Context, m *Migrator) error {
	exists, err := m.tableExists(ctx, "notices")
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	hasColumn, err := m.columnExists(ctx, "notices", "is_active")
	if err != nil {
		return err
	}
	if !hasColumn {
		if _, err := m.db.ExecContext(ctx, "ALTER TABLE notices ADD COLUMN is_active TINYINT(1) NOT NULL DEFAULT 1"); err != nil {
			return fmt.Errorf("添加is_active列失败: %w", err)
		}
	}

	hasLegacy, err := m.columnExists(ctx, "notices", "published")
	if err != nil {
		return err
	}
	if hasLegacy {
		if _, err := m.db.ExecContext(ctx, "UPDATE notices SET is_active = published"); err != nil {
			return fmt.Errorf("从published回填is_active失败: %w", err)
		}
	}
	return nil
}

// tableExists 通过information_schema探测表是否存在
func (m *Migrator) tableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := m.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?
	`, table)
	return count > 0, err
}

// columnExists 通过information_schema探测列是否存在
func (m *Migrator) columnExists(ctx context.Context, table, column string) (bool, error) {
	var count int
	err := m.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?
	`, table, column)
	return count > 0, err
}
