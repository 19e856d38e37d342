package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"noticeboard/internal/model"
	"noticeboard/internal/seed"
)

// NoticeRepository 公告存储库
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository 创建公告存储库实例
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// 列表排序与model.ListingLess保持一致：置顶、发布时间、创建时间、id降序
const listingOrder = "ORDER BY pinned DESC, publish_date DESC, created_at DESC, id DESC"

// 显式列清单。老库可能还留着历史published列，SELECT *会扫描失败。
const noticeColumns = `id, title, description, publish_to, link, file_url, file_name,
	is_active, pinned, publish_date, created_at, updated_at, created_by_id`

// GetPublicNotices 获取公开可见的公告：is_active为真且publish_date为空或不晚于now
func (r *NoticeRepository) GetPublicNotices(ctx context.Context, category *model.Category, limit int, now time.Time) ([]model.Notice, error) {
	query := `
		SELECT `+noticeColumns+` FROM notices
		WHERE is_active = true
		  AND (publish_date IS NULL OR publish_date <= ?)
	`
	args := []interface{}{now}

	if category != nil {
		query += " AND publish_to = ?"
		args = append(args, *category)
	}

	query += " " + listingOrder + " LIMIT ?"
	args = append(args, limit)

	notices := []model.Notice{}
	if err := r.db.SelectContext(ctx, &notices, query, args...); err != nil {
		return nil, err
	}
	return notices, nil
}

// GetAdminNotices 获取全部公告（含未发布和定时未到的），不限条数
func (r *NoticeRepository) GetAdminNotices(ctx context.Context, category *model.Category) ([]model.Notice, error) {
	query := "SELECT " + noticeColumns + " FROM notices"
	args := []interface{}{}

	if category != nil {
		query += " WHERE publish_to = ?"
		args = append(args, *category)
	}
	query += " " + listingOrder

	notices := []model.Notice{}
	if err := r.db.SelectContext(ctx, &notices, query, args...); err != nil {
		return nil, err
	}
	return notices, nil
}

// GetNoticeByID 根据ID获取公告
func (r *NoticeRepository) GetNoticeByID(ctx context.Context, id int64) (*model.Notice, error) {
	var notice model.Notice
	if err := r.db.GetContext(ctx, &notice, "SELECT "+noticeColumns+" FROM notices WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &notice, nil
}

// CreateNotice 创建公告并回填自增ID
func (r *NoticeRepository) CreateNotice(ctx context.Context, n *model.Notice) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO notices
			(title, description, publish_to, link, file_url, file_name,
			 is_active, pinned, publish_date, created_at, updated_at, created_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.Title, n.Description, n.PublishTo, n.Link, n.FileURL, n.FileName,
		n.IsActive, n.Pinned, n.PublishDate, n.CreatedAt, n.UpdatedAt, n.CreatedByID)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

// UpdateNotice 整行更新公告
func (r *NoticeRepository) UpdateNotice(ctx context.Context, n *model.Notice) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notices SET
			title = ?, description = ?, publish_to = ?, link = ?,
			file_url = ?, file_name = ?, is_active = ?, pinned = ?,
			publish_date = ?, updated_at = ?
		WHERE id = ?
	`, n.Title, n.Description, n.PublishTo, n.Link,
		n.FileURL, n.FileName, n.IsActive, n.Pinned,
		n.PublishDate, n.UpdatedAt, n.ID)
	return err
}

// DeleteNotice 删除公告
func (r *NoticeRepository) DeleteNotice(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM notices WHERE id = ?", id)
	return err
}

// ListAll 读取全部公告，供文件夹同步器使用
func (r *NoticeRepository) ListAll(ctx context.Context) ([]model.Notice, error) {
	notices := []model.Notice{}
	if err := r.db.SelectContext(ctx, &notices, "SELECT "+noticeColumns+" FROM notices"); err != nil {
		return nil, err
	}
	return notices, nil
}

// DeleteMany 单条语句批量删除，一次提交
func (r *NoticeRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("DELETE FROM notices WHERE id IN (?)", ids)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ApplySeed 同步阶段的新增与刷新放在同一事务里提交
func (r *NoticeRepository) ApplySeed(ctx context.Context, creates []model.Notice, updates []seed.SeedUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range creates {
		n := &creates[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notices
				(title, description, publish_to, link, file_url, file_name,
				 is_active, pinned, publish_date, created_at, updated_at, created_by_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, n.Title, n.Description, n.PublishTo, n.Link, n.FileURL, n.FileName,
			n.IsActive, n.Pinned, n.PublishDate, n.CreatedAt, n.UpdatedAt, n.CreatedByID); err != nil {
			return err
		}
	}

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, `
			UPDATE notices SET title = ?, file_url = ?, updated_at = ? WHERE id = ?
		`, u.Title, u.FileURL, time.Now().UTC(), u.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
