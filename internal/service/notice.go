package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"noticeboard/internal/model"
	"noticeboard/internal/repository"
	"noticeboard/pkg/async"
	"noticeboard/pkg/logger"
	"noticeboard/pkg/storage"
)

// ErrNoticeNotFound 公告不存在或对公众不可见
var ErrNoticeNotFound = errors.New("notice not found")

// NoticeService 公告服务
type NoticeService struct {
	noticeRepo  *repository.NoticeRepository
	redisClient *redis.Client
	storage     *storage.Storage
	worker      *async.Worker
	logger      *logger.Logger
}

// NewNoticeService 创建公告服务实例
func NewNoticeService(noticeRepo *repository.NoticeRepository, redisClient *redis.Client, storage *storage.Storage, worker *async.Worker, logger *logger.Logger) *NoticeService {
	return &NoticeService{
		noticeRepo:  noticeRepo,
		redisClient: redisClient,
		storage:     storage,
		worker:      worker,
		logger:      logger,
	}
}

// GetPublicNotices 获取公开可见公告列表，按(分类, 条数)缓存
func (s *NoticeService) GetPublicNotices(ctx context.Context, category *model.Category, limit int) ([]model.Notice, error) {
	catKey := "all"
	if category != nil {
		catKey = string(*category)
	}
	cacheKey := fmt.Sprintf("notices:public:%s:%d", catKey, limit)

	// 尝试从缓存获取
	if cachedData, err := s.redisClient.Get(ctx, cacheKey).Bytes(); err == nil {
		var notices []model.Notice
		if err := json.Unmarshal(cachedData, &notices); err == nil {
			return notices, nil
		}
	}

	// 缓存未命中，从数据库获取
	notices, err := s.noticeRepo.GetPublicNotices(ctx, category, limit, time.Now().UTC())
	if err != nil {
		s.logger.Error("获取公开公告列表失败", "error", err)
		return nil, err
	}

	if data, err := json.Marshal(notices); err == nil {
		s.redisClient.Set(ctx, cacheKey, data, 5*time.Minute)
	}
	return notices, nil
}

// GetPublicNoticeByID 获取单条公开公告，不可见视同不存在
func (s *NoticeService) GetPublicNoticeByID(ctx context.Context, id int64) (*model.Notice, error) {
	notice, err := s.noticeRepo.GetNoticeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoticeNotFound
		}
		return nil, err
	}
	if !notice.VisibleAt(time.Now().UTC()) {
		return nil, ErrNoticeNotFound
	}
	return notice, nil
}

// GetAdminNotices 管理员获取全部公告
func (s *NoticeService) GetAdminNotices(ctx context.Context, category *model.Category) ([]model.Notice, error) {
	return s.noticeRepo.GetAdminNotices(ctx, category)
}

// GetNoticeByID 管理员获取单条公告（含不可见）
func (s *NoticeService) GetNoticeByID(ctx context.Context, id int64) (*model.Notice, error) {
	notice, err := s.noticeRepo.GetNoticeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoticeNotFound
		}
		return nil, err
	}
	return notice, nil
}

// CreateNotice 创建公告
func (s *NoticeService) CreateNotice(ctx context.Context, n *model.Notice) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	if err := s.noticeRepo.CreateNotice(ctx, n); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// UpdateNotice 更新公告并刷新updated_at
func (s *NoticeService) UpdateNotice(ctx context.Context, n *model.Notice) error {
	n.UpdatedAt = time.Now().UTC()

	if err := s.noticeRepo.UpdateNotice(ctx, n); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// DeleteNotice 删除公告，托管附件尽力清理
func (s *NoticeService) DeleteNotice(ctx context.Context, id int64) error {
	notice, err := s.GetNoticeByID(ctx, id)
	if err != nil {
		return err
	}

	if notice.FileURL != nil {
		s.CleanupAttachment(*notice.FileURL)
	}

	if err := s.noticeRepo.DeleteNotice(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// CleanupAttachment 异步删除托管附件。删除失败只记日志，
// 远端留下孤儿对象是接受的失败模式。
func (s *NoticeService) CleanupAttachment(fileURL string) {
	if !s.storage.IsManagedURL(fileURL) {
		return
	}
	s.worker.Submit("attachment_delete", func(ctx context.Context) error {
		return s.storage.Delete(ctx, fileURL)
	})
}

// invalidateCache 使公开列表缓存失效
func (s *NoticeService) invalidateCache(ctx context.Context) {
	iter := s.redisClient.Scan(ctx, 0, "notices:public:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Error("删除缓存失败", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("遍历缓存键失败", "error", err)
	}
}
