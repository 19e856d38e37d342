package seed

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"noticeboard/config"
	"noticeboard/internal/model"
	"noticeboard/pkg/logger"
)

// 允许同步的附件扩展名
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// SeededCategories 文件夹同步自动发布到的分类
var SeededCategories = []model.Category{
	model.CategoryNotifications,
	model.CategoryNotices,
}

// SeedUpdate 已有行的就地刷新（只动标题和URL，不碰管理员编辑过的其他字段）
type SeedUpdate struct {
	ID      int64
	Title   string
	FileURL string
}

// NoticeStore 同步器所需的公告存取能力。每个阶段单独提交一次。
type NoticeStore interface {
	ListAll(ctx context.Context) ([]model.Notice, error)
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	ApplySeed(ctx context.Context, creates []model.Notice, updates []SeedUpdate) error
}

// pairKey (file_name, publish_to)是同步行的幂等键
type pairKey struct {
	fileName string
	category model.Category
}

// Synchronizer 文件夹同步器。把外部目录当作公告的声明式来源，
// 启动时单线程执行，收敛数据库与目录一致，重复执行无副作用。
type Synchronizer struct {
	store     NoticeStore
	logger    *logger.Logger
	sourceDir string
	uploadDir string
	blocked   []string // 已归一化的黑名单条目
}

// NewSynchronizer 创建同步器实例
func NewSynchronizer(store NoticeStore, logger *logger.Logger, cfg config.NoticeConfig) *Synchronizer {
	blocked := make([]string, 0, len(cfg.BlockedTitles))
	for _, title := range cfg.BlockedTitles {
		if normalized := NormalizeForMatch(title); normalized != "" {
			blocked = append(blocked, normalized)
		}
	}
	return &Synchronizer{
		store:     store,
		logger:    logger,
		sourceDir: cfg.SourceDir,
		uploadDir: cfg.UploadDir,
		blocked:   blocked,
	}
}

// isBlocked 文件名主干或标题归一化后命中黑名单（全等，或前缀后跟空格）
func (s *Synchronizer) isBlocked(fileName, title string) bool {
	var candidates []string
	if fileName != "" {
		stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		candidates = append(candidates, NormalizeForMatch(stem))
	}
	if title != "" {
		candidates = append(candidates, NormalizeForMatch(title))
	}

	for _, candidate := range candidates {
		for _, blocked := range s.blocked {
			if candidate == blocked || strings.HasPrefix(candidate, blocked+" ") {
				return true
			}
		}
	}
	return false
}

// Run 执行一轮同步，返回变更总数（新增+更新+剔除）
func (s *Synchronizer) Run(ctx context.Context) (int, error) {
	pruned, err := s.pruneBlocked(ctx)
	if err != nil {
		return 0, err
	}

	// 来源目录缺失或不可读按"无来源"降级，只做剔除
	entries, err := os.ReadDir(s.sourceDir)
	if err != nil {
		if s.sourceDir != "" && !os.IsNotExist(err) {
			s.logger.Warn("公告来源目录不可读，跳过同步", "dir", s.sourceDir, "error", err)
		}
		return pruned, nil
	}

	targetDir := filepath.Join(s.uploadDir, "source-notices")
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		s.logger.Warn("创建同步目标目录失败，跳过同步", "dir", targetDir, "error", err)
		return pruned, nil
	}

	existing, err := s.existingPairs(ctx)
	if err != nil {
		return pruned, err
	}

	var (
		creates []model.Notice
		updates []SeedUpdate
	)

	// os.ReadDir已按文件名排序，保证扫描顺序确定
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if s.isBlocked(name, "") {
			continue
		}

		if err := s.copyIfChanged(filepath.Join(s.sourceDir, name), filepath.Join(targetDir, name)); err != nil {
			s.logger.Warn("复制公告文件失败，跳过该文件", "file", name, "error", err)
			continue
		}

		title := TitleFromFilename(name)
		fileURL := "/uploads/source-notices/" + url.PathEscape(name)

		for _, category := range SeededCategories {
			key := pairKey{fileName: name, category: category}
			if notice, ok := existing[key]; ok {
				if notice.Title != title || notice.FileURL == nil || *notice.FileURL != fileURL {
					updates = append(updates, SeedUpdate{ID: notice.ID, Title: title, FileURL: fileURL})
				}
				continue
			}

			now := time.Now().UTC()
			fileName := name
			seededURL := fileURL
			publishDate := now
			created := model.Notice{
				Title:       title,
				Description: "",
				PublishTo:   category,
				FileURL:     &seededURL,
				FileName:    &fileName,
				IsActive:    true,
				Pinned:      false,
				PublishDate: &publishDate,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			creates = append(creates, created)
			inserted := created
			existing[key] = &inserted
		}
	}

	if len(creates) > 0 || len(updates) > 0 {
		if err := s.store.ApplySeed(ctx, creates, updates); err != nil {
			return pruned, fmt.Errorf("写入同步公告失败: %w", err)
		}
	}

	return pruned + len(creates) + len(updates), nil
}

// pruneBlocked 删除命中黑名单的存量公告，有删除才提交
func (s *Synchronizer) pruneBlocked(ctx context.Context) (int, error) {
	if len(s.blocked) == 0 {
		return 0, nil
	}

	notices, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("读取公告列表失败: %w", err)
	}

	var ids []int64
	for i := range notices {
		notice := &notices[i]
		fileName := ""
		if notice.FileName != nil {
			fileName = *notice.FileName
		}
		if s.isBlocked(fileName, notice.Title) {
			ids = append(ids, notice.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("剔除黑名单公告失败: %w", err)
	}
	return int(deleted), nil
}

// existingPairs 现有同步行按(file_name, publish_to)建索引
func (s *Synchronizer) existingPairs(ctx context.Context) (map[pairKey]*model.Notice, error) {
	notices, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取公告列表失败: %w", err)
	}

	existing := make(map[pairKey]*model.Notice)
	for i := range notices {
		notice := &notices[i]
		if notice.FileName == nil {
			continue
		}
		existing[pairKey{fileName: *notice.FileName, category: notice.PublishTo}] = notice
	}
	return existing, nil
}

// copyIfChanged 大小或修改时间与来源不一致时才复制，并保留修改时间
func (s *Synchronizer) copyIfChanged(sourcePath, targetPath string) error {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return err
	}

	if targetInfo, err := os.Stat(targetPath); err == nil {
		if targetInfo.Size() == sourceInfo.Size() &&
			targetInfo.ModTime().Unix() == sourceInfo.ModTime().Unix() {
			return nil
		}
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	// 保留修改时间，下次启动据此判断文件未变
	return os.Chtimes(targetPath, sourceInfo.ModTime(), sourceInfo.ModTime())
}
