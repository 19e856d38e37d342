package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noticeboard/config"
	"noticeboard/internal/model"
	"noticeboard/pkg/logger"
)

// fakeNoticeStore 内存公告存储，供同步测试使用
type fakeNoticeStore struct {
	notices []model.Notice
	nextID  int64
}

func (s *fakeNoticeStore) ListAll(ctx context.Context) ([]model.Notice, error) {
	out := make([]model.Notice, len(s.notices))
	copy(out, s.notices)
	return out, nil
}

func (s *fakeNoticeStore) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	idSet := make(map[int64]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	var kept []model.Notice
	var deleted int64
	for _, notice := range s.notices {
		if idSet[notice.ID] {
			deleted++
			continue
		}
		kept = append(kept, notice)
	}
	s.notices = kept
	return deleted, nil
}

func (s *fakeNoticeStore) ApplySeed(ctx context.Context, creates []model.Notice, updates []SeedUpdate) error {
	for _, notice := range creates {
		s.nextID++
		notice.ID = s.nextID
		s.notices = append(s.notices, notice)
	}
	for _, update := range updates {
		for i := range s.notices {
			if s.notices[i].ID == update.ID {
				s.notices[i].Title = update.Title
				fileURL := update.FileURL
				s.notices[i].FileURL = &fileURL
			}
		}
	}
	return nil
}

func (s *fakeNoticeStore) byFileName(name string) []model.Notice {
	var out []model.Notice
	for _, notice := range s.notices {
		if notice.FileName != nil && *notice.FileName == name {
			out = append(out, notice)
		}
	}
	return out
}

func writeSourceFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newTestSynchronizer(t *testing.T, store NoticeStore, blocked []string) (*Synchronizer, string, string) {
	t.Helper()
	sourceDir := t.TempDir()
	uploadDir := t.TempDir()
	sync := NewSynchronizer(store, logger.NewLogger("error"), config.NoticeConfig{
		UploadDir:     uploadDir,
		SourceDir:     sourceDir,
		BlockedTitles: blocked,
	})
	return sync, sourceDir, uploadDir
}

func TestRunSeedsBothCategories(t *testing.T) {
	store := &fakeNoticeStore{}
	sync, sourceDir, uploadDir := newTestSynchronizer(t, store, nil)

	writeSourceFile(t, sourceDir, "Exam_Schedule.pdf", "pdf-bytes")
	writeSourceFile(t, sourceDir, "notes.txt", "ignored extension")

	changed, err := sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, changed, "一个文件播种到两个分类")

	seeded := store.byFileName("Exam_Schedule.pdf")
	require.Len(t, seeded, 2)
	categories := map[model.Category]bool{}
	for _, notice := range seeded {
		categories[notice.PublishTo] = true
		assert.Equal(t, "Exam Schedule", notice.Title)
		assert.True(t, notice.IsActive)
		assert.False(t, notice.Pinned)
		require.NotNil(t, notice.PublishDate)
		require.NotNil(t, notice.FileURL)
		assert.Equal(t, "/uploads/source-notices/Exam_Schedule.pdf", *notice.FileURL)
	}
	assert.True(t, categories[model.CategoryNotifications])
	assert.True(t, categories[model.CategoryNotices])

	// 文件被复制进上传目录
	copied, err := os.ReadFile(filepath.Join(uploadDir, "source-notices", "Exam_Schedule.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(copied))

	assert.Empty(t, store.byFileName("notes.txt"), "不在白名单的扩展名被跳过")
}

func TestRunIsIdempotent(t *testing.T) {
	store := &fakeNoticeStore{}
	sync, sourceDir, _ := newTestSynchronizer(t, store, nil)

	writeSourceFile(t, sourceDir, "Circular.pdf", "v1")

	changed, err := sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	// 第二轮目录没变化，不产生任何变更
	changed, err = sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Len(t, store.notices, 2)
}

func TestRunRefreshesDriftedRows(t *testing.T) {
	store := &fakeNoticeStore{}
	sync, sourceDir, _ := newTestSynchronizer(t, store, nil)

	writeSourceFile(t, sourceDir, "Circular.pdf", "v1")
	_, err := sync.Run(context.Background())
	require.NoError(t, err)

	// 管理员手改了标题，下一轮同步按文件名推导值刷回去
	store.notices[0].Title = "改过的标题"

	changed, err := sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, "Circular", store.notices[0].Title)
	assert.Len(t, store.notices, 2, "刷新不产生重复行")
}

func TestRunPrunesBlockedNotices(t *testing.T) {
	fileName := "NIRF_2025_Report.pdf"
	extendedName := "NIRF 2025 Extended Report (2).pdf"
	otherName := "NIRF_2025xyz.pdf"
	store := &fakeNoticeStore{
		nextID: 3,
		notices: []model.Notice{
			{ID: 1, Title: "NIRF 2025 Report", FileName: &fileName, PublishTo: model.CategoryNotices},
			{ID: 2, Title: "NIRF 2025 Extended Report (2)", FileName: &extendedName, PublishTo: model.CategoryNotices},
			{ID: 3, Title: "NIRF 2025xyz", FileName: &otherName, PublishTo: model.CategoryNotices},
		},
	}
	sync, _, _ := newTestSynchronizer(t, store, []string{"NIRF 2025"})

	changed, err := sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, changed, "全等和前缀命中被剔除")

	require.Len(t, store.notices, 1)
	assert.Equal(t, int64(3), store.notices[0].ID, "前缀后无空格的不算命中")
}

func TestRunBlockedFileNotSeeded(t *testing.T) {
	store := &fakeNoticeStore{}
	sync, sourceDir, _ := newTestSynchronizer(t, store, []string{"NIRF 2025"})

	writeSourceFile(t, sourceDir, "NIRF_2025_Report.pdf", "blocked")
	writeSourceFile(t, sourceDir, "Admission.pdf", "ok")

	changed, err := sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Empty(t, store.byFileName("NIRF_2025_Report.pdf"))
	assert.Len(t, store.byFileName("Admission.pdf"), 2)
}

func TestRunMissingSourceDirPruneOnly(t *testing.T) {
	fileName := "NIRF_2025_Report.pdf"
	store := &fakeNoticeStore{
		nextID:  1,
		notices: []model.Notice{{ID: 1, Title: "NIRF 2025 Report", FileName: &fileName, PublishTo: model.CategoryNotices}},
	}
	sync := NewSynchronizer(store, logger.NewLogger("error"), config.NoticeConfig{
		UploadDir:     t.TempDir(),
		SourceDir:     filepath.Join(t.TempDir(), "does-not-exist"),
		BlockedTitles: []string{"NIRF 2025"},
	})

	changed, err := sync.Run(context.Background())
	require.NoError(t, err, "来源目录缺失时降级为只剔除")
	assert.Equal(t, 1, changed)
	assert.Empty(t, store.notices)
}

func TestCopyIfChangedSkipsUnchanged(t *testing.T) {
	store := &fakeNoticeStore{}
	sync, sourceDir, uploadDir := newTestSynchronizer(t, store, nil)

	writeSourceFile(t, sourceDir, "Circular.pdf", "v1")
	_, err := sync.Run(context.Background())
	require.NoError(t, err)

	target := filepath.Join(uploadDir, "source-notices", "Circular.pdf")
	firstInfo, err := os.Stat(target)
	require.NoError(t, err)

	// 来源未变，目标不应被重写
	_, err = sync.Run(context.Background())
	require.NoError(t, err)
	secondInfo, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, firstInfo.ModTime().Unix(), secondInfo.ModTime().Unix())

	// 来源内容变化后复制新内容
	newTime := time.Now().Add(time.Hour)
	writeSourceFile(t, sourceDir, "Circular.pdf", "v2-longer")
	require.NoError(t, os.Chtimes(filepath.Join(sourceDir, "Circular.pdf"), newTime, newTime))

	_, err = sync.Run(context.Background())
	require.NoError(t, err)
	copied, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "v2-longer", string(copied))
}
