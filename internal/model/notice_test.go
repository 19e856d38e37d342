package model

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestVisibleAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		notice  Notice
		visible bool
	}{
		{"未发布不可见", Notice{IsActive: false}, false},
		{"未发布且定时已到仍不可见", Notice{IsActive: false, PublishDate: timePtr(now.Add(-time.Hour))}, false},
		{"已发布无定时可见", Notice{IsActive: true}, true},
		{"定时已到可见", Notice{IsActive: true, PublishDate: timePtr(now.Add(-time.Hour))}, true},
		{"定时恰好等于当前时间可见", Notice{IsActive: true, PublishDate: timePtr(now)}, true},
		{"定时未到不可见", Notice{IsActive: true, PublishDate: timePtr(now.Add(time.Hour))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, tt.notice.VisibleAt(now))
		})
	}
}

func TestListingLess(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	pinnedOld := &Notice{ID: 1, Pinned: true, PublishDate: timePtr(base.Add(-72 * time.Hour)), CreatedAt: base}
	newest := &Notice{ID: 2, PublishDate: timePtr(base.Add(-time.Hour)), CreatedAt: base}
	older := &Notice{ID: 3, PublishDate: timePtr(base.Add(-48 * time.Hour)), CreatedAt: base}
	noDate := &Notice{ID: 4, PublishDate: nil, CreatedAt: base}

	notices := []*Notice{noDate, older, newest, pinnedOld}
	sort.Slice(notices, func(i, j int) bool {
		return ListingLess(notices[i], notices[j])
	})

	// 置顶排第一，其余按publish_date降序，无日期的排最后
	assert.Equal(t, []int64{1, 2, 3, 4}, []int64{notices[0].ID, notices[1].ID, notices[2].ID, notices[3].ID})
}

func TestListingLessTieBreaks(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	date := timePtr(base)

	a := &Notice{ID: 10, PublishDate: date, CreatedAt: base.Add(time.Minute)}
	b := &Notice{ID: 11, PublishDate: date, CreatedAt: base}
	assert.True(t, ListingLess(a, b), "publish_date相同时按created_at降序")

	c := &Notice{ID: 12, PublishDate: date, CreatedAt: base}
	d := &Notice{ID: 13, PublishDate: date, CreatedAt: base}
	assert.True(t, ListingLess(d, c), "全部相同时按id降序")
}

func TestMarshalJSONPublishedAlias(t *testing.T) {
	notice := Notice{ID: 7, Title: "考试通知", PublishTo: CategoryNotices, IsActive: true}

	data, err := json.Marshal(notice)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, true, decoded["is_active"])
	assert.Equal(t, true, decoded["published"], "published是is_active的只读别名")
	assert.NotContains(t, decoded, "created_by_id")
}

func TestCategoryValid(t *testing.T) {
	for _, category := range AllCategories() {
		assert.True(t, category.Valid())
	}
	assert.False(t, Category("news").Valid())
	assert.False(t, Category("").Valid())
}
