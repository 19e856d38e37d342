package model

import (
	"encoding/json"
	"time"
)

// Category 公告分类，固定的四个发布位置
type Category string

const (
	CategoryTenders        Category = "tenders"
	CategoryUpcomingEvents Category = "upcoming_events"
	CategoryNotifications  Category = "notifications"
	CategoryNotices        Category = "notices"
)

// CategoryLabels 分类对应的展示名称
var CategoryLabels = map[Category]string{
	CategoryTenders:        "Tenders",
	CategoryUpcomingEvents: "Upcoming Events",
	CategoryNotifications:  "Notifications",
	CategoryNotices:        "Notices",
}

// AllCategories 按固定顺序返回全部分类
func AllCategories() []Category {
	return []Category{
		CategoryTenders,
		CategoryUpcomingEvents,
		CategoryNotifications,
		CategoryNotices,
	}
}

// Valid 判断分类是否属于枚举
func (c Category) Valid() bool {
	_, ok := CategoryLabels[c]
	return ok
}

// CategoryItem 分类条目（机器值+展示名称）
type CategoryItem struct {
	Value Category `json:"value"`
	Label string   `json:"label"`
}

// Notice 公告模型
type Notice struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	PublishTo   Category   `db:"publish_to" json:"publish_to"`
	Link        *string    `db:"link" json:"link"`
	FileURL     *string    `db:"file_url" json:"file_url"`
	FileName    *string    `db:"file_name" json:"file_name"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	Pinned      bool       `db:"pinned" json:"pinned"`
	PublishDate *time.Time `db:"publish_date" json:"publish_date"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	CreatedByID *int64     `db:"created_by_id" json:"-"`
}

// Published 历史接口字段published是is_active的别名，只读不单独存储
func (n *Notice) Published() bool {
	return n.IsActive
}

// MarshalJSON 输出时附带published别名字段
func (n Notice) MarshalJSON() ([]byte, error) {
	type alias Notice
	return json.Marshal(struct {
		alias
		Published bool `json:"published"`
	}{
		alias:     alias(n),
		Published: n.IsActive,
	})
}

// VisibleAt 公开可见判定：is_active为真，且publish_date为空或不晚于now（UTC）
func (n *Notice) VisibleAt(now time.Time) bool {
	if !n.IsActive {
		return false
	}
	if n.PublishDate == nil {
		return true
	}
	return !n.PublishDate.After(now)
}

// ListingLess 列表排序：置顶优先，再按publish_date、created_at、id降序。
// publish_date为空的排在非空之后，对应MySQL降序时NULL靠后的行为。
func ListingLess(a, b *Notice) bool {
	if a.Pinned != b.Pinned {
		return a.Pinned
	}
	switch {
	case a.PublishDate == nil && b.PublishDate != nil:
		return false
	case a.PublishDate != nil && b.PublishDate == nil:
		return true
	case a.PublishDate != nil && b.PublishDate != nil:
		if !a.PublishDate.Equal(*b.PublishDate) {
			return a.PublishDate.After(*b.PublishDate)
		}
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
