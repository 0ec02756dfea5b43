package model

import "time"

type ExchangeKind string

const (
	KindDiscussion   ExchangeKind = "discussion"
	KindConversation ExchangeKind = "conversation"
)

// Exchange 讨论与私信会话共用一张表, 以 Kind 区分.
// Discussion 的 Trusted 始终等于其分类的 Trusted, 由分类更新时级联维护.
// Conversation 不使用 CategoryID 与 Trusted, 可见性只看成员关系.
type Exchange struct {
	ID           uint64       `gorm:"primaryKey" json:"id"`
	Kind         ExchangeKind `gorm:"type:varchar(20);not null;index:idx_kind_last_post,priority:1" json:"kind"`
	Title        string       `gorm:"type:varchar(255);not null" json:"title"`
	CategoryID   *uint64      `gorm:"index:idx_category_id" json:"category_id,omitempty"`
	Trusted      bool         `gorm:"not null;default:false" json:"trusted"`
	Sticky       bool         `gorm:"not null;default:false" json:"sticky"`
	Closed       bool         `gorm:"not null;default:false" json:"closed"`
	NSFW         bool         `gorm:"column:nsfw;not null;default:false" json:"nsfw"`
	PosterID     uint64       `gorm:"not null;index:idx_poster_id" json:"poster_id"`
	LastPosterID uint64       `gorm:"not null;default:0" json:"last_poster_id"`
	UpdatedByID  uint64       `gorm:"not null;default:0" json:"updated_by_id"`
	PostsCount   int          `gorm:"not null;default:0" json:"posts_count"`
	LastPostAt   time.Time    `gorm:"index:idx_kind_last_post,priority:2" json:"last_post_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID;references:ID" json:"category,omitempty"`
}

func (Exchange) TableName() string {
	return "exchanges"
}

func (e *Exchange) IsDiscussion() bool {
	return e.Kind == KindDiscussion
}

func (e *Exchange) IsConversation() bool {
	return e.Kind == KindConversation
}
