package model

import "time"

// ExchangeView 已读水位, PostIndex 单调不减.
// PostID 仅用于定位, 帖子可能已被删除.
type ExchangeView struct {
	UserID     uint64    `gorm:"primaryKey" json:"user_id"`
	ExchangeID uint64    `gorm:"primaryKey;index:idx_exchange_id" json:"exchange_id"`
	PostID     *uint64   `json:"post_id"`
	PostIndex  int       `gorm:"not null;default:0" json:"post_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ExchangeView) TableName() string {
	return "exchange_views"
}
