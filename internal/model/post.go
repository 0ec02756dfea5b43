package model

import (
	"time"
)

// Post 按创建顺序属于唯一的 Exchange, 序号即已读位置的单位
type Post struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	ExchangeID uint64    `gorm:"not null;index:idx_exchange_created,priority:1" json:"exchange_id"`
	UserID     uint64    `gorm:"not null;index:idx_user_id" json:"user_id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"index:idx_exchange_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}
