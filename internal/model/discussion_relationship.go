package model

import "time"

// DiscussionRelationship 每个 (用户, 讨论) 至多一行
type DiscussionRelationship struct {
	UserID       uint64    `gorm:"primaryKey" json:"user_id"`
	DiscussionID uint64    `gorm:"primaryKey;index:idx_discussion_id" json:"discussion_id"`
	Following    bool      `gorm:"not null;default:false" json:"following"`
	Favorite     bool      `gorm:"not null;default:false" json:"favorite"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DiscussionRelationship) TableName() string {
	return "discussion_relationships"
}
