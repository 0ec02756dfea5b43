package model

import "time"

// ConversationRelationship 会话成员表, 行存在即为成员
type ConversationRelationship struct {
	UserID         uint64    `gorm:"primaryKey" json:"user_id"`
	ConversationID uint64    `gorm:"primaryKey;index:idx_conversation_id" json:"conversation_id"`
	NewPosts       bool      `gorm:"not null;default:false" json:"new_posts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

func (ConversationRelationship) TableName() string {
	return "conversation_relationships"
}
