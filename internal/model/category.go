package model

import "time"

// Category 讨论分类, Position 在所有分类中构成从 1 开始的连续序列
type Category struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex:idx_category_name;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Position    int       `gorm:"not null;index:idx_category_position" json:"position"`
	Trusted     bool      `gorm:"not null;default:false" json:"trusted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}
