package model

import (
	"time"
)

type User struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"type:varchar(50);uniqueIndex:idx_username;not null" json:"username"`
	Trusted   bool   `gorm:"not null;default:false" json:"trusted"`
	Moderator bool   `gorm:"not null;default:false" json:"moderator"`
	Admin     bool   `gorm:"not null;default:false" json:"admin"`
	IsBan     bool   `gorm:"not null;default:false" json:"is_ban"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

// IsTrusted 可见受信内容: 受信用户或管理员
func (u *User) IsTrusted() bool {
	return u != nil && (u.Trusted || u.Admin)
}

// IsModerator 版主及以上
func (u *User) IsModerator() bool {
	return u != nil && (u.Moderator || u.Admin)
}
