package dto

import (
	"Agora/internal/pkg/util"
	"time"
)

// ExchangeDTO 讨论或会话
type ExchangeDTO struct {
	ID           uint64       `json:"id"`
	Param        string       `json:"param"`
	Kind         string       `json:"kind"`
	Title        string       `json:"title"`
	Category     *CategoryDTO `json:"category,omitempty" copier:"-"`
	Trusted      bool         `json:"trusted"`
	Sticky       bool         `json:"sticky"`
	Closed       bool         `json:"closed"`
	NSFW         bool         `json:"nsfw"`
	PosterID     uint64       `json:"poster_id"`
	LastPosterID uint64       `json:"last_poster_id"`
	PostsCount   int          `json:"posts_count"`
	LastPostAt   time.Time    `json:"last_post_at"`
	CreatedAt    time.Time    `json:"created_at"`

	// 当前用户视角, 匿名时为零值
	UnreadCount int  `json:"unread_count"`
	NewPosts    bool `json:"new_posts"`
	Following   bool `json:"following"`
	Favorite    bool `json:"favorite"`
	Editable    bool `json:"editable"`
}

// ExchangeListDTO 分页列表
type ExchangeListDTO struct {
	Exchanges []*ExchangeDTO `json:"discussions"`
	util.Page
}

// PostDTO 帖子
type PostDTO struct {
	ID         uint64    `json:"id"`
	ExchangeID uint64    `json:"exchange_id"`
	UserID     uint64    `json:"user_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostListDTO 帖子分页
type PostListDTO struct {
	Posts []*PostDTO `json:"posts"`
	util.Page
}

// ExchangeShowDTO 详情页: Context 为本页之前的若干条上下文
type ExchangeShowDTO struct {
	Exchange     *ExchangeDTO `json:"discussion"`
	Context      []*PostDTO   `json:"context"`
	Posts        []*PostDTO   `json:"posts"`
	Participants []*UserDTO   `json:"participants,omitempty"`
	util.Page
}

// ExchangeEditDTO 编辑表单, Body 为首帖正文
type ExchangeEditDTO struct {
	Exchange *ExchangeDTO `json:"discussion"`
	Body     string       `json:"body"`
}

// ExchangeCreateDTO 新建讨论或会话; 会话的 RecipientUsername 与 RecipientIDs 合并
type ExchangeCreateDTO struct {
	Type              string   `json:"type" validate:"omitempty,oneof=discussion conversation"`
	Title             string   `json:"title" validate:"required,min=1,max=255"`
	Body              string   `json:"body" validate:"required,min=1"`
	CategoryID        uint64   `json:"category_id"`
	RecipientIDs      []uint64 `json:"recipient_ids"`
	RecipientUsername string   `json:"recipient_username" validate:"omitempty,max=50"`
	Sticky            *bool    `json:"sticky"`
	Closed            *bool    `json:"closed"`
	NSFW              *bool    `json:"nsfw"`
}

// ExchangeUpdateDTO 修改, nil 字段不变
type ExchangeUpdateDTO struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=255"`
	Body       *string `json:"body" validate:"omitempty,min=1"`
	CategoryID *uint64 `json:"category_id"`
	Sticky     *bool   `json:"sticky"`
	Closed     *bool   `json:"closed"`
	NSFW       *bool   `json:"nsfw"`
}

// PostCreateDTO 回复
type PostCreateDTO struct {
	Body string `json:"body" validate:"required,min=1"`
}

// RelationshipDTO 关注或收藏
type RelationshipDTO struct {
	Kind  string `json:"kind" validate:"required,oneof=following favorite"`
	Value bool   `json:"value"`
}

// InviteDTO 邀请, Username 为逗号分隔的用户名
type InviteDTO struct {
	Username string `json:"username" validate:"required"`
}

// InviteResultDTO 邀请结果
type InviteResultDTO struct {
	Invited      []string   `json:"invited"`
	Skipped      []string   `json:"skipped"`
	Participants []*UserDTO `json:"participants"`
}

// UserDTO 用户
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// ListQueryDTO 列表查询参数
type ListQueryDTO struct {
	Page     int  `form:"page"`
	PageSize int  `form:"page_size"`
	Days     *int `form:"days"`
}

// ShowQueryDTO 详情查询参数, Page 为 0 时跳到第一条未读所在页
type ShowQueryDTO struct {
	Page    int  `form:"page"`
	Compact bool `form:"compact"`
}

// SearchQueryDTO 检索参数, q 与 query 等价
type SearchQueryDTO struct {
	Query string `form:"query"`
	Q     string `form:"q"`
	Page  int    `form:"page"`
}

// Term 返回实际使用的检索词
func (s *SearchQueryDTO) Term() string {
	if s.Query != "" {
		return s.Query
	}
	return s.Q
}
