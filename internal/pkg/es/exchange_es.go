package es

import "time"

// ExchangeES 标题检索文档
type ExchangeES struct {
	ID         uint64    `json:"id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	CategoryID uint64    `json:"category_id"`
	Trusted    bool      `json:"trusted"`
	PosterID   uint64    `json:"poster_id"`
	LastPostAt time.Time `json:"last_post_at"`
}

// PostES 帖子正文检索文档
type PostES struct {
	ID         uint64    `json:"id"`
	ExchangeID uint64    `json:"exchange_id"`
	UserID     uint64    `json:"user_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
