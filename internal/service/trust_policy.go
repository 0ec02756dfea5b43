package service

import "Agora/internal/model"

// TrustPolicy 受信内容的查看与编辑规则. principal 为 nil 表示匿名
type TrustPolicy struct{}

func NewTrustPolicy() TrustPolicy {
	return TrustPolicy{}
}

// CanView 非受信资源所有人可见; 受信资源仅受信用户或管理员可见
func (TrustPolicy) CanView(principal *model.User, trusted bool) bool {
	if !trusted {
		return true
	}
	return principal.IsTrusted()
}

// CanEdit 发帖人或版主
func (TrustPolicy) CanEdit(principal *model.User, exchange *model.Exchange) bool {
	if principal == nil || exchange == nil {
		return false
	}
	return principal.IsModerator() || principal.ID == exchange.PosterID
}
