package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// ListQuery 列表查询; Days 只在 Sort 为 popular 时生效
type ListQuery struct {
	Sort   string
	Days   int
	Offset int
	Limit  int
}

// ExchangeStore 讨论/会话的查找, 可见性判定与写入.
// Update 不做权限检查, 由调用方先行 IsEditableBy.
type ExchangeStore interface {
	Find(ctx context.Context, id uint64) (*model.Exchange, error)
	IsViewableBy(ctx context.Context, exchange *model.Exchange, principal *model.User) (bool, error)
	IsEditableBy(exchange *model.Exchange, principal *model.User) bool
	ListViewable(ctx context.Context, principal *model.User, q ListQuery) ([]*model.Exchange, int64, error)
	Create(ctx context.Context, poster *model.User, in *dto.ExchangeCreateDTO) (*model.Exchange, *model.Post, error)
	Update(ctx context.Context, exchange *model.Exchange, principal *model.User, in *dto.ExchangeUpdateDTO) error
}

type exchangeStoreImpl struct {
	exchangeRepo     repository.ExchangeRepo
	categoryRepo     repository.CategoryRepo
	relationshipRepo repository.RelationshipRepo
	userRepo         repository.UserRepo
	policy           TrustPolicy
	popularDefault   int
}

func NewExchangeStore(
	exchangeRepo repository.ExchangeRepo,
	categoryRepo repository.CategoryRepo,
	relationshipRepo repository.RelationshipRepo,
	userRepo repository.UserRepo,
	policy TrustPolicy,
	popularDefault int,
) ExchangeStore {
	return &exchangeStoreImpl{
		exchangeRepo:     exchangeRepo,
		categoryRepo:     categoryRepo,
		relationshipRepo: relationshipRepo,
		userRepo:         userRepo,
		policy:           policy,
		popularDefault:   popularDefault,
	}
}

func (s *exchangeStoreImpl) Find(ctx context.Context, id uint64) (*model.Exchange, error) {
	exchange, err := s.exchangeRepo.GetExchange(ctx, id)
	if err != nil {
		return nil, err
	}
	if exchange == nil {
		return nil, ErrExchangeNotFound
	}
	return exchange, nil
}

// IsViewableBy 会话只对当前成员可见, 与信任等级无关
func (s *exchangeStoreImpl) IsViewableBy(ctx context.Context, exchange *model.Exchange, principal *model.User) (bool, error) {
	if exchange == nil {
		return false, nil
	}
	if exchange.IsConversation() {
		if principal == nil {
			return false, nil
		}
		membership, err := s.relationshipRepo.GetMembership(ctx, exchange.ID, principal.ID)
		if err != nil {
			return false, err
		}
		return membership != nil, nil
	}
	return s.policy.CanView(principal, exchange.Trusted), nil
}

func (s *exchangeStoreImpl) IsEditableBy(exchange *model.Exchange, principal *model.User) bool {
	return s.policy.CanEdit(principal, exchange)
}

func (s *exchangeStoreImpl) ListViewable(ctx context.Context, principal *model.User, q ListQuery) ([]*model.Exchange, int64, error) {
	includeTrusted := s.policy.CanView(principal, true)
	switch q.Sort {
	case consts.SortPopular:
		if q.Days < consts.PopularMinDays || q.Days > consts.PopularMaxDays {
			return nil, 0, &InvalidRangeError{
				Param:     "days",
				Value:     q.Days,
				Min:       consts.PopularMinDays,
				Max:       consts.PopularMaxDays,
				Suggested: s.popularDefault,
			}
		}
		since := time.Now().AddDate(0, 0, -q.Days)
		return s.exchangeRepo.ListPopular(ctx, includeTrusted, since, q.Offset, q.Limit)
	case consts.SortRecent, "":
		return s.exchangeRepo.ListDiscussions(ctx, includeTrusted, q.Offset, q.Limit)
	default:
		return nil, 0, ErrParamInvalid
	}
}

// Create 校验失败时不写入任何数据
func (s *exchangeStoreImpl) Create(ctx context.Context, poster *model.User, in *dto.ExchangeCreateDTO) (*model.Exchange, *model.Post, error) {
	if poster == nil {
		return nil, nil, ErrLoginRequired
	}
	verr := &ValidationError{Fields: util.ValidateDTO(in)}

	exchange := &model.Exchange{
		Title:    strings.TrimSpace(in.Title),
		PosterID: poster.ID,
	}
	if poster.IsModerator() {
		applySafeFlags(exchange, in.Sticky, in.Closed, in.NSFW)
	}

	if in.Type == string(model.KindConversation) {
		recipientIDs, err := s.resolveRecipientUsername(ctx, in, verr)
		if err != nil {
			return nil, nil, err
		}
		members, err := s.conversationMembers(ctx, poster, recipientIDs, verr)
		if err != nil {
			return nil, nil, err
		}
		if err = verr.OrNil(); err != nil {
			return nil, nil, err
		}
		post, err := s.exchangeRepo.CreateConversation(ctx, exchange, in.Body, members)
		if err != nil {
			return nil, nil, err
		}
		return exchange, post, nil
	}

	if err := s.checkCategory(ctx, poster, in.CategoryID, verr); err != nil {
		return nil, nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}
	categoryID := in.CategoryID
	exchange.CategoryID = &categoryID
	post, err := s.exchangeRepo.CreateDiscussion(ctx, exchange, in.Body)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			verr.Add("category_id", "exists", "category does not exist")
			return nil, nil, verr
		}
		return nil, nil, err
	}
	return exchange, post, nil
}

// Update 非版主提交的 sticky/closed/nsfw 被忽略
func (s *exchangeStoreImpl) Update(ctx context.Context, exchange *model.Exchange, principal *model.User, in *dto.ExchangeUpdateDTO) error {
	if principal == nil {
		return ErrLoginRequired
	}
	verr := &ValidationError{Fields: util.ValidateDTO(in)}

	changes := &repository.ExchangeChanges{
		Body:        in.Body,
		UpdatedByID: principal.ID,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			verr.Add("title", "required", "title can't be blank")
		}
		changes.Title = &title
	}
	if in.Body != nil && strings.TrimSpace(*in.Body) == "" {
		verr.Add("body", "required", "body can't be blank")
	}
	if in.CategoryID != nil {
		if exchange.IsConversation() {
			verr.Add("category_id", "excluded", "conversations have no category")
		} else if err := s.checkCategory(ctx, principal, *in.CategoryID, verr); err != nil {
			return err
		}
		changes.CategoryID = in.CategoryID
	}
	if principal.IsModerator() {
		changes.Sticky, changes.Closed, changes.NSFW = in.Sticky, in.Closed, in.NSFW
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	err := s.exchangeRepo.UpdateExchange(ctx, exchange.ID, changes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			verr.Add("category_id", "exists", "category does not exist")
			return verr
		}
		return err
	}
	return nil
}

// checkCategory 分类必须存在且对发帖人可见
func (s *exchangeStoreImpl) checkCategory(ctx context.Context, principal *model.User, categoryID uint64, verr *ValidationError) error {
	if categoryID == 0 {
		verr.Add("category_id", "required", "category can't be blank")
		return nil
	}
	category, err := s.categoryRepo.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if category == nil || !s.policy.CanView(principal, category.Trusted) {
		verr.Add("category_id", "exists", "category does not exist")
	}
	return nil
}

// resolveRecipientUsername 把 recipient_username 解析成 id 并入收件人列表; 重复由 conversationMembers 去掉
func (s *exchangeStoreImpl) resolveRecipientUsername(ctx context.Context, in *dto.ExchangeCreateDTO, verr *ValidationError) ([]uint64, error) {
	name := strings.TrimSpace(in.RecipientUsername)
	if name == "" {
		return in.RecipientIDs, nil
	}
	user, err := s.userRepo.GetUserByUsername(ctx, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		verr.Add("recipient_username", "exists", "no such user: "+name)
		return in.RecipientIDs, nil
	}
	return append(slices.Clone(in.RecipientIDs), user.ID), nil
}

// conversationMembers 发起人 new_posts=false, 每个收件人 new_posts=true
func (s *exchangeStoreImpl) conversationMembers(ctx context.Context, poster *model.User, recipientIDs []uint64, verr *ValidationError) ([]*model.ConversationRelationship, error) {
	members := []*model.ConversationRelationship{{UserID: poster.ID, NewPosts: false}}

	ids := make([]uint64, 0, len(recipientIDs))
	seen := map[uint64]bool{poster.ID: true}
	for _, id := range recipientIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return members, nil
	}

	users, err := s.userRepo.GetUserByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		verr.Add("recipient_ids", "exists", "some recipients do not exist")
		return members, nil
	}
	for _, u := range users {
		members = append(members, &model.ConversationRelationship{UserID: u.ID, NewPosts: true})
	}
	return members, nil
}

func applySafeFlags(exchange *model.Exchange, sticky, closed, nsfw *bool) {
	if sticky != nil {
		exchange.Sticky = *sticky
	}
	if closed != nil {
		exchange.Closed = *closed
	}
	if nsfw != nil {
		exchange.NSFW = *nsfw
	}
}
