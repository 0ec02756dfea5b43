package service

import (
	"Agora/internal/api/config"
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	log "log/slog"

	"golang.org/x/sync/errgroup"
)

type ExchangeService interface {
	GetExchange(ctx context.Context, principal *model.User, id uint64, q *dto.ShowQueryDTO) (*dto.ExchangeShowDTO, error)
	GetExchangeForEdit(ctx context.Context, principal *model.User, id uint64) (*dto.ExchangeEditDTO, error)
	ListViewable(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error)
	ListPopular(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error)
	ListFavorites(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error)
	ListFollowing(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error)
	ListConversations(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error)
	SearchExchanges(ctx context.Context, principal *model.User, q *dto.SearchQueryDTO) (*dto.ExchangeListDTO, error)
	SearchPosts(ctx context.Context, principal *model.User, id uint64, q *dto.SearchQueryDTO) (*dto.PostListDTO, error)
	CreateExchange(ctx context.Context, principal *model.User, in *dto.ExchangeCreateDTO) (*dto.ExchangeDTO, error)
	UpdateExchange(ctx context.Context, principal *model.User, id uint64, in *dto.ExchangeUpdateDTO) (*dto.ExchangeDTO, error)
	CreatePost(ctx context.Context, principal *model.User, id uint64, in *dto.PostCreateDTO) (*dto.PostDTO, error)
	DefineRelationship(ctx context.Context, principal *model.User, id uint64, kind string, value bool) error
	InviteParticipants(ctx context.Context, principal *model.User, id uint64, usernames string) (*dto.InviteResultDTO, error)
	RemoveParticipant(ctx context.Context, principal *model.User, id uint64) error
	MarkAsRead(ctx context.Context, principal *model.User, id uint64) error
	ListParticipants(ctx context.Context, principal *model.User, id uint64) ([]*dto.UserDTO, error)
}

type exchangeServiceImpl struct {
	store         ExchangeStore
	categories    CategoryService
	relationships RelationshipService
	tracker       ReadTracker
	search        SearchService
	exchangeRepo  repository.ExchangeRepo
	postRepo      repository.PostRepo
	cfg           config.ForumConfig
}

func NewExchangeService(
	store ExchangeStore,
	categories CategoryService,
	relationships RelationshipService,
	tracker ReadTracker,
	search SearchService,
	exchangeRepo repository.ExchangeRepo,
	postRepo repository.PostRepo,
	cfg config.ForumConfig,
) ExchangeService {
	return &exchangeServiceImpl{
		store:         store,
		categories:    categories,
		relationships: relationships,
		tracker:       tracker,
		search:        search,
		exchangeRepo:  exchangeRepo,
		postRepo:      postRepo,
		cfg:           cfg,
	}
}

// GetExchange 未指定页码时跳到第一条未读所在页, 看过的帖子计入水位
func (s *exchangeServiceImpl) GetExchange(ctx context.Context, principal *model.User, id uint64, q *dto.ShowQueryDTO) (*dto.ExchangeShowDTO, error) {
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	perPage := s.cfg.PostsPerPage
	page := q.Page
	if page <= 0 {
		page = 1
		idx, ok, err := s.tracker.LastIndex(ctx, principal, exchange)
		if err != nil {
			return nil, err
		}
		if ok && exchange.PostsCount > 0 {
			page = util.PageForIndex(min(idx, exchange.PostsCount-1), perPage)
		}
	}
	pg := util.NewPage(page, perPage, int64(exchange.PostsCount))
	if pg.Pages > 0 && pg.Page > pg.Pages {
		pg.Page = pg.Pages
	}
	offset := pg.Offset()

	posts, err := s.postRepo.ListPosts(ctx, exchange.ID, offset, perPage)
	if err != nil {
		return nil, err
	}

	contextCount := s.cfg.ContextPosts
	if q.Compact {
		contextCount = 0
	}
	var contextPosts []*model.Post
	if contextCount > 0 && offset > 0 {
		start := max(0, offset-contextCount)
		contextPosts, err = s.postRepo.ListPosts(ctx, exchange.ID, start, offset-start)
		if err != nil {
			return nil, err
		}
	}

	if principal != nil {
		var last *model.Post
		if len(posts) > 0 {
			last = posts[len(posts)-1]
		}
		if err = s.tracker.MarkViewed(ctx, principal, exchange, last, offset+len(posts)); err != nil {
			return nil, err
		}
		if exchange.IsConversation() {
			if err = s.relationships.ClearNewPosts(ctx, exchange, principal); err != nil {
				return nil, err
			}
		}
	}

	decorated, err := s.decorate(ctx, principal, []*model.Exchange{exchange})
	if err != nil {
		return nil, err
	}
	out := &dto.ExchangeShowDTO{Exchange: decorated[0], Page: pg}
	if out.Posts, err = toPostDTOs(posts); err != nil {
		return nil, err
	}
	if out.Context, err = toPostDTOs(contextPosts); err != nil {
		return nil, err
	}
	if exchange.IsConversation() {
		users, err := s.relationships.ListParticipants(ctx, exchange)
		if err != nil {
			return nil, err
		}
		out.Participants = toUserDTOs(users)
	}
	return out, nil
}

// GetExchangeForEdit 返回 exchange 与首帖正文
func (s *exchangeServiceImpl) GetExchangeForEdit(ctx context.Context, principal *model.User, id uint64) (*dto.ExchangeEditDTO, error) {
	exchange, err := s.editable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	first, err := s.postRepo.GetFirstPost(ctx, exchange.ID)
	if err != nil {
		return nil, err
	}
	decorated, err := s.decorate(ctx, principal, []*model.Exchange{exchange})
	if err != nil {
		return nil, err
	}
	out := &dto.ExchangeEditDTO{Exchange: decorated[0]}
	if first != nil {
		out.Body = first.Body
	}
	return out, nil
}

func (s *exchangeServiceImpl) ListViewable(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error) {
	pg := s.listPage(q)
	exchanges, total, err := s.store.ListViewable(ctx, principal, ListQuery{
		Sort:   consts.SortRecent,
		Offset: pg.Offset(),
		Limit:  pg.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return s.listDTO(ctx, principal, exchanges, pg, total)
}

// ListPopular 未给出 days 时取默认窗口, 越界返回 InvalidRangeError
func (s *exchangeServiceImpl) ListPopular(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error) {
	days := s.cfg.PopularDefaultDays
	if q.Days != nil {
		days = *q.Days
	}
	pg := s.listPage(q)
	exchanges, total, err := s.store.ListViewable(ctx, principal, ListQuery{
		Sort:   consts.SortPopular,
		Days:   days,
		Offset: pg.Offset(),
		Limit:  pg.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return s.listDTO(ctx, principal, exchanges, pg, total)
}

func (s *exchangeServiceImpl) ListFavorites(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	pg := s.listPage(q)
	includeTrusted := principal.IsTrusted()
	exchanges, total, err := s.exchangeRepo.ListFavorites(ctx, principal.ID, includeTrusted, pg.Offset(), pg.PageSize)
	if err != nil {
		return nil, err
	}
	return s.listDTO(ctx, principal, exchanges, pg, total)
}

func (s *exchangeServiceImpl) ListFollowing(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	pg := s.listPage(q)
	includeTrusted := principal.IsTrusted()
	exchanges, total, err := s.exchangeRepo.ListFollowing(ctx, principal.ID, includeTrusted, pg.Offset(), pg.PageSize)
	if err != nil {
		return nil, err
	}
	return s.listDTO(ctx, principal, exchanges, pg, total)
}

func (s *exchangeServiceImpl) ListConversations(ctx context.Context, principal *model.User, q *dto.ListQueryDTO) (*dto.ExchangeListDTO, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	pg := s.listPage(q)
	exchanges, total, err := s.exchangeRepo.ListConversations(ctx, principal.ID, pg.Offset(), pg.PageSize)
	if err != nil {
		return nil, err
	}
	return s.listDTO(ctx, principal, exchanges, pg, total)
}

func (s *exchangeServiceImpl) SearchExchanges(ctx context.Context, principal *model.User, q *dto.SearchQueryDTO) (*dto.ExchangeListDTO, error) {
	pg := util.NewPage(q.Page, s.cfg.DiscussionsPerPage, 0)
	exchanges, total, err := s.search.SearchExchanges(ctx, principal, q.Term(), pg.Offset(), pg.PageSize)
	if err != nil {
		return nil, err
	}
	return s.listDTO(ctx, principal, exchanges, pg, total)
}

func (s *exchangeServiceImpl) SearchPosts(ctx context.Context, principal *model.User, id uint64, q *dto.SearchQueryDTO) (*dto.PostListDTO, error) {
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	pg := util.NewPage(q.Page, s.cfg.PostsPerPage, 0)
	posts, total, err := s.search.SearchPosts(ctx, exchange, q.Term(), pg.Offset(), pg.PageSize)
	if err != nil {
		return nil, err
	}
	out := &dto.PostListDTO{Page: util.NewPage(pg.Page, pg.PageSize, total)}
	if out.Posts, err = toPostDTOs(posts); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExchange 讨论需要至少一个可见分类
func (s *exchangeServiceImpl) CreateExchange(ctx context.Context, principal *model.User, in *dto.ExchangeCreateDTO) (*dto.ExchangeDTO, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if in.Type != string(model.KindConversation) {
		categories, err := s.categories.ViewableCategories(ctx, principal)
		if err != nil {
			return nil, err
		}
		if len(categories) == 0 {
			return nil, ErrNoCategories
		}
	}

	exchange, post, err := s.store.Create(ctx, principal, in)
	if err != nil {
		return nil, err
	}
	if err = s.tracker.MarkViewed(ctx, principal, exchange, post, exchange.PostsCount); err != nil {
		log.WarnContext(ctx, "mark viewed after create failed", "exchange_id", exchange.ID, "err", err)
	}

	fresh, err := s.store.Find(ctx, exchange.ID)
	if err != nil {
		return nil, err
	}
	s.indexAsync(fresh, post)

	decorated, err := s.decorate(ctx, principal, []*model.Exchange{fresh})
	if err != nil {
		return nil, err
	}
	return decorated[0], nil
}

func (s *exchangeServiceImpl) UpdateExchange(ctx context.Context, principal *model.User, id uint64, in *dto.ExchangeUpdateDTO) (*dto.ExchangeDTO, error) {
	exchange, err := s.editable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err = s.store.Update(ctx, exchange, principal, in); err != nil {
		return nil, err
	}

	fresh, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	var first *model.Post
	if in.Body != nil {
		if first, err = s.postRepo.GetFirstPost(ctx, id); err != nil {
			return nil, err
		}
	}
	s.indexAsync(fresh, first)

	decorated, err := s.decorate(ctx, principal, []*model.Exchange{fresh})
	if err != nil {
		return nil, err
	}
	return decorated[0], nil
}

// CreatePost 已关闭的讨论只允许版主回复
func (s *exchangeServiceImpl) CreatePost(ctx context.Context, principal *model.User, id uint64, in *dto.PostCreateDTO) (*dto.PostDTO, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if exchange.Closed && !principal.IsModerator() {
		return nil, ErrExchangeClosed
	}
	if err = (&ValidationError{Fields: util.ValidateDTO(in)}).OrNil(); err != nil {
		return nil, err
	}

	post := &model.Post{UserID: principal.ID, Body: in.Body}
	if err = s.postRepo.CreatePost(ctx, exchange, post); err != nil {
		return nil, err
	}
	if err = s.tracker.MarkViewed(ctx, principal, exchange, post, exchange.PostsCount); err != nil {
		log.WarnContext(ctx, "mark viewed after post failed", "exchange_id", exchange.ID, "err", err)
	}
	s.indexAsync(exchange, post)

	out, err := toPostDTOs([]*model.Post{post})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// DefineRelationship kind 为 following 或 favorite, value 为 false 即取消
func (s *exchangeServiceImpl) DefineRelationship(ctx context.Context, principal *model.User, id uint64, kind string, value bool) error {
	if err := requireUser(principal); err != nil {
		return err
	}
	var following, favorite *bool
	switch kind {
	case "following":
		following = &value
	case "favorite":
		favorite = &value
	default:
		return ErrParamInvalid
	}
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return err
	}
	return s.relationships.DefineDiscussionRelationship(ctx, principal, exchange, following, favorite)
}

func (s *exchangeServiceImpl) InviteParticipants(ctx context.Context, principal *model.User, id uint64, usernames string) (*dto.InviteResultDTO, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	names := util.SplitUsernames(usernames)
	if len(names) == 0 {
		verr := &ValidationError{}
		verr.Add("username", "required", "username can't be blank")
		return nil, verr
	}

	result, err := s.relationships.InviteParticipants(ctx, exchange, names)
	if err != nil {
		return nil, err
	}
	users, err := s.relationships.ListParticipants(ctx, exchange)
	if err != nil {
		return nil, err
	}
	return &dto.InviteResultDTO{
		Invited:      result.Invited,
		Skipped:      result.Skipped,
		Participants: toUserDTOs(users),
	}, nil
}

// RemoveParticipant 当前用户退出会话
func (s *exchangeServiceImpl) RemoveParticipant(ctx context.Context, principal *model.User, id uint64) error {
	if err := requireUser(principal); err != nil {
		return err
	}
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return err
	}
	return s.relationships.RemoveParticipant(ctx, exchange, principal)
}

func (s *exchangeServiceImpl) MarkAsRead(ctx context.Context, principal *model.User, id uint64) error {
	if err := requireUser(principal); err != nil {
		return err
	}
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return err
	}
	if err = s.tracker.MarkAsRead(ctx, principal, exchange); err != nil {
		return err
	}
	if exchange.IsConversation() {
		return s.relationships.ClearNewPosts(ctx, exchange, principal)
	}
	return nil
}

func (s *exchangeServiceImpl) ListParticipants(ctx context.Context, principal *model.User, id uint64) ([]*dto.UserDTO, error) {
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	users, err := s.relationships.ListParticipants(ctx, exchange)
	if err != nil {
		return nil, err
	}
	return toUserDTOs(users), nil
}

// viewable 查找 → 可见性; 任一失败都在写操作之前返回
func (s *exchangeServiceImpl) viewable(ctx context.Context, principal *model.User, id uint64) (*model.Exchange, error) {
	exchange, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.IsViewableBy(ctx, exchange, principal)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return exchange, nil
}

func (s *exchangeServiceImpl) editable(ctx context.Context, principal *model.User, id uint64) (*model.Exchange, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	exchange, err := s.viewable(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !s.store.IsEditableBy(exchange, principal) {
		return nil, ErrForbidden
	}
	return exchange, nil
}

// decorate 补充当前用户视角的未读数, 关注/收藏与会话新帖标记
func (s *exchangeServiceImpl) decorate(ctx context.Context, principal *model.User, exchanges []*model.Exchange) ([]*dto.ExchangeDTO, error) {
	var discussionIDs, conversationIDs []uint64
	for _, e := range exchanges {
		if e.IsConversation() {
			conversationIDs = append(conversationIDs, e.ID)
		} else {
			discussionIDs = append(discussionIDs, e.ID)
		}
	}

	var (
		unread  map[uint64]int
		rels    map[uint64]*model.DiscussionRelationship
		members map[uint64]*model.ConversationRelationship
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		unread, err = s.tracker.UnreadCounts(gctx, principal, exchanges)
		return err
	})
	g.Go(func() error {
		var err error
		rels, err = s.relationships.DiscussionRelationships(gctx, principal, discussionIDs)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.relationships.Memberships(gctx, principal, conversationIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*dto.ExchangeDTO, 0, len(exchanges))
	for _, e := range exchanges {
		d, err := toExchangeDTO(e, s.cfg.WorkSafeURLs)
		if err != nil {
			return nil, err
		}
		d.UnreadCount = unread[e.ID]
		if r, ok := rels[e.ID]; ok {
			d.Following, d.Favorite = r.Following, r.Favorite
		}
		if m, ok := members[e.ID]; ok {
			d.NewPosts = m.NewPosts
		}
		d.Editable = s.store.IsEditableBy(e, principal)
		out = append(out, d)
	}
	return out, nil
}

func (s *exchangeServiceImpl) listDTO(ctx context.Context, principal *model.User, exchanges []*model.Exchange, pg util.Page, total int64) (*dto.ExchangeListDTO, error) {
	items, err := s.decorate(ctx, principal, exchanges)
	if err != nil {
		return nil, err
	}
	return &dto.ExchangeListDTO{
		Exchanges: items,
		Page:      util.NewPage(pg.Page, pg.PageSize, total),
	}, nil
}

func (s *exchangeServiceImpl) listPage(q *dto.ListQueryDTO) util.Page {
	size := q.PageSize
	if size <= 0 {
		size = s.cfg.DiscussionsPerPage
	}
	if size > consts.MaxPageSize {
		size = consts.MaxPageSize
	}
	return util.NewPage(q.Page, size, 0)
}

// indexAsync 索引失败不影响主流程; 会话不进入检索
func (s *exchangeServiceImpl) indexAsync(exchange *model.Exchange, post *model.Post) {
	if exchange == nil || exchange.IsConversation() {
		return
	}
	go func() {
		ctx := context.Background()
		if err := s.search.IndexExchange(ctx, exchange); err != nil {
			log.WarnContext(ctx, "index exchange failed", "exchange_id", exchange.ID, "err", err)
		}
		if post == nil {
			return
		}
		if err := s.search.IndexPost(ctx, post); err != nil {
			log.WarnContext(ctx, "index post failed", "post_id", post.ID, "err", err)
		}
	}()
}

func requireUser(principal *model.User) error {
	if principal == nil {
		return ErrLoginRequired
	}
	if principal.IsBan {
		return ErrForbidden
	}
	return nil
}
