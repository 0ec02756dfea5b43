package service

import (
	"context"
	"slices"
	"strings"
	"testing"

	"Agora/internal/api/config"
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/database"
	"Agora/internal/pkg/es"
	"Agora/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCategoryCache struct {
	items       []*model.Category
	ok          bool
	version     int64
	gets        int
	invalidated int
}

func (c *fakeCategoryCache) Get(context.Context) ([]*model.Category, int64, bool, error) {
	c.gets++
	return c.items, c.version, c.ok, nil
}

func (c *fakeCategoryCache) Set(_ context.Context, categories []*model.Category, version int64) error {
	if version != c.version {
		return nil
	}
	c.items, c.ok = categories, true
	return nil
}

func (c *fakeCategoryCache) Invalidate(context.Context) error {
	c.items, c.ok = nil, false
	c.version++
	c.invalidated++
	return nil
}

// racingCategoryRepo 在读完分类列表之后、回填缓存之前执行 afterList, 模拟并发写入
type racingCategoryRepo struct {
	repository.CategoryRepo
	afterList func()
}

func (r *racingCategoryRepo) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := r.CategoryRepo.ListCategories(ctx)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return categories, err
}

// fakeSearchRepo 内存里的检索文档, 标题按子串匹配
type fakeSearchRepo struct {
	exchanges map[uint64]*es.ExchangeES
	posts     map[uint64]*es.PostES
	err       error
}

func (r *fakeSearchRepo) SearchExchanges(_ context.Context, query string, includeTrusted bool, from, size int) ([]uint64, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	ids := make([]uint64, 0)
	for id, doc := range r.exchanges {
		if doc.Kind != string(model.KindDiscussion) || (doc.Trusted && !includeTrusted) {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Title), strings.ToLower(query)) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	total := int64(len(ids))
	from = min(from, len(ids))
	return ids[from:min(from+size, len(ids))], total, nil
}

func (r *fakeSearchRepo) SearchPosts(_ context.Context, query string, exchangeID uint64, from, size int) ([]uint64, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	ids := make([]uint64, 0)
	for id, doc := range r.posts {
		if doc.ExchangeID == exchangeID && strings.Contains(strings.ToLower(doc.Body), strings.ToLower(query)) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	total := int64(len(ids))
	from = min(from, len(ids))
	return ids[from:min(from+size, len(ids))], total, nil
}

func (r *fakeSearchRepo) IndexExchange(_ context.Context, doc *es.ExchangeES) error {
	if r.exchanges == nil {
		r.exchanges = map[uint64]*es.ExchangeES{}
	}
	r.exchanges[doc.ID] = doc
	return nil
}

func (r *fakeSearchRepo) IndexPost(_ context.Context, doc *es.PostES) error {
	if r.posts == nil {
		r.posts = map[uint64]*es.PostES{}
	}
	r.posts[doc.ID] = doc
	return nil
}

func (r *fakeSearchRepo) UpdateCategoryTrusted(_ context.Context, categoryID uint64, trusted bool) error {
	if r.err != nil {
		return r.err
	}
	for _, doc := range r.exchanges {
		if doc.CategoryID == categoryID {
			doc.Trusted = trusted
		}
	}
	return nil
}

type testEnv struct {
	db            *gorm.DB
	cfg           config.ForumConfig
	userRepo      repository.UserRepo
	categoryRepo  repository.CategoryRepo
	exchangeRepo  repository.ExchangeRepo
	postRepo      repository.PostRepo
	cache         *fakeCategoryCache
	categories    CategoryService
	store         ExchangeStore
	relationships RelationshipService
	tracker       ReadTracker
	exchanges     ExchangeService
}

func newTestEnv(t *testing.T, opts ...func(*config.ForumConfig)) *testEnv {
	t.Helper()
	cfg := config.Default().Forum
	for _, o := range opts {
		o(&cfg)
	}

	db := database.CreateTempDB(t)
	env := &testEnv{
		db:           db,
		cfg:          cfg,
		userRepo:     repository.NewUserRepo(db),
		categoryRepo: repository.NewCategoryRepo(db),
		exchangeRepo: repository.NewExchangeRepo(db),
		postRepo:     repository.NewPostRepo(db),
		cache:        &fakeCategoryCache{},
	}
	relationshipRepo := repository.NewRelationshipRepo(db)
	viewRepo := repository.NewExchangeViewRepo(db)
	policy := NewTrustPolicy()

	search := NewSearchService(nil, env.exchangeRepo, env.postRepo, policy)
	env.categories = NewCategoryService(env.categoryRepo, env.cache, search, policy, cfg.WorkSafeURLs)
	env.store = NewExchangeStore(env.exchangeRepo, env.categoryRepo, relationshipRepo, env.userRepo, policy, cfg.PopularDefaultDays)
	env.relationships = NewRelationshipService(relationshipRepo, env.userRepo, cfg.StrictInvites)
	env.tracker = NewReadTracker(viewRepo, env.postRepo)
	env.exchanges = NewExchangeService(env.store, env.categories, env.relationships, env.tracker, search, env.exchangeRepo, env.postRepo, cfg)
	return env
}

func (e *testEnv) user(t *testing.T, name string, mutate ...func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{Username: name}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, e.userRepo.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) category(t *testing.T, name string, trusted bool) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, Trusted: trusted}
	require.NoError(t, e.categoryRepo.CreateCategory(context.Background(), c))
	return c
}

func (e *testEnv) discussion(t *testing.T, poster *model.User, category *model.Category, title string) *model.Exchange {
	t.Helper()
	ex, _, err := e.store.Create(context.Background(), poster, &dto.ExchangeCreateDTO{
		Title:      title,
		Body:       "first post of " + title,
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	return ex
}

func (e *testEnv) conversation(t *testing.T, poster *model.User, title string, recipients ...*model.User) *model.Exchange {
	t.Helper()
	ids := make([]uint64, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ID)
	}
	ex, _, err := e.store.Create(context.Background(), poster, &dto.ExchangeCreateDTO{
		Type:         string(model.KindConversation),
		Title:        title,
		Body:         "hello",
		RecipientIDs: ids,
	})
	require.NoError(t, err)
	return ex
}

func (e *testEnv) reply(t *testing.T, poster *model.User, exchange *model.Exchange, body string) {
	t.Helper()
	require.NoError(t, e.postRepo.CreatePost(context.Background(), exchange, &model.Post{UserID: poster.ID, Body: body}))
}

func (e *testEnv) reload(t *testing.T, id uint64) *model.Exchange {
	t.Helper()
	ex, err := e.store.Find(context.Background(), id)
	require.NoError(t, err)
	return ex
}

func trusted(u *model.User)   { u.Trusted = true }
func moderator(u *model.User) { u.Moderator = true }
func admin(u *model.User)     { u.Admin = true }
