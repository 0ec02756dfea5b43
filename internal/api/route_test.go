package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"Agora/internal/api/config"
	"Agora/internal/api/dto"
	"Agora/internal/api/handler"
	"Agora/internal/api/middleware"
	"Agora/internal/model"
	"Agora/internal/pkg/database"
	"Agora/internal/repository"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUserHeader = "X-Test-User"

type routerEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	users    map[string]*model.User
	category service.CategoryService
	exchange service.ExchangeService
}

// 用请求头里的用户名代替 JWT 注入当前用户
func (e *routerEnv) principal(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := e.users[c.GetHeader(testUserHeader)]; ok {
			c.Set(middleware.PrincipalKey, user)
		} else if required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Response{Code: 401, Message: "unauthorized"})
			return
		}
		c.Next()
	}
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	db := database.CreateTempDB(t)

	userRepo := repository.NewUserRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	exchangeRepo := repository.NewExchangeRepo(db)
	postRepo := repository.NewPostRepo(db)
	relationshipRepo := repository.NewRelationshipRepo(db)
	policy := service.NewTrustPolicy()

	search := service.NewSearchService(nil, exchangeRepo, postRepo, policy)
	categories := service.NewCategoryService(categoryRepo, nil, search, policy, cfg.Forum.WorkSafeURLs)
	exchanges := service.NewExchangeService(
		service.NewExchangeStore(exchangeRepo, categoryRepo, relationshipRepo, userRepo, policy, cfg.Forum.PopularDefaultDays),
		categories,
		service.NewRelationshipService(relationshipRepo, userRepo, cfg.Forum.StrictInvites),
		service.NewReadTracker(repository.NewExchangeViewRepo(db), postRepo),
		search,
		exchangeRepo,
		postRepo,
		cfg.Forum,
	)

	env := &routerEnv{
		db:       db,
		users:    map[string]*model.User{},
		category: categories,
		exchange: exchanges,
	}
	env.router = SetupRouter(&HandlersGroup{
		ExchangeHandler: handler.NewExchangeHandler(exchanges),
		CategoryHandler: handler.NewCategoryHandler(categories),
		Auth:            env.principal(true),
		AuthOptional:    env.principal(false),
	}, cfg.Logstash)
	return env
}

func (e *routerEnv) user(t *testing.T, name string, mod func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{Username: name}
	if mod != nil {
		mod(u)
	}
	require.NoError(t, e.db.Create(u).Error)
	e.users[name] = u
	return u
}

func (e *routerEnv) do(method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (e *routerEnv) discussion(t *testing.T, poster *model.User, trusted bool) *dto.ExchangeDTO {
	t.Helper()
	ctx := context.Background()
	admin := &model.User{Admin: true}
	cat, err := e.category.CreateCategory(ctx, admin, &dto.CategoryBaseDTO{Name: "General", Trusted: &trusted})
	require.NoError(t, err)
	ex, err := e.exchange.CreateExchange(ctx, poster, &dto.ExchangeCreateDTO{
		Type:       string(model.KindDiscussion),
		Title:      "Hello",
		Body:       "first",
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	return ex
}

func TestRouter_Ping(t *testing.T) {
	env := newRouterEnv(t)
	w := env.do(http.MethodGet, "/api/ping", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.TraceHeader))
}

func TestRouter_ShowDiscussion(t *testing.T) {
	env := newRouterEnv(t)
	alice := env.user(t, "alice", nil)
	ex := env.discussion(t, alice, false)

	w := env.do(http.MethodGet, "/api/discussions/"+ex.Param, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Hello", data["discussion"].(map[string]interface{})["title"])
	assert.Len(t, data["posts"], 1)
}

func TestRouter_TrustedDiscussionForbidden(t *testing.T) {
	env := newRouterEnv(t)
	alice := env.user(t, "alice", func(u *model.User) { u.Trusted = true })
	env.user(t, "bob", nil)
	ex := env.discussion(t, alice, true)
	path := "/api/discussions/" + strconv.FormatUint(ex.ID, 10)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, path, "", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, path, "bob", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, "alice", "").Code)
}

func TestRouter_NotFound(t *testing.T) {
	env := newRouterEnv(t)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/discussions/999", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/discussions/abc", "", "").Code)
}

func TestRouter_PopularOutOfRangeRedirects(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodGet, "/api/discussions/popular?days=0", "", "")
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "/api/discussions/popular?"))
	assert.Contains(t, loc, "days=7")
	assert.Contains(t, loc, "notice=")

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/discussions/popular?days=30", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/discussions/popular", "", "").Code)
}

func TestRouter_SearchWithoutQueryRedirects(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodGet, "/api/discussions/search?q=+", "", "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/api/discussions?notice="))
}

func TestRouter_CreateDiscussionInvalidEchoesInput(t *testing.T) {
	env := newRouterEnv(t)
	alice := env.user(t, "alice", nil)
	env.discussion(t, alice, false)

	w := env.do(http.MethodPost, "/api/discussions", "alice", `{"body":"draft text","category_id":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "draft text", data["values"].(map[string]interface{})["body"])
	fields := data["fields"].([]interface{})
	require.NotEmpty(t, fields)
	assert.Equal(t, "title", fields[0].(map[string]interface{})["field"])
}

func TestRouter_CreateDiscussionSetsLocation(t *testing.T) {
	env := newRouterEnv(t)
	alice := env.user(t, "alice", nil)
	env.discussion(t, alice, false)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/discussions", "", `{"title":"x","body":"y","category_id":1}`).Code)

	w := env.do(http.MethodPost, "/api/discussions", "alice", `{"title":"Second","body":"y","category_id":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api/discussions/2;Second", w.Header().Get("Location"))
}

func TestRouter_CategoryWritesRequireModerator(t *testing.T) {
	env := newRouterEnv(t)
	env.user(t, "bob", nil)
	env.user(t, "mod", func(u *model.User) { u.Moderator = true })

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/categories", "", `{"name":"News"}`).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/categories", "bob", `{"name":"News"}`).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/categories", "mod", `{"name":"News"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/categories", "mod", `{"name":"news"}`).Code)

	w := env.do(http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)
}

func TestRouter_ConversationHiddenFromOutsiders(t *testing.T) {
	env := newRouterEnv(t)
	alice := env.user(t, "alice", nil)
	bob := env.user(t, "bob", nil)
	env.user(t, "carol", nil)

	conv, err := env.exchange.CreateExchange(context.Background(), alice, &dto.ExchangeCreateDTO{
		Type:         string(model.KindConversation),
		Title:        "secret",
		Body:         "hi",
		RecipientIDs: []uint64{bob.ID},
	})
	require.NoError(t, err)
	path := "/api/conversations/" + strconv.FormatUint(conv.ID, 10)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, "bob", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, path, "carol", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, path, "", "").Code)
}
