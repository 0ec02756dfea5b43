package wire

import (
	"Agora/internal/api"
	"Agora/internal/api/config"
	"Agora/internal/api/handler"
	"Agora/internal/api/middleware"
	"Agora/internal/pkg/es"
	"Agora/internal/pkg/redis"
	"Agora/internal/pkg/security"
	"Agora/internal/repository"
	"Agora/internal/service"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router *gin.Engine
	DB     *gorm.DB
}

// BuildApplication rdb 与 esClient 可为 nil, 分别关闭分类缓存与 ES 检索
func BuildApplication(db *gorm.DB, rdb *redisv9.Client, esClient *elasticsearch.TypedClient, cfg *config.Config) (*ApplicationContainer, error) {
	forum := cfg.Forum

	userRepo := repository.NewUserRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	exchangeRepo := repository.NewExchangeRepo(db)
	postRepo := repository.NewPostRepo(db)
	relationshipRepo := repository.NewRelationshipRepo(db)
	viewRepo := repository.NewExchangeViewRepo(db)

	var categoryCache service.CategoryCache
	if rdb != nil {
		categoryCache = redis.NewCategoryCache(rdb, time.Duration(forum.CategoryCacheTTL)*time.Second)
	}
	var searchRepo es.ExchangeSearchRepo
	if esClient != nil {
		searchRepo = es.NewExchangeSearchRepo(esClient, cfg.Elastic.Indices.ExchangeIndex, cfg.Elastic.Indices.PostIndex)
	}

	policy := service.NewTrustPolicy()
	searchService := service.NewSearchService(searchRepo, exchangeRepo, postRepo, policy)
	categoryService := service.NewCategoryService(categoryRepo, categoryCache, searchService, policy, forum.WorkSafeURLs)
	exchangeStore := service.NewExchangeStore(exchangeRepo, categoryRepo, relationshipRepo, userRepo, policy, forum.PopularDefaultDays)
	relationshipService := service.NewRelationshipService(relationshipRepo, userRepo, forum.StrictInvites)
	readTracker := service.NewReadTracker(viewRepo, postRepo)
	exchangeService := service.NewExchangeService(
		exchangeStore,
		categoryService,
		relationshipService,
		readTracker,
		searchService,
		exchangeRepo,
		postRepo,
		forum,
	)

	tokens := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Hour)

	handlers := &api.HandlersGroup{
		ExchangeHandler: handler.NewExchangeHandler(exchangeService),
		CategoryHandler: handler.NewCategoryHandler(categoryService),
		Auth:            middleware.AuthMiddleware(tokens, userRepo),
		AuthOptional:    middleware.AuthOptionalMiddleware(tokens, userRepo),
	}

	router := api.SetupRouter(handlers, cfg.Logstash)

	return &ApplicationContainer{
		Router: router,
		DB:     db,
	}, nil
}
