package api

import (
	"Agora/internal/api/config"
	"Agora/internal/api/middleware"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, logstashCfg config.LogstashConfig) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r, logstashCfg)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		categoryGroup := apiGroup.Group("/categories")
		{
			authOptGroup := categoryGroup.Group("")
			authOptGroup.Use(group.AuthOptional)
			{
				authOptGroup.GET("", group.CategoryHandler.ListCategories)
				authOptGroup.GET("/:category", group.CategoryHandler.GetCategory)
			}

			// 需要登录 & 版主
			modGroup := categoryGroup.Group("")
			modGroup.Use(group.Auth, middleware.CheckRoles(consts.RoleModerator))
			{
				modGroup.POST("", group.CategoryHandler.CreateCategory)
				modGroup.PUT("/:category", group.CategoryHandler.UpdateCategory)
				modGroup.POST("/:category/move", group.CategoryHandler.MoveCategory)
				modGroup.DELETE("/:category", group.CategoryHandler.DeleteCategory)
			}
		}

		discussionGroup := apiGroup.Group("/discussions")
		{
			authOptGroup := discussionGroup.Group("")
			authOptGroup.Use(group.AuthOptional)
			{
				authOptGroup.GET("", group.ExchangeHandler.ListDiscussions)
				authOptGroup.GET("/popular", group.ExchangeHandler.ListPopular)
				authOptGroup.GET("/search", group.ExchangeHandler.SearchExchanges)
				authOptGroup.GET("/:id", group.ExchangeHandler.GetExchange)
				authOptGroup.GET("/:id/search", group.ExchangeHandler.SearchPosts)
			}

			authGroup := discussionGroup.Group("")
			authGroup.Use(group.Auth)
			{
				authGroup.GET("/favorites", group.ExchangeHandler.ListFavorites)
				authGroup.GET("/following", group.ExchangeHandler.ListFollowing)
				authGroup.POST("", group.ExchangeHandler.CreateDiscussion)
				authGroup.GET("/:id/edit", group.ExchangeHandler.GetExchangeForEdit)
				authGroup.PUT("/:id", group.ExchangeHandler.UpdateExchange)
				authGroup.POST("/:id/posts", group.ExchangeHandler.CreatePost)
				authGroup.PUT("/:id/relationship", group.ExchangeHandler.DefineRelationship)
				authGroup.POST("/:id/mark_as_read", group.ExchangeHandler.MarkAsRead)
			}
		}

		conversationGroup := apiGroup.Group("/conversations")
		conversationGroup.Use(group.Auth)
		{
			conversationGroup.GET("", group.ExchangeHandler.ListConversations)
			conversationGroup.POST("", group.ExchangeHandler.CreateConversation)
			conversationGroup.GET("/:id", group.ExchangeHandler.GetExchange)
			conversationGroup.GET("/:id/edit", group.ExchangeHandler.GetExchangeForEdit)
			conversationGroup.PUT("/:id", group.ExchangeHandler.UpdateExchange)
			conversationGroup.GET("/:id/search", group.ExchangeHandler.SearchPosts)
			conversationGroup.POST("/:id/posts", group.ExchangeHandler.CreatePost)
			conversationGroup.POST("/:id/mark_as_read", group.ExchangeHandler.MarkAsRead)
			conversationGroup.GET("/:id/participants", group.ExchangeHandler.ListParticipants)
			conversationGroup.POST("/:id/participants", group.ExchangeHandler.InviteParticipants)
			conversationGroup.DELETE("/:id/participants", group.ExchangeHandler.RemoveParticipant)
		}
	}

	return r
}
