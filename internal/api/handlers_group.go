package api

import (
	"Agora/internal/api/handler"

	"github.com/gin-gonic/gin"
)

// HandlersGroup 封装了所有已初始化的 Handler 实例与鉴权中间件
type HandlersGroup struct {
	ExchangeHandler *handler.ExchangeHandler
	CategoryHandler *handler.CategoryHandler

	Auth         gin.HandlerFunc
	AuthOptional gin.HandlerFunc
}
