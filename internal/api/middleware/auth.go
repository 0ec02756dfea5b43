package middleware

import (
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/logger"
	"Agora/internal/pkg/redis"
	"Agora/internal/pkg/response"
	"Agora/internal/pkg/security"
	"Agora/internal/repository"
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// PrincipalKey gin.Context 中当前用户的 key, 匿名时不存在
const PrincipalKey = "principal"

var (
	errTokenMissing = errors.New("Token 缺失或格式错误")
	errTokenInvalid = errors.New("Token 无效或已过期")
)

// AuthMiddleware 负责验证 JWT 并将当前用户注入 Context, 失败时 401
func AuthMiddleware(tokens *security.TokenManager, users repository.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolvePrincipal(c, tokens, users)
		if err != nil {
			if errors.Is(err, errTokenMissing) || errors.Is(err, errTokenInvalid) {
				response.Fail(c, response.Unauthorized, err.Error())
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		setPrincipal(c, user)
		c.Next()
	}
}

// AuthOptionalMiddleware 可选鉴权: 解析成功注入当前用户, 失败或缺失则为匿名
func AuthOptionalMiddleware(tokens *security.TokenManager, users repository.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := resolvePrincipal(c, tokens, users); err == nil {
			setPrincipal(c, user)
		}
		c.Next()
	}
}

// Principal 当前用户, 匿名时为 nil
func Principal(c *gin.Context) *model.User {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

func resolvePrincipal(c *gin.Context, tokens *security.TokenManager, users repository.UserRepo) (*model.User, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, errTokenMissing
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	signature, err := security.ExtractSignature(tokenString)
	if err != nil {
		return nil, errTokenMissing
	}

	// 已注销的 Token
	revoked, err := redis.GetValue(c.Request.Context(), consts.RevokedTokenKey+signature)
	if err != nil {
		return nil, err
	}
	if revoked != "" {
		return nil, errTokenInvalid
	}

	claims, err := tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, errTokenInvalid
	}

	user, err := users.GetUserById(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errTokenInvalid
	}
	return user, nil
}

func setPrincipal(c *gin.Context, user *model.User) {
	c.Set(PrincipalKey, user)
	c.Set(logger.UserIDKey, user.ID)
	ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, user.ID)
	c.Request = c.Request.WithContext(ctx)
}
