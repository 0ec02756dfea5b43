package middleware

import (
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckRoles 检查当前用户是否拥有至少一个指定的角色, 需放在 AuthMiddleware 之后
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := Principal(c)
		if user == nil {
			response.Fail(c, response.Unauthorized, "请先登录")
			c.Abort()
			return
		}

		hasPermission := false
		for _, required := range requiredRoles {
			switch required {
			case consts.RoleAdmin:
				hasPermission = user.Admin
			case consts.RoleModerator:
				hasPermission = user.IsModerator()
			case consts.RoleTrusted:
				hasPermission = user.IsTrusted()
			}
			if hasPermission {
				break
			}
		}

		if !hasPermission || user.IsBan {
			response.Fail(c, response.Forbidden, "权限不足：无权访问该资源")
			c.Abort()
			return
		}

		c.Next()
	}
}
