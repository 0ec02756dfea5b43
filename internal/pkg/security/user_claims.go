package security

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims Token 中只携带用户 id, 信任等级每次请求从数据库读取
type UserClaims struct {
	UserID uint64 `json:"user_id"`
	jwt.RegisteredClaims
}
