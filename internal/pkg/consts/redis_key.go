package consts

const (
	CategoryListKey    = "forum:category:list"
	CategoryVersionKey = "forum:category:version"
	RevokedTokenKey    = "auth:revoked:"
)
