package consts

const (
	// PopularMinDays PopularMaxDays 热门窗口允许的天数范围
	PopularMinDays = 1
	PopularMaxDays = 180
)

const (
	SortRecent  = "recent"
	SortPopular = "popular"
)

const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
	RoleTrusted   = "TRUSTED"
)

const MaxPageSize = 100
