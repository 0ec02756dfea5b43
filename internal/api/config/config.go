package config

// Config 配置主体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Elastic  ElasticConfig  `mapstructure:"elastic"`
	Logstash LogstashConfig `mapstructure:"logstash"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Forum    ForumConfig    `mapstructure:"forum"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// ElasticConfig Elastic配置, Address 为空时搜索退回到数据库
type ElasticConfig struct {
	Address  string         `mapstructure:"address"`
	Username string         `mapstructure:"username"`
	Password string         `mapstructure:"password"`
	Indices  ElasticIndices `mapstructure:"indices"`
}

// ElasticIndices Elastic索引
type ElasticIndices struct {
	ExchangeIndex string `mapstructure:"exchange_index"`
	PostIndex     string `mapstructure:"post_index"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	TTL    int    `mapstructure:"ttl"` // hours
}

// ForumConfig 论坛行为配置, 进程启动时读取一次, 之后只读
type ForumConfig struct {
	WorkSafeURLs       bool `mapstructure:"work_safe_urls"`
	DiscussionsPerPage int  `mapstructure:"discussions_per_page"`
	PostsPerPage       int  `mapstructure:"posts_per_page"`
	ContextPosts       int  `mapstructure:"context_posts"`
	StrictInvites      bool `mapstructure:"strict_invites"`
	PopularDefaultDays int  `mapstructure:"popular_default_days"`
	CategoryCacheTTL   int  `mapstructure:"category_cache_ttl"` // seconds
}
