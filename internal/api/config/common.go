package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("AGORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

// Default 返回只包含默认值的配置, 测试中使用
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 100)
	v.SetDefault("database.max_lifetime", 60)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("elastic.indices.exchange_index", "exchanges")
	v.SetDefault("elastic.indices.post_index", "posts")
	v.SetDefault("logstash.index", "logstash-agora")
	v.SetDefault("jwt.secret", "agora")
	v.SetDefault("jwt.ttl", 24)
	v.SetDefault("forum.work_safe_urls", false)
	v.SetDefault("forum.discussions_per_page", 30)
	v.SetDefault("forum.posts_per_page", 50)
	v.SetDefault("forum.context_posts", 3)
	v.SetDefault("forum.strict_invites", false)
	v.SetDefault("forum.popular_default_days", 7)
	v.SetDefault("forum.category_cache_ttl", 600)
}
