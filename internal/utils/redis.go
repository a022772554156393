// 包 utils：外部连接工具，统一从配置读取地址与可选 DB 选择
package utils

import (
	"github.com/redis/go-redis/v9"

	"reverse-geo/internal/config"
	"reverse-geo/internal/logger"
)

// OpenRedis：使用地址与密码打开 Redis 客户端
// 背景：保留直接传入参数的能力，用于测试与手工注入场景；地址为空时返回 nil
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// OpenRedisFromConfig：按配置打开 Redis 客户端
// 约束：未启用时返回 nil，调用方将 nil 视为关闭二级缓存
func OpenRedisFromConfig(c *config.Config) *redis.Client {
	if !c.Redis.Enable {
		return nil
	}
	db := c.Redis.DB
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", c.RedisAddr(), "db", db)
	return OpenRedis(c.RedisAddr(), c.Redis.Pass, db)
}
