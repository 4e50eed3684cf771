package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr      string
	AMQPURL         string
	StockQueue      string
	ChannelPoolSize int
	RedisAddr       string
	CacheTTL        time.Duration
}

// Load читает конфигурацию из переменных окружения. Пустой AMQP_URL отключает
// публикацию событий, пустой REDIS_ADDR — кэш списка товаров.
func Load() *Config {
	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":9091"),
		AMQPURL:         getEnv("AMQP_URL", ""),
		StockQueue:      getEnv("STOCK_QUEUE", "stock_changes"),
		ChannelPoolSize: getEnvAsInt("CHANNEL_POOL_SIZE", 10),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		CacheTTL:        time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 30)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
