package config

import "strings"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type StoreConfig interface {
	GetSessionStore() string
	GetRedisURL() string
	GetStaticClients() string
}

type Store struct{}

var _ StoreConfig = Store{}

// GetSessionStore selects where grants and access tokens live: memory or redis.
func (Store) GetSessionStore() string {
	return strings.ToLower(GetEnv("SESSION_STORE", StoreMemory))
}

func (Store) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

// GetStaticClients returns pre-registered clients, see clients.ParseStaticClients.
func (Store) GetStaticClients() string {
	return GetEnv("STATIC_CLIENTS", "")
}
