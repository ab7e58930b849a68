// Package config holds the environment-driven configuration for the
// device-trust service.
package config

import (
	"fmt"
	"time"
)

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host string `env:"TRUST_HOST" env-default:"localhost"`
	Port uint16 `env:"TRUST_PORT" env-default:"4000"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DbConfig configures the PostgreSQL trust store
type DbConfig struct {
	Host     string `env:"TRUST_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"TRUST_PG_PORT" env-default:"5432"`
	Database string `env:"TRUST_PG_DATABASE" env-default:"trust_db"`
	User     string `env:"TRUST_PG_USER" env-default:"trust"`
	Password string `env:"TRUST_PG_PASSWORD" env-default:"pwd"`
}

// ToDatabaseURL builds the pgx connection URL
func (c DbConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig configures the attempt-list cache
type RedisConfig struct {
	Host     string `env:"TRUST_REDIS_HOST" env-default:"localhost"`
	Port     uint16 `env:"TRUST_REDIS_PORT" env-default:"6379"`
	Password string `env:"TRUST_REDIS_PASSWORD" env-default:""`
	DB       int    `env:"TRUST_REDIS_DB" env-default:"0"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TrustConfig configures the device-trust lifecycle
type TrustConfig struct {
	// Maximum retained PIN attempts per device. Lowering it between
	// deployments truncates existing ledgers on their next write.
	MaxPinTries     int `env:"TRUST_MAX_PIN_TRIES" env-default:"10"`
	ConflictRetries int `env:"TRUST_CONFLICT_RETRIES" env-default:"3"`
}

// AttemptListConfig configures the login-attempt read path
type AttemptListConfig struct {
	CacheTTLSeconds int    `env:"LOGIN_ATTEMPT_CACHE_TTL_SECONDS" env-default:"300"`
	DateFormat      string `env:"LOGIN_ATTEMPT_DATE_FORMAT" env-default:"02.01.2006 15:04:05"`
	PageLimit       int    `env:"LOGIN_ATTEMPT_PAGE_LIMIT" env-default:"20"`
}

// CacheTTL returns the cache TTL as a duration
func (c AttemptListConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// CollaboratorConfig holds the base URLs of the external collaborators
type CollaboratorConfig struct {
	NotificationBaseURL string `env:"NOTIFICATION_BASE_URL" env-default:"http://localhost:4001"`
	ContractBaseURL     string `env:"CONTRACT_BASE_URL" env-default:"http://localhost:4002"`
	CustomerBaseURL     string `env:"CUSTOMER_BASE_URL" env-default:"http://localhost:4003"`
}

// DispatcherConfig configures the side-effect dispatcher
type DispatcherConfig struct {
	QueueSize int `env:"SIDE_EFFECT_QUEUE_SIZE" env-default:"256"`
	Workers   int `env:"SIDE_EFFECT_WORKERS" env-default:"4"`
}

// Config is the full service configuration
type Config struct {
	Server        ServerConfig
	Db            DbConfig
	Redis         RedisConfig
	Trust         TrustConfig
	AttemptList   AttemptListConfig
	Collaborators CollaboratorConfig
	Dispatcher    DispatcherConfig
}
