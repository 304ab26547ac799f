package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config 是 fairshare 各进程共享的配置
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	MQ      MQConfig      `yaml:"mq"`
	Redis   RedisConfig   `yaml:"redis"`
	Outbox  OutboxConfig  `yaml:"outbox"`
	Otel    OtelConfig    `yaml:"otel"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig 存储选择
type StorageConfig struct {
	Driver             string        `yaml:"driver"`
	SQLitePath         string        `yaml:"sqlite_path"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// DSN 返回 PostgreSQL 连接串
func (c DBConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, sslmode)
}

// MQConfig 消息队列配置
type MQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OutboxConfig outbox 派发配置
type OutboxConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

// OtelConfig OpenTelemetry 配置
type OtelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Validate 检查配置完整性
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("db.host and db.name are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.MQ.Enabled && c.MQ.URL == "" {
		return fmt.Errorf("mq.url is required when mq is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.SQLitePath == "" && c.Storage.Driver == DriverSQLite {
		c.Storage.SQLitePath = "fairshare.db"
	}
	if c.Storage.SlowQueryThreshold == 0 {
		c.Storage.SlowQueryThreshold = 100 * time.Millisecond
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.MQ.Exchange == "" {
		c.MQ.Exchange = "fairshare.events"
	}
	if c.Redis.IdempotencyTTL == 0 {
		c.Redis.IdempotencyTTL = 24 * time.Hour
	}
	if c.Outbox.Interval == 0 {
		c.Outbox.Interval = time.Second
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetries == 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = "fairshare"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// OverrideFromEnv 从环境变量覆盖配置（优先级最高）
func OverrideFromEnv(cfg *Config) {
	OverrideDBFromEnv(&cfg.DB)
	OverrideMQFromEnv(&cfg.MQ)
	OverrideRedisFromEnv(&cfg.Redis)
	OverrideServerFromEnv(&cfg.Server)
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.Storage.SQLitePath = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		cfg.Otel.Endpoint = endpoint
	}
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
			port = ":" + port
		}
		cfg.Port = port
	}
}
