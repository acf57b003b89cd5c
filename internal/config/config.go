package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath - путь к файлу конфигурации, если CONFIG_PATH не задан
const DefaultConfigPath = "config/config.yaml"

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig
	Party     PartyConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     int      `mapstructure:"read_timeout"`     // секунды
	WriteTimeout    int      `mapstructure:"write_timeout"`    // секунды
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // секунды
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL.
// Без Enabled движок работает только в памяти: без источника уроков из БД, журнала очков и архива.
type DatabaseConfig struct {
	Enabled        bool
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт)
	Addrs []string `mapstructure:"addrs"`

	// Addr: Адрес для режима 'single', если Addrs пустой
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // миллисекунды
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // миллисекунды

	// KeyPrefix добавляется ко всем ключам кеша
	KeyPrefix string `mapstructure:"key_prefix"`
}

// IsConfigured - задан ли хотя бы один адрес Redis
func (r *RedisConfig) IsConfigured() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// AuthConfig содержит настройки проверки токенов личности.
// Токены выпускает внешний сервис; здесь только секрет для проверки подписи.
type AuthConfig struct {
	JWTSecret string   `mapstructure:"jwt_secret"`
	HostRoles []string `mapstructure:"host_roles"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
	Cluster          ClusterConfig
}

// ClusterConfig содержит настройки кластеризации
type ClusterConfig struct {
	Enabled          bool
	InstanceID       string `mapstructure:"instance_id"`
	BroadcastChannel string `mapstructure:"broadcast_channel"`
}

// PartyConfig содержит настройки живых игр
type PartyConfig struct {
	MinTimerSec         int    `mapstructure:"min_timer_sec"`
	MaxTimerSec         int    `mapstructure:"max_timer_sec"`
	MaxQuestions        int    `mapstructure:"max_questions"`
	ChoiceOptions       int    `mapstructure:"choice_options"`
	AutoAdvance         bool   `mapstructure:"auto_advance"`
	AutoAdvanceGraceSec int    `mapstructure:"auto_advance_grace_sec"`
	StoreBackend        string `mapstructure:"store_backend"`
	ArchiveEnabled      bool   `mapstructure:"archive_enabled"`
	CreditTTLHours      int    `mapstructure:"credit_ttl_hours"`
	EndedRetentionSec   int    `mapstructure:"ended_retention_sec"`
}

// EndedRetention - сколько завершённая игра хранится в памяти
func (p *PartyConfig) EndedRetention() time.Duration {
	return time.Duration(p.EndedRetentionSec) * time.Second
}

// CreditTTL - время жизни ключа защиты от повторного начисления
func (p *PartyConfig) CreditTTL() time.Duration {
	return time.Duration(p.CreditTTLHours) * time.Hour
}

// AutoAdvanceGrace - запас после истечения таймера вопроса
func (p *PartyConfig) AutoAdvanceGrace() time.Duration {
	return time.Duration(p.AutoAdvanceGraceSec) * time.Second
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("server.shutdown_timeout", 10)
	vip.SetDefault("server.allowed_origins", []string{"*"})

	vip.SetDefault("database.enabled", false)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.key_prefix", "vocab:")

	vip.SetDefault("auth.host_roles", []string{"teacher", "admin"})

	vip.SetDefault("websocket.subscriber_buffer", 32)
	vip.SetDefault("websocket.cluster.enabled", false)
	vip.SetDefault("websocket.cluster.broadcast_channel", "vocab:party:events")

	vip.SetDefault("party.min_timer_sec", 5)
	vip.SetDefault("party.max_timer_sec", 120)
	vip.SetDefault("party.max_questions", 20)
	vip.SetDefault("party.choice_options", 4)
	vip.SetDefault("party.auto_advance", true)
	vip.SetDefault("party.auto_advance_grace_sec", 2)
	vip.SetDefault("party.store_backend", "memory")
	vip.SetDefault("party.archive_enabled", true)
	vip.SetDefault("party.credit_ttl_hours", 24)
	vip.SetDefault("party.ended_retention_sec", 300)
}

func bindEnv(vip *viper.Viper) {
	// Server
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS")

	// Database
	vip.BindEnv("database.enabled", "DATABASE_ENABLED")
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	// Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")
	vip.BindEnv("redis.key_prefix", "REDIS_KEY_PREFIX")

	// Auth
	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	vip.BindEnv("auth.host_roles", "AUTH_HOST_ROLES")

	// WebSocket
	vip.BindEnv("websocket.cluster.enabled", "WEBSOCKET_CLUSTER_ENABLED")
	vip.BindEnv("websocket.cluster.instance_id", "WEBSOCKET_CLUSTER_INSTANCE_ID")
	vip.BindEnv("websocket.cluster.broadcast_channel", "WEBSOCKET_CLUSTER_BROADCAST_CHANNEL")

	// Party
	vip.BindEnv("party.min_timer_sec", "PARTY_MIN_TIMER_SEC")
	vip.BindEnv("party.max_timer_sec", "PARTY_MAX_TIMER_SEC")
	vip.BindEnv("party.max_questions", "PARTY_MAX_QUESTIONS")
	vip.BindEnv("party.auto_advance", "PARTY_AUTO_ADVANCE")
	vip.BindEnv("party.store_backend", "PARTY_STORE_BACKEND")
	vip.BindEnv("party.archive_enabled", "PARTY_ARCHIVE_ENABLED")
	vip.BindEnv("party.credit_ttl_hours", "PARTY_CREDIT_TTL_HOURS")
	vip.BindEnv("party.ended_retention_sec", "PARTY_ENDED_RETENTION_SEC")
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, без глобального состояния

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл необязателен: значения могут прийти из окружения
		if err := vip.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
				log.Printf("[Config] Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("[Config] Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database Enabled: %t (host: %s, name: %s)", cfg.Database.Enabled, cfg.Database.Host, cfg.Database.DBName)
		log.Printf("Redis Configured: %t (mode: %s)", cfg.Redis.IsConfigured(), cfg.Redis.Mode)
		log.Printf("JWT Secret Set: %t", cfg.Auth.JWTSecret != "")
		log.Printf("Websocket Cluster Enabled: %t", cfg.WebSocket.Cluster.Enabled)
		log.Printf("Party Timer: %d..%d sec, auto advance: %t", cfg.Party.MinTimerSec, cfg.Party.MaxTimerSec, cfg.Party.AutoAdvance)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Границы таймера вопроса, внутри которых допускается настройка
const (
	partyTimerFloorSec   = 5
	partyTimerCeilingSec = 120
)

// Validate проверяет обязательные параметры и согласованность настроек
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required in config (check AUTH_JWT_SECRET env var)")
	}
	if c.Database.Enabled && (c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "") {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.WebSocket.Cluster.Enabled && !c.Redis.IsConfigured() {
		return fmt.Errorf("websocket cluster relay requires redis (check REDIS_ADDR or REDIS_ADDRS env vars)")
	}
	if c.Party.MinTimerSec < partyTimerFloorSec || c.Party.MaxTimerSec > partyTimerCeilingSec || c.Party.MaxTimerSec < c.Party.MinTimerSec {
		return fmt.Errorf("invalid party timer bounds: min=%d max=%d", c.Party.MinTimerSec, c.Party.MaxTimerSec)
	}
	if c.Party.EndedRetentionSec < 0 {
		return fmt.Errorf("party ended_retention_sec cannot be negative: %d", c.Party.EndedRetentionSec)
	}
	if c.Party.MaxQuestions < 0 {
		return fmt.Errorf("party max_questions cannot be negative: %d", c.Party.MaxQuestions)
	}
	if c.Party.StoreBackend != "memory" {
		return fmt.Errorf("unsupported party store backend: %q", c.Party.StoreBackend)
	}
	if c.Party.ArchiveEnabled && !c.Database.Enabled {
		log.Println("[Config] Warning: party archive is enabled but database is disabled; archiving is skipped.")
	}
	return nil
}
