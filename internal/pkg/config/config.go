// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию сервера
type Server struct {
	Host                   string   `json:"host" yaml:"host"`
	Port                   int      `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int      `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	MaxUploadSizeMB        int      `json:"max_upload_size_mb" yaml:"max_upload_size_mb"`
	CORSOrigins            []string `json:"cors_origins" yaml:"cors_origins"`
}

// Processing содержит конфигурацию обработки загрузок
type Processing struct {
	UploadTimeoutSeconds   int `json:"upload_timeout_seconds" yaml:"upload_timeout_seconds"` // 0 - без ограничений
	CacheTTLMinutes        int `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
	SessionTTLMinutes      int `json:"session_ttl_minutes" yaml:"session_ttl_minutes"`
	CleanupIntervalMinutes int `json:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes"`
}

// Filter содержит конфигурацию состояния фильтров по умолчанию
type Filter struct {
	// DefaultSenderShare — порог доли отправителя в процентах,
	// при котором отправитель включается автоматически.
	DefaultSenderShare float64 `json:"default_sender_share" yaml:"default_sender_share"`
	// LanguageSampleMin — минимальная длина текста для определения языка.
	LanguageSampleMin int `json:"language_sample_min" yaml:"language_sample_min"`
}

// Executor содержит конфигурацию пула вычисления фильтров
type Executor struct {
	// PoolSize — число фоновых воркеров; 0 отключает пул,
	// и вычисления выполняются синхронно.
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Processing Processing `json:"processing" yaml:"processing"`
	Filter     Filter     `json:"filter" yaml:"filter"`
	Executor   Executor   `json:"executor" yaml:"executor"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию приложения из переменных окружения, .env файла или config.yml
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Если .env файла не существует, это нормально, мы будем полагаться на переменные окружения или config.yml
	}

	// Попытка загрузки из config.yml сначала
	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Если загрузка YAML не удалась, используем переменные окружения
		cfg = loadFromEnv()
	}

	cfg.fillDefaults()
	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// loadFromEnv загружает конфигурацию из переменных окружения
func loadFromEnv() *Config {
	cfg := &Config{}
	cfg.Server.Host = getEnv("SERVER_HOST", "")
	cfg.Server.Port = getEnvInt("SERVER_PORT", 0)
	cfg.Server.ShutdownTimeoutSeconds = getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 0)
	cfg.Server.MaxUploadSizeMB = getEnvInt("MAX_UPLOAD_SIZE_MB", 0)
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
	cfg.Processing.UploadTimeoutSeconds = getEnvInt("UPLOAD_TIMEOUT_SECONDS", -1)
	cfg.Processing.CacheTTLMinutes = getEnvInt("CACHE_TTL_MINUTES", 0)
	cfg.Processing.SessionTTLMinutes = getEnvInt("SESSION_TTL_MINUTES", 0)
	cfg.Processing.CleanupIntervalMinutes = getEnvInt("CLEANUP_INTERVAL_MINUTES", 0)
	cfg.Filter.DefaultSenderShare = getEnvFloat("FILTER_DEFAULT_SENDER_SHARE", -1)
	cfg.Filter.LanguageSampleMin = getEnvInt("LANGUAGE_SAMPLE_MIN", 0)
	cfg.Executor.PoolSize = getEnvInt("EXECUTOR_POOL_SIZE", -1)
	cfg.Logging.Level = getEnv("LOG_LEVEL", "")
	return cfg
}

// fillDefaults подставляет значения по умолчанию вместо незаданных полей
func (c *Config) fillDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = int(DefaultShutdownTimeout / time.Second)
	}
	if c.Server.MaxUploadSizeMB == 0 {
		c.Server.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{DefaultCORSOrigin}
	}
	if c.Processing.UploadTimeoutSeconds < 0 {
		c.Processing.UploadTimeoutSeconds = int(DefaultUploadTimeout / time.Second)
	}
	if c.Processing.CacheTTLMinutes == 0 {
		c.Processing.CacheTTLMinutes = int(DefaultCacheTTL / time.Minute)
	}
	if c.Processing.SessionTTLMinutes == 0 {
		c.Processing.SessionTTLMinutes = int(DefaultSessionTTL / time.Minute)
	}
	if c.Processing.CleanupIntervalMinutes == 0 {
		c.Processing.CleanupIntervalMinutes = int(DefaultCleanupInterval / time.Minute)
	}
	if c.Filter.DefaultSenderShare < 0 {
		c.Filter.DefaultSenderShare = DefaultSenderShareThreshold
	}
	if c.Filter.LanguageSampleMin == 0 {
		c.Filter.LanguageSampleMin = DefaultLanguageSampleMin
	}
	if c.Executor.PoolSize < 0 {
		c.Executor.PoolSize = DefaultExecutorPoolSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ShutdownTimeout возвращает таймаут остановки сервера
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// UploadTimeout возвращает таймаут обработки одной загрузки (0 — без ограничений)
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Processing.UploadTimeoutSeconds) * time.Second
}

// CacheTTL возвращает срок жизни элементов кэша разбора
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Processing.CacheTTLMinutes) * time.Minute
}

// SessionTTL возвращает срок жизни сессии загруженного чата
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Processing.SessionTTLMinutes) * time.Minute
}

// CleanupInterval возвращает период очистки просроченных записей
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Processing.CleanupIntervalMinutes) * time.Minute
}

// MaxUploadSize возвращает предел размера загрузки в байтах
func (c *Config) MaxUploadSize() int64 {
	return int64(c.Server.MaxUploadSizeMB) << 20
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds должно быть положительным")
	}

	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}

	if c.Processing.UploadTimeoutSeconds < 0 {
		return fmt.Errorf("processing.upload_timeout_seconds должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.CacheTTLMinutes <= 0 {
		return fmt.Errorf("processing.cache_ttl_minutes должно быть положительным целым числом")
	}

	if c.Processing.SessionTTLMinutes <= 0 {
		return fmt.Errorf("processing.session_ttl_minutes должно быть положительным целым числом")
	}

	if c.Processing.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("processing.cleanup_interval_minutes должно быть положительным целым числом")
	}

	if c.Filter.DefaultSenderShare < 0 || c.Filter.DefaultSenderShare > 100 {
		return fmt.Errorf("filter.default_sender_share должно быть процентом (0-100)")
	}

	if c.Filter.LanguageSampleMin <= 0 {
		return fmt.Errorf("filter.language_sample_min должно быть положительным")
	}

	if c.Executor.PoolSize < 0 {
		return fmt.Errorf("executor.pool_size должно быть неотрицательным (0 отключает пул)")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt извлекает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat извлекает вещественную переменную окружения
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
