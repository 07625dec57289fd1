package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Значения по умолчанию, совпадающие с поведением демо-приложения
const (
	DefaultClassName   = "Books"
	DefaultLimit       = 3
	DefaultMaxDistance = 0.2
	DefaultBatchSize   = 50
	DefaultTimeout     = 10 * time.Second
)

// ComponentConfig содержит базовые сетевые настройки для запуска сервиса
type ComponentConfig struct {
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Debug    bool   `yaml:"debug"`
}

// WeaviateConfig описывает подключение к внешнему векторному сервису
type WeaviateConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	EmbeddingKey string        `yaml:"embedding_api_key"`
	ClassName    string        `yaml:"class_name"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SearchConfig параметры фильтра релевантности
type SearchConfig struct {
	Limit       int     `yaml:"limit"`
	MaxDistance float64 `yaml:"max_distance"`
}

// CatalogConfig локальная таблица метаданных (обложки)
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LoaderConfig настройки пакетной загрузки
type LoaderConfig struct {
	CSVPath        string `yaml:"csv_path"`
	Charset        string `yaml:"charset"`
	BatchSize      int    `yaml:"batch_size"`
	Workers        int    `yaml:"workers"`
	PushgatewayURL string `yaml:"pushgateway_url"`
}

// LoggingConfig настройки logrus
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	Path  string `yaml:"path"`
}

// RateLimitConfig ограничение запросов на IP для web-adapter
type RateLimitConfig struct {
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
	IdleTTL time.Duration `yaml:"idle_ttl"` // через сколько забывать неактивный IP
}

// CLIConfig настройки для CLI (не сервис)
type CLIConfig struct {
	Debug       bool   `yaml:"debug"`
	HistoryFile string `yaml:"history_file"`
}

// Config корень дерева конфигурации, соответствующий bookrec.yaml
type Config struct {
	Weaviate    WeaviateConfig  `yaml:"weaviate"`
	Search      SearchConfig    `yaml:"search"`
	Catalog     CatalogConfig   `yaml:"catalog"`
	Loader      LoaderConfig    `yaml:"loader"`
	Logging     LoggingConfig   `yaml:"logging"`
	WebAdapter  ComponentConfig `yaml:"web_adapter"`
	Recommender ComponentConfig `yaml:"recommender"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CLI         CLIConfig       `yaml:"cli"`
}

type invalidErr string

func (e invalidErr) Error() string { return string(e) }

// ErrInvalid is matched with errors.Is against every validation failure.
var ErrInvalid = invalidErr("invalid config")

func (e invalidErr) Is(target error) bool { return target == ErrInvalid }

func invalid(format string, args ...any) error {
	return invalidErr(fmt.Sprintf(format, args...))
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Weaviate: WeaviateConfig{
			ClassName: DefaultClassName,
			Timeout:   DefaultTimeout,
		},
		Search: SearchConfig{
			Limit:       DefaultLimit,
			MaxDistance: DefaultMaxDistance,
		},
		Catalog: CatalogConfig{Path: "bookrec.db"},
		Loader: LoaderConfig{
			CSVPath:   "data/books.csv",
			Charset:   "utf-8",
			BatchSize: DefaultBatchSize,
			Workers:   1,
		},
		Logging:     LoggingConfig{Level: "info"},
		WebAdapter:  ComponentConfig{Protocol: "http", Host: "0.0.0.0", Port: 8080},
		Recommender: ComponentConfig{Protocol: "grpc", Host: "0.0.0.0", Port: 50051},
		RateLimit:   RateLimitConfig{RPS: 5, Burst: 10, IdleTTL: 10 * time.Minute},
		CLI:         CLIConfig{HistoryFile: ".bookrec_history"},
	}
}

// Load читает конфигурацию через Read и проверяет её целиком (Validate).
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read читает YAML (если файл есть), .env и переменные окружения без проверки.
// Пустой path означает BOOKREC_CONFIG или bookrec.yaml.
func Read(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BOOKREC_CONFIG")
	}
	if path == "" {
		path = "bookrec.yaml"
	}

	// .env is optional, real environment wins over it
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WEAVIATE_URL"); v != "" {
		c.Weaviate.URL = v
	}
	if v := os.Getenv("WEAVIATE_API_KEY"); v != "" {
		c.Weaviate.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Weaviate.EmbeddingKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Weaviate.URL) == "" {
		return invalid("weaviate url is required (WEAVIATE_URL)")
	}
	if c.Weaviate.ClassName == "" {
		return invalid("weaviate class_name is required")
	}
	if c.Search.Limit <= 0 {
		return invalid("search limit must be positive, got %d", c.Search.Limit)
	}
	if c.Search.MaxDistance <= 0 || c.Search.MaxDistance > 2 {
		return invalid("search max_distance must be within (0,2], got %v", c.Search.MaxDistance)
	}
	if c.Loader.BatchSize <= 0 {
		return invalid("loader batch_size must be positive, got %d", c.Loader.BatchSize)
	}
	return nil
}

// ValidateRemote проверяет только то, что нужно клиенту рекомендатора:
// сам он к Weaviate не ходит, поэтому URL и ключи не требуются.
func (c *Config) ValidateRemote() error {
	if c.Recommender.Host == "" || c.Recommender.Port <= 0 {
		return invalid("recommender address is required, got %q", c.Recommender.Address())
	}
	return nil
}

// Address возвращает строку host:port (удобно для gRPC)
func (c ComponentConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FullURL возвращает строку protocol://host:port (удобно для HTTP/URL)
func (c ComponentConfig) FullURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}
