package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Data       DataConfig       `mapstructure:"data"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Queue      QueueConfig      `mapstructure:"queue"`
	LogLevel   string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// DataConfig 靜態資料表設定。路徑留空時使用內嵌的預設資料。
type DataConfig struct {
	OntologyPath   string `mapstructure:"ontology_path"`
	RulesPath      string `mapstructure:"rules_path"`
	CompoundsPath  string `mapstructure:"compounds_path"`
	UnknownLogPath string `mapstructure:"unknown_log_path"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisEnabled    bool          `mapstructure:"redis_enabled"`
	RedisAddr       string        `mapstructure:"redis_addr"`
}

// QueueConfig AI 請求隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（不存在時沿用環境變數）
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("openrouter.enabled", "OPENROUTER_ENABLED")
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.redis_enabled", "CACHE_REDIS_ENABLED")
	viper.BindEnv("cache.redis_addr", "CACHE_REDIS_ADDR")
	viper.BindEnv("data.ontology_path", "ONTOLOGY_PATH")
	viper.BindEnv("data.rules_path", "RULES_PATH")
	viper.BindEnv("data.compounds_path", "COMPOUNDS_PATH")
	viper.BindEnv("data.unknown_log_path", "UNKNOWN_LOG_PATH")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "lebensessenz-kursbot")

	// 靜態資料表（預設走內嵌資料）
	viper.SetDefault("data.ontology_path", "")
	viper.SetDefault("data.rules_path", "")
	viper.SetDefault("data.compounds_path", "")
	viper.SetDefault("data.unknown_log_path", "logs/unknown_items.log")

	// OpenRouter
	viper.SetDefault("openrouter.enabled", false)
	viper.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	viper.SetDefault("openrouter.max_tokens", 1024)
	viper.SetDefault("openrouter.timeout", 30*time.Second)

	// 緩存
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 500)
	viper.SetDefault("cache.ttl", 24*time.Hour)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("cache.redis_enabled", false)
	viper.SetDefault("cache.redis_addr", "localhost:6379")

	// 隊列
	viper.SetDefault("queue.workers", 2)
	viper.SetDefault("queue.max_size", 16)

	viper.SetDefault("log_level", "info")
}

// validateConfig 驗證必要設定，錯誤的設定在啟動時就拒絕服務
func validateConfig(cfg *Config) error {
	if cfg.OpenRouter.Enabled && cfg.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter enabled but OPENROUTER_API_KEY is empty")
	}
	if cfg.OpenRouter.MaxTokens <= 0 {
		return fmt.Errorf("openrouter max_tokens must be positive, got %d", cfg.OpenRouter.MaxTokens)
	}
	if cfg.OpenRouter.Timeout <= 0 {
		return fmt.Errorf("openrouter timeout must be positive, got %s", cfg.OpenRouter.Timeout)
	}
	if cfg.Cache.Enabled {
		if cfg.Cache.MaxSize <= 0 {
			return fmt.Errorf("cache max_size must be positive, got %d", cfg.Cache.MaxSize)
		}
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache ttl must be positive, got %s", cfg.Cache.TTL)
		}
	}
	if cfg.Queue.Workers <= 0 {
		return fmt.Errorf("queue workers must be positive, got %d", cfg.Queue.Workers)
	}
	if cfg.Queue.MaxSize <= 0 {
		return fmt.Errorf("queue max_size must be positive, got %d", cfg.Queue.MaxSize)
	}
	return nil
}
