package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Env                string           `mapstructure:"env"`
	Port               string           `mapstructure:"port"`
	WorkerMetricsPort  string           `mapstructure:"worker_metrics_port"`
	ImageFunctionPort  string           `mapstructure:"image_function_port"`
	JWTSecret          string           `mapstructure:"jwt_secret"`
	AsyncBrokerAddress string           `mapstructure:"async_broker_address"`
	Sentry             SentryConfig     `mapstructure:"sentry"`
	DB                 DatabaseConfig   `mapstructure:"db"`
	Storage            StorageConfig    `mapstructure:"storage"`
	Generation         GenerationConfig `mapstructure:"generation"`
	Gemini             GeminiConfig     `mapstructure:"gemini"`
	Cache              CacheConfig      `mapstructure:"cache"`
}

type SentryConfig struct {
	DSN     string `mapstructure:"dsn"`
	Release string `mapstructure:"release"`
}

type DatabaseConfig struct {
	// postgres or sqlite
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type StorageConfig struct {
	// r2 or minio
	Driver        string `mapstructure:"driver"`
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`

	R2AccountID       string `mapstructure:"r2_account_id"`
	R2AccessKeyID     string `mapstructure:"r2_access_key_id"`
	R2AccessKeySecret string `mapstructure:"r2_access_key_secret"`

	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`

	PresignExpiration time.Duration `mapstructure:"presign_expiration"`
}

// GenerationConfig is the static provider configuration. Which provider
// serves a request is decided from the fields that are set.
type GenerationConfig struct {
	JobQueueAPIKey   string `mapstructure:"jobqueue_api_key"`
	JobQueueModelKey string `mapstructure:"jobqueue_model_key"`
	JobQueueBaseURL  string `mapstructure:"jobqueue_base_url"`

	EndpointURL  string `mapstructure:"endpoint_url"`
	EndpointAuth string `mapstructure:"endpoint_auth"`

	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	ProxyFunctionURL string `mapstructure:"proxy_function_url"`

	Timeout         time.Duration `mapstructure:"timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxInterval time.Duration `mapstructure:"poll_max_interval"`
	PollMultiplier  float64       `mapstructure:"poll_multiplier"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts"`
	PollDeadline    time.Duration `mapstructure:"poll_deadline"`
}

type GeminiConfig struct {
	APIKey          string   `mapstructure:"api_key"`
	Models          []string `mapstructure:"models"`
	Temperature     float32  `mapstructure:"temperature"`
	MaxOutputTokens int32    `mapstructure:"max_output_tokens"`
}

type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	MaxCost int64         `mapstructure:"max_cost"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("wardrobe")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = cfg.Generation.GeminiAPIKey
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("port", "8083")
	v.SetDefault("worker_metrics_port", "9091")
	v.SetDefault("image_function_port", "8090")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("async_broker_address", "127.0.0.1:6379")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.release", "wardrobeapi@1.0.0")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "wardrobe")

	v.SetDefault("storage.driver", "r2")
	v.SetDefault("storage.bucket", "wardrobe")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.r2_account_id", "")
	v.SetDefault("storage.r2_access_key_id", "")
	v.SetDefault("storage.r2_access_key_secret", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.presign_expiration", "15m")

	v.SetDefault("generation.jobqueue_api_key", "")
	v.SetDefault("generation.jobqueue_model_key", "")
	v.SetDefault("generation.jobqueue_base_url", "https://api.banana.dev")
	v.SetDefault("generation.endpoint_url", "")
	v.SetDefault("generation.endpoint_auth", "")
	v.SetDefault("generation.gemini_api_key", "")
	v.SetDefault("generation.proxy_function_url", "http://127.0.0.1:8090/generate-image")
	v.SetDefault("generation.timeout", "30s")
	v.SetDefault("generation.poll_interval", "1.5s")
	v.SetDefault("generation.poll_max_interval", "10s")
	v.SetDefault("generation.poll_multiplier", 1.5)
	v.SetDefault("generation.poll_max_attempts", 60)
	v.SetDefault("generation.poll_deadline", "5m")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.models", []string{
		"gemini-2.5-flash-image-preview",
		"gemini-2.0-flash-exp",
		"gemini-1.5-pro-latest",
		"gemini-1.5-flash-latest",
	})
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.max_output_tokens", 4096)

	v.SetDefault("cache.ttl", "12m")
	v.SetDefault("cache.max_cost", 1<<27)
}
