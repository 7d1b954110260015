package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	UploadTimeout  time.Duration `mapstructure:"UPLOAD_TIMEOUT"`

	BlobBucket   string `mapstructure:"BLOB_BUCKET"`
	BlobEndpoint string `mapstructure:"BLOB_ENDPOINT"`

	KafkaBrokers        []string `mapstructure:"KAFKA_BROKERS"`
	PipelineTopic       string   `mapstructure:"PIPELINE_TOPIC"`
	PipelineSubmitTopic string   `mapstructure:"PIPELINE_SUBMIT_TOPIC"`
	PipelineGroupID     string   `mapstructure:"PIPELINE_GROUP_ID"`
	NotifyQueueURL      string   `mapstructure:"NOTIFY_QUEUE_URL"`

	AnalysisTimeout  time.Duration `mapstructure:"ANALYSIS_TIMEOUT"`
	CatalogListTTL   time.Duration `mapstructure:"CATALOG_LIST_TTL"`
	CatalogDetailTTL time.Duration `mapstructure:"CATALOG_DETAIL_TTL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ACCESS_TOKEN_TTL", "900s")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("UPLOAD_TIMEOUT", "30s")
	v.SetDefault("ANALYSIS_TIMEOUT", "5m")
	v.SetDefault("CATALOG_LIST_TTL", "30m")
	v.SetDefault("CATALOG_DETAIL_TTL", "2h")
	v.SetDefault("PIPELINE_TOPIC", "lab-report-events")
	v.SetDefault("PIPELINE_SUBMIT_TOPIC", "lab-report-submissions")
	v.SetDefault("PIPELINE_GROUP_ID", "superone-api")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("ACCESS_TOKEN_TTL")
	v.BindEnv("REFRESH_TOKEN_TTL")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("UPLOAD_TIMEOUT")
	v.BindEnv("BLOB_BUCKET")
	v.BindEnv("BLOB_ENDPOINT")
	v.BindEnv("KAFKA_BROKERS")
	v.BindEnv("PIPELINE_TOPIC")
	v.BindEnv("PIPELINE_SUBMIT_TOPIC")
	v.BindEnv("PIPELINE_GROUP_ID")
	v.BindEnv("NOTIFY_QUEUE_URL")
	v.BindEnv("ANALYSIS_TIMEOUT")
	v.BindEnv("CATALOG_LIST_TTL")
	v.BindEnv("CATALOG_DETAIL_TTL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.KafkaBrokers == nil {
		if brokers := v.GetString("KAFKA_BROKERS"); brokers != "" {
			cfg.KafkaBrokers = strings.Split(brokers, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development a
// real JWT secret must be configured; token TTLs must be sane.
func (c *Config) Validate() error {
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes outside development (ENV=%q)", c.Env)
	}
	if c.AccessTokenTTL <= 0 || c.AccessTokenTTL > time.Hour {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be in (0, 1h], got %s", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL (%s) must exceed ACCESS_TOKEN_TTL (%s)", c.RefreshTokenTTL, c.AccessTokenTTL)
	}
	if c.IsProduction() && c.BlobBucket == "" {
		return fmt.Errorf("BLOB_BUCKET is required in production")
	}
	return nil
}
