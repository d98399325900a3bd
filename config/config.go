package config

import (
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the process configuration read from the environment.
type Config struct {
	Env    string
	Domain string
	Port   string

	MongoURI      string
	MongoDatabase string

	RedisAddress    string
	RedisPassword   string
	IssueLimitQueue string
	IssueDailyLimit int

	JWTSecret string

	AnthropicAPIKey string
	ReportModel     string

	UploadBucket string

	FeedPollInterval time.Duration
	CORSOrigins      []string
	LogLevel         string
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("GO_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("MONGODB_DATABASE", "mydb")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit")
	v.SetDefault("ISSUE_DAILY_LIMIT", 10)
	v.SetDefault("REPORT_MODEL", "claude-sonnet-4-5")
	v.SetDefault("FEED_POLL_INTERVAL", "15s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Env:              v.GetString("GO_ENV"),
		Domain:           v.GetString("DOMAIN"),
		Port:             v.GetString("PORT"),
		MongoURI:         v.GetString("MONGODB_URI"),
		MongoDatabase:    v.GetString("MONGODB_DATABASE"),
		RedisAddress:     v.GetString("REDIS_ADDRESS"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		IssueLimitQueue:  v.GetString("REDIS_QUEUE_FOR_ISSUE_LIMIT"),
		IssueDailyLimit:  v.GetInt("ISSUE_DAILY_LIMIT"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		AnthropicAPIKey:  v.GetString("ANTHROPIC_API_KEY"),
		ReportModel:      v.GetString("REPORT_MODEL"),
		UploadBucket:     v.GetString("UPLOAD_BUCKET"),
		FeedPollInterval: v.GetDuration("FEED_POLL_INTERVAL"),
		CORSOrigins:      splitList(v.GetString("CORS_ORIGINS")),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
