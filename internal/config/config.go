package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     int
	LogLevel string

	SideShiftBaseURL string
	SideShiftSecret  string
	AffiliateID      string
	CallTimeout      time.Duration
	CoinCacheTTL     time.Duration

	StoreDriver     string
	DatabaseURL     string
	RedisURL        string
	ConversationTTL time.Duration
	SweepSchedule   string

	NatsURL   string
	NatsToken string

	TelegramBotToken string

	SlackBotToken string
	SlackChannel  string

	AnthropicAPIKey string
	AnthropicModel  string

	APIToken           string
	AllowedOrigins     []string
	TrustProxy         bool
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Load reads settings from the environment, falling back to an optional
// lazyswap.yaml in the working directory and then to defaults.
func Load() Config {
	v := viper.New()
	v.SetConfigName("lazyswap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SIDESHIFT_BASE_URL", "https://sideshift.ai/api/v2")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("SWEEP_SCHEDULE", "@every 10m")
	v.SetDefault("LAZYSWAP_MODEL", "claude-sonnet-4-20250514")

	// Optional file; env always wins.
	_ = v.ReadInConfig()

	var origins []string
	for _, o := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		Port:     intOr(v, "LAZYSWAP_PORT", 8080),
		LogLevel: v.GetString("LOG_LEVEL"),

		SideShiftBaseURL: v.GetString("SIDESHIFT_BASE_URL"),
		SideShiftSecret:  v.GetString("SIDESHIFT_SECRET"),
		AffiliateID:      v.GetString("SIDESHIFT_AFFILIATE_ID"),
		CallTimeout:      durationOr(v, "SIDESHIFT_TIMEOUT", 15*time.Second),
		CoinCacheTTL:     durationOr(v, "COIN_CACHE_TTL", 5*time.Minute),

		StoreDriver:     v.GetString("STORE_DRIVER"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		ConversationTTL: durationOr(v, "CONVERSATION_TTL", 24*time.Hour),
		SweepSchedule:   v.GetString("SWEEP_SCHEDULE"),

		NatsURL:   v.GetString("NATS_URL"),
		NatsToken: v.GetString("NATS_TOKEN"),

		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),

		SlackBotToken: v.GetString("SLACK_BOT_TOKEN"),
		SlackChannel:  v.GetString("SLACK_CHANNEL"),

		AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:  v.GetString("LAZYSWAP_MODEL"),

		APIToken:           v.GetString("LAZYSWAP_API_TOKEN"),
		AllowedOrigins:     origins,
		TrustProxy:         v.GetBool("TRUST_PROXY"),
		RateLimitPerMinute: intOr(v, "RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     intOr(v, "RATE_LIMIT_BURST", 10),
	}
}

func intOr(v *viper.Viper, key string, fallback int) int {
	if s := v.GetString(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	if s := v.GetString(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
