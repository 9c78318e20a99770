package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Guest store backends.
const (
	GuestStoreRedis    = "redis"
	GuestStoreDynamoDB = "dynamodb"
	GuestStoreFile     = "file"
	GuestStoreMemory   = "memory"
)

// Event sinks for cart.merged.
const (
	EventSinkNone  = "none"
	EventSinkSNS   = "sns"
	EventSinkKafka = "kafka"
)

type Config struct {
	Port string
	Env  string

	GuestStore     string
	GuestCartTTL   time.Duration
	RedisURL       string
	DynamoTable    string
	DynamoEndpoint string
	GuestFileDir   string

	CartAPIURL     string
	CartAPITimeout time.Duration

	JWTSecret     string
	JWTSecretName string

	EventSink    string
	SNSTopicARN  string
	KafkaBrokers string
	KafkaTopic   string

	KeepFailedMergeItems bool
	InFlightTTL          time.Duration

	CloudWatchEnabled bool
	MetricsNamespace  string
	LogGroup          string

	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from the environment, after merging in a .env
// file when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8086"),
		Env:            getEnv("APP_ENV", "development"),
		GuestStore:     strings.ToLower(getEnv("GUEST_STORE", GuestStoreRedis)),
		RedisURL:       getEnv("REDIS_URL", "redis://redis:6379"),
		DynamoTable:    getEnv("GUEST_CART_TABLE", "GuestCarts"),
		DynamoEndpoint: os.Getenv("AWS_DYNAMODB_ENDPOINT"),
		GuestFileDir:   getEnv("GUEST_CART_DIR", "./data/guest-carts"),
		CartAPIURL:     os.Getenv("CART_API_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTSecretName:  os.Getenv("JWT_SECRET_NAME"),
		EventSink:      strings.ToLower(getEnv("EVENT_SINK", EventSinkNone)),
		SNSTopicARN:    os.Getenv("CART_SNS_TOPIC_ARN"),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "cart.events"),
		LogGroup:       getEnv("CLOUDWATCH_LOG_GROUP", "/ecommerce/cart-service"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	var err error
	if cfg.GuestCartTTL, err = getDuration("GUEST_CART_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CartAPITimeout, err = getDuration("CART_API_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.InFlightTTL, err = getDuration("INFLIGHT_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 20); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 40); err != nil {
		return Config{}, err
	}
	cfg.CloudWatchEnabled = os.Getenv("CLOUDWATCH_ENABLED") == "true"
	cfg.MetricsNamespace = getEnv("METRICS_NAMESPACE", "ECommerce")

	switch policy := strings.ToLower(getEnv("MERGE_FAILURE_POLICY", "drop")); policy {
	case "drop":
	case "keep":
		cfg.KeepFailedMergeItems = true
	default:
		return Config{}, fmt.Errorf("MERGE_FAILURE_POLICY must be drop or keep, got %q", policy)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.GuestStore {
	case GuestStoreRedis, GuestStoreDynamoDB, GuestStoreFile, GuestStoreMemory:
	default:
		return fmt.Errorf("unknown GUEST_STORE %q", c.GuestStore)
	}
	switch c.EventSink {
	case EventSinkNone, EventSinkKafka:
	case EventSinkSNS:
		if c.SNSTopicARN == "" {
			return fmt.Errorf("CART_SNS_TOPIC_ARN is required when EVENT_SINK=sns")
		}
	default:
		return fmt.Errorf("unknown EVENT_SINK %q", c.EventSink)
	}
	if c.CartAPIURL == "" {
		return fmt.Errorf("CART_API_URL is not set")
	}
	if c.JWTSecret == "" && c.JWTSecretName == "" {
		return fmt.Errorf("one of JWT_SECRET or JWT_SECRET_NAME must be set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
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
