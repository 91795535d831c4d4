package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	StorageDriver string
	DatabaseURL   string
	MaxDBConns    int32
	RedisURL      string

	KafkaBrokers                  []string
	KafkaConsumerGroup            string
	KafkaTopicPaymentVerified     string
	KafkaTopicFlowStateChanged    string
	KafkaTopicSettlementOpened    string
	KafkaTopicSettlementMilestone string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration

	JWTSecret            string
	JWTIssuer            string
	PaymentWebhookSecret string
	CORSAllowedOrigins   []string

	IdempotencyTTL    time.Duration
	EventDedupTTL     time.Duration
	BreakdownCacheTTL time.Duration

	TracingEnabled bool
	TracingFile    string
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Storage struct {
		Driver     string `yaml:"driver"`
		MaxDBConns int32  `yaml:"max_db_conns"`
	} `yaml:"storage"`
	Dependencies struct {
		PostgresURL                   string   `yaml:"postgres_url"`
		RedisURL                      string   `yaml:"redis_url"`
		KafkaBrokers                  []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup            string   `yaml:"kafka_consumer_group"`
		KafkaTopicPaymentVerified     string   `yaml:"kafka_topic_payment_verified"`
		KafkaTopicFlowStateChanged    string   `yaml:"kafka_topic_flow_state_changed"`
		KafkaTopicSettlementOpened    string   `yaml:"kafka_topic_settlement_opened"`
		KafkaTopicSettlementMilestone string   `yaml:"kafka_topic_settlement_milestone"`
	} `yaml:"dependencies"`
	Workers struct {
		OutboxPollSeconds   int `yaml:"outbox_poll_seconds"`
		OutboxBatchSize     int `yaml:"outbox_batch_size"`
		ConsumerPollSeconds int `yaml:"consumer_poll_seconds"`
	} `yaml:"workers"`
	Security struct {
		JWTIssuer          string   `yaml:"jwt_issuer"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"security"`
	Settlement struct {
		IdempotencyTTLHours    int `yaml:"idempotency_ttl_hours"`
		EventDedupTTLHours     int `yaml:"event_dedup_ttl_hours"`
		BreakdownCacheTTLHours int `yaml:"breakdown_cache_ttl_hours"`
	} `yaml:"settlement"`
	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		File    string `yaml:"file"`
	} `yaml:"tracing"`
}

// LoadConfig reads defaults, then the yaml file, then .env and the process
// environment. Later sources win.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                     "M46-Collaboration-Settlement-Service",
		HTTPPort:                      8080,
		GRPCPort:                      9090,
		StorageDriver:                 StorageDriverPostgres,
		MaxDBConns:                    20,
		KafkaConsumerGroup:            "m46-collaboration-settlement-service",
		KafkaTopicPaymentVerified:     "payment.verified",
		KafkaTopicFlowStateChanged:    "collaboration.flow_state_changed",
		KafkaTopicSettlementOpened:    "settlement.opened",
		KafkaTopicSettlementMilestone: "settlement.milestone",
		OutboxPollInterval:            2 * time.Second,
		OutboxBatchSize:               100,
		ConsumerPollInterval:          2 * time.Second,
		IdempotencyTTL:                7 * 24 * time.Hour,
		EventDedupTTL:                 7 * 24 * time.Hour,
		BreakdownCacheTTL:             24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if envErr := godotenv.Load(); envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", envErr)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.StorageDriver = strings.ToLower(envOrDefault("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicPaymentVerified = envOrDefault("KAFKA_TOPIC_PAYMENT_VERIFIED", cfg.KafkaTopicPaymentVerified)
	cfg.KafkaTopicFlowStateChanged = envOrDefault("KAFKA_TOPIC_FLOW_STATE_CHANGED", cfg.KafkaTopicFlowStateChanged)
	cfg.KafkaTopicSettlementOpened = envOrDefault("KAFKA_TOPIC_SETTLEMENT_OPENED", cfg.KafkaTopicSettlementOpened)
	cfg.KafkaTopicSettlementMilestone = envOrDefault("KAFKA_TOPIC_SETTLEMENT_MILESTONE", cfg.KafkaTopicSettlementMilestone)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.PaymentWebhookSecret = envOrDefault("PAYMENT_WEBHOOK_SECRET", cfg.PaymentWebhookSecret)
	cfg.CORSAllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.BreakdownCacheTTL = time.Duration(envInt("BREAKDOWN_CACHE_TTL_HOURS", int(cfg.BreakdownCacheTTL.Hours()))) * time.Hour
	cfg.TracingEnabled = envBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingFile = envOrDefault("TRACING_FILE", cfg.TracingFile)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Storage.Driver != "" {
		cfg.StorageDriver = strings.ToLower(f.Storage.Driver)
	}
	if f.Storage.MaxDBConns > 0 {
		cfg.MaxDBConns = f.Storage.MaxDBConns
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	if f.Dependencies.KafkaTopicPaymentVerified != "" {
		cfg.KafkaTopicPaymentVerified = f.Dependencies.KafkaTopicPaymentVerified
	}
	if f.Dependencies.KafkaTopicFlowStateChanged != "" {
		cfg.KafkaTopicFlowStateChanged = f.Dependencies.KafkaTopicFlowStateChanged
	}
	if f.Dependencies.KafkaTopicSettlementOpened != "" {
		cfg.KafkaTopicSettlementOpened = f.Dependencies.KafkaTopicSettlementOpened
	}
	if f.Dependencies.KafkaTopicSettlementMilestone != "" {
		cfg.KafkaTopicSettlementMilestone = f.Dependencies.KafkaTopicSettlementMilestone
	}
	if f.Workers.OutboxPollSeconds > 0 {
		cfg.OutboxPollInterval = time.Duration(f.Workers.OutboxPollSeconds) * time.Second
	}
	if f.Workers.OutboxBatchSize > 0 {
		cfg.OutboxBatchSize = f.Workers.OutboxBatchSize
	}
	if f.Workers.ConsumerPollSeconds > 0 {
		cfg.ConsumerPollInterval = time.Duration(f.Workers.ConsumerPollSeconds) * time.Second
	}
	if f.Security.JWTIssuer != "" {
		cfg.JWTIssuer = f.Security.JWTIssuer
	}
	if len(f.Security.CORSAllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = trimNonEmpty(f.Security.CORSAllowedOrigins)
	}
	if f.Settlement.IdempotencyTTLHours > 0 {
		cfg.IdempotencyTTL = time.Duration(f.Settlement.IdempotencyTTLHours) * time.Hour
	}
	if f.Settlement.EventDedupTTLHours > 0 {
		cfg.EventDedupTTL = time.Duration(f.Settlement.EventDedupTTLHours) * time.Hour
	}
	if f.Settlement.BreakdownCacheTTLHours > 0 {
		cfg.BreakdownCacheTTL = time.Duration(f.Settlement.BreakdownCacheTTLHours) * time.Hour
	}
	cfg.TracingEnabled = f.Tracing.Enabled
	cfg.TracingFile = f.Tracing.File
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DB_URL/POSTGRES_URL")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if c.PaymentWebhookSecret == "" {
		return fmt.Errorf("missing PAYMENT_WEBHOOK_SECRET")
	}
	return nil
}

// TopicByEvent maps emitted event types to their configured Kafka topics.
func (c Config) TopicByEvent() map[string]string {
	return map[string]string{
		domain.EventFlowStateChanged:    c.KafkaTopicFlowStateChanged,
		domain.EventSettlementOpened:    c.KafkaTopicSettlementOpened,
		domain.EventSettlementMilestone: c.KafkaTopicSettlementMilestone,
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
