package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	CORSOrigins        []string
	Timezone           string
	DBDriver           string
	DBDSN              string
	SessionTTL         time.Duration
	BcryptCost         int
	RedisURL           string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaClientID      string
	KafkaVersion       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
	ScyllaHosts        []string
	ScyllaKeyspace     string
	ScyllaUsername     string
	ScyllaPassword     string
	ScyllaConsistency  string
	ScyllaTimeout      time.Duration
	ScyllaReplication  int
	FixturesPath       string
}

// Load reads an optional .env file and parses configuration from the environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses configuration from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:               strings.ToLower(getEnv("APP_ENV", "dev")),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		Timezone:          getEnv("APP_TIMEZONE", "UTC"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "memory")),
		DBDSN:             os.Getenv("DB_DSN"),
		RedisURL:          os.Getenv("REDIS_URL"),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "roomchat"),
		KafkaTopicPrefix:  getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaClientID:     getEnv("KAFKA_CLIENT_ID", "roomchat"),
		KafkaVersion:      getEnv("KAFKA_VERSION", "2.6.0"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint:  getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:       getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:          getEnv("S3_BUCKET", "roomchat-avatars"),
		ScyllaKeyspace:    getEnv("SCYLLA_KEYSPACE", "roomchat"),
		ScyllaUsername:    strings.TrimSpace(os.Getenv("SCYLLA_USERNAME")),
		ScyllaPassword:    strings.TrimSpace(os.Getenv("SCYLLA_PASSWORD")),
		ScyllaConsistency: strings.ToLower(getEnv("SCYLLA_CONSISTENCY", "quorum")),
		FixturesPath:      os.Getenv("FIXTURES_PATH"),
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.ScyllaHosts = splitList(os.Getenv("SCYLLA_HOSTS"))

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	switch cfg.DBDriver {
	case "memory", "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q: want memory, sqlite or postgres", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" && cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("DB_DSN is required for postgres")
	}

	var err error
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = parseIntEnv("BCRYPT_COST", 0); err != nil {
		return Config{}, err
	}
	if cfg.ScyllaTimeout, err = parseDurationEnv("SCYLLA_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ScyllaReplication, err = parseIntEnv("SCYLLA_REPLICATION_FACTOR", 1); err != nil {
		return Config{}, err
	}
	if cfg.ScyllaReplication < 1 {
		cfg.ScyllaReplication = 1
	}
	if len(cfg.ScyllaHosts) > 0 && !keyspacePattern.MatchString(cfg.ScyllaKeyspace) {
		return Config{}, fmt.Errorf("invalid SCYLLA_KEYSPACE %q", cfg.ScyllaKeyspace)
	}

	for _, raw := range splitList(getEnv("RETRY_BACKOFF", "1s,5s,30s")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	return cfg, nil
}

// Location resolves Timezone; Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OutboxEnabled reports whether events should be relayed to Kafka through Mongo.
func (c Config) OutboxEnabled() bool {
	return c.MongoURI != "" && len(c.KafkaBrokers) > 0
}

// ArchiveEnabled reports whether message history is mirrored to Scylla.
func (c Config) ArchiveEnabled() bool {
	return len(c.ScyllaHosts) > 0
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
