package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "HTTP_ADDR", "APP_TIMEZONE", "DB_DRIVER", "DB_DSN", "KAFKA_BROKERS", "MONGO_URI", "RETRY_BACKOFF", "SESSION_TTL", "S3_ENDPOINT", "S3_PUBLIC_ENDPOINT", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Env != "dev" || cfg.HTTPAddr != ":8080" || cfg.DBDriver != "memory" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("session ttl = %v", cfg.SessionTTL)
	}
	if len(cfg.RetryBackoff) != 3 || cfg.RetryBackoff[2] != 30*time.Second {
		t.Fatalf("retry backoff = %v", cfg.RetryBackoff)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("location = %v", cfg.Location())
	}
	if cfg.OutboxEnabled() {
		t.Fatalf("outbox should be disabled without mongo and kafka")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Europe/Oslo")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_PUBLIC_ENDPOINT", "")
	t.Setenv("S3_USE_SSL", "yes")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver = %q", cfg.DBDriver)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if !cfg.OutboxEnabled() || !cfg.S3UseSSL || cfg.BcryptCost != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.S3PublicEndpoint != "localhost:9000" {
		t.Fatalf("public endpoint should default to endpoint, got %q", cfg.S3PublicEndpoint)
	}
	if cfg.Location().String() != "Europe/Oslo" {
		t.Fatalf("location = %v", cfg.Location())
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"timezone":   {"APP_TIMEZONE", "Mars/Olympus"},
		"driver":     {"DB_DRIVER", "oracle"},
		"duration":   {"SESSION_TTL", "forever"},
		"backoff":    {"RETRY_BACKOFF", "1s,soon"},
		"bool":       {"S3_USE_SSL", "maybe"},
		"bcryptCost": {"BCRYPT_COST", "ten"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestFromEnvPostgresNeedsDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected missing DSN error")
	}
}

func TestFromEnvScylla(t *testing.T) {
	for _, key := range []string{"SCYLLA_KEYSPACE", "SCYLLA_CONSISTENCY", "SCYLLA_TIMEOUT"} {
		t.Setenv(key, "")
	}
	t.Setenv("SCYLLA_HOSTS", "scylla-1, scylla-2")
	t.Setenv("SCYLLA_REPLICATION_FACTOR", "0")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.ArchiveEnabled() || len(cfg.ScyllaHosts) != 2 || cfg.ScyllaReplication != 1 {
		t.Fatalf("unexpected scylla config: %+v", cfg)
	}
	if cfg.ScyllaKeyspace != "roomchat" || cfg.ScyllaConsistency != "quorum" || cfg.ScyllaTimeout != 5*time.Second {
		t.Fatalf("unexpected scylla defaults: %+v", cfg)
	}

	t.Setenv("SCYLLA_KEYSPACE", "room-chat")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected keyspace validation error")
	}
}
