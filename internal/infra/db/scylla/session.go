package scylla

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

type Config struct {
	Hosts             []string
	Keyspace          string
	Username          string
	Password          string
	Consistency       string
	Timeout           time.Duration
	ReplicationFactor int
}

// NewSession ensures the keyspace and tables exist and returns a session bound
// to the keyspace.
func NewSession(ctx context.Context, cfg Config, logger *slog.Logger) (*gocql.Session, error) {
	consistency, err := ParseConsistency(cfg.Consistency)
	if err != nil {
		return nil, err
	}

	baseSession, err := newCluster(cfg, consistency, "").CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to scylla: %w", err)
	}
	defer baseSession.Close()
	if err := ensureKeyspace(ctx, baseSession, cfg); err != nil {
		return nil, err
	}

	session, err := newCluster(cfg, consistency, cfg.Keyspace).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", cfg.Keyspace, err)
	}
	if err := ensureTables(ctx, session, cfg); err != nil {
		session.Close()
		return nil, err
	}
	if logger != nil {
		logger.Info("scylla connected", "hosts", cfg.Hosts, "keyspace", cfg.Keyspace)
	}
	return session, nil
}

// Ping runs a trivial query against the system keyspace.
func Ping(ctx context.Context, session *gocql.Session) error {
	return session.Query(`SELECT now() FROM system.local`).WithContext(ctx).Exec()
}

func ParseConsistency(raw string) (gocql.Consistency, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "quorum":
		return gocql.Quorum, nil
	case "one":
		return gocql.One, nil
	case "local_quorum", "localquorum":
		return gocql.LocalQuorum, nil
	case "local_one", "localone":
		return gocql.LocalOne, nil
	case "all":
		return gocql.All, nil
	default:
		return gocql.Quorum, fmt.Errorf("unsupported SCYLLA_CONSISTENCY: %s", raw)
	}
}

func newCluster(cfg Config, consistency gocql.Consistency, keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = consistency
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	return cluster
}

func ensureKeyspace(ctx context.Context, session *gocql.Session, cfg Config) error {
	rf := cfg.ReplicationFactor
	if rf < 1 {
		rf = 1
	}
	cql := fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
		cfg.Keyspace, rf,
	)
	if err := session.Query(cql).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}
	return nil
}

func ensureTables(ctx context.Context, session *gocql.Session, cfg Config) error {
	messages := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.room_messages (
	room_id text,
	created_at timestamp,
	message_id text,
	author_id text,
	text text,
	PRIMARY KEY (room_id, created_at, message_id)
) WITH CLUSTERING ORDER BY (created_at DESC, message_id DESC);`, cfg.Keyspace)
	if err := session.Query(messages).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create room_messages table: %w", err)
	}
	return nil
}
