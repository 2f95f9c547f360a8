package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roomchat/internal/app/middleware"
	appoutbox "roomchat/internal/app/outbox"
	"roomchat/internal/app/uow"
	domainauth "roomchat/internal/domain/auth"
	domainuser "roomchat/internal/domain/user"
	"roomchat/internal/infra/broker/kafka"
	redisstore "roomchat/internal/infra/cache/redis"
	"roomchat/internal/infra/config"
	"roomchat/internal/infra/db/gormdb"
	mongostore "roomchat/internal/infra/db/mongo"
	"roomchat/internal/infra/db/scylla"
	"roomchat/internal/infra/obs"
	infraoutbox "roomchat/internal/infra/outbox"
	"roomchat/internal/infra/storage/memory"
	"roomchat/internal/infra/storage/s3"
)

// infrastructure holds the adapters selected by configuration.
type infrastructure struct {
	uowFactory  uow.UoWFactory
	users       domainuser.Repository
	sessions    domainauth.SessionStore
	idempotency middleware.IdempotencyStore
	outbox      appoutbox.Outbox
	uploader    s3.Uploader
	worker      *infraoutbox.Worker
	checks      map[string]obs.Check
	closers     []func(context.Context) error
}

func buildInfrastructure(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{checks: map[string]obs.Check{}}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
		client, err := gormdb.Open(cfg.DBDriver, cfg.DBDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
		}
		infra.uowFactory = gormdb.Factory{DB: client.DB}
		infra.users = gormdb.NewUserRepository(client.DB)
		infra.checks["db"] = client.Ping
		infra.closers = append(infra.closers, func(context.Context) error { return client.Close() })
	default:
		users := memory.NewUserRepository()
		infra.uowFactory = memory.Factory{UsersRepo: users, RoomsRepo: memory.NewRoomRepository(users)}
		infra.users = users
	}

	if cfg.ArchiveEnabled() {
		session, err := scylla.NewSession(ctx, scylla.Config{
			Hosts:             cfg.ScyllaHosts,
			Keyspace:          cfg.ScyllaKeyspace,
			Username:          cfg.ScyllaUsername,
			Password:          cfg.ScyllaPassword,
			Consistency:       cfg.ScyllaConsistency,
			Timeout:           cfg.ScyllaTimeout,
			ReplicationFactor: cfg.ScyllaReplication,
		}, logger)
		if err != nil {
			infra.close(logger)
			return nil, fmt.Errorf("connect scylla: %w", err)
		}
		infra.uowFactory = scylla.Factory{Inner: infra.uowFactory, Archive: scylla.NewMessageArchive(session), Logger: logger}
		infra.checks["scylla"] = func(ctx context.Context) error { return scylla.Ping(ctx, session) }
		infra.closers = append(infra.closers, func(context.Context) error {
			session.Close()
			return nil
		})
	}

	if cfg.RedisURL != "" {
		client, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			infra.close(logger)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.sessions = redisstore.NewSessionStore(client)
		infra.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		infra.closers = append(infra.closers, func(context.Context) error { return client.Close() })
	} else {
		infra.sessions = memory.NewSessionStore()
	}

	infra.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	infra.outbox = memory.NewOutbox(logger)
	if cfg.MongoURI != "" {
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			infra.close(logger)
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		infra.checks["mongo"] = client.Ping
		infra.closers = append(infra.closers, client.Close)
		idStore, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			infra.close(logger)
			return nil, fmt.Errorf("prepare idempotency store: %w", err)
		}
		infra.idempotency = idStore

		if cfg.OutboxEnabled() {
			store, err := infraoutbox.NewStore(ctx, client.DB)
			if err != nil {
				infra.close(logger)
				return nil, fmt.Errorf("prepare outbox store: %w", err)
			}
			producer, err := kafka.NewProducer(kafka.Config{
				Brokers:  cfg.KafkaBrokers,
				ClientID: cfg.KafkaClientID,
				Version:  cfg.KafkaVersion,
			})
			if err != nil {
				infra.close(logger)
				return nil, fmt.Errorf("kafka producer: %w", err)
			}
			infra.closers = append(infra.closers, func(context.Context) error { return producer.Close() })
			infra.outbox = store
			infra.worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
				Logger:      logger,
				OnRelayed:   obs.ObserveRelay,
			}
		}
	}

	infra.uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(s3.Config{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			logger.Warn("avatar storage disabled", "error", err)
		} else {
			infra.uploader = client
			infra.checks["s3"] = client.Ping
		}
	}
	return infra, nil
}

// close releases adapters in reverse order of creation.
func (i *infrastructure) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		if err := i.closers[idx](ctx); err != nil && logger != nil {
			logger.Warn("adapter close failed", "error", err)
		}
	}
	i.closers = nil
}
