package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"nexa-dashboard/internal/storage"
)

const (
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ storage.Store = (*Store)(nil)

// Open connects and pings the deployment until it answers or connectTimeout elapses.
func Open(ctx context.Context, uri, database string, connectTimeout time.Duration, logger *zap.Logger) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithMaxElapsedTime(connectTimeout),
	)
	err = backoff.RetryNotify(func() error {
		return client.Ping(ctx, readpref.Primary())
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("mongo ping failed", zap.Error(err), zap.Duration("retry_in", next))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	byCollection := map[string][]mongo.IndexModel{}
	for _, index := range storage.Indexes {
		keys := bson.D{}
		for _, key := range index.Keys {
			keys = append(keys, bson.E{Key: key, Value: 1})
		}
		byCollection[index.Collection] = append(byCollection[index.Collection], mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
	}
	byCollection[storage.CollectionAuditLogs] = append(byCollection[storage.CollectionAuditLogs], mongo.IndexModel{
		Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "created_at", Value: -1}},
	})

	for _, name := range storage.Collections {
		models := byCollection[name]
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Collection(name string) storage.Collection {
	return &collection{coll: s.db.Collection(name), name: name}
}
