// Package store implements the document-store repositories over MongoDB.
// Core pipeline code never sees the driver: it depends on the narrow
// repository interfaces and this package keeps the client lifecycle.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"anemiatrack/internal/config"
	"anemiatrack/pkg/contracts/domain"
)

// Store holds the Mongo client and collection handles.
type Store struct {
	client *mongo.Client
	cfg    config.StoreConfig
	logger *slog.Logger

	monthly   *mongo.Collection
	quarterly *mongo.Collection
	users     *mongo.Collection
}

// Connect dials the document store and prepares the collections,
// including the unique indexes on state and username.
func Connect(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:    client,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "store")),
		monthly:   db.Collection(cfg.MonthlyCollection),
		quarterly: db.Collection(cfg.QuarterlyCollection),
		users:     db.Collection(cfg.UsersCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "document store connected",
		slog.String("database", cfg.Database))

	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	stateIndex := mongo.IndexModel{
		Keys:    map[string]interface{}{"state": 1},
		Options: options.Index().SetUnique(true),
	}
	for _, coll := range []*mongo.Collection{s.monthly, s.quarterly} {
		if _, err := coll.Indexes().CreateOne(ctx, stateIndex); err != nil {
			return fmt.Errorf("failed to create state index on %s: %w", coll.Name(), err)
		}
	}

	userIndex := mongo.IndexModel{
		Keys:    map[string]interface{}{"username": 1},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.users.Indexes().CreateOne(ctx, userIndex); err != nil {
		return fmt.Errorf("failed to create username index: %w", err)
	}
	return nil
}

// collection selects the persisted collection for a report type.
func (s *Store) collection(reportType domain.ReportType) (*mongo.Collection, error) {
	switch reportType {
	case domain.ReportTypeMonthly:
		return s.monthly, nil
	case domain.ReportTypeQuarterly:
		return s.quarterly, nil
	default:
		return nil, &domain.ErrUnknownReportType{Type: string(reportType)}
	}
}

// Ping checks store connectivity for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.StorePingTimeout)
	defer cancel()
	return wrap("ping", s.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
