package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"anemiatrack/internal/dataprocessing"
	"anemiatrack/pkg/contracts/domain"
)

// StateByName fetches one state document by its unique state name.
// Returns dataprocessing.ErrStateNotFound when no document exists yet.
func (s *Store) StateByName(ctx context.Context, reportType domain.ReportType, state string) (*domain.StateDocument, error) {
	coll, err := s.collection(reportType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var doc domain.StateDocument
	err = coll.FindOne(ctx, bson.M{"state": state}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, dataprocessing.ErrStateNotFound
	}
	if err != nil {
		return nil, wrap("find state", err)
	}
	return &doc, nil
}

// UpsertState replaces the whole state document keyed by state name,
// inserting it on first upload. The merger serializes same-state calls,
// so the blind replace cannot clobber a concurrent merge of this state.
func (s *Store) UpsertState(ctx context.Context, reportType domain.ReportType, doc *domain.StateDocument) error {
	coll, err := s.collection(reportType)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	_, err = coll.ReplaceOne(ctx,
		bson.M{"state": doc.State},
		doc,
		options.Replace().SetUpsert(true),
	)
	return wrap("upsert state", err)
}

// AllStates returns every state document in a collection, in insertion
// order, with the store's internal _id stripped.
func (s *Store) AllStates(ctx context.Context, reportType domain.ReportType) ([]domain.StateDocument, error) {
	coll, err := s.collection(reportType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, wrap("find states", err)
	}
	defer cursor.Close(ctx)

	var docs []domain.StateDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap("decode states", err)
	}
	return docs, nil
}
