package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"anemiatrack/pkg/contracts/domain"
)

// ErrUserNotFound is returned when no credential record matches.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned on a duplicate-username insert.
var ErrUserExists = errors.New("username conflict: user already exists")

// UserByName fetches one credential record by its unique username.
func (s *Store) UserByName(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var user domain.User
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}

// InsertUser creates a credential record. The unique username index
// turns duplicates into ErrUserExists.
func (s *Store) InsertUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	return wrap("insert user", err)
}
