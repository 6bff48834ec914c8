package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"anemiatrack/internal/store"
	"anemiatrack/pkg/contracts/domain"
)

type fakeUserRepo struct {
	users map[string]*domain.User

	findErr   error
	insertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) UserByName(_ context.Context, username string) (*domain.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	user, ok := f.users[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) InsertUser(_ context.Context, user *domain.User) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.users[user.Username]; ok {
		return store.ErrUserExists
	}
	f.users[user.Username] = user
	return nil
}

func newTestAuthService(repo UserRepository) *AuthService {
	return NewAuthService(repo, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAuthService_RegisterAndAuthenticate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	require.NoError(t, svc.Register(context.Background(), "fieldworker", "s3cret"))

	stored, ok := repo.users["fieldworker"]
	require.True(t, ok)
	assert.NotEqual(t, "s3cret", stored.PasswordHash, "password must be stored hashed")

	assert.NoError(t, svc.Authenticate(context.Background(), "fieldworker", "s3cret"))
	assert.ErrorIs(t, svc.Authenticate(context.Background(), "fieldworker", "wrong"), ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	assert.ErrorIs(t, svc.Register(context.Background(), "", "s3cret"), ErrInvalidInput)
	assert.ErrorIs(t, svc.Register(context.Background(), "fieldworker", ""), ErrInvalidInput)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	require.NoError(t, svc.Register(context.Background(), "fieldworker", "s3cret"))
	assert.ErrorIs(t, svc.Register(context.Background(), "fieldworker", "other"), store.ErrUserExists)
}

func TestAuthService_UnknownUserLooksLikeBadPassword(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	// Missing users and wrong passwords report the same error.
	assert.ErrorIs(t, svc.Authenticate(context.Background(), "nobody", "s3cret"), ErrInvalidCredentials)
}

func TestAuthService_StoreOutageIsNotBadCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	repo.findErr = &store.StoreError{Op: "find user", Err: errors.New("connection refused")}
	svc := newTestAuthService(repo)

	err := svc.Authenticate(context.Background(), "fieldworker", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	var stErr *store.StoreError
	assert.ErrorAs(t, err, &stErr)
}
