package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"anemiatrack/pkg/contracts/domain"
)

// UserRepository is the credential-store surface the auth service needs.
type UserRepository interface {
	UserByName(ctx context.Context, username string) (*domain.User, error)
	InsertUser(ctx context.Context, user *domain.User) error
}

// AuthService manages the user-credential collection guarding uploads.
type AuthService struct {
	repo       UserRepository
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates an auth service with the configured bcrypt cost.
func NewAuthService(repo UserRepository, bcryptCost int, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "auth_service")),
	}
}

// Register creates a credential record with a bcrypt password hash.
func (a *AuthService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.repo.InsertUser(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
	}); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "user registered", slog.String("username", username))
	return nil
}

// Authenticate verifies a username/password pair. Both a missing user
// and a wrong password report the same error so the endpoint does not
// leak which usernames exist.
func (a *AuthService) Authenticate(ctx context.Context, username, password string) error {
	user, err := a.repo.UserByName(ctx, username)
	if err != nil {
		// A store outage stays distinguishable from bad credentials.
		var stErr interface{ StoreError() }
		if errors.As(err, &stErr) {
			return err
		}
		return ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
