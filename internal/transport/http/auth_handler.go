package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "anemiatrack/internal/errors"
	"anemiatrack/internal/services"
	"anemiatrack/internal/store"
)

// AuthServiceInterface is the service surface the auth handler needs.
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) error
}

// AuthHandler handles credential management.
type AuthHandler struct {
	service      AuthServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(service AuthServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AuthHandler {
	return &AuthHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "auth_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the auth routes.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	return r
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Bind implements render.Binder.
func (c *credentialsRequest) Bind(r *http.Request) error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req := &credentialsRequest{}
	if err := render.Bind(r, req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.service.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusConflict,
				"USER_EXISTS",
				"A user with that name already exists",
			))
			return
		}
		h.logger.ErrorContext(r.Context(), "registration failed",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{
		"status":   "registered",
		"username": req.Username,
	})
}

// Login handles POST /api/auth/login. It verifies the pair and reports
// the outcome; uploads themselves re-verify via Basic auth.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req := &credentialsRequest{}
	if err := render.Bind(r, req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.service.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusUnauthorized,
				"INVALID_CREDENTIALS",
				"Invalid username or password",
			))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{
		"status":   "authenticated",
		"username": req.Username,
	})
}
