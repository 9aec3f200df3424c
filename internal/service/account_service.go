package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/cardsplit/internal/auth"
	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/middleware"
	"github.com/mmynk/cardsplit/internal/models"
	"github.com/mmynk/cardsplit/internal/storage"
)

// AccountService registers users, issues their tokens and manages the
// trusted contacts they split with.
type AccountService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	logger        *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		logger:        logger,
	}
}

// Register creates a new user account and returns it with a fresh token.
func (s *AccountService) Register(ctx context.Context, email, displayName, password string) (*models.User, string, error) {
	s.logger.Info("Register request", "email", email)

	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		s.logger.Error("Registration failed", "email", email, "error", err)
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// Login authenticates a user and returns a token naming them.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	s.logger.Info("Login request", "email", email)

	if email == "" || password == "" {
		return nil, "", auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// CurrentUser returns the user the context's token names.
func (s *AccountService) CurrentUser(ctx context.Context) (*models.User, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, auth.ErrMissingToken
	}
	return s.store.GetUserByID(ctx, userID)
}

// AddContact creates a trusted contact owned by the current user.
func (s *AccountService) AddContact(ctx context.Context, name, email string) (*models.TrustedContact, error) {
	ownerID := middleware.GetUserID(ctx)
	if ownerID == "" {
		return nil, auth.ErrMissingToken
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Invalid("", "contact name", name, "must not be empty")
	}
	email = models.NormalizeEmail(email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, errs.Invalid("", "contact email", email, "must be an email address")
	}

	contact := &models.TrustedContact{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.store.CreateContact(ctx, contact); err != nil {
		s.logger.Error("AddContact failed", "owner_id", ownerID, "error", err)
		return nil, err
	}

	s.logger.Info("Contact added", "contact_id", contact.ID, "owner_id", ownerID)
	return contact, nil
}
