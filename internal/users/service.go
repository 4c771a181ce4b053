// Package users registers and authenticates customers.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/auth"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

const minPasswordLen = 6

var validate = validator.New()

// Session is what register and login hand back to the client.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Service struct {
	store  store.Store
	tokens *auth.Tokens
	log    *slog.Logger
	now    func() time.Time
}

func NewService(s store.Store, tokens *auth.Tokens, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, tokens: tokens, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	// 1. Validate the input.
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: Please provide username, email, and password", apperrors.ErrInvalidInput)
	}
	if err := validEmail(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: Password must be at least %d characters long", apperrors.ErrInvalidInput, minPasswordLen)
	}

	// 2. Hash the password.
	var pw models.Password
	if err := pw.Set(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 3. Insert the user; the store enforces one account per email.
	now := s.now()
	u := &models.User{
		ID:           s.store.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: pw.Hash,
		Role:         models.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user registered", slog.String("user_id", u.ID))

	// 4. Sign them in.
	return s.session(u)
}

// Login checks the credentials. Unknown email and wrong password give the
// same error.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	invalid := fmt.Errorf("%w: Invalid email or password", apperrors.ErrUnauthorized)

	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}

	pw := models.Password{Hash: u.PasswordHash}
	ok, err := pw.Matches(password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, invalid
	}
	return s.session(u)
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("user %w", apperrors.ErrNotFound)
	}
	return u, err
}

// UpdateProfile replaces both username and email; a partial update is
// rejected.
func (s *Service) UpdateProfile(ctx context.Context, userID, username, email string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: Please provide username and email", apperrors.ErrInvalidInput)
	}
	if err := validEmail(email); err != nil {
		return nil, err
	}

	u, err := s.store.UpdateProfile(ctx, userID, username, email, s.now())
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("user %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "profile updated", slog.String("user_id", u.ID))
	return u, nil
}

func validEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: Please provide a valid email address", apperrors.ErrInvalidInput)
	}
	return nil
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.tokens.Generate(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}
