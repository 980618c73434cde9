package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pravacash/internal/auth"
	"pravacash/internal/core"
	applog "pravacash/internal/log"
	"pravacash/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPIN           = errors.New("incorrect PIN")
)

// UserService handles registration, login, and account settings.
type UserService struct {
	storage   *storage.SQLiteRepository
	issuer    *auth.TokenIssuer
	broadcast Broadcaster
	logger    *applog.Logger
}

func NewUserService(repo *storage.SQLiteRepository, issuer *auth.TokenIssuer, broadcast Broadcaster, logger *applog.Logger) *UserService {
	return &UserService{
		storage:   repo,
		issuer:    issuer,
		broadcast: broadcast,
		logger:    logger.WithComponent(applog.ComponentAuth),
	}
}

// Register creates a user account and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, email, name, password string) (core.User, string, error) {
	email = core.NormalizeEmail(email)

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, "", err
	}

	user := core.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         core.RoleUser,
	}
	if err := user.Validate(); err != nil {
		return core.User{}, "", err
	}

	created, err := s.storage.CreateUser(ctx, user)
	if err != nil {
		return core.User{}, "", err
	}

	token, err := s.issuer.Issue(created)
	if err != nil {
		return core.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String(applog.FieldUserID, created.ID),
		slog.String(applog.FieldEmail, created.Email),
		slog.String(applog.FieldOperation, applog.OpRegister))

	s.notifyAdminsUsersChanged(ctx)
	return created, token, nil
}

// Login checks credentials and returns the user with a fresh token.
// Unknown emails and wrong passwords report the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	user, err := s.storage.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, "", ErrInvalidCredentials
		}
		return core.User{}, "", err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return core.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return core.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String(applog.FieldUserID, user.ID),
		slog.String(applog.FieldOperation, applog.OpLogin))

	return user, token, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (core.User, error) {
	return s.storage.GetUserByID(ctx, userID)
}

// UpdateSettings changes the display name and email.
func (s *UserService) UpdateSettings(ctx context.Context, userID, name, email string) (core.User, error) {
	email = core.NormalizeEmail(email)
	if err := core.ValidateEmail(email); err != nil {
		return core.User{}, err
	}
	if name == "" {
		return core.User{}, errors.New("empty name")
	}

	if err := s.storage.UpdateUserProfile(ctx, userID, name, email); err != nil {
		return core.User{}, err
	}

	s.notifyAdminsUsersChanged(ctx)
	return s.storage.GetUserByID(ctx, userID)
}

// SetPIN configures or clears the 4-digit PIN.
func (s *UserService) SetPIN(ctx context.Context, userID, pin string) error {
	if err := core.ValidatePIN(pin); err != nil {
		return err
	}
	return s.storage.UpdateUserPIN(ctx, userID, pin)
}

// VerifyPIN checks a candidate PIN against the stored one. Accounts
// without an enabled PIN always pass, which is how unprotected users
// use the gated endpoints.
func (s *UserService) VerifyPIN(ctx context.Context, userID, candidate string) error {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.PINEnabled {
		return nil
	}
	if !auth.CheckPIN(user.PIN, candidate) {
		return ErrWrongPIN
	}
	return nil
}

func (s *UserService) notifyAdminsUsersChanged(ctx context.Context) {
	if s.broadcast == nil {
		return
	}
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return
	}
	s.broadcast.BroadcastAdmins(ctx, EventAdminUsersUpdated, NewAdminUserViews(users))

	if stats, err := s.storage.AdminStats(ctx); err == nil {
		s.broadcast.BroadcastAdmins(ctx, EventAdminStatsUpdated, NewStatsView(stats))
	}
}
