package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pravacash/internal/auth"
	"pravacash/internal/cache"
	"pravacash/internal/core"
	applog "pravacash/internal/log"
	"pravacash/internal/storage"
)

var (
	ErrSelfRoleChange = errors.New("cannot change your own role")
	ErrSelfDeletion   = errors.New("cannot delete your own account")
)

// AdminService covers the cross-user operations behind the admin API.
type AdminService struct {
	storage   *storage.SQLiteRepository
	broadcast Broadcaster
	snapshots *cache.LRUCache[[]core.Transaction]
	logger    *applog.Logger
}

func NewAdminService(repo *storage.SQLiteRepository, broadcast Broadcaster, snapshots *cache.LRUCache[[]core.Transaction], logger *applog.Logger) *AdminService {
	return &AdminService{
		storage:   repo,
		broadcast: broadcast,
		snapshots: snapshots,
		logger:    logger.WithComponent(applog.ComponentApp),
	}
}

func (s *AdminService) Stats(ctx context.Context) (storage.Stats, error) {
	return s.storage.AdminStats(ctx)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]storage.UserWithCount, error) {
	return s.storage.ListUsers(ctx)
}

func (s *AdminService) ListAllTransactions(ctx context.Context) ([]storage.AdminTransaction, error) {
	return s.storage.ListAllTransactions(ctx)
}

// CreateUser provisions an account with an explicit role.
func (s *AdminService) CreateUser(ctx context.Context, email, name, password string, role core.Role) (core.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	user := core.User{
		Email:        core.NormalizeEmail(email),
		Name:         name,
		PasswordHash: hash,
		Role:         role,
	}
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}

	created, err := s.storage.CreateUser(ctx, user)
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "user created by admin",
		slog.String(applog.FieldUserID, created.ID),
		slog.String("role", string(created.Role)))

	s.notifyUsersChanged(ctx)
	return created, nil
}

// UpdateUserRole promotes or demotes an account. An admin cannot
// demote themselves; losing the last admin would lock the panel.
func (s *AdminService) UpdateUserRole(ctx context.Context, actorID, userID string, role core.Role) error {
	if !role.Valid() {
		return core.ErrInvalidRole
	}
	if actorID == userID && role != core.RoleAdmin {
		return ErrSelfRoleChange
	}

	if err := s.storage.UpdateUserRole(ctx, userID, role); err != nil {
		return err
	}

	s.notifyUsersChanged(ctx)
	return nil
}

// DeleteUser removes an account and its transactions. Self-deletion
// through the admin panel is refused.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrSelfDeletion
	}

	if err := s.storage.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if s.snapshots != nil {
		s.snapshots.Delete(userID)
	}

	s.notifyUsersChanged(ctx)
	if s.broadcast != nil {
		if all, err := s.storage.ListAllTransactions(ctx); err == nil {
			s.broadcast.BroadcastAdmins(ctx, EventAdminTransactionsUpdated, NewAdminTransactionViews(all))
		}
	}
	return nil
}

func (s *AdminService) notifyUsersChanged(ctx context.Context) {
	if s.broadcast == nil {
		return
	}
	if users, err := s.storage.ListUsers(ctx); err == nil {
		s.broadcast.BroadcastAdmins(ctx, EventAdminUsersUpdated, NewAdminUserViews(users))
	}
	if stats, err := s.storage.AdminStats(ctx); err == nil {
		s.broadcast.BroadcastAdmins(ctx, EventAdminStatsUpdated, NewStatsView(stats))
	}
}
