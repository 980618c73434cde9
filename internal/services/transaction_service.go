package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pravacash/internal/amqp"
	"pravacash/internal/cache"
	"pravacash/internal/core"
	applog "pravacash/internal/log"
	"pravacash/internal/sheet"
	"pravacash/internal/storage"
)

// Broadcaster pushes refreshed data to connected clients. A nil
// Broadcaster disables push.
type Broadcaster interface {
	Broadcast(ctx context.Context, userID, event string, data any)
	BroadcastAdmins(ctx context.Context, event string, data any)
}

// Push event names, mirrored by the hub.
const (
	EventTransactionsUpdated      = "transactions:updated"
	EventAdminStatsUpdated        = "admin:stats:updated"
	EventAdminUsersUpdated        = "admin:users:updated"
	EventAdminTransactionsUpdated = "admin:transactions:updated"
)

// TransactionService orchestrates ledger mutations: write to SQLite,
// invalidate the snapshot cache, publish the mutation event, then push
// the refreshed list to the owner's open connections.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	broadcast  Broadcaster
	snapshots  *cache.LRUCache[[]core.Transaction]
	logger     *applog.Logger
}

func NewTransactionService(
	repo *storage.SQLiteRepository,
	amqpClient *amqp.Client,
	broadcast Broadcaster,
	snapshots *cache.LRUCache[[]core.Transaction],
	logger *applog.Logger,
) *TransactionService {
	return &TransactionService{
		storage:    repo,
		amqpClient: amqpClient,
		broadcast:  broadcast,
		snapshots:  snapshots,
		logger:     logger.WithComponent(applog.ComponentApp),
	}
}

// List returns the user's full ledger in chronological order, serving
// from the snapshot cache when warm.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	if s.snapshots != nil {
		if cached, ok := s.snapshots.Get(userID); ok {
			return cached, nil
		}
	}

	transactions, err := s.storage.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.snapshots != nil {
		s.snapshots.Set(userID, transactions)
	}
	return transactions, nil
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.afterMutation(ctx, t.UserID, amqp.NewMutationMessage(amqp.ActionCreated, t.UserID, created.ID, 1))
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateTransaction(ctx, t); err != nil {
		return err
	}

	s.afterMutation(ctx, t.UserID, amqp.NewMutationMessage(amqp.ActionUpdated, t.UserID, t.ID, 1))
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, id, userID string) error {
	if err := s.storage.DeleteTransaction(ctx, id, userID); err != nil {
		return err
	}

	s.afterMutation(ctx, userID, amqp.NewMutationMessage(amqp.ActionDeleted, userID, id, 1))
	return nil
}

// DeleteAll wipes the user's ledger and returns how many records went.
// PIN verification happens at the handler; by the time this runs the
// caller is cleared to do it.
func (s *TransactionService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.storage.DeleteAllTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.afterMutation(ctx, userID, amqp.NewMutationMessage(amqp.ActionCleared, userID, "", n))
	return n, nil
}

// Import reads an xlsx upload and inserts the rows that survived
// parsing; the returned count is what actually landed.
func (s *TransactionService) Import(ctx context.Context, userID string, r io.Reader) (int64, error) {
	parsed, err := sheet.Import(r)
	if err != nil {
		return 0, fmt.Errorf("parse upload: %w", err)
	}
	if len(parsed) == 0 {
		return 0, nil
	}

	n, err := s.storage.ImportTransactions(ctx, userID, parsed)
	if err != nil {
		return 0, err
	}

	s.afterMutation(ctx, userID, amqp.NewMutationMessage(amqp.ActionImported, userID, "", n))
	return n, nil
}

// Export writes the user's ledger as an xlsx workbook.
func (s *TransactionService) Export(ctx context.Context, userID string, w io.Writer) error {
	transactions, err := s.List(ctx, userID)
	if err != nil {
		return err
	}

	if err := sheet.Export(w, transactions); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "ledger exported",
		slog.String(applog.FieldUserID, userID),
		slog.Int(applog.FieldCount, len(transactions)),
		slog.String(applog.FieldOperation, applog.OpExport))
	return nil
}

// afterMutation runs the post-write fanout. Publish and push failures
// are logged, never surfaced: the write already succeeded.
func (s *TransactionService) afterMutation(ctx context.Context, userID string, msg *amqp.MutationMessage) {
	if s.snapshots != nil {
		s.snapshots.Delete(userID)
	}

	if err := s.amqpClient.PublishMutation(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "publish mutation event",
			slog.String(applog.FieldUserID, userID),
			slog.String("action", msg.Action),
			slog.String(applog.FieldError, err.Error()))
	}

	s.pushRefresh(ctx, userID)
}

// pushRefresh re-sends the owner's full list and refreshes the admin
// dashboards.
func (s *TransactionService) pushRefresh(ctx context.Context, userID string) {
	if s.broadcast == nil {
		return
	}

	transactions, err := s.List(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "load list for push",
			slog.String(applog.FieldUserID, userID),
			slog.String(applog.FieldError, err.Error()))
		return
	}
	s.broadcast.Broadcast(ctx, userID, EventTransactionsUpdated, TransactionViews(transactions))

	// The admin dashboard queries are independent; run them together.
	var g errgroup.Group
	g.Go(func() error {
		stats, err := s.storage.AdminStats(ctx)
		if err != nil {
			return err
		}
		s.broadcast.BroadcastAdmins(ctx, EventAdminStatsUpdated, NewStatsView(stats))
		return nil
	})
	g.Go(func() error {
		all, err := s.storage.ListAllTransactions(ctx)
		if err != nil {
			return err
		}
		s.broadcast.BroadcastAdmins(ctx, EventAdminTransactionsUpdated, NewAdminTransactionViews(all))
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "admin dashboard refresh",
			slog.String(applog.FieldError, err.Error()))
	}
}
