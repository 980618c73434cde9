package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pravacash/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser stores a new user and returns it with generated fields
// filled in. The email must already be normalized.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()

	err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", u.ID, "email", u.Email)
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return userFromRow(row), nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return userFromRow(row), nil
}

// UpdateUserProfile changes the display name and email of a user.
func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, id, name, email string) error {
	n, err := r.queries.UpdateUserProfile(ctx, id, name, email)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrEmailTaken
		}
		return fmt.Errorf("update user profile: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpdateUserPIN sets or clears the 4-digit PIN. An empty pin disables
// the lock and clears the stored value.
func (r *SQLiteRepository) UpdateUserPIN(ctx context.Context, id, pin string) error {
	stored := sql.NullString{String: pin, Valid: pin != ""}
	n, err := r.queries.UpdateUserPIN(ctx, id, stored, pin != "")
	if err != nil {
		return fmt.Errorf("update user pin: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserRole(ctx context.Context, id string, role core.Role) error {
	n, err := r.queries.UpdateUserRole(ctx, id, string(role))
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user; owned transactions go with it via the
// ON DELETE CASCADE on the transactions table.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	n, err := r.queries.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "User deleted", "id", id)
	return nil
}

// UserWithCount pairs a user with how many transactions they own.
type UserWithCount struct {
	User             core.User
	TransactionCount int64
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]UserWithCount, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]UserWithCount, len(rows))
	for i, row := range rows {
		users[i] = UserWithCount{
			User:             userFromRow(row.UserRow),
			TransactionCount: row.TransactionCount,
		}
	}
	return users, nil
}

// CreateTransaction stores a new transaction and returns it with the
// generated id and creation time filled in.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          t.ID,
		UserID:      t.UserID,
		Description: t.Description,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Date:        t.Date.String(),
		CreatedAt:   t.CreatedAt,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns all transactions for a user ordered by date,
// then creation time, both ascending.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	transactions := make([]core.Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = transactionFromRow(row)
	}
	return transactions, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row), nil
}

// UpdateTransaction rewrites the mutable fields of a transaction owned
// by the given user.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          t.ID,
		UserID:      t.UserID,
		Description: t.Description,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Date:        t.Date.String(),
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteAllTransactions wipes every transaction the user owns and
// returns how many were removed. Deleting from an empty ledger is not
// an error.
func (r *SQLiteRepository) DeleteAllTransactions(ctx context.Context, userID string) (int64, error) {
	n, err := r.queries.DeleteAllTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all transactions: %w", err)
	}
	slog.InfoContext(ctx, "All transactions deleted", "user_id", userID, "count", n)
	return n, nil
}

// ImportTransactions inserts a batch atomically; either every record
// lands or none do.
func (r *SQLiteRepository) ImportTransactions(ctx context.Context, userID string, txs []core.Transaction) (int64, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer dbTx.Rollback()

	q := r.queries.WithTx(dbTx)
	now := time.Now().UTC()
	for i, t := range txs {
		err := q.CreateTransaction(ctx, CreateTransactionParams{
			ID:          uuid.NewString(),
			UserID:      userID,
			Description: t.Description,
			Type:        string(t.Type),
			Amount:      t.Amount,
			Date:        t.Date.String(),
			// Preserve file order within the same date.
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
		if err != nil {
			return 0, fmt.Errorf("import transaction %d: %w", i, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported", "user_id", userID, "count", len(txs))
	return int64(len(txs)), nil
}

// AdminTransaction is a transaction annotated with its owner for the
// cross-user admin listing.
type AdminTransaction struct {
	Transaction core.Transaction
	UserName    string
	UserEmail   string
}

func (r *SQLiteRepository) ListAllTransactions(ctx context.Context) ([]AdminTransaction, error) {
	rows, err := r.queries.ListAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}
	transactions := make([]AdminTransaction, len(rows))
	for i, row := range rows {
		transactions[i] = AdminTransaction{
			Transaction: transactionFromRow(row.TransactionRow),
			UserName:    row.UserName,
			UserEmail:   row.UserEmail,
		}
	}
	return transactions, nil
}

// Stats is the system-wide aggregate the admin dashboard shows.
type Stats struct {
	TotalUsers        int64
	TotalTransactions int64
	TotalIncome       int64
	TotalExpense      int64
}

func (r *SQLiteRepository) AdminStats(ctx context.Context) (Stats, error) {
	row, err := r.queries.AdminStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("admin stats: %w", err)
	}
	return Stats{
		TotalUsers:        row.TotalUsers,
		TotalTransactions: row.TotalTransactions,
		TotalIncome:       row.TotalIncome,
		TotalExpense:      row.TotalExpense,
	}, nil
}

func userFromRow(row UserRow) core.User {
	return core.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		PIN:          row.PIN.String,
		PINEnabled:   row.PINEnabled,
		Role:         core.Role(row.Role),
		CreatedAt:    parseTime(row.CreatedAt),
	}
}

func transactionFromRow(row TransactionRow) core.Transaction {
	// A date that does not parse stays at its zero value; report
	// building treats those records as undated.
	date, _ := core.ParseDate(row.Date)
	return core.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Description: row.Description,
		Type:        core.TransactionType(row.Type),
		Amount:      row.Amount,
		Date:        date,
		CreatedAt:   parseTime(row.CreatedAt),
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
