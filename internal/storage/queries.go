package storage

import (
	"context"
	"database/sql"
	"time"
)

// Queries wraps a database handle with typed query methods. It works
// against either *sql.DB or *sql.Tx.
type Queries struct {
	db DBTX
}

// DBTX is the subset of database/sql shared by DB and Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// timestampLayout is how timestamps are stored; SQLite has no native
// time type.
const timestampLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type UserRow struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	PIN          sql.NullString
	PINEnabled   bool
	Role         string
	CreatedAt    string
	UpdatedAt    string
}

type TransactionRow struct {
	ID          string
	UserID      string
	Description string
	Type        string
	Amount      int64
	Date        string
	CreatedAt   string
	UpdatedAt   string
}

const createUserSQL = `
INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateUserParams struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) error {
	now := formatTime(p.CreatedAt)
	_, err := q.db.ExecContext(ctx, createUserSQL,
		p.ID, p.Email, p.PasswordHash, p.Name, p.Role, now, now)
	return err
}

const getUserByEmailSQL = `
SELECT id, email, password_hash, name, pin, pin_enabled, role, created_at, updated_at
FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	return q.scanUser(q.db.QueryRowContext(ctx, getUserByEmailSQL, email))
}

const getUserByIDSQL = `
SELECT id, email, password_hash, name, pin, pin_enabled, role, created_at, updated_at
FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (UserRow, error) {
	return q.scanUser(q.db.QueryRowContext(ctx, getUserByIDSQL, id))
}

func (q *Queries) scanUser(row *sql.Row) (UserRow, error) {
	var u UserRow
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.PIN,
		&u.PINEnabled, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const updateUserProfileSQL = `
UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserProfile(ctx context.Context, id, name, email string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserProfileSQL, name, email, formatTime(time.Now()), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateUserPINSQL = `
UPDATE users SET pin = ?, pin_enabled = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserPIN(ctx context.Context, id string, pin sql.NullString, enabled bool) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserPINSQL, pin, enabled, formatTime(time.Now()), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateUserRoleSQL = `
UPDATE users SET role = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserRole(ctx context.Context, id, role string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserRoleSQL, role, formatTime(time.Now()), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteUserSQL = `DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUserSQL, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type UserWithCountRow struct {
	UserRow
	TransactionCount int64
}

const listUsersSQL = `
SELECT u.id, u.email, u.password_hash, u.name, u.pin, u.pin_enabled, u.role,
       u.created_at, u.updated_at,
       (SELECT COUNT(*) FROM transactions t WHERE t.user_id = u.id) AS transaction_count
FROM users u
ORDER BY u.created_at DESC`

func (q *Queries) ListUsers(ctx context.Context) ([]UserWithCountRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserWithCountRow
	for rows.Next() {
		var u UserWithCountRow
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.PIN,
			&u.PINEnabled, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.TransactionCount); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const createTransactionSQL = `
INSERT INTO transactions (id, user_id, description, type, amount, date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type CreateTransactionParams struct {
	ID          string
	UserID      string
	Description string
	Type        string
	Amount      int64
	Date        string
	CreatedAt   time.Time
}

func (q *Queries) CreateTransaction(ctx context.Context, p CreateTransactionParams) error {
	now := formatTime(p.CreatedAt)
	_, err := q.db.ExecContext(ctx, createTransactionSQL,
		p.ID, p.UserID, p.Description, p.Type, p.Amount, p.Date, now, now)
	return err
}

const listTransactionsSQL = `
SELECT id, user_id, description, type, amount, date, created_at, updated_at
FROM transactions
WHERE user_id = ?
ORDER BY date ASC, created_at ASC`

func (q *Queries) ListTransactions(ctx context.Context, userID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const getTransactionSQL = `
SELECT id, user_id, description, type, amount, date, created_at, updated_at
FROM transactions
WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, userID string) (TransactionRow, error) {
	var t TransactionRow
	err := q.db.QueryRowContext(ctx, getTransactionSQL, id, userID).Scan(
		&t.ID, &t.UserID, &t.Description, &t.Type, &t.Amount, &t.Date, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const updateTransactionSQL = `
UPDATE transactions
SET description = ?, type = ?, amount = ?, date = ?, updated_at = ?
WHERE id = ? AND user_id = ?`

type UpdateTransactionParams struct {
	ID          string
	UserID      string
	Description string
	Type        string
	Amount      int64
	Date        string
}

func (q *Queries) UpdateTransaction(ctx context.Context, p UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransactionSQL,
		p.Description, p.Type, p.Amount, p.Date, formatTime(time.Now()), p.ID, p.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransactionSQL = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransactionSQL, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllTransactionsSQL = `DELETE FROM transactions WHERE user_id = ?`

func (q *Queries) DeleteAllTransactions(ctx context.Context, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAllTransactionsSQL, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type AdminTransactionRow struct {
	TransactionRow
	UserName  string
	UserEmail string
}

const listAllTransactionsSQL = `
SELECT t.id, t.user_id, t.description, t.type, t.amount, t.date, t.created_at, t.updated_at,
       u.name, u.email
FROM transactions t
JOIN users u ON t.user_id = u.id
ORDER BY t.created_at DESC`

func (q *Queries) ListAllTransactions(ctx context.Context) ([]AdminTransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listAllTransactionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []AdminTransactionRow
	for rows.Next() {
		var t AdminTransactionRow
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Type, &t.Amount,
			&t.Date, &t.CreatedAt, &t.UpdatedAt, &t.UserName, &t.UserEmail); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

type AdminStatsRow struct {
	TotalUsers        int64
	TotalTransactions int64
	TotalIncome       int64
	TotalExpense      int64
}

const adminStatsSQL = `
SELECT
    (SELECT COUNT(*) FROM users),
    (SELECT COUNT(*) FROM transactions),
    (SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'income'),
    (SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'expense')`

func (q *Queries) AdminStats(ctx context.Context) (AdminStatsRow, error) {
	var s AdminStatsRow
	err := q.db.QueryRowContext(ctx, adminStatsSQL).Scan(
		&s.TotalUsers, &s.TotalTransactions, &s.TotalIncome, &s.TotalExpense)
	return s, err
}

type TypeCountRow struct {
	Type  string
	Count int64
	Total int64
}

const transactionsByTypeSQL = `
SELECT type, COUNT(*), COALESCE(SUM(amount), 0)
FROM transactions
GROUP BY type`

func (q *Queries) TransactionsByType(ctx context.Context) ([]TypeCountRow, error) {
	rows, err := q.db.QueryContext(ctx, transactionsByTypeSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []TypeCountRow
	for rows.Next() {
		var c TypeCountRow
		if err := rows.Scan(&c.Type, &c.Count, &c.Total); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanTransactions(rows *sql.Rows) ([]TransactionRow, error) {
	var transactions []TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Type, &t.Amount,
			&t.Date, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
