package services

import (
	"time"

	"pravacash/internal/core"
	"pravacash/internal/storage"
)

// TransactionView is the wire shape of a transaction, shared by the
// REST responses and the WebSocket push payloads.
type TransactionView struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Date        string `json:"date"`
	CreatedAt   string `json:"createdAt"`
}

func NewTransactionView(t core.Transaction) TransactionView {
	dateStr := ""
	if !t.Date.IsZero() {
		dateStr = t.Date.String()
	}
	createdStr := ""
	if !t.CreatedAt.IsZero() {
		createdStr = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	return TransactionView{
		ID:          t.ID,
		Description: t.Description,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Date:        dateStr,
		CreatedAt:   createdStr,
	}
}

// TransactionViews always yields a non-nil slice so empty ledgers
// serialize as [] rather than null.
func TransactionViews(transactions []core.Transaction) []TransactionView {
	views := make([]TransactionView, len(transactions))
	for i, t := range transactions {
		views[i] = NewTransactionView(t)
	}
	return views
}

// UserView is the wire shape of a user. The password hash and PIN
// never leave the server.
type UserView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	PINEnabled bool   `json:"pinEnabled"`
	CreatedAt  string `json:"createdAt"`
}

func NewUserView(u core.User) UserView {
	createdStr := ""
	if !u.CreatedAt.IsZero() {
		createdStr = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		PINEnabled: u.PINEnabled,
		CreatedAt:  createdStr,
	}
}

// AdminUserView extends UserView with the per-user transaction count
// shown on the admin dashboard.
type AdminUserView struct {
	UserView
	TransactionCount int64 `json:"transactionCount"`
}

func NewAdminUserViews(users []storage.UserWithCount) []AdminUserView {
	views := make([]AdminUserView, len(users))
	for i, u := range users {
		views[i] = AdminUserView{
			UserView:         NewUserView(u.User),
			TransactionCount: u.TransactionCount,
		}
	}
	return views
}

// AdminTransactionView annotates a transaction with its owner.
type AdminTransactionView struct {
	TransactionView
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

func NewAdminTransactionViews(transactions []storage.AdminTransaction) []AdminTransactionView {
	views := make([]AdminTransactionView, len(transactions))
	for i, t := range transactions {
		views[i] = AdminTransactionView{
			TransactionView: NewTransactionView(t.Transaction),
			UserName:        t.UserName,
			UserEmail:       t.UserEmail,
		}
	}
	return views
}

// StatsView is the system-wide aggregate for the admin dashboard.
type StatsView struct {
	TotalUsers        int64 `json:"totalUsers"`
	TotalTransactions int64 `json:"totalTransactions"`
	TotalIncome       int64 `json:"totalIncome"`
	TotalExpense      int64 `json:"totalExpense"`
	Balance           int64 `json:"balance"`
}

func NewStatsView(s storage.Stats) StatsView {
	return StatsView{
		TotalUsers:        s.TotalUsers,
		TotalTransactions: s.TotalTransactions,
		TotalIncome:       s.TotalIncome,
		TotalExpense:      s.TotalExpense,
		Balance:           s.TotalIncome - s.TotalExpense,
	}
}
