package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pravacash/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$2a$10$hash",
		Role:         core.RoleUser,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := seedUser(t, repo, "alice@example.com")
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.Name != "Test User" {
		t.Errorf("got %+v, want id %s", byEmail, created.ID)
	}

	byID, err := repo.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Errorf("email = %q", byID.Email)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	seedUser(t, repo, "alice@example.com")

	_, err := repo.CreateUser(context.Background(), core.User{
		Email:        "alice@example.com",
		Name:         "Other",
		PasswordHash: "hash",
		Role:         core.RoleUser,
	})
	if !errors.Is(err, core.ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.GetUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUserByEmail err = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetUserByID(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUserByID err = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserPIN(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice@example.com")

	if err := repo.UpdateUserPIN(ctx, u.ID, "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	got, _ := repo.GetUserByID(ctx, u.ID)
	if got.PIN != "1234" || !got.PINEnabled {
		t.Errorf("after set: pin=%q enabled=%v", got.PIN, got.PINEnabled)
	}

	// Empty pin clears the lock.
	if err := repo.UpdateUserPIN(ctx, u.ID, ""); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	got, _ = repo.GetUserByID(ctx, u.ID)
	if got.PIN != "" || got.PINEnabled {
		t.Errorf("after clear: pin=%q enabled=%v", got.PIN, got.PINEnabled)
	}

	if err := repo.UpdateUserPIN(ctx, "missing", "1234"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserProfileAndRole(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice@example.com")

	if err := repo.UpdateUserProfile(ctx, u.ID, "Alice B", "aliceb@example.com"); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	if err := repo.UpdateUserRole(ctx, u.ID, core.RoleAdmin); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}

	got, _ := repo.GetUserByID(ctx, u.ID)
	if got.Name != "Alice B" || got.Email != "aliceb@example.com" || got.Role != core.RoleAdmin {
		t.Errorf("got %+v", got)
	}

	other := seedUser(t, repo, "bob@example.com")
	if err := repo.UpdateUserProfile(ctx, other.ID, "Bob", "aliceb@example.com"); !errors.Is(err, core.ErrEmailTaken) {
		t.Errorf("duplicate email err = %v, want ErrEmailTaken", err)
	}
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice@example.com")

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      u.ID,
		Description: "Salary",
		Type:        core.Income,
		Amount:      5000,
		Date:        core.NewDate(2024, 1, 5),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	got, err := repo.GetTransaction(ctx, created.ID, u.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Description != "Salary" || got.Amount != 5000 || got.Date.String() != "2024-01-05" {
		t.Errorf("got %+v", got)
	}

	created.Description = "Bonus"
	created.Amount = 7000
	if err := repo.UpdateTransaction(ctx, created); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got, _ = repo.GetTransaction(ctx, created.ID, u.ID)
	if got.Description != "Bonus" || got.Amount != 7000 {
		t.Errorf("after update: %+v", got)
	}

	if err := repo.DeleteTransaction(ctx, created.ID, u.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, created.ID, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}
}

func TestTransactionOwnerScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := seedUser(t, repo, "alice@example.com")
	bob := seedUser(t, repo, "bob@example.com")

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: alice.ID, Description: "Rent", Type: core.Expense,
		Amount: 900, Date: core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	// Bob cannot see, update or delete Alice's record.
	if _, err := repo.GetTransaction(ctx, tx.ID, bob.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user get err = %v", err)
	}
	tx.UserID = bob.ID
	if err := repo.UpdateTransaction(ctx, tx); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user update err = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, tx.ID, bob.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user delete err = %v", err)
	}
}

func TestListTransactionsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice@example.com")

	// Inserted out of date order; listing must come back date asc
	// with insertion order breaking ties.
	dates := []core.Date{
		core.NewDate(2024, 2, 10),
		core.NewDate(2024, 1, 5),
		core.NewDate(2024, 2, 10),
	}
	for i, d := range dates {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:      u.ID,
			Description: []string{"second-late", "first", "third-late"}[i],
			Type:        core.Expense,
			Amount:      int64(i + 1),
			Date:        d,
		})
		if err != nil {
			t.Fatalf("CreateTransaction %d: %v", i, err)
		}
	}

	list, err := repo.ListTransactions(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	var got []string
	for _, tx := range list {
		got = append(got, tx.Description)
	}
	want := []string{"first", "second-late", "third-late"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDeleteAllTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice@example.com")

	for i := 0; i < 3; i++ {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, Description: "x", Type: core.Income,
			Amount: 1, Date: core.NewDate(2024, 1, i+1),
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	n, err := repo.DeleteAllTransactions(ctx, u.ID)
	if err != nil {
		t.Fatalf("DeleteAllTransactions: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d, want 3", n)
	}

	// Empty ledger is fine.
	n, err = repo.DeleteAllTransactions(ctx, u.ID)
	if err != nil || n != 0 {
		t.Errorf("second delete: n=%d err=%v", n, err)
	}
}

func TestImportTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice@example.com")

	batch := []core.Transaction{
		{Description: "A", Type: core.Income, Amount: 10, Date: core.NewDate(2024, 5, 1)},
		{Description: "B", Type: core.Expense, Amount: 4, Date: core.NewDate(2024, 5, 1)},
		{Description: "C", Type: core.Income, Amount: 2, Date: core.NewDate(2024, 5, 2)},
	}
	n, err := repo.ImportTransactions(ctx, u.ID, batch)
	if err != nil {
		t.Fatalf("ImportTransactions: %v", err)
	}
	if n != 3 {
		t.Errorf("imported %d, want 3", n)
	}

	list, err := repo.ListTransactions(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	// File order survives for same-date rows.
	if list[0].Description != "A" || list[1].Description != "B" || list[2].Description != "C" {
		t.Errorf("order = %s %s %s", list[0].Description, list[1].Description, list[2].Description)
	}
}

func TestAdminStatsAndListings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := seedUser(t, repo, "alice@example.com")
	seedUser(t, repo, "bob@example.com")

	for _, tx := range []core.Transaction{
		{UserID: alice.ID, Description: "Pay", Type: core.Income, Amount: 100, Date: core.NewDate(2024, 1, 1)},
		{UserID: alice.ID, Description: "Food", Type: core.Expense, Amount: 30, Date: core.NewDate(2024, 1, 2)},
	} {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	stats, err := repo.AdminStats(ctx)
	if err != nil {
		t.Fatalf("AdminStats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalTransactions != 2 ||
		stats.TotalIncome != 100 || stats.TotalExpense != 30 {
		t.Errorf("stats = %+v", stats)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d", len(users))
	}
	counts := map[string]int64{}
	for _, u := range users {
		counts[u.User.Email] = u.TransactionCount
	}
	if counts["alice@example.com"] != 2 || counts["bob@example.com"] != 0 {
		t.Errorf("counts = %v", counts)
	}

	all, err := repo.ListAllTransactions(ctx)
	if err != nil {
		t.Fatalf("ListAllTransactions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d", len(all))
	}
	for _, at := range all {
		if at.UserEmail != "alice@example.com" {
			t.Errorf("owner email = %q", at.UserEmail)
		}
	}
}

func TestDeleteUserCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice@example.com")

	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, Description: "x", Type: core.Income,
		Amount: 1, Date: core.NewDate(2024, 1, 1),
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := repo.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	stats, err := repo.AdminStats(ctx)
	if err != nil {
		t.Fatalf("AdminStats: %v", err)
	}
	if stats.TotalUsers != 0 || stats.TotalTransactions != 0 {
		t.Errorf("stats after cascade = %+v", stats)
	}
}
