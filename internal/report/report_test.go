package report

import (
	"testing"
	"time"

	"pravacash/internal/core"
)

func tx(id string, typ core.TransactionType, amount int64, date string, createdAt time.Time) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{
		ID:          id,
		Description: "tx " + id,
		Type:        typ,
		Amount:      amount,
		Date:        d,
		CreatedAt:   createdAt,
	}
}

func sampleSet() []core.Transaction {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return []core.Transaction{
		tx("b", core.Expense, 40, "2024-01-10", base.Add(2*time.Hour)),
		tx("a", core.Income, 100, "2024-01-05", base),
		tx("c", core.Income, 50, "2024-02-01", base.Add(4*time.Hour)),
	}
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals(sampleSet())

	if totals.Income != 150 {
		t.Errorf("Income = %d, want 150", totals.Income)
	}
	if totals.Expense != 40 {
		t.Errorf("Expense = %d, want 40", totals.Expense)
	}
	if totals.Balance != 110 {
		t.Errorf("Balance = %d, want 110", totals.Balance)
	}
}

func TestWithRunningBalance_ChronologicalAccumulation(t *testing.T) {
	entries := WithRunningBalance(sampleSet())

	want := []int64{100, 60, 110}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	for i, balance := range want {
		if entries[i].RunningBalance != balance {
			t.Errorf("entries[%d].RunningBalance = %d, want %d", i, entries[i].RunningBalance, balance)
		}
	}
}

func TestWithRunningBalance_FinalValueMatchesTotals(t *testing.T) {
	sets := [][]core.Transaction{
		nil,
		sampleSet(),
		{
			tx("x", core.Expense, 10, "2023-12-31", time.Time{}),
			tx("y", core.Expense, 25, "2024-03-01", time.Time{}),
			tx("z", core.Income, 5, "2024-03-01", time.Time{}),
		},
	}

	for _, set := range sets {
		entries := WithRunningBalance(set)
		totals := ComputeTotals(set)
		if len(entries) == 0 {
			if totals.Balance != 0 {
				t.Errorf("empty set Balance = %d, want 0", totals.Balance)
			}
			continue
		}
		final := entries[len(entries)-1].RunningBalance
		if final != totals.Balance {
			t.Errorf("final running balance = %d, want totals balance %d", final, totals.Balance)
		}
	}
}

func TestOrderChronologically_TieBreakByCreatedAt(t *testing.T) {
	early := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	set := []core.Transaction{
		tx("second", core.Expense, 30, "2024-01-05", late),
		tx("first", core.Income, 100, "2024-01-05", early),
	}

	entries := WithRunningBalance(set)
	if entries[0].ID != "first" || entries[1].ID != "second" {
		t.Fatalf("order = [%s %s], want [first second]", entries[0].ID, entries[1].ID)
	}
	if entries[0].RunningBalance != 100 {
		t.Errorf("first balance = %d, want 100", entries[0].RunningBalance)
	}
	if entries[1].RunningBalance != 70 {
		t.Errorf("second balance = %d, want 70", entries[1].RunningBalance)
	}
}

func TestOrderChronologically_MissingCreatedAtSortsFirst(t *testing.T) {
	set := []core.Transaction{
		tx("stamped", core.Income, 10, "2024-01-05", time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)),
		tx("unstamped", core.Income, 20, "2024-01-05", time.Time{}),
	}

	ordered := OrderChronologically(set)
	if ordered[0].ID != "unstamped" {
		t.Errorf("ordered[0].ID = %s, want unstamped", ordered[0].ID)
	}
}

func TestOrderChronologically_DoesNotMutateInput(t *testing.T) {
	set := sampleSet()
	firstID := set[0].ID
	OrderChronologically(set)
	if set[0].ID != firstID {
		t.Errorf("input slice mutated: set[0].ID = %s, want %s", set[0].ID, firstID)
	}
}

func TestFilter(t *testing.T) {
	entries := WithRunningBalance(sampleSet())
	from, _ := core.ParseDate("2024-01-08")
	to, _ := core.ParseDate("2024-01-31")

	tests := []struct {
		name    string
		params  Params
		wantIDs []string
	}{
		{
			name:    "no constraints returns everything",
			params:  Params{},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "type expense",
			params:  Params{Type: core.Expense},
			wantIDs: []string{"b"},
		},
		{
			name:    "type income is the complement",
			params:  Params{Type: core.Income},
			wantIDs: []string{"a", "c"},
		},
		{
			name:    "date range",
			params:  Params{DateFrom: from, DateTo: to},
			wantIDs: []string{"b"},
		},
		{
			name:    "search is case-insensitive substring",
			params:  Params{Search: "TX A"},
			wantIDs: []string{"a"},
		},
		{
			name:    "conjunctive constraints",
			params:  Params{Search: "tx", Type: core.Income, DateFrom: from},
			wantIDs: []string{"c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(entries, tt.params)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFilter_PartitionsByType(t *testing.T) {
	entries := WithRunningBalance(sampleSet())
	expenses := Filter(entries, Params{Type: core.Expense})
	incomes := Filter(entries, Params{Type: core.Income})

	if len(expenses)+len(incomes) != len(entries) {
		t.Errorf("partition sizes %d+%d != %d", len(expenses), len(incomes), len(entries))
	}
}

func TestPaginate(t *testing.T) {
	entries := make([]Entry, 60)
	for i := range entries {
		entries[i].ID = string(rune('0' + i%10))
	}

	tests := []struct {
		name       string
		page       int
		wantLen    int
		wantPages  int
	}{
		{name: "first full page", page: 1, wantLen: 25, wantPages: 3},
		{name: "second full page", page: 2, wantLen: 25, wantPages: 3},
		{name: "partial last page", page: 3, wantLen: 10, wantPages: 3},
		{name: "page past the end is empty", page: 4, wantLen: 0, wantPages: 3},
		{name: "page zero is empty", page: 0, wantLen: 0, wantPages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, totalPages := Paginate(entries, tt.page, 25)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
			if totalPages != tt.wantPages {
				t.Errorf("totalPages = %d, want %d", totalPages, tt.wantPages)
			}
		})
	}
}

func TestPaginate_ConcatenationReproducesList(t *testing.T) {
	entries := WithRunningBalance(sampleSet())
	filtered := Filter(entries, Params{})

	var rebuilt []Entry
	_, totalPages := Paginate(filtered, 1, 2)
	for page := 1; page <= totalPages; page++ {
		slice, _ := Paginate(filtered, page, 2)
		rebuilt = append(rebuilt, slice...)
	}

	if len(rebuilt) != len(filtered) {
		t.Fatalf("rebuilt len = %d, want %d", len(rebuilt), len(filtered))
	}
	for i := range filtered {
		if rebuilt[i].ID != filtered[i].ID {
			t.Errorf("rebuilt[%d].ID = %s, want %s", i, rebuilt[i].ID, filtered[i].ID)
		}
	}
}

func TestDailyBalanceSeries_OnePointPerDay(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	set := []core.Transaction{
		tx("a", core.Income, 100, "2024-01-05", base),
		tx("b", core.Expense, 30, "2024-01-05", base.Add(time.Hour)),
		tx("c", core.Income, 50, "2024-02-01", base.Add(2*time.Hour)),
	}

	points := DailyBalanceSeries(set)
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].Period != "2024-01-05" || points[0].Balance != 70 {
		t.Errorf("points[0] = %+v, want {2024-01-05 70}", points[0])
	}
	if points[1].Period != "2024-02-01" || points[1].Balance != 120 {
		t.Errorf("points[1] = %+v, want {2024-02-01 120}", points[1])
	}
}

func TestMonthlyBalanceSeries_LastObservedBalancePerMonth(t *testing.T) {
	points := MonthlyBalanceSeries(sampleSet())

	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].Period != "2024-01" || points[0].Balance != 60 {
		t.Errorf("points[0] = %+v, want {2024-01 60}", points[0])
	}
	if points[1].Period != "2024-02" || points[1].Balance != 110 {
		t.Errorf("points[1] = %+v, want {2024-02 110}", points[1])
	}
}

func TestBalanceSeries_SkipsRecordsWithoutDate(t *testing.T) {
	set := append(sampleSet(), core.Transaction{
		ID:          "undated",
		Description: "no date",
		Type:        core.Income,
		Amount:      1000,
	})

	for _, p := range DailyBalanceSeries(set) {
		if p.Period == "" {
			t.Error("series contains a point with empty period")
		}
	}
	// The undated record still counts toward totals.
	if got := ComputeTotals(set).Income; got != 1150 {
		t.Errorf("Income = %d, want 1150", got)
	}
}

func TestMonthlyIncomeExpense_SumsMatchTotals(t *testing.T) {
	set := sampleSet()
	flows := MonthlyIncomeExpense(set)

	var income, expense int64
	for _, f := range flows {
		income += f.Income
		expense += f.Expense
	}

	totals := ComputeTotals(set)
	if income != totals.Income || expense != totals.Expense {
		t.Errorf("bucketed sums = %d/%d, want %d/%d", income, expense, totals.Income, totals.Expense)
	}
	if len(flows) != 2 || flows[0].Month != "2024-01" || flows[1].Month != "2024-02" {
		t.Errorf("months = %+v, want ascending [2024-01 2024-02]", flows)
	}
}

func TestTopExpenseCategories(t *testing.T) {
	base := time.Time{}
	set := []core.Transaction{
		{ID: "1", Description: "Groceries", Type: core.Expense, Amount: 50, Date: core.NewDate(2024, 1, 2), CreatedAt: base},
		{ID: "2", Description: "Rent", Type: core.Expense, Amount: 500, Date: core.NewDate(2024, 1, 3), CreatedAt: base},
		{ID: "3", Description: "Groceries", Type: core.Expense, Amount: 70, Date: core.NewDate(2024, 1, 9), CreatedAt: base},
		{ID: "4", Description: "Salary", Type: core.Income, Amount: 9000, Date: core.NewDate(2024, 1, 1), CreatedAt: base},
		{ID: "5", Description: "", Type: core.Expense, Amount: 5, Date: core.NewDate(2024, 1, 4), CreatedAt: base},
	}

	ranked := TopExpenseCategories(set, 10)
	if len(ranked) != 3 {
		t.Fatalf("len(ranked) = %d, want 3", len(ranked))
	}
	if ranked[0].Name != "Rent" || ranked[0].Amount != 500 {
		t.Errorf("ranked[0] = %+v, want {Rent 500}", ranked[0])
	}
	if ranked[1].Name != "Groceries" || ranked[1].Amount != 120 {
		t.Errorf("ranked[1] = %+v, want {Groceries 120}", ranked[1])
	}
	if ranked[2].Name != OtherCategory || ranked[2].Amount != 5 {
		t.Errorf("ranked[2] = %+v, want {%s 5}", ranked[2], OtherCategory)
	}
}

func TestTopExpenseCategories_TiesKeepEncounterOrder(t *testing.T) {
	set := []core.Transaction{
		{ID: "1", Description: "Coffee", Type: core.Expense, Amount: 10, Date: core.NewDate(2024, 1, 1)},
		{ID: "2", Description: "Tea", Type: core.Expense, Amount: 10, Date: core.NewDate(2024, 1, 2)},
	}

	ranked := TopExpenseCategories(set, 10)
	if ranked[0].Name != "Coffee" || ranked[1].Name != "Tea" {
		t.Errorf("tie order = [%s %s], want [Coffee Tea]", ranked[0].Name, ranked[1].Name)
	}
}

func TestTopExpenseCategories_Limit(t *testing.T) {
	var set []core.Transaction
	for i := 0; i < 15; i++ {
		set = append(set, core.Transaction{
			ID:          string(rune('a' + i)),
			Description: "cat " + string(rune('a'+i)),
			Type:        core.Expense,
			Amount:      int64(i + 1),
			Date:        core.NewDate(2024, 1, 1+i),
		})
	}

	ranked := TopExpenseCategories(set, 10)
	if len(ranked) != 10 {
		t.Errorf("len(ranked) = %d, want 10", len(ranked))
	}
}

func TestComputeInsights_ExpenseDrop(t *testing.T) {
	ref := core.NewDate(2024, 2, 15)
	insights := ComputeInsights(sampleSet(), ref)

	if insights.CurrentMonthExpenses != 0 {
		t.Errorf("CurrentMonthExpenses = %d, want 0", insights.CurrentMonthExpenses)
	}
	if insights.PreviousMonthExpenses != 40 {
		t.Errorf("PreviousMonthExpenses = %d, want 40", insights.PreviousMonthExpenses)
	}
	if insights.ExpenseChangePercent != -100.0 {
		t.Errorf("ExpenseChangePercent = %v, want -100.0", insights.ExpenseChangePercent)
	}
}

func TestComputeInsights_ChangePercentEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		want     float64
	}{
		{name: "both zero", current: 0, previous: 0, want: 0},
		{name: "new spending from zero", current: 75, previous: 0, want: 100},
		{name: "increase", current: 150, previous: 100, want: 50},
		{name: "rounded to one decimal", current: 100, previous: 300, want: -66.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expenseChangePercent(tt.current, tt.previous)
			if got != tt.want {
				t.Errorf("expenseChangePercent(%d, %d) = %v, want %v", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestComputeInsights_TopCategoryAndTopDay(t *testing.T) {
	ref := core.NewDate(2024, 1, 20)
	set := []core.Transaction{
		{ID: "1", Description: "Rent", Type: core.Expense, Amount: 500, Date: core.NewDate(2024, 1, 2)},
		{ID: "2", Description: "Groceries", Type: core.Expense, Amount: 120, Date: core.NewDate(2024, 1, 2)},
		{ID: "3", Description: "Groceries", Type: core.Expense, Amount: 700, Date: core.NewDate(2023, 11, 10)},
	}

	insights := ComputeInsights(set, ref)
	if insights.TopCategory.Name != "Rent" || insights.TopCategory.Amount != 500 {
		t.Errorf("TopCategory = %+v, want {Rent 500}", insights.TopCategory)
	}
	// Top day is computed across all time, not just the current month.
	if insights.TopDay.Date != "2023-11-10" || insights.TopDay.Amount != 700 {
		t.Errorf("TopDay = %+v, want {2023-11-10 700}", insights.TopDay)
	}
}

func TestComputeInsights_TransactionsByMonthTrailingSix(t *testing.T) {
	var set []core.Transaction
	for m := 1; m <= 8; m++ {
		set = append(set, core.Transaction{
			ID:          string(rune('a' + m)),
			Description: "x",
			Type:        core.Income,
			Amount:      1,
			Date:        core.NewDate(2024, m, 10),
		})
	}

	insights := ComputeInsights(set, core.NewDate(2024, 8, 20))
	if len(insights.TransactionsByMonth) != 6 {
		t.Fatalf("len = %d, want 6", len(insights.TransactionsByMonth))
	}
	if insights.TransactionsByMonth[0].Month != "2024-03" {
		t.Errorf("first month = %s, want 2024-03", insights.TransactionsByMonth[0].Month)
	}
	if insights.TransactionsByMonth[5].Month != "2024-08" {
		t.Errorf("last month = %s, want 2024-08", insights.TransactionsByMonth[5].Month)
	}
}

func TestEmptyInput_IdentityValues(t *testing.T) {
	var empty []core.Transaction

	totals := ComputeTotals(empty)
	if totals != (Totals{}) {
		t.Errorf("totals = %+v, want zero values", totals)
	}
	if got := TopExpenseCategories(empty, 10); len(got) != 0 {
		t.Errorf("TopExpenseCategories = %v, want empty", got)
	}
	if got := Heatmap(empty, core.NewDate(2024, 6, 1)); len(got) != 0 {
		t.Errorf("Heatmap = %v, want empty map", got)
	}
	insights := ComputeInsights(empty, core.NewDate(2024, 6, 1))
	if insights.TopCategory.Name != "-" || insights.TopCategory.Amount != 0 {
		t.Errorf("TopCategory sentinel = %+v, want {- 0}", insights.TopCategory)
	}
	if insights.TopDay.Date != "" {
		t.Errorf("TopDay sentinel date = %q, want empty", insights.TopDay.Date)
	}
}

func TestHeatmap(t *testing.T) {
	ref := core.NewDate(2024, 6, 1)
	set := []core.Transaction{
		{ID: "1", Description: "a", Type: core.Income, Amount: 1, Date: core.NewDate(2024, 5, 30)},
		{ID: "2", Description: "b", Type: core.Expense, Amount: 2, Date: core.NewDate(2024, 5, 30)},
		{ID: "3", Description: "c", Type: core.Income, Amount: 3, Date: core.NewDate(2024, 6, 1)},
		{ID: "4", Description: "old", Type: core.Income, Amount: 4, Date: core.NewDate(2023, 1, 1)},
		{ID: "5", Description: "future", Type: core.Income, Amount: 5, Date: core.NewDate(2024, 6, 2)},
	}

	counts := Heatmap(set, ref)
	if len(counts) != 2 {
		t.Fatalf("len(counts) = %d, want 2: %v", len(counts), counts)
	}
	if counts["2024-05-30"] != 2 {
		t.Errorf("counts[2024-05-30] = %d, want 2", counts["2024-05-30"])
	}
	if counts["2024-06-01"] != 1 {
		t.Errorf("counts[2024-06-01] = %d, want 1", counts["2024-06-01"])
	}
	if _, ok := counts["2023-01-01"]; ok {
		t.Error("record outside the trailing window should be absent")
	}
}

func TestReferenceDate(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 18:00 UTC is already the next day in UTC+7.
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	ref := ReferenceDate(now, jakarta)
	if ref.String() != "2024-03-11" {
		t.Errorf("ReferenceDate = %s, want 2024-03-11", ref.String())
	}
}
