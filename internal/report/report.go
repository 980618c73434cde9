// Package report computes every derived view of a user's transaction
// list: running balances, totals, filtered and paginated ledgers,
// time-bucketed chart series, insights, and the activity heatmap.
//
// Every function is a pure transformation of its inputs. Callers pass
// an immutable snapshot of the full transaction set; nothing here
// performs I/O or keeps state between invocations.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"pravacash/internal/core"
)

// OtherCategory is the pseudo-category assigned to expense records
// with an empty description.
const OtherCategory = "Other"

// DefaultCategoryLimit caps the ranked expense-category list.
const DefaultCategoryLimit = 10

// HeatmapDays is the trailing window of the activity heatmap.
const HeatmapDays = 365

// Entry is a transaction annotated with the cumulative balance as of
// that transaction in chronological order.
type Entry struct {
	core.Transaction
	RunningBalance int64
}

// Totals are the full-set sums; Balance is always Income - Expense.
type Totals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

// Params narrows the ledger view. Zero values mean "no constraint".
type Params struct {
	Search   string
	DateFrom core.Date
	DateTo   core.Date
	Type     core.TransactionType
}

// SeriesPoint is one sampled running-balance value per period, where
// Period is either a date (daily) or a YEAR-MONTH key (monthly).
type SeriesPoint struct {
	Period  string `json:"period"`
	Balance int64  `json:"balance"`
}

// MonthlyFlow holds the independent income and expense sums of one
// calendar month.
type MonthlyFlow struct {
	Month   string `json:"month"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
}

// CategoryTotal is one ranked pseudo-category with its expense sum.
type CategoryTotal struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// MonthCount is the number of transactions recorded in one month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// DayAmount is the expense sum of one calendar day.
type DayAmount struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

// Insights are the derived dashboard figures relative to a reference
// date.
type Insights struct {
	CurrentMonthExpenses  int64         `json:"currentMonthExpenses"`
	PreviousMonthExpenses int64         `json:"previousMonthExpenses"`
	ExpenseChangePercent  float64       `json:"expenseChangePercent"`
	TopCategory           CategoryTotal `json:"topCategory"`
	TopDay                DayAmount     `json:"topDay"`
	TransactionsByMonth   []MonthCount  `json:"transactionsByMonth"`
}

// OrderChronologically returns a sorted copy: date ascending, ties
// broken by creation time ascending. A zero CreatedAt sorts earliest.
// The input slice is never modified.
func OrderChronologically(transactions []core.Transaction) []core.Transaction {
	ordered := make([]core.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Time.Before(b.Date.Time)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return ordered
}

// WithRunningBalance walks the chronological order accumulating the
// signed amount and attaches the cumulative value to each record. The
// result is in chronological (ascending) order; reverse it for
// display order.
func WithRunningBalance(transactions []core.Transaction) []Entry {
	ordered := OrderChronologically(transactions)
	entries := make([]Entry, len(ordered))
	var balance int64
	for i, t := range ordered {
		balance += t.Signed()
		entries[i] = Entry{Transaction: t, RunningBalance: balance}
	}
	return entries
}

// ComputeTotals sums income and expense amounts in a single pass over
// the full set. The final running balance always equals
// Totals.Balance.
func ComputeTotals(transactions []core.Transaction) Totals {
	var t Totals
	for _, tx := range transactions {
		switch tx.Type {
		case core.Income:
			t.Income += tx.Amount
		case core.Expense:
			t.Expense += tx.Amount
		}
	}
	t.Balance = t.Income - t.Expense
	return t
}

// Filter narrows entries by case-insensitive description search,
// inclusive date range, and exact type. Constraints combine with AND.
// Records with an unset date are dropped whenever a date bound is
// given, matching the tolerant-totals / strict-series split.
func Filter(entries []Entry, p Params) []Entry {
	search := strings.ToLower(strings.TrimSpace(p.Search))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if search != "" && !strings.Contains(strings.ToLower(e.Description), search) {
			continue
		}
		if !p.DateFrom.IsZero() && (e.Date.IsZero() || e.Date.Time.Before(p.DateFrom.Time)) {
			continue
		}
		if !p.DateTo.IsZero() && (e.Date.IsZero() || e.Date.Time.After(p.DateTo.Time)) {
			continue
		}
		if p.Type != "" && e.Type != p.Type {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Paginate slices a 1-indexed page of fixed size out of the list and
// reports the total page count. Pages outside [1, totalPages] yield
// an empty slice; clamping is the caller's responsibility.
func Paginate(entries []Entry, page, pageSize int) ([]Entry, int) {
	if pageSize <= 0 {
		return nil, 0
	}
	totalPages := (len(entries) + pageSize - 1) / pageSize
	if page < 1 || page > totalPages {
		return []Entry{}, totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], totalPages
}

// DailyBalanceSeries samples the running balance once per calendar
// day: each point carries the balance as of the last transaction on
// that day. Days without transactions produce no point. Records with
// an unset date still move the balance but are not emitted.
func DailyBalanceSeries(transactions []core.Transaction) []SeriesPoint {
	return balanceSeries(transactions, func(d core.Date) string { return d.String() })
}

// MonthlyBalanceSeries is DailyBalanceSeries bucketed by YEAR-MONTH.
func MonthlyBalanceSeries(transactions []core.Transaction) []SeriesPoint {
	return balanceSeries(transactions, func(d core.Date) string { return d.MonthKey() })
}

func balanceSeries(transactions []core.Transaction, key func(core.Date) string) []SeriesPoint {
	ordered := OrderChronologically(transactions)
	var balance int64
	index := make(map[string]int)
	points := make([]SeriesPoint, 0, len(ordered))
	for _, t := range ordered {
		balance += t.Signed()
		if t.Date.IsZero() {
			continue
		}
		k := key(t.Date)
		if i, seen := index[k]; seen {
			points[i].Balance = balance
			continue
		}
		index[k] = len(points)
		points = append(points, SeriesPoint{Period: k, Balance: balance})
	}
	return points
}

// MonthlyIncomeExpense groups income and expense sums independently
// per YEAR-MONTH, emitted in ascending period order. Summing the
// series back across all months reproduces ComputeTotals for records
// with a valid date.
func MonthlyIncomeExpense(transactions []core.Transaction) []MonthlyFlow {
	byMonth := make(map[string]*MonthlyFlow)
	for _, t := range transactions {
		if t.Date.IsZero() {
			continue
		}
		k := t.Date.MonthKey()
		flow, ok := byMonth[k]
		if !ok {
			flow = &MonthlyFlow{Month: k}
			byMonth[k] = flow
		}
		if t.Type == core.Income {
			flow.Income += t.Amount
		} else {
			flow.Expense += t.Amount
		}
	}
	months := make([]MonthlyFlow, 0, len(byMonth))
	for _, flow := range byMonth {
		months = append(months, *flow)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

// TopExpenseCategories groups expenses by description, treating the
// description as a pseudo-category, and returns the top groups by
// amount. Ties keep first-encountered order. Empty descriptions group
// under OtherCategory.
func TopExpenseCategories(transactions []core.Transaction, limit int) []CategoryTotal {
	if limit <= 0 {
		limit = DefaultCategoryLimit
	}
	totals := make(map[string]int64)
	var order []string
	for _, t := range transactions {
		if t.Type != core.Expense {
			continue
		}
		name := t.Description
		if strings.TrimSpace(name) == "" {
			name = OtherCategory
		}
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += t.Amount
	}
	ranked := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		ranked = append(ranked, CategoryTotal{Name: name, Amount: totals[name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Amount > ranked[j].Amount })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// ComputeInsights derives the dashboard figures relative to
// referenceDate: current vs previous calendar-month expense totals
// and their percentage change, the top expense category of the
// current month, the single day with the highest expense across all
// time, and per-month transaction counts for the trailing six months
// present in the data.
func ComputeInsights(transactions []core.Transaction, referenceDate core.Date) Insights {
	currentKey := referenceDate.MonthKey()
	previousMonth := time.Date(referenceDate.Year(), referenceDate.Month()-1, 1, 0, 0, 0, 0, time.UTC)
	previousKey := previousMonth.Format("2006-01")

	var current, previous int64
	categories := make(map[string]int64)
	var categoryOrder []string
	countsByMonth := make(map[string]int)
	dayExpense := make(map[string]int64)
	var dayOrder []string

	for _, t := range transactions {
		if t.Date.IsZero() {
			continue
		}
		monthKey := t.Date.MonthKey()
		countsByMonth[monthKey]++

		if t.Type != core.Expense {
			continue
		}
		switch monthKey {
		case currentKey:
			current += t.Amount
			name := t.Description
			if strings.TrimSpace(name) == "" {
				name = OtherCategory
			}
			if _, seen := categories[name]; !seen {
				categoryOrder = append(categoryOrder, name)
			}
			categories[name] += t.Amount
		case previousKey:
			previous += t.Amount
		}

		dayKey := t.Date.String()
		if _, seen := dayExpense[dayKey]; !seen {
			dayOrder = append(dayOrder, dayKey)
		}
		dayExpense[dayKey] += t.Amount
	}

	top := CategoryTotal{Name: "-", Amount: 0}
	for i, name := range categoryOrder {
		if i == 0 || categories[name] > top.Amount {
			top = CategoryTotal{Name: name, Amount: categories[name]}
		}
	}

	topDay := DayAmount{}
	for i, day := range dayOrder {
		if i == 0 || dayExpense[day] > topDay.Amount {
			topDay = DayAmount{Date: day, Amount: dayExpense[day]}
		}
	}

	months := make([]MonthCount, 0, len(countsByMonth))
	for month, count := range countsByMonth {
		months = append(months, MonthCount{Month: month, Count: count})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	if len(months) > 6 {
		months = months[len(months)-6:]
	}

	return Insights{
		CurrentMonthExpenses:  current,
		PreviousMonthExpenses: previous,
		ExpenseChangePercent:  expenseChangePercent(current, previous),
		TopCategory:           top,
		TopDay:                topDay,
		TransactionsByMonth:   months,
	}
}

// expenseChangePercent follows the original rule: with no previous
// spending any current spending reads as +100%, and two empty months
// read as 0%.
func expenseChangePercent(current, previous int64) float64 {
	if previous > 0 {
		change := float64(current-previous) / float64(previous) * 100
		return math.Round(change*10) / 10
	}
	if current > 0 {
		return 100
	}
	return 0
}

// Heatmap counts transactions per calendar day over the trailing 365
// days ending at referenceDate inclusive. Days without transactions
// are absent from the map.
func Heatmap(transactions []core.Transaction, referenceDate core.Date) map[string]int {
	counts := make(map[string]int)
	windowStart := referenceDate.AddDate(0, 0, -(HeatmapDays - 1))
	for _, t := range transactions {
		if t.Date.IsZero() {
			continue
		}
		if t.Date.Time.Before(windowStart) || t.Date.Time.After(referenceDate.Time) {
			continue
		}
		counts[t.Date.String()]++
	}
	return counts
}

// ReferenceDate truncates a wall-clock time in the given location to
// its calendar date, for use as the insights/heatmap reference.
func ReferenceDate(now time.Time, loc *time.Location) core.Date {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return core.NewDate(local.Year(), int(local.Month()), local.Day())
}
