package services

import (
	"context"
	"time"

	"pravacash/internal/core"
	"pravacash/internal/report"
)

// SummaryView is the dashboard payload: full-set totals, reference-
// date-relative insights, and the ranked expense categories.
type SummaryView struct {
	Totals        report.Totals          `json:"totals"`
	Insights      report.Insights        `json:"insights"`
	TopCategories []report.CategoryTotal `json:"topCategories"`
}

// LedgerEntryView is a transaction with its running balance attached.
type LedgerEntryView struct {
	TransactionView
	RunningBalance int64 `json:"runningBalance"`
}

// LedgerView is one page of the filtered ledger.
type LedgerView struct {
	Entries    []LedgerEntryView `json:"entries"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
}

// SeriesView carries one balance series plus the per-month flows used
// by the bar chart.
type SeriesView struct {
	Granularity string               `json:"granularity"`
	Points      []report.SeriesPoint `json:"points"`
	MonthlyFlow []report.MonthlyFlow `json:"monthlyFlow"`
}

// ReportService feeds the aggregation engine from the snapshot-cached
// transaction list.
type ReportService struct {
	transactions *TransactionService
	location     *time.Location
}

func NewReportService(transactions *TransactionService, location *time.Location) *ReportService {
	if location == nil {
		location = time.UTC
	}
	return &ReportService{
		transactions: transactions,
		location:     location,
	}
}

// referenceDate resolves "today" in the configured timezone unless the
// caller pinned a date.
func (s *ReportService) referenceDate(pinned core.Date) core.Date {
	if !pinned.IsZero() {
		return pinned
	}
	return report.ReferenceDate(time.Now(), s.location)
}

// Summary computes the dashboard figures for one user.
func (s *ReportService) Summary(ctx context.Context, userID string, pinned core.Date) (SummaryView, error) {
	list, err := s.transactions.List(ctx, userID)
	if err != nil {
		return SummaryView{}, err
	}

	ref := s.referenceDate(pinned)
	return SummaryView{
		Totals:        report.ComputeTotals(list),
		Insights:      report.ComputeInsights(list, ref),
		TopCategories: nonNilCategories(report.TopExpenseCategories(list, report.DefaultCategoryLimit)),
	}, nil
}

// Ledger returns one page of the filtered transaction list with
// running balances, newest first.
func (s *ReportService) Ledger(ctx context.Context, userID string, params report.Params, page, pageSize int) (LedgerView, error) {
	list, err := s.transactions.List(ctx, userID)
	if err != nil {
		return LedgerView{}, err
	}

	entries := report.Filter(report.WithRunningBalance(list), params)
	reverse(entries)
	pageEntries, totalPages := report.Paginate(entries, page, pageSize)

	views := make([]LedgerEntryView, len(pageEntries))
	for i, e := range pageEntries {
		views[i] = LedgerEntryView{
			TransactionView: NewTransactionView(e.Transaction),
			RunningBalance:  e.RunningBalance,
		}
	}
	return LedgerView{Entries: views, Page: page, TotalPages: totalPages}, nil
}

// Series returns the balance-over-time chart data at the requested
// granularity ("daily" or "monthly").
func (s *ReportService) Series(ctx context.Context, userID, granularity string) (SeriesView, error) {
	list, err := s.transactions.List(ctx, userID)
	if err != nil {
		return SeriesView{}, err
	}

	var points []report.SeriesPoint
	if granularity == "monthly" {
		points = report.MonthlyBalanceSeries(list)
	} else {
		granularity = "daily"
		points = report.DailyBalanceSeries(list)
	}

	return SeriesView{
		Granularity: granularity,
		Points:      points,
		MonthlyFlow: report.MonthlyIncomeExpense(list),
	}, nil
}

// HeatmapData returns per-day transaction counts for the trailing
// year.
func (s *ReportService) HeatmapData(ctx context.Context, userID string, pinned core.Date) (map[string]int, error) {
	list, err := s.transactions.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return report.Heatmap(list, s.referenceDate(pinned)), nil
}

func nonNilCategories(c []report.CategoryTotal) []report.CategoryTotal {
	if c == nil {
		return []report.CategoryTotal{}
	}
	return c
}

// reverse flips chronological order into display order in place.
func reverse(entries []report.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
