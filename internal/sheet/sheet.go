// Package sheet renders a user's ledger to an xlsx workbook and reads
// one back in the same layout.
package sheet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"pravacash/internal/core"
	"pravacash/internal/report"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet transactions are written to and read from.
const SheetName = "Transactions"

var headers = []string{"Date", "Description", "Income", "Expense", "Balance"}

// dateLayouts are the formats accepted on import, tried in order.
var dateLayouts = []string{
	core.DateLayout,
	"2006/01/02",
	"01-02-06",
	"1/2/2006",
	time.RFC3339,
}

// Export writes the transactions as a workbook: one row per record in
// chronological order, amounts split into income and expense columns,
// with the running balance alongside.
func Export(w io.Writer, transactions []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(SheetName, cell, h)
	}

	entries := report.WithRunningBalance(report.OrderChronologically(transactions))
	for idx, e := range entries {
		row := idx + 2

		var income, expense int64
		if e.Type == core.Income {
			income = e.Amount
		} else {
			expense = e.Amount
		}

		dateStr := ""
		if !e.Date.IsZero() {
			dateStr = e.Date.String()
		}

		f.SetCellValue(SheetName, fmt.Sprintf("A%d", row), dateStr)
		f.SetCellValue(SheetName, fmt.Sprintf("B%d", row), e.Description)
		f.SetCellValue(SheetName, fmt.Sprintf("C%d", row), income)
		f.SetCellValue(SheetName, fmt.Sprintf("D%d", row), expense)
		f.SetCellValue(SheetName, fmt.Sprintf("E%d", row), e.RunningBalance)
	}

	f.SetColWidth(SheetName, "A", "A", 12)
	f.SetColWidth(SheetName, "B", "B", 30)
	f.SetColWidth(SheetName, "C", "E", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Import reads transactions from the first worksheet of an xlsx file.
// The first row is treated as a header. Rows with an empty description
// or an unparseable date are skipped rather than failing the whole
// file; the caller reports how many rows made it in.
func Import(r io.Reader) ([]core.Transaction, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	var transactions []core.Transaction
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}

		description := strings.TrimSpace(cellAt(row, 1))
		if description == "" {
			continue
		}

		date, ok := parseDateCell(cellAt(row, 0))
		if !ok {
			continue
		}

		income := parseAmountCell(cellAt(row, 2))
		expense := parseAmountCell(cellAt(row, 3))

		txType := core.Income
		amount := income
		if expense > income {
			txType = core.Expense
			amount = expense
		}

		transactions = append(transactions, core.Transaction{
			Description: description,
			Type:        txType,
			Amount:      amount,
			Date:        date,
		})
	}

	return transactions, nil
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func parseDateCell(s string) (core.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day()), true
		}
	}
	return core.Date{}, false
}

// parseAmountCell reads a numeric cell leniently: garbage and negative
// values collapse to zero.
func parseAmountCell(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(math.Round(v))
}
