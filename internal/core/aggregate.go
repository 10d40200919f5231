package core

import "time"

// Summary holds the dashboard totals for one user. Monetary fields are
// integer cents; the *Formatted fields carry the BRL display strings the
// client renders.
type Summary struct {
	TotalIncomeCents       int64  `json:"totalIncomeCents"`
	TotalExpenseCents      int64  `json:"totalExpenseCents"`
	BalanceCents           int64  `json:"balanceCents"`
	TotalInvestedCents     int64  `json:"totalInvestedCents"`
	TransactionCount       int    `json:"transactionCount"`
	TotalIncomeFormatted   string `json:"totalIncomeFormatted"`
	TotalExpenseFormatted  string `json:"totalExpenseFormatted"`
	BalanceFormatted       string `json:"balanceFormatted"`
	TotalInvestedFormatted string `json:"totalInvestedFormatted"`
}

// DayBucket is one day of the monthly series. The series is dense: every day
// of the month gets a bucket even when no entry falls on it.
type DayBucket struct {
	Date         string `json:"date"`
	Day          int    `json:"day"`
	IncomeCents  int64  `json:"incomeCents"`
	ExpenseCents int64  `json:"expenseCents"`
	VolumeCents  int64  `json:"volumeCents"`
}

// Summarize computes the dashboard totals over a user's ledger entries.
// Balance is income minus expense; investments are tracked separately and do
// not affect the balance. Only incomes and expenses count as transactions.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Kind {
		case KindIncome:
			s.TotalIncomeCents += e.AmountInCents
			s.TransactionCount++
		case KindExpense:
			s.TotalExpenseCents += e.AmountInCents
			s.TransactionCount++
		case KindInvestment:
			s.TotalInvestedCents += e.AmountInCents
		}
	}
	s.BalanceCents = s.TotalIncomeCents - s.TotalExpenseCents
	s.TotalIncomeFormatted = Money{Cents: s.TotalIncomeCents}.Format()
	s.TotalExpenseFormatted = Money{Cents: s.TotalExpenseCents}.Format()
	s.BalanceFormatted = Money{Cents: s.BalanceCents}.Format()
	s.TotalInvestedFormatted = Money{Cents: s.TotalInvestedCents}.Format()
	return s
}

// DaysInMonth returns the number of days in the given month. Day zero of the
// following month is the last day of this one.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DailySeries buckets a user's incomes and expenses into one entry per day of
// the given month. Entries are matched on local date components, without time
// zone conversion, so an entry recorded on the 5th stays on the 5th.
// Investments and templates are excluded. Volume is the absolute movement of
// money, income plus expense.
func DailySeries(entries []Entry, year int, month time.Month) []DayBucket {
	days := DaysInMonth(year, month)
	series := make([]DayBucket, days)
	for i := range series {
		series[i] = DayBucket{
			Date: time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Day:  i + 1,
		}
	}
	for _, e := range entries {
		y, m, d := e.CreatedAt.Date()
		if y != year || m != month {
			continue
		}
		b := &series[d-1]
		switch e.Kind {
		case KindIncome:
			b.IncomeCents += e.AmountInCents
		case KindExpense:
			b.ExpenseCents += e.AmountInCents
		default:
			continue
		}
		b.VolumeCents += e.AmountInCents
	}
	return series
}
