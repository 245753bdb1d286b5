// Package stats computes summaries, category breakdowns, trends, spending rates
// and budget progress. Every function is pure: callers pass the transactions
// and the clock.
package stats

import (
	"sort"
	"time"

	"fintrack/internal/core"
)

// Kind selects which transactions a breakdown considers.
type Kind string

const (
	KindAll     Kind = ""
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// ParseKind maps query values to a Kind; unknown values mean all.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindExpense, KindIncome:
		return Kind(s)
	default:
		return KindAll
	}
}

func (k Kind) matches(t core.Transaction) bool {
	switch k {
	case KindExpense:
		return t.IsExpense
	case KindIncome:
		return !t.IsExpense
	default:
		return true
	}
}

// Summarize totals the transactions inside w.
func Summarize(txs []core.Transaction, w core.Window) core.Summary {
	var s core.Summary
	for _, t := range txs {
		if !w.Contains(t.Date) {
			continue
		}
		if t.IsExpense {
			s.Expenses.Cents += t.Amount.Cents
		} else {
			s.Income.Cents += t.Amount.Cents
		}
		s.Count++
	}
	s.Balance.Cents = s.Income.Cents - s.Expenses.Cents
	return s
}

// ByCategory groups the transactions inside w by category. Percentages are
// shares of the grand total on a 0-100 scale, all zero when the total is zero.
// Results are ordered by amount descending, then category id.
func ByCategory(txs []core.Transaction, w core.Window, kind Kind) []core.CategoryStat {
	byID := map[int64]*core.CategoryStat{}
	var total int64
	for _, t := range txs {
		if !w.Contains(t.Date) || !kind.matches(t) {
			continue
		}
		st, ok := byID[t.CategoryID]
		if !ok {
			st = &core.CategoryStat{CategoryID: t.CategoryID}
			byID[t.CategoryID] = st
		}
		st.Amount.Cents += t.Amount.Cents
		st.Count++
		total += t.Amount.Cents
	}

	out := make([]core.CategoryStat, 0, len(byID))
	for _, st := range byID {
		if total > 0 {
			st.Percentage = 100 * float64(st.Amount.Cents) / float64(total)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

type monthKey struct {
	year  int
	month time.Month
}

// MonthlyTrend buckets the transactions inside w by calendar month in
// chronological order. A bounded window yields one bucket per month it
// touches, empty months included; an open window spans the data.
func MonthlyTrend(txs []core.Transaction, w core.Window) []core.MonthBucket {
	loc := time.UTC
	if !w.Start.IsZero() {
		loc = w.Start.Location()
	}

	buckets := map[monthKey]*core.MonthBucket{}
	var first, last time.Time
	for _, t := range txs {
		if !w.Contains(t.Date) {
			continue
		}
		d := t.Date.In(loc)
		k := monthKey{d.Year(), d.Month()}
		b, ok := buckets[k]
		if !ok {
			b = &core.MonthBucket{Year: d.Year(), Month: int(d.Month())}
			buckets[k] = b
		}
		if t.IsExpense {
			b.Expenses.Cents += t.Amount.Cents
		} else {
			b.Income.Cents += t.Amount.Cents
		}
		b.Balance.Cents = b.Income.Cents - b.Expenses.Cents
		b.Count++
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	from, to := first, last
	if !w.Start.IsZero() {
		from = w.Start
	}
	if !w.End.IsZero() {
		// End is exclusive; step back to land inside the last month.
		to = w.End.In(loc).Add(-time.Nanosecond)
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return []core.MonthBucket{}
	}

	var out []core.MonthBucket
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, loc)
	for !cur.After(end) {
		k := monthKey{cur.Year(), cur.Month()}
		if b, ok := buckets[k]; ok {
			out = append(out, *b)
		} else {
			out = append(out, core.MonthBucket{Year: cur.Year(), Month: int(cur.Month())})
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// AverageExpense divides the current month's spending up to today by the
// elapsed days and by the elapsed weeks, ceil(day/7).
func AverageExpense(txs []core.Transaction, now time.Time) core.AverageExpense {
	month := core.MonthWindow(now)
	upTo := core.Window{Start: month.Start, End: startOfDay(now).AddDate(0, 0, 1)}

	var total int64
	for _, t := range txs {
		if t.IsExpense && upTo.Contains(t.Date) {
			total += t.Amount.Cents
		}
	}

	day := now.Day()
	weeks := (day + 6) / 7
	avg := core.AverageExpense{
		MonthTotal:   core.Money{Cents: total},
		ElapsedDays:  day,
		ElapsedWeeks: weeks,
	}
	units := float64(total) / 100.0
	avg.Daily = units / float64(day)
	avg.Weekly = units / float64(weeks)
	return avg
}

// BudgetProgress computes spending against b for the period window containing
// now. Fraction is clamped to [0, 1]; Remaining never goes below zero.
func BudgetProgress(b core.Budget, txs []core.Transaction, now time.Time) (core.BudgetProgress, error) {
	w, err := PeriodWindow(b.Period, now)
	if err != nil {
		return core.BudgetProgress{}, err
	}

	var spent int64
	for _, t := range txs {
		if t.IsExpense && t.CategoryID == b.CategoryID && w.Contains(t.Date) {
			spent += t.Amount.Cents
		}
	}

	p := core.BudgetProgress{
		Budget: b,
		Window: w,
		Spent:  core.Money{Cents: spent},
	}
	if remaining := b.Amount.Cents - spent; remaining > 0 {
		p.Remaining.Cents = remaining
	}
	if b.Amount.Cents > 0 {
		p.Fraction = float64(spent) / float64(b.Amount.Cents)
		if p.Fraction > 1 {
			p.Fraction = 1
		}
	}
	return p, nil
}
