package stats

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"fintrack/internal/core"
)

func tx(cents int64, cat int64, date time.Time, expense bool) core.Transaction {
	return core.Transaction{Amount: core.Money{Cents: cents}, Title: "t", CategoryID: cat, Date: date, IsExpense: expense}
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 12, 0, 0, 0, time.UTC)
}

func TestSummarizeScenario(t *testing.T) {
	txs := []core.Transaction{
		tx(300000, 9, d(2025, 4, 1), false),
		tx(100000, 5, d(2025, 4, 3), true),
		tx(80000, 1, d(2025, 4, 9), true),
	}
	s := Summarize(txs, core.MonthWindow(d(2025, 4, 10)))
	if s.Income.Cents != 300000 || s.Expenses.Cents != 180000 || s.Balance.Cents != 120000 || s.Count != 3 {
		t.Errorf("Summarize() = %+v", s)
	}

	avg := AverageExpense(txs, d(2025, 4, 10))
	if math.Abs(avg.Daily-180) > 1e-9 {
		t.Errorf("AverageExpense().Daily = %v, want 180", avg.Daily)
	}
	if avg.ElapsedWeeks != 2 || math.Abs(avg.Weekly-900) > 1e-9 {
		t.Errorf("AverageExpense() weeks = %d weekly = %v, want 2 and 900", avg.ElapsedWeeks, avg.Weekly)
	}
}

func TestSummarizeBalanceProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		var txs []core.Transaction
		n := r.Intn(30)
		for j := 0; j < n; j++ {
			txs = append(txs, tx(int64(r.Intn(100000)+1), int64(r.Intn(5)+1), d(2025, time.Month(r.Intn(12)+1), r.Intn(28)+1), r.Intn(2) == 0))
		}
		s := Summarize(txs, core.Window{})
		if s.Income.Cents-s.Expenses.Cents != s.Balance.Cents {
			t.Fatalf("income - expenses != balance for %+v", s)
		}
		if s.Count != len(txs) {
			t.Fatalf("Count = %d, want %d", s.Count, len(txs))
		}
	}
}

func TestSummarizeWindowExcludes(t *testing.T) {
	txs := []core.Transaction{
		tx(100, 1, d(2025, 1, 31), true),
		tx(200, 1, d(2025, 2, 1), true),
	}
	s := Summarize(txs, core.MonthWindow(d(2025, 2, 15)))
	if s.Expenses.Cents != 200 || s.Count != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
}

func TestByCategory(t *testing.T) {
	txs := []core.Transaction{
		tx(3000, 1, d(2025, 5, 1), true),
		tx(1000, 2, d(2025, 5, 2), true),
		tx(1000, 3, d(2025, 5, 3), true),
		tx(5000, 1, d(2025, 5, 4), false),
	}

	tests := []struct {
		name    string
		kind    Kind
		wantIDs []int64
		wantPct []float64
	}{
		{"expenses", KindExpense, []int64{1, 2, 3}, []float64{60, 20, 20}},
		{"income", KindIncome, []int64{1}, []float64{100}},
		{"all", KindAll, []int64{1, 2, 3}, []float64{80, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ByCategory(txs, core.Window{}, tt.kind)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("ByCategory() = %+v", got)
			}
			var sum float64
			for i, st := range got {
				if st.CategoryID != tt.wantIDs[i] || math.Abs(st.Percentage-tt.wantPct[i]) > 1e-9 {
					t.Errorf("ByCategory()[%d] = %+v, want id %d pct %v", i, st, tt.wantIDs[i], tt.wantPct[i])
				}
				sum += st.Percentage
			}
			if math.Abs(sum-100) > 1e-6 {
				t.Errorf("percentages sum to %v", sum)
			}
		})
	}
}

func TestByCategoryEmptyWindow(t *testing.T) {
	txs := []core.Transaction{tx(100, 1, d(2025, 1, 1), true)}
	got := ByCategory(txs, core.MonthWindow(d(2024, 1, 1)), KindExpense)
	if len(got) != 0 {
		t.Errorf("ByCategory() = %+v, want empty", got)
	}
}

func TestMonthlyTrend(t *testing.T) {
	txs := []core.Transaction{
		tx(500, 1, d(2025, 1, 5), true),
		tx(2000, 9, d(2025, 1, 25), false),
		tx(700, 1, d(2025, 3, 2), true),
		tx(999, 1, d(2025, 5, 2), true), // outside the window
	}
	w := core.Window{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}

	got := MonthlyTrend(txs, w)
	if len(got) != 3 {
		t.Fatalf("MonthlyTrend() = %+v, want 3 buckets", got)
	}
	if got[0].Month != 1 || got[0].Balance.Cents != 1500 || got[0].Count != 2 {
		t.Errorf("January = %+v", got[0])
	}
	if got[1].Month != 2 || got[1].Count != 0 {
		t.Errorf("February = %+v, want empty bucket", got[1])
	}
	if got[2].Month != 3 || got[2].Expenses.Cents != 700 {
		t.Errorf("March = %+v", got[2])
	}

	if open := MonthlyTrend(txs, core.Window{}); len(open) != 5 || open[4].Month != 5 {
		t.Errorf("open MonthlyTrend() = %+v", open)
	}
	if empty := MonthlyTrend(nil, core.Window{}); len(empty) != 0 {
		t.Errorf("MonthlyTrend(nil) = %+v", empty)
	}
}

func TestAverageExpenseIgnoresFutureAndIncome(t *testing.T) {
	now := d(2025, 6, 7)
	txs := []core.Transaction{
		tx(700, 1, d(2025, 6, 1), true),
		tx(9999, 1, d(2025, 6, 20), true), // later this month
		tx(5000, 9, d(2025, 6, 2), false), // income
		tx(1234, 1, d(2025, 5, 31), true), // previous month
	}
	avg := AverageExpense(txs, now)
	if avg.MonthTotal.Cents != 700 || math.Abs(avg.Daily-1) > 1e-9 || avg.ElapsedWeeks != 1 {
		t.Errorf("AverageExpense() = %+v", avg)
	}
}

func TestBudgetProgress(t *testing.T) {
	now := d(2025, 7, 16)
	budget := core.Budget{ID: 1, CategoryID: 2, Amount: core.Money{Cents: 10000}, Period: core.Monthly}

	tests := []struct {
		name          string
		txs           []core.Transaction
		wantSpent     int64
		wantRemaining int64
		wantFraction  float64
	}{
		{"nothing spent", nil, 0, 10000, 0},
		{
			"partial",
			[]core.Transaction{tx(2500, 2, d(2025, 7, 1), true), tx(9000, 3, d(2025, 7, 2), true), tx(4000, 2, d(2025, 7, 3), false)},
			2500, 7500, 0.25,
		},
		{
			"overspent clamps",
			[]core.Transaction{tx(15000, 2, d(2025, 7, 10), true), tx(100, 2, d(2025, 6, 30), true)},
			15000, 0, 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BudgetProgress(budget, tt.txs, now)
			if err != nil {
				t.Fatalf("BudgetProgress() error = %v", err)
			}
			if p.Spent.Cents != tt.wantSpent || p.Remaining.Cents != tt.wantRemaining || math.Abs(p.Fraction-tt.wantFraction) > 1e-9 {
				t.Errorf("BudgetProgress() = %+v", p)
			}
			if p.Fraction < 0 || p.Fraction > 1 {
				t.Errorf("fraction %v out of [0, 1]", p.Fraction)
			}
		})
	}

	if _, err := BudgetProgress(core.Budget{Period: "hourly", Amount: core.Money{Cents: 1}}, nil, now); err == nil {
		t.Error("expected error for unknown period")
	}
	if p, _ := BudgetProgress(core.Budget{Period: core.Daily}, []core.Transaction{tx(1, 0, now, true)}, now); p.Fraction != 0 {
		t.Errorf("zero budget fraction = %v, want 0", p.Fraction)
	}
}
