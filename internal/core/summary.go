package core

// Summary totals a set of transactions.
type Summary struct {
	Income   Money
	Expenses Money
	Balance  Money
	Count    int
}

// CategoryStat aggregates transactions sharing a category.
type CategoryStat struct {
	CategoryID int64
	Amount     Money
	Count      int
	Percentage float64 // 0-100 of the window total
}

// MonthBucket is one calendar month of a trend.
type MonthBucket struct {
	Year     int
	Month    int // 1-12
	Income   Money
	Expenses Money
	Balance  Money
	Count    int
}

// AverageExpense is the month-to-date spending rate.
type AverageExpense struct {
	MonthTotal   Money
	ElapsedDays  int
	ElapsedWeeks int
	Daily        float64 // in currency units
	Weekly       float64
}

// BudgetProgress is computed on read; spent is never stored.
type BudgetProgress struct {
	Budget    Budget
	Window    Window
	Spent     Money
	Remaining Money
	Fraction  float64 // clamped to [0, 1]
}
