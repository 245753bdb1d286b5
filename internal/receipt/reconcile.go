package receipt

import (
	"time"

	"fintrack/internal/core"
)

// Draft is an editable, not yet stored expense derived from a receipt line.
type Draft struct {
	Title      string
	Amount     core.Money
	CategoryID int64
	Date       time.Time
	IsExpense  bool
}

// Transaction converts the draft into a transaction ready to insert.
func (d Draft) Transaction() core.Transaction {
	return core.Transaction{
		Title:      d.Title,
		Amount:     d.Amount,
		CategoryID: d.CategoryID,
		Date:       d.Date,
		IsExpense:  d.IsExpense,
	}
}

// Reconcile builds one expense draft per receipt item. Receipt dates carry no
// time of day, so they are placed at noon in now's location.
func Reconcile(r Receipt, categoryID int64, now time.Time) []Draft {
	date := now
	if !r.Date.IsZero() {
		date = time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 12, 0, 0, 0, now.Location())
	}
	drafts := make([]Draft, 0, len(r.Items))
	for _, item := range r.Items {
		drafts = append(drafts, Draft{
			Title:      item.Name,
			Amount:     item.Price,
			CategoryID: categoryID,
			Date:       date,
			IsExpense:  true,
		})
	}
	return drafts
}
