package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Row is one exported transaction. Amount is signed: expenses are negative.
type Row struct {
	TransactionID int64
	Date          time.Time
	Title         string
	Category      string
	Amount        core.Money
}

// NewRow builds the export row for t.
func NewRow(t core.Transaction, categoryName string) Row {
	return Row{
		TransactionID: t.ID,
		Date:          t.Date,
		Title:         t.Title,
		Category:      categoryName,
		Amount:        core.Money{Cents: t.Signed()},
	}
}

// Ports for outbound adapters.
type (
	// TransactionWriter keeps one row per transaction id.
	TransactionWriter interface {
		// Upsert updates the row of r.TransactionID or appends a new one.
		Upsert(ctx context.Context, r Row) (rowRef string, err error)
		// Delete removes the row of id; a missing row is not an error.
		Delete(ctx context.Context, id int64) error
	}

	TransactionLister interface {
		ListRows(ctx context.Context) ([]Row, error)
	}
)
