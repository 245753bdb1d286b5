package sheets

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestNewRowSignsAmount(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		isExpense bool
		want      int64
	}{
		{"expense", true, -1250},
		{"income", false, 1250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := core.Transaction{ID: 9, Title: "x", Amount: core.Money{Cents: 1250}, Date: date, IsExpense: tt.isExpense}
			r := NewRow(tx, "Food")
			if r.Amount.Cents != tt.want {
				t.Errorf("NewRow().Amount = %d, want %d", r.Amount.Cents, tt.want)
			}
			if r.TransactionID != 9 || r.Category != "Food" {
				t.Errorf("NewRow() = %+v", r)
			}
		})
	}
}
