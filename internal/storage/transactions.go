package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

const transactionColumns = `id, amount_cents, title, description, category_id, occurred_at, is_expense`

const insertTransaction = `INSERT INTO transactions
	(amount_cents, title, description, category_id, occurred_at, is_expense, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		occurredAt int64
		isExpense  int
	)
	if err := s.Scan(&t.ID, &t.Amount.Cents, &t.Title, &t.Description, &t.CategoryID, &occurredAt, &isExpense); err != nil {
		return core.Transaction{}, err
	}
	t.Date = fromUnix(occurredAt)
	t.IsExpense = isExpense == 1
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := unix(r.now())
	res, err := r.db.ExecContext(ctx, insertTransaction,
		t.Amount.Cents, t.Title, t.Description, t.CategoryID, unix(t.Date), boolInt(t.IsExpense), now, now)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	return t, nil
}

// CreateTransactions inserts every row or none.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(ts))
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertTransaction)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		now := unix(r.now())
		for i, t := range ts {
			res, err := stmt.ExecContext(ctx,
				t.Amount.Cents, t.Title, t.Description, t.CategoryID, unix(t.Date), boolInt(t.IsExpense), now, now)
			if err != nil {
				return fmt.Errorf("insert transaction %d: %w", i, err)
			}
			if t.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("transaction id: %w", err)
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// UpdateTransaction rewrites the row and clears synced_at so the exporter picks it up again.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET amount_cents = ?, title = ?, description = ?, category_id = ?, occurred_at = ?,
		     is_expense = ?, updated_at = ?, synced_at = NULL
		 WHERE id = ?`,
		t.Amount.Cents, t.Title, t.Description, t.CategoryID, unix(t.Date), boolInt(t.IsExpense), unix(r.now()), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return expectAffected(res, "transaction", t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return expectAffected(res, "transaction", id)
}

// ListTransactions returns matching rows, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if !f.Window.Start.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, unix(f.Window.Start))
	}
	if !f.Window.End.IsZero() {
		where = append(where, "occurred_at < ?")
		args = append(args, unix(f.Window.End))
	}
	if f.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	switch f.Kind {
	case KindExpense:
		where = append(where, "is_expense = 1")
	case KindIncome:
		where = append(where, "is_expense = 0")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SQLiteRepository) ListOrphanedTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE category_id NOT IN (SELECT id FROM categories)
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query orphaned transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SQLiteRepository) ReassignOrphanedTransactions(ctx context.Context, fallbackID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, updated_at = ?, synced_at = NULL
		 WHERE category_id NOT IN (SELECT id FROM categories)`,
		fallbackID, unix(r.now()))
	if err != nil {
		return 0, fmt.Errorf("reassign orphaned transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassigned rows: %w", err)
	}
	return n, nil
}

// ListUnsyncedTransactions returns the oldest rows not yet exported.
func (r *SQLiteRepository) ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE synced_at IS NULL
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsynced transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET synced_at = ? WHERE id = ?`, unix(at), id)
	if err != nil {
		return fmt.Errorf("mark transaction %d synced: %w", id, err)
	}
	return expectAffected(res, "transaction", id)
}
