package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b      core.Budget
		period string
	)
	if err := s.Scan(&b.ID, &b.CategoryID, &b.Amount.Cents, &period); err != nil {
		return core.Budget{}, err
	}
	b.Period = core.Period(period)
	return b, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, amount_cents, period, created_at) VALUES (?, ?, ?, ?)`,
		b.CategoryID, b.Amount.Cents, string(b.Period), unix(r.now()))
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, amount_cents, period FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category_id = ?, amount_cents = ?, period = ? WHERE id = ?`,
		b.CategoryID, b.Amount.Cents, string(b.Period), b.ID)
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	return expectAffected(res, "budget", b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return expectAffected(res, "budget", id)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, amount_cents, period FROM budgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteOrphanedBudgets(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE category_id NOT IN (SELECT id FROM categories)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned budgets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleted budget rows: %w", err)
	}
	return n, nil
}
