package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const categoryColumns = `id, name, color, icon, predefined`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c          core.Category
		color      int64
		predefined int
	)
	if err := s.Scan(&c.ID, &c.Name, &color, &c.Icon, &predefined); err != nil {
		return core.Category{}, err
	}
	c.Color = uint32(color)
	c.Predefined = predefined == 1
	return c, nil
}

// ListCategories returns every category ordered by id.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, color, icon, predefined, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, int64(c.Color), c.Icon, boolInt(c.Predefined), unix(r.now()))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	c.ID = id
	return c, nil
}

// SeedCategories inserts cats in order within one transaction so ids follow insertion order.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, cats []core.Category) ([]core.Category, error) {
	out := make([]core.Category, 0, len(cats))
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO categories (name, color, icon, predefined, created_at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare seed: %w", err)
		}
		defer stmt.Close()

		now := unix(r.now())
		for _, c := range cats {
			res, err := stmt.ExecContext(ctx, c.Name, int64(c.Color), c.Icon, boolInt(c.Predefined), now)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
			if c.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("category id: %w", err)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, icon = ? WHERE id = ?`,
		c.Name, int64(c.Color), c.Icon, c.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return expectAffected(res, "category", c.ID)
}

// DeleteCategory reassigns, drops budgets and deletes in one transaction.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, fallbackID int64) (int64, error) {
	var moved int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET category_id = ?, updated_at = ?, synced_at = NULL WHERE category_id = ?`,
			fallbackID, unix(r.now()), id)
		if err != nil {
			return fmt.Errorf("reassign transactions of category %d: %w", id, err)
		}
		if moved, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("reassigned rows: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("delete budgets of category %d: %w", id, err)
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		return expectAffected(res, "category", id)
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func expectAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
