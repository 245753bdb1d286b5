package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type CategoryService struct {
	store  storage.Store
	logger *slog.Logger
}

func NewCategoryService(store storage.Store, logger *slog.Logger) *CategoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryService{store: store, logger: logger}
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// Create stores a user category; callers cannot create predefined ones.
func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Predefined = false
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// Update changes name, color and icon. The predefined flag is preserved.
func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := s.store.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	c.Predefined = existing.Predefined
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// Delete removes a user category. Its transactions move to the fallback
// category (lowest remaining id) and its budgets are dropped, atomically.
func (s *CategoryService) Delete(ctx context.Context, id int64) (int64, error) {
	target, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return 0, err
	}
	if target.Predefined {
		return 0, fmt.Errorf("category %q: %w", target.Name, core.ErrPredefinedCategory)
	}

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	fallback, ok := FallbackCategory(cats, id)
	if !ok {
		return 0, core.ErrLastCategory
	}

	moved, err := s.store.DeleteCategory(ctx, id, fallback.ID)
	if err != nil {
		return 0, fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category removed",
		"component", "category",
		"category_id", id,
		"fallback_category_id", fallback.ID,
		"reassigned_transactions", moved)
	return moved, nil
}
