package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/plata-bot/plata/internal/domain"
)

// CategoryRepository reads the live category table. Categories are mutable
// reference data: every lookup hits the database, nothing is cached.
type CategoryRepository interface {
	ListActive(ctx context.Context, kind domain.CategoryKind) ([]domain.Category, error)
	FindByName(ctx context.Context, kind domain.CategoryKind, name string) (*domain.Category, error)
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
}

type categoryRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewCategoryRepository creates a new SQL-backed category repository.
func NewCategoryRepository(db *sql.DB, log *slog.Logger) CategoryRepository {
	return &categoryRepository{
		db:  db,
		log: log,
	}
}

// ListActive returns the active categories of the given kind in display order.
func (r *categoryRepository) ListActive(ctx context.Context, kind domain.CategoryKind) ([]domain.Category, error) {
	const query = `
		SELECT id, name, kind, emoji, is_active
		FROM categories
		WHERE kind = $1 AND is_active
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, kind)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list categories", slog.String("kind", string(kind)), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.Emoji, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// FindByName resolves a category case-insensitively within the given direction.
func (r *categoryRepository) FindByName(ctx context.Context, kind domain.CategoryKind, name string) (*domain.Category, error) {
	const query = `
		SELECT id, name, kind, emoji, is_active
		FROM categories
		WHERE kind = $1 AND lower(name) = lower($2) AND is_active
	`

	var c domain.Category
	if err := r.db.QueryRowContext(ctx, query, kind, name).Scan(&c.ID, &c.Name, &c.Kind, &c.Emoji, &c.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select category by name: %w", err)
	}

	return &c, nil
}

// FindByID retrieves a category by its identifier.
func (r *categoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	const query = `
		SELECT id, name, kind, emoji, is_active
		FROM categories
		WHERE id = $1
	`

	var c domain.Category
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Kind, &c.Emoji, &c.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select category by id: %w", err)
	}

	return &c, nil
}
