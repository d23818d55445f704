package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/moneymngr/moneymngr/internal/model"
)

const categoryColumns = `id, name, type, parent_id, icon, sort_order, created_at, updated_at`

// InsertCategory stores a new category. A name collision yields ErrDuplicateEntity.
func (q *Queries) InsertCategory(ctx context.Context, c model.Category) error {
	_, err := q.q.ExecContext(ctx, `
	INSERT INTO categories(`+categoryColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Type), c.ParentID, c.Icon, c.SortOrder, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, ErrDuplicateEntity)
	}
	if err != nil {
		return fmt.Errorf("inserting category %q: %w", c.Name, err)
	}
	return nil
}

// GetCategory returns a category by id, or ErrCategoryNotFound.
func (q *Queries) GetCategory(ctx context.Context, id string) (model.Category, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, fmt.Errorf("category %s: %w", id, ErrCategoryNotFound)
	}
	return c, err
}

// ListCategories returns all categories by sort order, then name.
func (q *Queries) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCategoryDetails rewrites name, icon, parent and sort order. Type is immutable.
func (q *Queries) UpdateCategoryDetails(ctx context.Context, c model.Category) error {
	res, err := q.q.ExecContext(ctx, `
	UPDATE categories SET name = ?, parent_id = ?, icon = ?, sort_order = ?, updated_at = ?
	WHERE id = ?`, c.Name, c.ParentID, c.Icon, c.SortOrder, c.UpdatedAt, c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, ErrDuplicateEntity)
	}
	if err != nil {
		return fmt.Errorf("updating category %s: %w", c.ID, err)
	}
	return expectOne(res, fmt.Errorf("category %s: %w", c.ID, ErrCategoryNotFound))
}

// DeleteCategory removes a category row.
func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting category %s: %w", id, err)
	}
	return expectOne(res, fmt.Errorf("category %s: %w", id, ErrCategoryNotFound))
}

// CountCategoryReferences counts transactions and sub-categories pointing at id.
func (q *Queries) CountCategoryReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
	SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
	     + (SELECT COUNT(*) FROM categories WHERE parent_id = ?)`, id, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting references to %s: %w", id, err)
	}
	return n, nil
}

func scanCategory(r rowScanner) (model.Category, error) {
	var c model.Category
	var typ string
	if err := r.Scan(&c.ID, &c.Name, &typ, &c.ParentID, &c.Icon, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return model.Category{}, err
	}
	c.Type = model.CategoryType(typ)
	return c, nil
}
