package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/moneymngr/moneymngr/internal/actionlog"
	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/logger"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

// Service provides category CRUD on top of the ledger store.
type Service struct {
	store   *store.Store
	actions *actionlog.Service
}

// NewService creates a category Service.
// actions may be nil.
func NewService(s *store.Store, actions *actionlog.Service) *Service {
	return &Service{store: s, actions: actions}
}

// CreateParams holds the fields for a new category.
type CreateParams struct {
	Name      string
	Type      model.CategoryType
	ParentID  string
	Icon      string
	SortOrder int
}

// Create validates and stores a category. Sub-categories must share their
// parent's type and the parent must itself be top-level.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Category, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return model.Category{}, model.ValidationError{Field: "name", Message: "required"}
	}
	if p.Type != model.CategoryTypeExpense && p.Type != model.CategoryTypeIncome {
		return model.Category{}, model.ValidationError{Field: "type", Message: fmt.Sprintf("unknown category type %q", p.Type)}
	}
	if p.ParentID != "" {
		if err := s.checkParent(ctx, p.ParentID, p.Type); err != nil {
			return model.Category{}, err
		}
	}

	now := store.Now()
	c := model.Category{
		ID:        id.New(),
		Name:      name,
		Type:      p.Type,
		ParentID:  p.ParentID,
		Icon:      p.Icon,
		SortOrder: p.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertCategory(ctx, c); err != nil {
		return model.Category{}, err
	}

	logger.FromContext(ctx).Info().Str("category_id", c.ID).Str("name", c.Name).Msg("category created")
	s.actions.Record(actionlog.CategoryCreate, c.ID, c.Name)
	return c, nil
}

func (s *Service) checkParent(ctx context.Context, parentID string, typ model.CategoryType) error {
	parent, err := s.store.GetCategory(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.ParentID != "" {
		return model.ValidationError{Field: "parentId", Message: fmt.Sprintf("category %q is already a sub-category", parent.Name)}
	}
	if parent.Type != typ {
		return model.ValidationError{Field: "parentId", Message: fmt.Sprintf("sub-category type %s does not match parent %q (%s)", typ, parent.Name, parent.Type)}
	}
	return nil
}

// Rename changes a category's display name.
func (s *Service) Rename(ctx context.Context, categoryID, name string) (model.Category, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return model.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, model.ValidationError{Field: "name", Message: "required"}
	}
	c.Name = name
	c.UpdatedAt = store.Now()
	if err := s.store.UpdateCategoryDetails(ctx, c); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// Delete removes a category nothing references.
func (s *Service) Delete(ctx context.Context, categoryID string) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		c, err := q.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		n, err := q.CountCategoryReferences(ctx, categoryID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("category %q is used by %d row(s): %w", c.Name, n, store.ErrEntityInUse)
		}
		return q.DeleteCategory(ctx, categoryID)
	})
}

// Get returns a category by ID.
func (s *Service) Get(ctx context.Context, categoryID string) (model.Category, error) {
	return s.store.GetCategory(ctx, categoryID)
}

// All returns every category by sort order.
func (s *Service) All(ctx context.Context) ([]model.Category, error) {
	return s.store.ListCategories(ctx)
}

// Resolve finds a category by ID, then by case-insensitive name.
func (s *Service) Resolve(ctx context.Context, ref string) (model.Category, error) {
	if c, err := s.store.GetCategory(ctx, ref); err == nil {
		return c, nil
	}
	all, err := s.store.ListCategories(ctx)
	if err != nil {
		return model.Category{}, err
	}
	if c, ok := FindByName(all, ref); ok {
		return c, nil
	}
	return model.Category{}, fmt.Errorf("category %q: %w", ref, store.ErrCategoryNotFound)
}

// FindByName returns the category whose name equals name, ignoring case.
func FindByName(all []model.Category, name string) (model.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range all {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return model.Category{}, false
}

// ByType returns the categories of one type.
func ByType(all []model.Category, t model.CategoryType) []model.Category {
	var out []model.Category
	for _, c := range all {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
