package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Avii12105/medlab/internal/platform/apperr"
)

type Service struct {
	categories CategoryRepository
	tests      TestRepository
}

func NewService(categories CategoryRepository, tests TestRepository) *Service {
	return &Service{categories: categories, tests: tests}
}

// -- Categories --

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.categories.List(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, c *Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperr.Validation("category name is required")
	}
	return s.categories.Create(ctx, c)
}

func (s *Service) UpdateCategory(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		return apperr.Validation("id is required")
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperr.Validation("category name is required")
	}
	return s.categories.Update(ctx, c)
}

// DeleteCategory removes the category only. Its tests stay in the catalog
// and report a null category name.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

// -- Tests --

func (s *Service) ListTests(ctx context.Context) ([]*Test, error) {
	return s.tests.List(ctx)
}

func (s *Service) ListTestsByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Test, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.tests.ListByCategory(ctx, categoryID)
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*Test, error) {
	return s.tests.GetByID(ctx, id)
}

// TestsByIDs resolves several tests in one round trip. Missing ids are
// simply absent from the result.
func (s *Service) TestsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Test, error) {
	return s.tests.GetByIDs(ctx, ids)
}

func (s *Service) CreateTest(ctx context.Context, t *Test) error {
	if err := s.validateTest(ctx, t); err != nil {
		return err
	}
	return s.tests.Create(ctx, t)
}

func (s *Service) UpdateTest(ctx context.Context, t *Test) error {
	if t.ID == uuid.Nil {
		return apperr.Validation("id is required")
	}
	if err := s.validateTest(ctx, t); err != nil {
		return err
	}
	return s.tests.Update(ctx, t)
}

// DeleteTest does not look at report items that name the test; their
// catalog fields read back as null afterwards.
func (s *Service) DeleteTest(ctx context.Context, id uuid.UUID) error {
	return s.tests.Delete(ctx, id)
}

func (s *Service) validateTest(ctx context.Context, t *Test) error {
	if err := normalizeTest(t); err != nil {
		return err
	}
	_, err := s.categories.GetByID(ctx, t.CategoryID)
	return err
}

// normalizeTest trims and checks a test definition. A NUMERIC test carries an
// optional inclusive range and unit; a TEXTUAL test carries an optional set
// of permitted values and nothing else.
func normalizeTest(t *Test) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return apperr.Validation("test name is required")
	}
	if t.CategoryID == uuid.Nil {
		return apperr.Validation("category_id is required")
	}
	if t.ResultType == "" {
		t.ResultType = ResultNumeric
	}
	t.ResultType = ResultType(strings.ToUpper(string(t.ResultType)))
	if !t.ResultType.Valid() {
		return apperr.Validation("result_type must be NUMERIC or TEXTUAL, got %q", t.ResultType)
	}

	if t.Unit != nil {
		u := strings.TrimSpace(*t.Unit)
		t.Unit = &u
		if u == "" {
			t.Unit = nil
		}
	}

	switch t.ResultType {
	case ResultNumeric:
		if len(t.NormalValues) > 0 {
			return apperr.Validation("normal_values only apply to TEXTUAL tests")
		}
		if t.NormalMin != nil && t.NormalMax != nil && *t.NormalMin > *t.NormalMax {
			return apperr.Validation("normal_min (%g) must not exceed normal_max (%g)", *t.NormalMin, *t.NormalMax)
		}
		t.NormalValues = []string{}
	case ResultTextual:
		if t.HasRange() || t.Unit != nil {
			return apperr.Validation("normal_min, normal_max and unit only apply to NUMERIC tests")
		}
		values := make([]string, 0, len(t.NormalValues))
		seen := make(map[string]bool, len(t.NormalValues))
		for _, v := range t.NormalValues {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if seen[v] {
				return apperr.Validation("duplicate normal value %q", v)
			}
			seen[v] = true
			values = append(values, v)
		}
		t.NormalValues = values
	}
	return nil
}
