package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Avii12105/medlab/internal/platform/apperr"
	"github.com/Avii12105/medlab/internal/platform/db"
)

// -- Categories --

type categoryRepoPG struct{ pool *pgxpool.Pool }

func NewCategoryRepoPG(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepoPG{pool: pool}
}

func (r *categoryRepoPG) Create(ctx context.Context, c *Category) error {
	c.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO test_categories (id, name) VALUES ($1, $2) RETURNING created_at`,
		c.ID, c.Name).Scan(&c.CreatedAt)
	return apperr.Store("insert test category", err)
}

func (r *categoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, created_at FROM test_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, db.NotFoundOr(err, "select test category", "test category", id)
	}
	return &c, nil
}

func (r *categoryRepoPG) Update(ctx context.Context, c *Category) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE test_categories SET name = $2 WHERE id = $1 RETURNING created_at`,
		c.ID, c.Name).Scan(&c.CreatedAt)
	return db.NotFoundOr(err, "update test category", "test category", c.ID)
}

func (r *categoryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`DELETE FROM test_categories WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return db.NotFoundOr(err, "delete test category", "test category", id)
}

func (r *categoryRepoPG) List(ctx context.Context) ([]*Category, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT id, name, created_at FROM test_categories ORDER BY name, id`)
	if err != nil {
		return nil, apperr.Store("list test categories", err)
	}
	defer rows.Close()

	out := []*Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, apperr.Store("scan test category", err)
		}
		out = append(out, &c)
	}
	return out, apperr.Store("list test categories", rows.Err())
}

// -- Tests --

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository {
	return &testRepoPG{pool: pool}
}

const testSelect = `
	SELECT t.id, t.category_id, c.name, t.name, t.result_type,
	       t.normal_min, t.normal_max, t.normal_values, t.unit, t.created_at
	FROM tests t
	LEFT JOIN test_categories c ON c.id = t.category_id`

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	err := row.Scan(&t.ID, &t.CategoryID, &t.CategoryName, &t.Name, &t.ResultType,
		&t.NormalMin, &t.NormalMax, &t.NormalValues, &t.Unit, &t.CreatedAt)
	if t.NormalValues == nil {
		t.NormalValues = []string{}
	}
	return &t, err
}

func (r *testRepoPG) collect(ctx context.Context, op, sql string, args ...interface{}) ([]*Test, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	out := []*Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, apperr.Store(op, err)
		}
		out = append(out, t)
	}
	return out, apperr.Store(op, rows.Err())
}

func (r *testRepoPG) Create(ctx context.Context, t *Test) error {
	t.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO tests (id, category_id, name, result_type, normal_min, normal_max, normal_values, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		t.ID, t.CategoryID, t.Name, t.ResultType, t.NormalMin, t.NormalMax, t.NormalValues, t.Unit).
		Scan(&t.CreatedAt)
	return apperr.Store("insert test", err)
}

func (r *testRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Test, error) {
	t, err := scanTest(db.Conn(ctx, r.pool).QueryRow(ctx, testSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, db.NotFoundOr(err, "select test", "test", id)
	}
	return t, nil
}

func (r *testRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Test, error) {
	out := make(map[uuid.UUID]*Test, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	tests, err := r.collect(ctx, "select tests", testSelect+` WHERE t.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range tests {
		out[t.ID] = t
	}
	return out, nil
}

func (r *testRepoPG) Update(ctx context.Context, t *Test) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE tests SET category_id = $2, name = $3, result_type = $4,
			normal_min = $5, normal_max = $6, normal_values = $7, unit = $8
		WHERE id = $1
		RETURNING created_at`,
		t.ID, t.CategoryID, t.Name, t.ResultType, t.NormalMin, t.NormalMax, t.NormalValues, t.Unit).
		Scan(&t.CreatedAt)
	return db.NotFoundOr(err, "update test", "test", t.ID)
}

func (r *testRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`DELETE FROM tests WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return db.NotFoundOr(err, "delete test", "test", id)
}

func (r *testRepoPG) List(ctx context.Context) ([]*Test, error) {
	return r.collect(ctx, "list tests", testSelect+` ORDER BY t.created_at DESC, t.id`)
}

func (r *testRepoPG) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Test, error) {
	return r.collect(ctx, "list tests by category",
		testSelect+` WHERE t.category_id = $1 ORDER BY t.name, t.id`, categoryID)
}
