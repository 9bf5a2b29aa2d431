package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Avii12105/medlab/internal/platform/apperr"
	"github.com/Avii12105/medlab/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, name, age, phone, email, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Age, &p.Phone, &p.Email, &p.CreatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (id, name, age, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.ID, p.Name, p.Age, p.Phone, p.Email).Scan(&p.CreatedAt)
	return apperr.Store("insert patient", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFoundOr(err, "select patient", "patient", id)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE patients SET name = $2, age = $3, phone = $4, email = $5
		WHERE id = $1
		RETURNING created_at`,
		p.ID, p.Name, p.Age, p.Phone, p.Email).Scan(&p.CreatedAt)
	return db.NotFoundOr(err, "update patient", "patient", p.ID)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`DELETE FROM patients WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return db.NotFoundOr(err, "delete patient", "patient", id)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return r.query(ctx, `FROM patients`, nil, limit, offset)
}

func (r *repoPG) SearchByName(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return r.query(ctx, `FROM patients WHERE name ILIKE $1 ESCAPE '\'`,
		[]interface{}{"%" + escapeLike(name) + "%"}, limit, offset)
}

// query runs a count and a page over the same FROM/WHERE clause, newest first.
func (r *repoPG) query(ctx context.Context, from string, args []interface{}, limit, offset int) ([]*Patient, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Store("count patients", err)
	}

	n := len(args)
	page := append(append([]interface{}{}, args...), limit, offset)
	rows, err := conn.Query(ctx, `SELECT `+patientCols+` `+from+
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, n+1, n+2), page...)
	if err != nil {
		return nil, 0, apperr.Store("select patients", err)
	}
	defer rows.Close()

	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, apperr.Store("scan patient", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Store("iterate patients", err)
	}
	return items, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

