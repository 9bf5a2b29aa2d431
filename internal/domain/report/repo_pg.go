package report

import (
	"context"

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

// -- Reports --

func (r *repoPG) CreateReport(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO reports (id, patient_id, created_at) VALUES ($1, $2, $3)`,
		rep.ID, rep.PatientID, rep.CreatedAt)
	return apperr.Store("insert report", err)
}

func (r *repoPG) getReport(ctx context.Context, op, sql string, id uuid.UUID) (*Report, error) {
	var rep Report
	err := db.Conn(ctx, r.pool).QueryRow(ctx, sql, id).Scan(&rep.ID, &rep.PatientID, &rep.CreatedAt)
	if err != nil {
		return nil, db.NotFoundOr(err, op, "report", id)
	}
	return &rep, nil
}

func (r *repoPG) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return r.getReport(ctx, "select report",
		`SELECT id, patient_id, created_at FROM reports WHERE id = $1`, id)
}

func (r *repoPG) LockReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return r.getReport(ctx, "lock report",
		`SELECT id, patient_id, created_at FROM reports WHERE id = $1 FOR UPDATE`, id)
}

func (r *repoPG) DeleteReport(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`DELETE FROM reports WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return db.NotFoundOr(err, "delete report", "report", id)
}

const summarySelect = `
	SELECT r.id, r.patient_id, p.name, r.created_at
	FROM reports r
	LEFT JOIN patients p ON p.id = r.patient_id`

func (r *repoPG) summaries(ctx context.Context, op, sql string, args ...interface{}) ([]*Summary, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	out := []*Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.PatientID, &s.PatientName, &s.CreatedAt); err != nil {
			return nil, apperr.Store(op, err)
		}
		out = append(out, &s)
	}
	return out, apperr.Store(op, rows.Err())
}

func (r *repoPG) ListReports(ctx context.Context, limit, offset int) ([]*Summary, int, error) {
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total); err != nil {
		return nil, 0, apperr.Store("count reports", err)
	}
	items, err := r.summaries(ctx, "list reports",
		summarySelect+` ORDER BY r.created_at DESC, r.id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Summary, error) {
	return r.summaries(ctx, "list reports by patient",
		summarySelect+` WHERE r.patient_id = $1 ORDER BY r.created_at DESC, r.id`, patientID)
}

func (r *repoPG) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE patient_id = $1`, patientID).Scan(&n)
	return n, apperr.Store("count reports by patient", err)
}

// -- Items --

const itemCols = `id, report_id, test_id, result_value, status, created_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.ReportID, &it.TestID, &it.Value, &it.Status, &it.CreatedAt)
	return &it, err
}

func (r *repoPG) CreateItem(ctx context.Context, it *Item) error {
	it.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO report_items (id, report_id, test_id, result_value, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		it.ID, it.ReportID, it.TestID, it.Value, it.Status, it.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Validation("report %s already has a result for test %s", it.ReportID, it.TestID)
	}
	return apperr.Store("insert report item", err)
}

func (r *repoPG) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	it, err := scanItem(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+itemCols+` FROM report_items WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFoundOr(err, "select report item", "report item", id)
	}
	return it, nil
}

func (r *repoPG) UpdateItem(ctx context.Context, it *Item) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE report_items SET test_id = $2, result_value = $3, status = $4
		WHERE id = $1
		RETURNING report_id, created_at`,
		it.ID, it.TestID, it.Value, it.Status).Scan(&it.ReportID, &it.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Validation("report %s already has a result for test %s", it.ReportID, it.TestID)
	}
	return db.NotFoundOr(err, "update report item", "report item", it.ID)
}

func (r *repoPG) DeleteItem(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`DELETE FROM report_items WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return db.NotFoundOr(err, "delete report item", "report item", id)
}

func (r *repoPG) ListItems(ctx context.Context, reportID uuid.UUID) ([]*Item, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+itemCols+` FROM report_items WHERE report_id = $1 ORDER BY created_at DESC, id`, reportID)
	if err != nil {
		return nil, apperr.Store("list report items", err)
	}
	defer rows.Close()

	out := []*Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Store("scan report item", err)
		}
		out = append(out, it)
	}
	return out, apperr.Store("list report items", rows.Err())
}

func (r *repoPG) HasItem(ctx context.Context, reportID, testID, exceptID uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM report_items
			WHERE report_id = $1 AND test_id = $2 AND id <> $3
		)`, reportID, testID, exceptID).Scan(&exists)
	return exists, apperr.Store("check report item", err)
}

func (r *repoPG) DeleteItemsByReport(ctx context.Context, reportID uuid.UUID) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM report_items WHERE report_id = $1`, reportID)
	if err != nil {
		return 0, apperr.Store("delete report items", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) CountItems(ctx context.Context, reportID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM report_items WHERE report_id = $1`, reportID).Scan(&n)
	return n, apperr.Store("count report items", err)
}
