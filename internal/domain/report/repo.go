package report

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists reports and their items. Missing rows yield an
// apperr.NotFoundError, a second item for the same test on one report an
// apperr.ValidationError, and driver failures an apperr.StoreError.
type Repository interface {
	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	// LockReport reads the report and holds a row lock on it until the
	// enclosing transaction ends.
	LockReport(ctx context.Context, id uuid.UUID) (*Report, error)
	DeleteReport(ctx context.Context, id uuid.UUID) error
	ListReports(ctx context.Context, limit, offset int) ([]*Summary, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Summary, error)
	CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)

	CreateItem(ctx context.Context, it *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	// ListItems returns a report's items, newest first.
	ListItems(ctx context.Context, reportID uuid.UUID) ([]*Item, error)
	// HasItem reports whether the report already has an item for testID
	// other than exceptID.
	HasItem(ctx context.Context, reportID, testID, exceptID uuid.UUID) (bool, error)
	DeleteItemsByReport(ctx context.Context, reportID uuid.UUID) (int64, error)
	CountItems(ctx context.Context, reportID uuid.UUID) (int, error)
}
