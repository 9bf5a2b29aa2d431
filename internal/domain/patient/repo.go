package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patients. Lookups of a missing id return an
// apperr.NotFoundError; driver failures return an apperr.StoreError.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	SearchByName(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error)
}

// ReportCounter tells whether a patient is still referenced by reports.
type ReportCounter interface {
	CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
}
