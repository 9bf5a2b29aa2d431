package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Avii12105/medlab/internal/platform/apperr"
)

type Service struct {
	patients Repository
	reports  ReportCounter
}

// NewService wires the patient store. reports may be nil, in which case
// deletes are not guarded against existing reports.
func NewService(patients Repository, reports ReportCounter) *Service {
	return &Service{patients: patients, reports: reports}
}

func normalize(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("name and age are required")
	}
	if p.Age == 0 {
		return apperr.Validation("name and age are required")
	}
	if p.Age < 0 {
		return apperr.Validation("age must be a positive integer")
	}
	p.Phone = trimOptional(p.Phone)
	p.Email = trimOptional(p.Email)
	if p.Email != nil && !strings.Contains(*p.Email, "@") {
		return apperr.Validation("invalid email: %s", *p.Email)
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := normalize(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		return apperr.Validation("id is required")
	}
	if err := normalize(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

// Delete removes a patient that no report refers to. Patients with reports
// are kept; their reports must be deleted first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return err
	}
	if s.reports != nil {
		n, err := s.reports.CountByPatient(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Validation("patient %s still has %d report(s); delete them first", id, n)
		}
	}
	return s.patients.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// SearchByName matches a case-insensitive substring of the patient name.
func (s *Service) SearchByName(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, 0, apperr.Validation("name query is required")
	}
	return s.patients.SearchByName(ctx, name, limit, offset)
}
