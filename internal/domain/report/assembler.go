package report

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Avii12105/medlab/internal/domain/catalog"
	"github.com/Avii12105/medlab/internal/domain/patient"
	"github.com/Avii12105/medlab/internal/platform/apperr"
	"github.com/Avii12105/medlab/internal/platform/db"
)

// Patients resolves the patient a report belongs to.
type Patients interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Catalog resolves the tests report items refer to.
type Catalog interface {
	GetTest(ctx context.Context, id uuid.UUID) (*catalog.Test, error)
	TestsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Test, error)
}

var (
	_ Patients = (*patient.Service)(nil)
	_ Catalog  = (*catalog.Service)(nil)
)

// Assembler builds reports from a patient, a set of results and the test
// catalog, and reads them back with the catalog inlined.
type Assembler struct {
	reports  Repository
	patients Patients
	catalog  Catalog
	tx       db.TxRunner
	clock    *Clock
}

func NewAssembler(reports Repository, patients Patients, cat Catalog, tx db.TxRunner, clock *Clock) *Assembler {
	if clock == nil {
		clock = NewClock()
	}
	return &Assembler{reports: reports, patients: patients, catalog: cat, tx: tx, clock: clock}
}

func detailFor(it Item, t *catalog.Test) *ItemDetail {
	d := &ItemDetail{Item: it}
	if t == nil {
		return d
	}
	name, kind := t.Name, string(t.ResultType)
	d.TestName = &name
	d.ResultType = &kind
	d.Unit = t.Unit
	d.NormalMin = t.NormalMin
	d.NormalMax = t.NormalMax
	if len(t.NormalValues) > 0 {
		d.NormalValues = append([]string(nil), t.NormalValues...)
	}
	return d
}

// checkDistinct rejects inputs without a test id or naming a test twice.
func checkDistinct(items []ItemInput) error {
	seen := make(map[uuid.UUID]bool, len(items))
	for _, in := range items {
		if in.TestID == uuid.Nil {
			return apperr.Validation("testId is required for every item")
		}
		if seen[in.TestID] {
			return apperr.Validation("test %s appears more than once in the report", in.TestID)
		}
		seen[in.TestID] = true
	}
	return nil
}

// Build creates a report for patientID with the given results. Tests are
// resolved and results classified concurrently; nothing is written unless
// every item is valid. The returned detail carries the catalog fields as
// they were at build time.
func (a *Assembler) Build(ctx context.Context, patientID uuid.UUID, items []ItemInput) (*Detail, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patientId is required")
	}
	p, err := a.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := checkDistinct(items); err != nil {
		return nil, err
	}

	details := make([]*ItemDetail, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range items {
		g.Go(func() error {
			test, err := a.catalog.GetTest(gctx, in.TestID)
			if err != nil {
				return err
			}
			v, status, err := Classify(test, in.ResultValue)
			if err != nil {
				return err
			}
			details[i] = detailFor(Item{TestID: in.TestID, Value: v, Status: status}, test)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{PatientID: patientID, CreatedAt: a.clock.Now()}
	err = a.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := a.reports.CreateReport(ctx, rep); err != nil {
			return err
		}
		for _, d := range details {
			d.ReportID = rep.ID
			d.CreatedAt = a.clock.Now()
			if err := a.reports.CreateItem(ctx, &d.Item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// newest first, matching Read
	for i, j := 0, len(details)-1; i < j; i, j = i+1, j-1 {
		details[i], details[j] = details[j], details[i]
	}
	name := p.Name
	return &Detail{
		ID:          rep.ID,
		PatientID:   rep.PatientID,
		PatientName: &name,
		CreatedAt:   rep.CreatedAt,
		State:       stateOf(len(details)),
		Items:       details,
	}, nil
}

// Read loads a report and joins in the current patient name and catalog
// fields. A patient or test that has since been deleted reads as null.
func (a *Assembler) Read(ctx context.Context, id uuid.UUID) (*Detail, error) {
	rep, err := a.reports.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := a.reports.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if !seen[it.TestID] {
			seen[it.TestID] = true
			ids = append(ids, it.TestID)
		}
	}

	var (
		patientName *string
		tests       map[uuid.UUID]*catalog.Test
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := a.patients.Get(gctx, rep.PatientID)
		if apperr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		patientName = &p.Name
		return nil
	})
	g.Go(func() error {
		found, err := a.catalog.TestsByIDs(gctx, ids)
		tests = found
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details := make([]*ItemDetail, 0, len(items))
	for _, it := range items {
		details = append(details, detailFor(*it, tests[it.TestID]))
	}
	return &Detail{
		ID:          rep.ID,
		PatientID:   rep.PatientID,
		PatientName: patientName,
		CreatedAt:   rep.CreatedAt,
		State:       stateOf(len(details)),
		Items:       details,
	}, nil
}

// ReadItem loads one item with its test's current catalog fields.
func (a *Assembler) ReadItem(ctx context.Context, itemID uuid.UUID) (*ItemDetail, error) {
	it, err := a.reports.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	test, err := a.catalog.GetTest(ctx, it.TestID)
	if apperr.IsNotFound(err) {
		return detailFor(*it, nil), nil
	}
	if err != nil {
		return nil, err
	}
	return detailFor(*it, test), nil
}

// List returns report summaries, newest first, without their items.
func (a *Assembler) List(ctx context.Context, limit, offset int) ([]*Summary, int, error) {
	return a.reports.ListReports(ctx, limit, offset)
}

func (a *Assembler) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Summary, error) {
	if _, err := a.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	return a.reports.ListByPatient(ctx, patientID)
}
