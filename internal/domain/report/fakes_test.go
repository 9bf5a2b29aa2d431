package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Avii12105/medlab/internal/domain/catalog"
	"github.com/Avii12105/medlab/internal/domain/patient"
	"github.com/Avii12105/medlab/internal/platform/apperr"
	"github.com/Avii12105/medlab/internal/platform/db"
)

// -- Mock Repository --

type mockRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*Report
	items   map[uuid.UUID]*Item

	// calls records mutating calls in order, e.g. "delete_items", "delete_report".
	calls []string

	failDeleteReport error
	keepItemsOnPurge bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{reports: make(map[uuid.UUID]*Report), items: make(map[uuid.UUID]*Item)}
}

func (m *mockRepo) CreateReport(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	cp := *r
	m.reports[r.ID] = &cp
	m.calls = append(m.calls, "create_report")
	return nil
}

func (m *mockRepo) GetReport(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, apperr.NotFound("report", id)
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) LockReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return m.GetReport(ctx, id)
}

func (m *mockRepo) DeleteReport(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete_report")
	if m.failDeleteReport != nil {
		return m.failDeleteReport
	}
	if _, ok := m.reports[id]; !ok {
		return apperr.NotFound("report", id)
	}
	for _, it := range m.items {
		if it.ReportID == id {
			return apperr.Store("delete report", errFKViolation)
		}
	}
	delete(m.reports, id)
	return nil
}

func (m *mockRepo) summaries(match func(*Report) bool) []*Summary {
	var out []*Summary
	for _, r := range m.reports {
		if match(r) {
			out = append(out, &Summary{ID: r.ID, PatientID: r.PatientID, CreatedAt: r.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockRepo) ListReports(_ context.Context, limit, offset int) ([]*Summary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.summaries(func(*Report) bool { return true })
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries(func(r *Report) bool { return r.PatientID == patientID }), nil
}

func (m *mockRepo) CountByPatient(_ context.Context, patientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reports {
		if r.PatientID == patientID {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) CreateItem(_ context.Context, it *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ReportID == it.ReportID && existing.TestID == it.TestID {
			return apperr.Validation("report %s already has a result for test %s", it.ReportID, it.TestID)
		}
	}
	it.ID = uuid.New()
	cp := *it
	m.items[it.ID] = &cp
	m.calls = append(m.calls, "create_item")
	return nil
}

func (m *mockRepo) GetItem(_ context.Context, id uuid.UUID) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("report item", id)
	}
	cp := *it
	return &cp, nil
}

func (m *mockRepo) UpdateItem(_ context.Context, it *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[it.ID]
	if !ok {
		return apperr.NotFound("report item", it.ID)
	}
	it.ReportID, it.CreatedAt = existing.ReportID, existing.CreatedAt
	cp := *it
	m.items[it.ID] = &cp
	m.calls = append(m.calls, "update_item")
	return nil
}

func (m *mockRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("report item", id)
	}
	delete(m.items, id)
	m.calls = append(m.calls, "delete_item")
	return nil
}

func (m *mockRepo) ListItems(_ context.Context, reportID uuid.UUID) ([]*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Item{}
	for _, it := range m.items {
		if it.ReportID == reportID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockRepo) HasItem(_ context.Context, reportID, testID, exceptID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ReportID == reportID && it.TestID == testID && it.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) DeleteItemsByReport(_ context.Context, reportID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete_items")
	if m.keepItemsOnPurge {
		return 0, nil
	}
	var n int64
	for id, it := range m.items {
		if it.ReportID == reportID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) CountItems(_ context.Context, reportID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		if it.ReportID == reportID {
			n++
		}
	}
	return n, nil
}

type storeErr string

func (e storeErr) Error() string { return string(e) }

const errFKViolation = storeErr("report_items still reference the report")

// -- Mock lookups --

type mockPatients struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	cp := *p
	return &cp, nil
}

type mockCatalog struct {
	mu    sync.Mutex
	tests map[uuid.UUID]*catalog.Test
}

func (m *mockCatalog) GetTest(_ context.Context, id uuid.UUID) (*catalog.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok {
		return nil, apperr.NotFound("test", id)
	}
	cp := *t
	return &cp, nil
}

func (m *mockCatalog) TestsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]*catalog.Test)
	for _, id := range ids {
		if t, ok := m.tests[id]; ok {
			cp := *t
			out[id] = &cp
		}
	}
	return out, nil
}

// -- Fixture --

type fixture struct {
	repo     *mockRepo
	patients *mockPatients
	catalog  *mockCatalog
	lc       *Lifecycle

	patientID uuid.UUID
	wbcID     uuid.UUID
	hgbID     uuid.UUID
	hivID     uuid.UUID
}

// newFixture wires a Lifecycle over in-memory stores holding one patient and
// three tests: WBC (4-11), Hemoglobin (12-16) and a textual HIV screen.
func newFixture() *fixture {
	f := &fixture{
		repo:      newMockRepo(),
		patients:  &mockPatients{patients: make(map[uuid.UUID]*patient.Patient)},
		catalog:   &mockCatalog{tests: make(map[uuid.UUID]*catalog.Test)},
		patientID: uuid.New(),
		wbcID:     uuid.New(),
		hgbID:     uuid.New(),
		hivID:     uuid.New(),
	}
	f.patients.patients[f.patientID] = &patient.Patient{ID: f.patientID, Name: "Amina Yusuf", Age: 34}

	wbc := wbcTest()
	wbc.ID = f.wbcID
	hgb := &catalog.Test{ID: f.hgbID, Name: "Hemoglobin", ResultType: catalog.ResultNumeric, NormalMin: f64(12), NormalMax: f64(16)}
	hiv := hivTest()
	hiv.ID = f.hivID
	for _, t := range []*catalog.Test{wbc, hgb, hiv} {
		f.catalog.tests[t.ID] = t
	}

	// strictly increasing timestamps keep newest-first ordering deterministic
	tick := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := &Clock{now: func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}}
	a := NewAssembler(f.repo, f.patients, f.catalog, db.NoTx{}, clock)
	f.lc = NewLifecycle(a, zerolog.Nop())
	return f
}
