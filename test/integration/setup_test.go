//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Avii12105/medlab/internal/domain/catalog"
	"github.com/Avii12105/medlab/internal/domain/patient"
	"github.com/Avii12105/medlab/internal/domain/report"
	"github.com/Avii12105/medlab/internal/platform/db"
)

// globalPool is shared by every test; it is migrated once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	if err := migrate(ctx, connStr); err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, connStr, 8, 1, 0)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to open pool: %v\n", err)
		os.Exit(1)
	}
	globalPool = pool

	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

func migrate(ctx context.Context, connStr string) error {
	m, err := db.NewMigrator(ctx, connStr)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up(ctx)
}

// stack wires the services the way the server does.
type stack struct {
	patients  *patient.Service
	catalog   *catalog.Service
	reports   report.Repository
	lifecycle *report.Lifecycle
}

func newStack() *stack {
	reportRepo := report.NewRepoPG(globalPool)
	patientSvc := patient.NewService(patient.NewRepoPG(globalPool), reportRepo)
	catalogSvc := catalog.NewService(catalog.NewCategoryRepoPG(globalPool), catalog.NewTestRepoPG(globalPool))
	a := report.NewAssembler(reportRepo, patientSvc, catalogSvc, db.NewTxRunner(globalPool), report.NewClock())
	return &stack{
		patients:  patientSvc,
		catalog:   catalogSvc,
		reports:   reportRepo,
		lifecycle: report.NewLifecycle(a, zerolog.Nop()),
	}
}

func ptrStr(s string) *string { return &s }
func ptrFloat(f float64) *float64 { return &f }

func createPatient(t *testing.T, s *stack, name string, age int) *patient.Patient {
	t.Helper()
	p := &patient.Patient{Name: name, Age: age}
	if err := s.patients.Create(context.Background(), p); err != nil {
		t.Fatalf("create patient %s: %v", name, err)
	}
	return p
}

func createCategory(t *testing.T, s *stack, name string) *catalog.Category {
	t.Helper()
	c := &catalog.Category{Name: name}
	if err := s.catalog.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func createNumericTest(t *testing.T, s *stack, cat *catalog.Category, name string, min, max float64, unit string) *catalog.Test {
	t.Helper()
	tt := &catalog.Test{
		CategoryID: cat.ID,
		Name:       name,
		ResultType: catalog.ResultNumeric,
		NormalMin:  ptrFloat(min),
		NormalMax:  ptrFloat(max),
		Unit:       ptrStr(unit),
	}
	if err := s.catalog.CreateTest(context.Background(), tt); err != nil {
		t.Fatalf("create test %s: %v", name, err)
	}
	return tt
}

func createTextualTest(t *testing.T, s *stack, cat *catalog.Category, name string, values ...string) *catalog.Test {
	t.Helper()
	tt := &catalog.Test{
		CategoryID:   cat.ID,
		Name:         name,
		ResultType:   catalog.ResultTextual,
		NormalValues: values,
	}
	if err := s.catalog.CreateTest(context.Background(), tt); err != nil {
		t.Fatalf("create test %s: %v", name, err)
	}
	return tt
}
