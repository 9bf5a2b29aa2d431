package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Avii12105/medlab/internal/domain/catalog"
	"github.com/Avii12105/medlab/internal/platform/apperr"
)

func TestCreateReport(t *testing.T) {
	f := newFixture()
	d, err := f.lc.CreateReport(context.Background(), f.patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.State != StateCreated {
		t.Errorf("expected CREATED, got %s", d.State)
	}
	if _, err := f.lc.CreateReport(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for unknown patient, got %v", err)
	}
	if _, err := f.lc.CreateReport(context.Background(), uuid.Nil); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for empty patient id, got %v", err)
	}
}

func TestAddItem_SecondAddForSameTestFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rep, _ := f.lc.CreateReport(ctx, f.patientID)

	first, err := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID, ResultValue: Num(7)})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first.Status != StatusNormal {
		t.Errorf("expected NORMAL, got %s", first.Status)
	}

	_, err = f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID, ResultValue: Num(9)})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	items, _ := f.repo.ListItems(ctx, rep.ID)
	if len(items) != 1 || items[0].ID != first.ID {
		t.Errorf("expected exactly the first item to persist, got %d", len(items))
	}

	d, _ := f.lc.Read(ctx, rep.ID)
	if d.State != StatePopulated {
		t.Errorf("expected POPULATED, got %s", d.State)
	}
}

func TestAddItem_Failures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rep, _ := f.lc.CreateReport(ctx, f.patientID)

	if _, err := f.lc.AddItem(ctx, uuid.New(), ItemInput{TestID: f.wbcID, ResultValue: Num(7)}); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for unknown report, got %v", err)
	}
	if _, err := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: uuid.New(), ResultValue: Num(7)}); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for unknown test, got %v", err)
	}
	if _, err := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for missing value, got %v", err)
	}
	if _, err := f.lc.AddItem(ctx, rep.ID, ItemInput{ResultValue: Num(1)}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for missing test, got %v", err)
	}
	if len(f.repo.items) != 0 {
		t.Errorf("expected no items, got %d", len(f.repo.items))
	}
}

func TestUpdateItem_ReclassifiesOnValueChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rep, _ := f.lc.CreateReport(ctx, f.patientID)
	it, _ := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID, ResultValue: Num(7)})

	got, err := f.lc.UpdateItem(ctx, it.ID, ItemUpdate{ResultValue: Num(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusLow || got.Value.Number != 2 {
		t.Errorf("expected LOW 2, got %s %v", got.Status, got.Value)
	}
	stored, _ := f.repo.GetItem(ctx, it.ID)
	if stored.Status != StatusLow {
		t.Errorf("expected stored status LOW, got %s", stored.Status)
	}
}

func TestUpdateItem_UnchangedValueKeepsStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rep, _ := f.lc.CreateReport(ctx, f.patientID)
	it, _ := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID, ResultValue: Num(12)})

	f.catalog.tests[f.wbcID].NormalMax = f64(20)
	got, err := f.lc.UpdateItem(ctx, it.ID, ItemUpdate{ResultValue: Num(12)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusHigh {
		t.Errorf("expected status from write time, got %s", got.Status)
	}
	for _, c := range f.repo.calls {
		if c == "update_item" {
			t.Error("expected no write for an unchanged item")
		}
	}
}

func TestUpdateItem_ChangeTest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rep, _ := f.lc.CreateReport(ctx, f.patientID)
	wbc, _ := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID, ResultValue: Num(13)})
	f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.hivID, ResultValue: Text("Negative")})

	// value 13 re-read under Hemoglobin's 12-16 range
	got, err := f.lc.UpdateItem(ctx, wbc.ID, ItemUpdate{TestID: &f.hgbID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TestID != f.hgbID || got.Status != StatusNormal {
		t.Errorf("expected hemoglobin NORMAL, got %s %s", got.TestID, got.Status)
	}
	if got.TestName == nil || *got.TestName != "Hemoglobin" {
		t.Errorf("expected new test name, got %v", got.TestName)
	}

	// moving onto a test the report already has is a conflict
	if _, err := f.lc.UpdateItem(ctx, wbc.ID, ItemUpdate{TestID: &f.hivID}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	// a textual value cannot move onto a numeric test
	hiv, _ := f.repo.HasItem(ctx, rep.ID, f.hivID, uuid.Nil)
	if !hiv {
		t.Fatal("expected HIV item to exist")
	}
	items, _ := f.repo.ListItems(ctx, rep.ID)
	var hivItem *Item
	for _, it := range items {
		if it.TestID == f.hivID {
			hivItem = it
		}
	}
	if _, err := f.lc.UpdateItem(ctx, hivItem.ID, ItemUpdate{TestID: &f.wbcID}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error re-reading text as a number, got %v", err)
	}
}

func TestUpdateItem_Failures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rep, _ := f.lc.CreateReport(ctx, f.patientID)
	it, _ := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID, ResultValue: Num(7)})

	missing := uuid.New()
	nilID := uuid.Nil
	cases := []struct {
		name  string
		id    uuid.UUID
		upd   ItemUpdate
		check func(error) bool
	}{
		{"empty update", it.ID, ItemUpdate{}, apperr.IsValidation},
		{"nil test id", it.ID, ItemUpdate{TestID: &nilID}, apperr.IsValidation},
		{"unknown item", uuid.New(), ItemUpdate{ResultValue: Num(1)}, apperr.IsNotFound},
		{"unknown test", it.ID, ItemUpdate{TestID: &missing}, apperr.IsNotFound},
		{"non-numeric", it.ID, ItemUpdate{ResultValue: Text("n/a")}, apperr.IsValidation},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.lc.UpdateItem(ctx, tt.id, tt.upd); !tt.check(err) {
				t.Errorf("unexpected error kind: %v", err)
			}
		})
	}
}

func TestDeleteItem_RevertsToCreated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rep, _ := f.lc.CreateReport(ctx, f.patientID)
	it, _ := f.lc.AddItem(ctx, rep.ID, ItemInput{TestID: f.wbcID, ResultValue: Num(7)})

	if err := f.lc.DeleteItem(ctx, it.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, _ := f.lc.Read(ctx, rep.ID)
	if d.State != StateCreated {
		t.Errorf("expected CREATED after last item removed, got %s", d.State)
	}
	if err := f.lc.DeleteItem(ctx, it.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteReport_RemovesItemsFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d, _ := f.lc.Build(ctx, f.patientID, []ItemInput{
		{TestID: f.wbcID, ResultValue: Num(5)},
		{TestID: f.hgbID, ResultValue: Num(13)},
		{TestID: f.hivID, ResultValue: Text("Negative")},
	})
	other, _ := f.lc.Build(ctx, f.patientID, []ItemInput{{TestID: f.wbcID, ResultValue: Num(6)}})
	f.repo.calls = nil

	if err := f.lc.DeleteReport(ctx, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := f.repo.CountItems(ctx, d.ID); n != 0 {
		t.Errorf("expected no items left, got %d", n)
	}
	if got := strings.Join(f.repo.calls, ","); got != "delete_items,delete_report" {
		t.Errorf("expected items deleted before report, got %s", got)
	}
	if _, err := f.lc.Read(ctx, d.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected report gone, got %v", err)
	}
	if n, _ := f.repo.CountItems(ctx, other.ID); n != 1 {
		t.Errorf("other report's items must survive, got %d", n)
	}
}

func TestDeleteReport_NotFound(t *testing.T) {
	f := newFixture()
	if err := f.lc.DeleteReport(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if len(f.repo.calls) != 0 {
		t.Errorf("expected no writes, got %v", f.repo.calls)
	}
}

func TestDeleteReport_ItemsLeftBehindIsFatal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d, _ := f.lc.Build(ctx, f.patientID, []ItemInput{{TestID: f.wbcID, ResultValue: Num(5)}})
	f.repo.keepItemsOnPurge = true
	f.repo.calls = nil

	err := f.lc.DeleteReport(ctx, d.ID)
	if !apperr.IsStore(err) {
		t.Fatalf("expected store error, got %v", err)
	}
	for _, c := range f.repo.calls {
		if c == "delete_report" {
			t.Error("report must not be deleted while items remain")
		}
	}
}

func TestDeleteReport_PartialFailureSurfaced(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d, _ := f.lc.Build(ctx, f.patientID, []ItemInput{{TestID: f.wbcID, ResultValue: Num(5)}})
	cause := errors.New("connection reset by peer")
	f.repo.failDeleteReport = cause

	err := f.lc.DeleteReport(ctx, d.ID)
	if !apperr.IsStore(err) || !errors.Is(err, cause) {
		t.Fatalf("expected store error wrapping the cause, got %v", err)
	}
	if _, err := f.repo.GetReport(ctx, d.ID); err != nil {
		t.Errorf("report should still exist after the failed delete: %v", err)
	}
	if n, _ := f.repo.CountItems(ctx, d.ID); n != 0 {
		t.Errorf("without a transaction the items stay deleted, got %d", n)
	}
}

func TestCountByPatient_GuardsPatientDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.lc.CreateReport(ctx, f.patientID)
	n, err := f.repo.CountByPatient(ctx, f.patientID)
	if err != nil || n != 1 {
		t.Errorf("expected 1 report, got %d (%v)", n, err)
	}
}

func TestScenario_TextualNormalValues(t *testing.T) {
	test := &catalog.Test{ResultType: catalog.ResultTextual, NormalValues: []string{"Negative", "Positive"}}
	_, status, err := Classify(test, Text("Positive"))
	if err != nil || status != StatusNormal {
		t.Errorf("expected NORMAL, got %s (%v)", status, err)
	}
}
