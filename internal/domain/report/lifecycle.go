package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Avii12105/medlab/internal/platform/apperr"
)

// Lifecycle sequences the multi-step report mutations. Item writes run under
// a row lock on the owning report, so the one-result-per-test check and the
// insert see the same snapshot.
type Lifecycle struct {
	*Assembler
	log zerolog.Logger
}

func NewLifecycle(a *Assembler, logger zerolog.Logger) *Lifecycle {
	return &Lifecycle{Assembler: a, log: logger.With().Str("component", "report_lifecycle").Logger()}
}

// CreateReport opens an empty report for an existing patient.
func (l *Lifecycle) CreateReport(ctx context.Context, patientID uuid.UUID) (*Detail, error) {
	return l.Build(ctx, patientID, nil)
}

// AddItem attaches a classified result to a report.
func (l *Lifecycle) AddItem(ctx context.Context, reportID uuid.UUID, in ItemInput) (*ItemDetail, error) {
	if in.TestID == uuid.Nil {
		return nil, apperr.Validation("testId is required")
	}

	var out *ItemDetail
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := l.reports.LockReport(ctx, reportID); err != nil {
			return err
		}
		test, err := l.catalog.GetTest(ctx, in.TestID)
		if err != nil {
			return err
		}
		dup, err := l.reports.HasItem(ctx, reportID, in.TestID, uuid.Nil)
		if err != nil {
			return err
		}
		if dup {
			return apperr.Validation("report %s already has a result for test %s", reportID, in.TestID)
		}

		v, status, err := Classify(test, in.ResultValue)
		if err != nil {
			return err
		}
		it := Item{ReportID: reportID, TestID: in.TestID, Value: v, Status: status, CreatedAt: l.clock.Now()}
		if err := l.reports.CreateItem(ctx, &it); err != nil {
			return err
		}
		out = detailFor(it, test)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem changes an item's test or value and reclassifies it. When only
// the test changes, the stored value is re-read under the new test's type.
// An update that changes nothing leaves the stored status alone.
func (l *Lifecycle) UpdateItem(ctx context.Context, itemID uuid.UUID, upd ItemUpdate) (*ItemDetail, error) {
	if upd.TestID == nil && upd.ResultValue.IsZero() {
		return nil, apperr.Validation("testId or resultValue is required")
	}
	if upd.TestID != nil && *upd.TestID == uuid.Nil {
		return nil, apperr.Validation("testId must not be empty")
	}

	var out *ItemDetail
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, err := l.reports.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := l.reports.LockReport(ctx, it.ReportID); err != nil {
			return err
		}

		testID := it.TestID
		if upd.TestID != nil {
			testID = *upd.TestID
		}
		raw := upd.ResultValue
		if raw.IsZero() {
			raw = it.Value.Raw()
		}

		test, err := l.catalog.GetTest(ctx, testID)
		if err != nil {
			return err
		}
		if testID != it.TestID {
			dup, err := l.reports.HasItem(ctx, it.ReportID, testID, it.ID)
			if err != nil {
				return err
			}
			if dup {
				return apperr.Validation("report %s already has a result for test %s", it.ReportID, testID)
			}
		}

		v, status, err := Classify(test, raw)
		if err != nil {
			return err
		}
		if testID == it.TestID && v == it.Value {
			out = detailFor(*it, test)
			return nil
		}

		it.TestID, it.Value, it.Status = testID, v, status
		if err := l.reports.UpdateItem(ctx, it); err != nil {
			return err
		}
		out = detailFor(*it, test)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Lifecycle) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return l.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, err := l.reports.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := l.reports.LockReport(ctx, it.ReportID); err != nil {
			return err
		}
		return l.reports.DeleteItem(ctx, itemID)
	})
}

// DeleteReport removes every item of the report, checks that none remain,
// then removes the report. A failure after the items are gone is logged and
// returned; it is never retried here.
func (l *Lifecycle) DeleteReport(ctx context.Context, reportID uuid.UUID) error {
	return l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := l.reports.LockReport(ctx, reportID); err != nil {
			return err
		}

		deleted, err := l.reports.DeleteItemsByReport(ctx, reportID)
		if err != nil {
			return err
		}
		remaining, err := l.reports.CountItems(ctx, reportID)
		if err != nil {
			return err
		}
		if remaining != 0 {
			return apperr.Store("delete report items",
				fmt.Errorf("%d item(s) still reference report %s", remaining, reportID))
		}

		if err := l.reports.DeleteReport(ctx, reportID); err != nil {
			l.log.Error().Err(err).
				Str("report_id", reportID.String()).
				Int64("items_deleted", deleted).
				Msg("report delete failed after its items were removed")
			return apperr.Store("delete report", err)
		}

		l.log.Info().
			Str("report_id", reportID.String()).
			Int64("items_deleted", deleted).
			Msg("report deleted")
		return nil
	})
}
