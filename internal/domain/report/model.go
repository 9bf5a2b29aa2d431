package report

import (
	"time"

	"github.com/google/uuid"
)

// State is derived from the item count and never stored.
type State string

const (
	StateCreated   State = "CREATED"
	StatePopulated State = "POPULATED"
)

func stateOf(itemCount int) State {
	if itemCount == 0 {
		return StateCreated
	}
	return StatePopulated
}

// Report maps to the reports table.
type Report struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Item maps to the report_items table.
type Item struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	ReportID  uuid.UUID   `db:"report_id" json:"report_id"`
	TestID    uuid.UUID   `db:"test_id" json:"test_id"`
	Value     ResultValue `db:"result_value" json:"result_value"`
	Status    Status      `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// ItemDetail is an item with its test's catalog fields inlined. The catalog
// fields are nil when the test no longer exists.
type ItemDetail struct {
	Item
	TestName     *string  `json:"test_name"`
	ResultType   *string  `json:"result_type"`
	Unit         *string  `json:"unit"`
	NormalMin    *float64 `json:"normal_min"`
	NormalMax    *float64 `json:"normal_max"`
	NormalValues []string `json:"normal_values,omitempty"`
}

// Detail is a report with its patient name and items inlined, newest item
// first.
type Detail struct {
	ID          uuid.UUID     `json:"id"`
	PatientID   uuid.UUID     `json:"patient_id"`
	PatientName *string       `json:"patient_name"`
	CreatedAt   time.Time     `json:"created_at"`
	State       State         `json:"state"`
	Items       []*ItemDetail `json:"items"`
}

// Summary is the list view of a report; items are not loaded.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName *string   `json:"patient_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemInput is one result to attach to a report.
type ItemInput struct {
	TestID      uuid.UUID `json:"testId"`
	ResultValue RawValue  `json:"resultValue"`
}

// ItemUpdate changes an item's test, its value, or both. Nil or empty fields
// keep their current value.
type ItemUpdate struct {
	TestID      *uuid.UUID `json:"testId"`
	ResultValue RawValue   `json:"resultValue"`
}
