package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ResultType selects how a test's results are recorded and classified.
type ResultType string

const (
	ResultNumeric ResultType = "NUMERIC"
	ResultTextual ResultType = "TEXTUAL"
)

func (t ResultType) Valid() bool {
	return t == ResultNumeric || t == ResultTextual
}

// Category maps to the test_categories table.
type Category struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Test maps to the tests table. CategoryName is filled from test_categories
// on reads and is nil when the category no longer exists.
type Test struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	CategoryID   uuid.UUID  `db:"category_id" json:"category_id"`
	CategoryName *string    `db:"category_name" json:"category_name"`
	Name         string     `db:"name" json:"name"`
	ResultType   ResultType `db:"result_type" json:"result_type"`
	NormalMin    *float64   `db:"normal_min" json:"normal_min"`
	NormalMax    *float64   `db:"normal_max" json:"normal_max"`
	NormalValues []string   `db:"normal_values" json:"normal_values"`
	Unit         *string    `db:"unit" json:"unit"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

func (t *Test) HasRange() bool {
	return t.NormalMin != nil || t.NormalMax != nil
}
