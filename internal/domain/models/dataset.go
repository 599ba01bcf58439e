package models

import (
	"fmt"
	"time"
)

// Dataset is a time-indexed table of named numeric columns. Missing
// observations are nil entries; the column order is significant.
type Dataset struct {
	Index   []time.Time `json:"index,omitempty"`
	Columns []Column    `json:"columns" validate:"required,min=1,dive"`
}

// Column is one named series of raw observations.
type Column struct {
	Name   string     `json:"name" validate:"required"`
	Values []*float64 `json:"values"`
}

// Series is a cleaned, finite-valued sequence ready for estimation.
type Series []float64

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// Validate rejects datasets whose columns cannot be addressed unambiguously.
// Per-column shape problems are left to extraction so they stay local to
// the column.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("dataset is nil")
	}
	seen := make(map[string]struct{}, len(d.Columns))
	for i, c := range d.Columns {
		if c.Name == "" {
			return fmt.Errorf("column %d: empty name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("column %q: duplicate name", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Float returns a pointer to v; convenient when building columns by hand.
func Float(v float64) *float64 { return &v }

// Floats converts a dense slice into column values with no missing entries.
func Floats(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		out[i] = Float(vs[i])
	}
	return out
}
