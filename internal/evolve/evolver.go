// Package evolve adds derived columns to the archive and fills them in.
//
// Whether a column exists is read from the table's declared column list,
// so a store error can never be mistaken for an absent column. The same
// check makes every step idempotent: a column that already exists is left
// alone unless recomputation is forced.
package evolve

import (
	"context"
	"fmt"

	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/util"
)

// Derive fills in a column for every row, returning the rows changed
type Derive func(ctx context.Context, q store.Querier) (int64, error)

// Step is one derived column
type Step struct {
	Table  string
	Column string
	Type   string
	Derive Derive
}

// Name returns table.column
func (s Step) Name() string {
	return s.Table + "." + s.Column
}

// Result reports what Apply did for one step
type Result struct {
	Step       string
	Added      bool
	Recomputed bool
	Rows       int64
}

// Evolver applies steps
type Evolver struct {
	force bool
}

// New creates an Evolver. With force set, existing columns are recomputed.
func New(force bool) *Evolver {
	return &Evolver{force: force}
}

// Apply adds the step's column if the table lacks it, then derives its
// values if it was just added or recomputation is forced.
func (e *Evolver) Apply(ctx context.Context, q store.Querier, step Step) (Result, error) {
	result := Result{Step: step.Name()}

	exists, err := store.HasColumn(ctx, q, step.Table, step.Column)
	if err != nil {
		return result, fmt.Errorf("failed to inspect %s: %w", step.Name(), err)
	}

	if !exists {
		util.InfoLog("Adding '%s' column to '%s' table", step.Column, step.Table)
		if err := store.AddColumn(ctx, q, step.Table, step.Column, step.Type); err != nil {
			return result, err
		}
		result.Added = true
	}

	if exists && !e.force {
		util.DebugLog("    %s already present, skipping", step.Name())
		return result, nil
	}

	rows, err := step.Derive(ctx, q)
	if err != nil {
		return result, fmt.Errorf("failed to derive %s: %w", step.Name(), err)
	}
	result.Recomputed = true
	result.Rows = rows
	return result, nil
}
