// Package migrate runs the archive upgrade: every step, in a fixed order,
// inside one transaction that is committed only when all of them succeed.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/minutes-janitor/internal/codepage"
	"github.com/franz/minutes-janitor/internal/evolve"
	"github.com/franz/minutes-janitor/internal/report"
	"github.com/franz/minutes-janitor/internal/stats"
	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/textfix"
	"github.com/franz/minutes-janitor/internal/util"
)

// Config holds driver configuration
type Config struct {
	Store    *store.Store
	Force    bool // Recompute derived columns that already exist
	Commit   bool // Persist the run; off means a dry run
	Vacuum   bool // Compact the archive after committing
	Progress bool // Draw progress bars
	Logger   *report.EventLogger
	Decoder  *codepage.Decoder // Defaults to the Mac Roman fallback
}

// Driver sequences the upgrade steps
type Driver struct {
	store    *store.Store
	force    bool
	commit   bool
	vacuum   bool
	fixer    *codepage.Fixer
	evolver  *evolve.Evolver
	logger   *report.EventLogger
	summary  *report.RunSummary
	encoding codepage.Resolution
}

// New creates a new Driver
func New(cfg *Config) *Driver {
	return &Driver{
		store:   cfg.Store,
		force:   cfg.Force,
		commit:  cfg.Commit,
		vacuum:  cfg.Vacuum,
		fixer:   codepage.New(&codepage.Config{Decoder: cfg.Decoder, Progress: cfg.Progress}),
		evolver: evolve.New(cfg.Force),
		logger:  cfg.Logger,
	}
}

// Column steps run after the text passes; the statistics rebuild sits
// between GroupStep and RecordingCountStep.
var (
	preStatsSteps  = []evolve.Step{evolve.LastNameStep, evolve.GroupStep}
	postStatsSteps = []evolve.Step{evolve.RecordingCountStep, evolve.ComposerStep, evolve.PoetStep}
)

// Run executes every step. Any failure aborts the run and the transaction
// is rolled back, leaving the archive as it was.
func (d *Driver) Run(ctx context.Context) (*report.RunSummary, error) {
	start := time.Now()
	d.summary = &report.RunSummary{
		RunID:        d.logger.RunID(),
		GeneratedAt:  start,
		DatabasePath: d.store.Path(),
		EventLogPath: d.logger.Path(),
		Force:        d.force,
		SizeAfter:    -1,
	}
	d.encoding = codepage.Resolution{}
	if size, err := d.store.Size(); err == nil {
		d.summary.SizeBefore = size
	}

	tx, err := d.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := d.runSteps(ctx, tx); err != nil {
		d.logger.LogError(report.EventError, "", err)
		return d.summary, err
	}

	if !d.commit {
		if err := tx.Rollback(); err != nil {
			return d.summary, fmt.Errorf("failed to discard changes: %w", err)
		}
		d.summary.Duration = time.Since(start)
		d.logger.LogFinish(report.EventRollback, d.summary.Duration, nil)
		util.WarnLog("Dry run: discarding %s row changes", util.Count(d.summary.TotalRows()))
		return d.summary, nil
	}

	util.InfoLog("Committing")
	if err := tx.Commit(); err != nil {
		return d.summary, fmt.Errorf("failed to commit: %w", err)
	}
	d.summary.Committed = true
	d.logger.LogFinish(report.EventCommit, time.Since(start), nil)

	if d.vacuum {
		util.InfoLog("Vacuuming database")
		vacuumStart := time.Now()
		if err := d.store.Vacuum(ctx); err != nil {
			d.logger.LogError(report.EventVacuum, "", err)
			return d.summary, err
		}
		d.summary.Vacuumed = true
		d.logger.LogFinish(report.EventVacuum, time.Since(vacuumStart), nil)
	}

	if size, err := d.store.Size(); err == nil {
		d.summary.SizeAfter = size
	}
	d.summary.Duration = time.Since(start)
	return d.summary, nil
}

func (d *Driver) runSteps(ctx context.Context, tx *sql.Tx) error {
	if err := d.fixEncoding(ctx, tx); err != nil {
		return err
	}
	if err := d.normalizeText(ctx, tx); err != nil {
		return err
	}
	for _, step := range preStatsSteps {
		if err := d.applyStep(ctx, tx, step); err != nil {
			return err
		}
	}
	if err := d.rebuildStatistics(ctx, tx); err != nil {
		return err
	}
	for _, step := range postStatsSteps {
		if err := d.applyStep(ctx, tx, step); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) fixEncoding(ctx context.Context, tx *sql.Tx) error {
	util.InfoLog("Fixing code page problems (try UTF-8, fall back on Mac Roman)")

	result, res, err := d.fixer.FixAll(ctx, tx, d.encoding)
	if err != nil {
		return fmt.Errorf("code page pass: %w", err)
	}
	d.encoding = res

	for _, tr := range result.Tables {
		if tr.Skipped {
			continue
		}
		util.InfoLog("    %s: converted %d strings to UTF-8", tr.Table, tr.Fallbacks)
		d.logger.LogEncoding(tr.Table, tr.Rows, tr.Fallbacks, tr.Updated)
	}
	d.summary.Fallbacks = result.Fallbacks
	d.summary.AddStep("code page", fmt.Sprintf("%d fallback decodes", result.Fallbacks), result.Updated)
	return nil
}

func (d *Driver) normalizeText(ctx context.Context, tx *sql.Tx) error {
	util.InfoLog("Replacing literal newlines in minutes text")
	n, err := textfix.CollapseEscapedNewlines(ctx, tx)
	if err != nil {
		return fmt.Errorf("escaped newlines: %w", err)
	}
	util.InfoLog("    updated %s records", util.Count(n))
	d.logger.LogNormalize(store.TableSessions, "", "escaped-newline", n)
	d.summary.AddStep("sessions text", "escaped newlines collapsed", n)

	util.InfoLog("Replacing vertical tabs with line breaks")
	changed, err := textfix.ReplaceVerticalTabs(ctx, tx)
	if err != nil {
		return fmt.Errorf("vertical tabs: %w", err)
	}
	for _, table := range []string{store.TableSessions, store.TableSongs} {
		util.InfoLog("    %s: updated %s records", table, util.Count(changed[table]))
		d.logger.LogNormalize(table, "", "vertical-tab", changed[table])
		d.summary.AddStep(table+" text", "vertical tabs replaced", changed[table])
	}
	return nil
}

func (d *Driver) applyStep(ctx context.Context, tx *sql.Tx, step evolve.Step) error {
	start := time.Now()
	res, err := d.evolver.Apply(ctx, tx, step)
	if err != nil {
		return err
	}
	d.logger.LogColumn(step.Table, step.Column, res.Added, res.Recomputed, res.Rows, time.Since(start))

	detail := "present"
	switch {
	case res.Added:
		detail = "added"
	case res.Recomputed:
		detail = "recomputed"
	}
	if res.Recomputed {
		util.InfoLog("    %s: %s rows updated", step.Name(), util.Count(res.Rows))
	}
	d.summary.AddStep(step.Name(), detail, res.Rows)
	return nil
}

func (d *Driver) rebuildStatistics(ctx context.Context, tx *sql.Tx) error {
	util.InfoLog("Rebuilding table '%s'", store.TableStatistics)
	result, err := stats.Rebuild(ctx, tx)
	if err != nil {
		return fmt.Errorf("period statistics: %w", err)
	}
	if len(result.Orphans) > 0 {
		util.WarnLog("    %d leads reference unknown songs or periods and were not counted", len(result.Orphans))
	}
	util.InfoLog("    %d songs x %d periods, %s distinct leads", result.Songs, result.Periods, util.Count(int64(result.Leads)))
	d.logger.LogStatistics(result.Songs, result.Periods, result.Leads, len(result.Orphans), result.Rows)
	d.summary.AddStep(store.TableStatistics, "replaced", result.Rows)
	return nil
}
