package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/franz/minutes-janitor/internal/migrate"
	"github.com/franz/minutes-janitor/internal/report"
	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the archive to the canonical schema",
	Long: `Upgrade the archive in place.

Steps, in order, inside one transaction:
- Recover text stored in the legacy code page (every table)
- Collapse escaped newlines in session names, locations and minutes
- Replace vertical tabs in minutes and lyrics
- Add and derive leaders.last_name and leading_events.group_id
- Rebuild period_statistics
- Add and derive sessions.recording_count, songs.composer and songs.poet

Derived columns are recomputed even when present unless --force=false.
With --dry-run every change is discarded at the end of the run.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("force", true, "Recompute derived columns that already exist")
	migrateCmd.Flags().Bool("dry-run", false, "Run every step, then discard the changes")
	migrateCmd.Flags().Bool("no-vacuum", false, "Skip compaction after commit")
	migrateCmd.Flags().String("artifacts", "artifacts", "Directory for the event log and run report")

	viper.BindPFlag("force", migrateCmd.Flags().Lookup("force"))
	viper.BindPFlag("dry-run", migrateCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("no-vacuum", migrateCmd.Flags().Lookup("no-vacuum"))
	viper.BindPFlag("artifacts", migrateCmd.Flags().Lookup("artifacts"))
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dbPath, err := requireDBPath()
	if err != nil {
		return err
	}
	artifactsDir := GetConfigString("artifacts", "artifacts")

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer s.Close()

	logger, err := report.NewEventLogger(artifactsDir, report.LevelInfo)
	if err != nil {
		util.WarnLog("Failed to create event log: %v", err)
		logger = report.NullLogger()
	} else {
		defer logger.Close()
		util.DebugLog("Event log: %s", logger.Path())
	}

	// Interrupts cancel the run; the open transaction is rolled back
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := migrate.New(&migrate.Config{
		Store:    s,
		Force:    util.GetForceRecompute(),
		Commit:   util.GetCommitChanges(),
		Vacuum:   util.GetVacuum(),
		Progress: util.ShowProgress(),
		Logger:   logger,
	})

	util.InfoLog("Upgrading %s", dbPath)
	summary, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration aborted, archive left unchanged: %w", err)
	}

	printSummary(summary)

	reportPath := filepath.Join(artifactsDir, fmt.Sprintf("migrate-%s.md", summary.GeneratedAt.Format("20060102-150405")))
	if err := report.WriteMarkdownReport(summary, reportPath); err != nil {
		util.WarnLog("Failed to write run report: %v", err)
	} else {
		util.InfoLog("Report: %s", reportPath)
	}
	return nil
}

func printSummary(s *report.RunSummary) {
	util.InfoLog("")
	util.InfoLog("=== Migration Summary ===")
	for _, step := range s.Steps {
		util.InfoLog("  %-32s %-10s %s rows", step.Name, step.Detail, util.Count(step.Rows))
	}
	util.InfoLog("")
	util.InfoLog("Code page fallbacks: %s", util.Count(int64(s.Fallbacks)))
	util.InfoLog("Rows written:        %s", util.Count(s.TotalRows()))
	if s.SizeAfter >= 0 {
		util.InfoLog("Size:                %s -> %s", util.FormatBytes(s.SizeBefore), util.FormatBytes(s.SizeAfter))
	}
	util.InfoLog("Duration:            %s", s.Duration.Round(time.Millisecond))

	if s.Committed {
		util.SuccessLog("✓ Migration %s", s.Mode())
	} else {
		util.WarnLog("Migration %s", s.Mode())
	}
}
