package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/minutes-janitor/internal/util"
)

// StepSummary is one line of the run report
type StepSummary struct {
	Name   string
	Detail string
	Rows   int64
}

// RunSummary describes a finished migration run
type RunSummary struct {
	RunID        string
	GeneratedAt  time.Time
	Duration     time.Duration
	DatabasePath string
	EventLogPath string

	Committed bool
	Vacuumed  bool
	Force     bool

	Fallbacks  int   // text values recovered from the legacy code page
	SizeBefore int64 // archive size in bytes before the run
	SizeAfter  int64 // after commit and vacuum; -1 if unknown

	Steps []StepSummary
}

// AddStep appends a step line
func (r *RunSummary) AddStep(name, detail string, rows int64) {
	r.Steps = append(r.Steps, StepSummary{Name: name, Detail: detail, Rows: rows})
}

// Mode describes how the run ended
func (r *RunSummary) Mode() string {
	if r.Committed {
		return "committed"
	}
	return "dry run (discarded)"
}

// TotalRows sums the rows written by every step
func (r *RunSummary) TotalRows() int64 {
	var total int64
	for _, s := range r.Steps {
		total += s.Rows
	}
	return total
}

// WriteMarkdownReport writes the summary as markdown to path
func WriteMarkdownReport(r *RunSummary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(FormatMarkdown(r)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// FormatMarkdown renders the summary
func FormatMarkdown(r *RunSummary) string {
	var sb strings.Builder

	sb.WriteString("# Archive Migration Report\n\n")
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05")))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", r.RunID))
	}
	sb.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", r.DatabasePath))
	sb.WriteString(fmt.Sprintf("**Mode:** %s", r.Mode()))
	if r.Force {
		sb.WriteString(", derived columns recomputed")
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("**Duration:** %v\n\n", r.Duration.Round(time.Millisecond)))

	sb.WriteString("## Steps\n\n")
	sb.WriteString("| Step | Detail | Rows |\n")
	sb.WriteString("|------|--------|-----:|\n")
	for _, s := range r.Steps {
		detail := s.Detail
		if detail == "" {
			detail = "-"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", s.Name, detail, util.Count(s.Rows)))
	}
	sb.WriteString(fmt.Sprintf("| **Total** | | **%s** |\n\n", util.Count(r.TotalRows())))

	sb.WriteString("## Archive\n\n")
	sb.WriteString(fmt.Sprintf("- Legacy code page values recovered: %s\n", util.Count(int64(r.Fallbacks))))
	sb.WriteString(fmt.Sprintf("- Size before: %s\n", util.FormatBytes(r.SizeBefore)))
	if r.Committed {
		sb.WriteString(fmt.Sprintf("- Size after: %s", util.FormatBytes(r.SizeAfter)))
		if r.Vacuumed {
			sb.WriteString(" (vacuumed)")
		}
		sb.WriteString("\n")
	}

	if r.EventLogPath != "" {
		sb.WriteString(fmt.Sprintf("\nEvent log: `%s`\n", r.EventLogPath))
	}

	return sb.String()
}
