package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/franz/minutes-janitor/internal/codepage"
	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/textfix"
	"github.com/franz/minutes-janitor/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on an archive before upgrading it",
	Long: `Run read-only diagnostic checks on the archive.

This command checks:
- SQLite version
- Archive file presence, size and integrity
- Required relations and columns
- Which derived columns are already present
- Text values that are not valid UTF-8
- Escape artifacts still left in the minutes and lyrics

Nothing is written. Use it before and after 'mup migrate'.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== MUP Doctor - Archive Diagnostics ===")
	util.InfoLog("")

	ctx := context.Background()
	results := []checkResult{}

	// 1. Check SQLite
	results = append(results, checkSQLite())

	// 2. Check database file
	dbPath := viper.GetString("db")
	dbResult := checkDatabase(dbPath)
	results = append(results, dbResult)

	// 3-6. Archive contents, only when the file opened cleanly
	if !dbResult.error && dbPath != "" {
		s, err := store.OpenWithOptions(dbPath, &store.OpenOptions{ReadOnly: true})
		if err != nil {
			results = append(results, checkResult{name: "Archive", error: true, message: err.Error()})
		} else {
			defer s.Close()
			db := s.DB()
			results = append(results, checkRelations(ctx, db)...)
			results = append(results, checkDerivedColumns(ctx, db))
			results = append(results, checkEncoding(ctx, db))
			results = append(results, checkTextArtifacts(ctx, db))
		}
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. The archive cannot be upgraded as is.")
		return fmt.Errorf("archive diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. 'mup migrate' resolves most of them.")
	} else {
		util.SuccessLog("✅ All checks passed! The archive is fully upgraded.")
	}

	return nil
}

// checkSQLite reports the embedded SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies the archive file exists, opens and passes the
// integrity check
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			error:   true,
			message: "no archive path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				error:   true,
				message: fmt.Sprintf("%s does not exist", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	s, err := store.OpenWithOptions(dbPath, &store.OpenOptions{ReadOnly: true})
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer s.Close()

	if err := s.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, integrity ok)", dbPath, util.FormatBytes(info.Size())),
	}
}

// checkRelations verifies every catalog relation and its source columns.
// A missing statistics table is only a warning: migrate creates it.
func checkRelations(ctx context.Context, q store.Querier) []checkResult {
	var results []checkResult
	for _, rel := range store.Catalog {
		name := fmt.Sprintf("Relation %s", rel.Name)
		err := store.RequireColumns(ctx, q, rel.Name, rel.Columns...)
		switch {
		case err == nil:
			results = append(results, checkResult{name: name, message: fmt.Sprintf("%d columns present", len(rel.Columns))})
		case rel.Name == store.TableStatistics:
			results = append(results, checkResult{name: name, warning: true, message: err.Error()})
		default:
			results = append(results, checkResult{name: name, error: true, message: err.Error()})
		}
	}
	return results
}

// checkDerivedColumns lists derived columns not yet added
func checkDerivedColumns(ctx context.Context, q store.Querier) checkResult {
	var missing []string
	total := 0
	for _, rel := range store.Catalog {
		for _, col := range rel.Derived {
			total++
			ok, err := store.HasColumn(ctx, q, rel.Name, col)
			if err != nil {
				return checkResult{name: "Derived columns", error: true, message: err.Error()}
			}
			if !ok {
				missing = append(missing, rel.Name+"."+col)
			}
		}
	}

	if len(missing) > 0 {
		return checkResult{
			name:    "Derived columns",
			warning: true,
			message: fmt.Sprintf("%d of %d missing: %s", len(missing), total, strings.Join(missing, ", ")),
		}
	}
	return checkResult{name: "Derived columns", message: fmt.Sprintf("all %d present", total)}
}

// checkEncoding runs the strict UTF-8 pass over every text column
func checkEncoding(ctx context.Context, q store.Querier) checkResult {
	invalid, err := codepage.Verify(ctx, q)
	if err != nil {
		return checkResult{name: "Encoding", error: true, message: err.Error()}
	}
	if len(invalid) == 0 {
		return checkResult{name: "Encoding", message: "all text is valid UTF-8"}
	}

	perTable := make(map[string]int)
	for _, inv := range invalid {
		perTable[inv.Table]++
	}
	tables := make([]string, 0, len(perTable))
	for table, n := range perTable {
		tables = append(tables, fmt.Sprintf("%s: %d", table, n))
	}
	sort.Strings(tables)

	return checkResult{
		name:    "Encoding",
		warning: true,
		message: fmt.Sprintf("%s values need code page recovery (%s)", util.Count(int64(len(invalid))), strings.Join(tables, ", ")),
	}
}

// checkTextArtifacts counts rows the text normalizer would still rewrite
func checkTextArtifacts(ctx context.Context, q store.Querier) checkResult {
	pending, err := textfix.Pending(ctx, q)
	if err != nil {
		return checkResult{name: "Text artifacts", error: true, message: err.Error()}
	}

	var parts []string
	for kind, n := range pending {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s rows", kind, util.Count(n)))
		}
	}
	if len(parts) == 0 {
		return checkResult{name: "Text artifacts", message: "none"}
	}
	sort.Strings(parts)
	return checkResult{name: "Text artifacts", warning: true, message: strings.Join(parts, ", ")}
}
