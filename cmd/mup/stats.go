package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/minutes-janitor/internal/stats"
	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/util"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the ranked song statistics of one year",
	Long: `Show period_statistics for one year, best ranked first.

Songs tied on lead count share a rank; the next rank skips the tied places.
Run 'mup migrate' first to build the table.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int64("period", 0, "Year to show (required)")
	statsCmd.Flags().Int("top", 20, "Number of rows to show (0 for all)")
	statsCmd.MarkFlagRequired("period")
}

func runStats(cmd *cobra.Command, args []string) error {
	period, _ := cmd.Flags().GetInt64("period")
	top, _ := cmd.Flags().GetInt("top")

	dbPath, err := requireDBPath()
	if err != nil {
		return err
	}

	s, err := store.OpenWithOptions(dbPath, &store.OpenOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	rows, err := stats.Top(ctx, s.DB(), period, top)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: no statistics for %d", util.ErrNotFound, period)
	}

	titles, err := songTitles(ctx, s.DB())
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-7s %-8s %s\n", "RANK", "LEADS", "SONG", "TITLE")
	for _, r := range rows {
		fmt.Printf("%-6d %-7d %-8d %s\n", r.Rank, r.LeadCount, r.SongID, titles[r.SongID])
	}
	return nil
}

// songTitles maps song ids to titles; empty when the archive has no title column
func songTitles(ctx context.Context, q store.Querier) (map[int64]string, error) {
	titles := make(map[int64]string)
	ok, err := store.HasColumn(ctx, q, store.TableSongs, "title")
	if err != nil || !ok {
		return titles, err
	}

	rows, err := q.QueryContext(ctx, `SELECT id, title FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("failed to read song titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var title sql.NullString
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		titles[id] = title.String
	}
	return titles, rows.Err()
}
