package stats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/util"
)

const createStatistics = `
CREATE TABLE IF NOT EXISTS period_statistics (
  song_id INTEGER,
  period INTEGER,
  lead_count INTEGER,
  rank INTEGER
)`

var statColumns = []string{"song_id", "period", "lead_count", "rank"}

// Result summarizes a rebuild
type Result struct {
	Songs   int
	Periods int
	Leads   int // distinct (group, song, period) triples
	Rows    int64
	Orphans []Lead
}

// Rebuild recomputes period_statistics from the events and replaces the
// table's content wholesale. leading_events.group_id must be populated.
func Rebuild(ctx context.Context, q store.Querier) (*Result, error) {
	songs, err := ints(ctx, q, "SELECT id FROM songs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to read songs: %w", err)
	}
	periods, err := ints(ctx, q, "SELECT DISTINCT year FROM sessions WHERE year IS NOT NULL ORDER BY year")
	if err != nil {
		return nil, fmt.Errorf("failed to read periods: %w", err)
	}
	leads, nullPeriods, err := loadLeads(ctx, q)
	if err != nil {
		return nil, err
	}
	if nullPeriods > 0 {
		util.WarnLog("    %d leads at sessions without a year were not counted", nullPeriods)
	}

	counts, orphans := Aggregate(songs, periods, leads)
	rows := Rank(counts)

	if _, err := q.ExecContext(ctx, createStatistics); err != nil {
		return nil, fmt.Errorf("failed to create period_statistics: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM period_statistics"); err != nil {
		return nil, fmt.Errorf("failed to clear period_statistics: %w", err)
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{r.SongID, r.Period, r.LeadCount, r.Rank}
	}
	n, err := store.InsertBatch(ctx, q, store.TableStatistics, statColumns, values)
	if err != nil {
		return nil, err
	}

	return &Result{
		Songs:   len(songs),
		Periods: len(periods),
		Leads:   len(leads),
		Rows:    n,
		Orphans: orphans,
	}, nil
}

// loadLeads reads the distinct leading turns with their period
func loadLeads(ctx context.Context, q store.Querier) ([]Lead, int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT e.group_id, e.song_id, s.year
		FROM leading_events e
		JOIN sessions s ON e.session_id = s.id
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read leads: %w", err)
	}
	defer rows.Close()

	var (
		leads       []Lead
		nullPeriods int
	)
	for rows.Next() {
		var (
			l     Lead
			group sql.NullInt64
			year  sql.NullInt64
		)
		if err := rows.Scan(&group, &l.SongID, &year); err != nil {
			return nil, 0, fmt.Errorf("failed to scan lead: %w", err)
		}
		if !group.Valid {
			return nil, 0, fmt.Errorf("%w: leading event for song %d", util.ErrUngrouped, l.SongID)
		}
		l.GroupID = group.Int64
		if !year.Valid {
			nullPeriods++
			continue
		}
		l.Period = year.Int64
		leads = append(leads, l)
	}
	return leads, nullPeriods, rows.Err()
}

// Top returns the ranked rows of one period, best first, at most limit rows
// (all when limit <= 0)
func Top(ctx context.Context, q store.Querier, period int64, limit int) ([]Stat, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.QueryContext(ctx, `
		SELECT song_id, period, lead_count, rank FROM period_statistics
		WHERE period = ?
		ORDER BY rank, song_id DESC
		LIMIT ?
	`, period, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read period_statistics: %w", err)
	}
	defer rows.Close()

	var out []Stat
	for rows.Next() {
		var s Stat
		if err := rows.Scan(&s.SongID, &s.Period, &s.LeadCount, &s.Rank); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func ints(ctx context.Context, q store.Querier, query string) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
