// Package lead groups leading events into leading turns.
//
// A leader may appear on several consecutive event rows for one song at one
// session (several people leading together, or a lead split across
// recordings). Those rows form a single turn and share a group id.
package lead

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/minutes-janitor/internal/store"
)

// Event is one leading_events row as the grouper sees it
type Event struct {
	ID        int64
	SongID    int64
	SessionID int64
	GroupID   sql.NullInt64
}

type key struct {
	song, session int64
}

// Assign returns the group id of each event. Events must be in primary-key
// order; the id increments whenever (song, session) differs from the
// previous event, starting at 1 for the first.
func Assign(events []Event) []int64 {
	ids := make([]int64, len(events))
	var (
		counter int64
		prev    key
	)
	for i, e := range events {
		k := key{e.SongID, e.SessionID}
		if i == 0 || k != prev {
			counter++
			prev = k
		}
		ids[i] = counter
	}
	return ids
}

// Load reads every event in primary-key order
func Load(ctx context.Context, q store.Querier) ([]Event, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, song_id, session_id, group_id FROM leading_events ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to read leading events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SongID, &e.SessionID, &e.GroupID); err != nil {
			return nil, fmt.Errorf("failed to scan leading event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Regroup assigns group ids to every event and writes back the ones that
// differ from what is stored. The group_id column must exist.
func Regroup(ctx context.Context, q store.Querier) (int64, error) {
	events, err := Load(ctx, q)
	if err != nil {
		return 0, err
	}

	ids := Assign(events)
	var updates []store.Update
	for i, e := range events {
		if e.GroupID.Valid && e.GroupID.Int64 == ids[i] {
			continue
		}
		updates = append(updates, store.Update{Key: e.ID, Values: []any{ids[i]}})
	}

	return store.UpdateBatch(ctx, q, store.TableEvents, "id", []string{"group_id"}, updates)
}
