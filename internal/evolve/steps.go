package evolve

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/minutes-janitor/internal/lead"
	"github.com/franz/minutes-janitor/internal/names"
	"github.com/franz/minutes-janitor/internal/store"
)

// LastNameStep adds leaders.last_name, used for sorting leaders
var LastNameStep = Step{
	Table:  store.TableLeaders,
	Column: "last_name",
	Type:   "TEXT",
	Derive: deriveLastNames,
}

// GroupStep adds leading_events.group_id, the leading turn of each event
var GroupStep = Step{
	Table:  store.TableEvents,
	Column: "group_id",
	Type:   "INTEGER",
	Derive: lead.Regroup,
}

// RecordingCountStep adds sessions.recording_count, the number of distinct
// leading turns at the session that have a recording
var RecordingCountStep = Step{
	Table:  store.TableSessions,
	Column: "recording_count",
	Type:   "INTEGER",
	Derive: deriveRecordingCounts,
}

// ComposerStep adds songs.composer, the composed tune attribution
var ComposerStep = Step{
	Table:  store.TableSongs,
	Column: "composer",
	Type:   "TEXT",
	Derive: attributionDeriver("composer"),
}

// PoetStep adds songs.poet, the composed text attribution
var PoetStep = Step{
	Table:  store.TableSongs,
	Column: "poet",
	Type:   "TEXT",
	Derive: attributionDeriver("poet"),
}

func deriveLastNames(ctx context.Context, q store.Querier) (int64, error) {
	updates, err := lastNameUpdates(ctx, q)
	if err != nil {
		return 0, err
	}
	return store.UpdateBatch(ctx, q, store.TableLeaders, "id", []string{"last_name"}, updates)
}

func lastNameUpdates(ctx context.Context, q store.Querier) ([]store.Update, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name, last_name FROM leaders ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []store.Update
	for rows.Next() {
		var (
			id        int64
			name, cur sql.NullString
		)
		if err := rows.Scan(&id, &name, &cur); err != nil {
			return nil, err
		}

		last := names.LastName(name.String)
		switch {
		case last == "" && cur.Valid:
			updates = append(updates, store.Update{Key: id, Values: []any{nil}})
		case last != "" && (!cur.Valid || cur.String != last):
			updates = append(updates, store.Update{Key: id, Values: []any{last}})
		}
	}
	return updates, rows.Err()
}

func deriveRecordingCounts(ctx context.Context, q store.Querier) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE sessions
		SET recording_count = (
			SELECT COUNT(DISTINCT e.group_id) FROM leading_events e
			WHERE e.session_id = sessions.id AND e.audio_url IS NOT NULL
		)
		WHERE recording_count IS NOT (
			SELECT COUNT(DISTINCT e.group_id) FROM leading_events e
			WHERE e.session_id = sessions.id AND e.audio_url IS NOT NULL
		)
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// attributionDeriver composes songs.<kind> from <kind>1_*, <kind>2_* and
// <kind>_book_title
func attributionDeriver(kind string) Derive {
	return func(ctx context.Context, q store.Querier) (int64, error) {
		source := []string{
			kind + "1_first", kind + "1_last", kind + "1_date",
			kind + "2_first", kind + "2_last", kind + "2_date",
			kind + "_book_title",
		}
		if err := store.RequireColumns(ctx, q, store.TableSongs, source...); err != nil {
			return 0, err
		}

		updates, err := attributionUpdates(ctx, q, kind)
		if err != nil {
			return 0, err
		}
		return store.UpdateBatch(ctx, q, store.TableSongs, "id", []string{kind}, updates)
	}
}

func attributionUpdates(ctx context.Context, q store.Querier, kind string) ([]store.Update, error) {
	query := fmt.Sprintf(`SELECT id, %[1]s,
		%[1]s1_first, %[1]s1_last, %[1]s1_date,
		%[1]s2_first, %[1]s2_last, %[1]s2_date,
		%[1]s_book_title
		FROM songs ORDER BY id`, kind)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []store.Update
	for rows.Next() {
		var (
			id     int64
			cur    sql.NullString
			fields [7]sql.NullString
		)
		dest := []any{&id, &cur}
		for i := range fields {
			dest = append(dest, &fields[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		line := names.Compose(names.Source{
			A:    names.Person{First: fields[0].String, Last: fields[1].String, Date: fields[2].String},
			B:    names.Person{First: fields[3].String, Last: fields[4].String, Date: fields[5].String},
			Book: fields[6].String,
		})
		if !cur.Valid || cur.String != line {
			updates = append(updates, store.Update{Key: id, Values: []any{line}})
		}
	}
	return updates, rows.Err()
}
