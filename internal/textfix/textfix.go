// Package textfix cleans escape artifacts out of the archive's free text.
package textfix

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/franz/minutes-janitor/internal/store"
)

// escapedNewline matches a run of literal backslash-n sequences together
// with the whitespace around them. RE2's \s lacks \v, so it is listed.
var escapedNewline = regexp.MustCompile(`[\s\v]*(?:\\n[\s\v]*)+`)

// minutesFields are the session columns that carry escaped newlines
var minutesFields = []string{"name", "location", "freetext_minutes"}

// verticalTab rules: minutes text is paragraphs, lyrics are lines
var verticalTabRules = []struct {
	Table, Column, Replacement string
}{
	{store.TableSessions, "freetext_minutes", "\n\n"},
	{store.TableSongs, "song_text", "\n"},
}

// CollapseNewlines replaces escaped newlines and their surrounding
// whitespace with a single space
func CollapseNewlines(s string) string {
	return escapedNewline.ReplaceAllString(s, " ")
}

// CollapseEscapedNewlines rewrites the sessions rows whose name, location or
// minutes contain a literal "\n". Returns the number of rows rewritten.
func CollapseEscapedNewlines(ctx context.Context, q store.Querier) (int64, error) {
	if err := store.RequireColumns(ctx, q, store.TableSessions, minutesFields...); err != nil {
		return 0, err
	}

	updates, err := collapseUpdates(ctx, q)
	if err != nil {
		return 0, err
	}

	return store.UpdateBatch(ctx, q, store.TableSessions, "id", minutesFields, updates)
}

func collapseUpdates(ctx context.Context, q store.Querier) ([]store.Update, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, location, freetext_minutes FROM sessions
		WHERE instr(name, '\n') > 0
		   OR instr(location, '\n') > 0
		   OR instr(freetext_minutes, '\n') > 0
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	defer rows.Close()

	var updates []store.Update
	for rows.Next() {
		var id int64
		fields := make([]sql.NullString, len(minutesFields))
		if err := rows.Scan(&id, &fields[0], &fields[1], &fields[2]); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		values := make([]any, len(fields))
		for i, f := range fields {
			if f.Valid {
				values[i] = CollapseNewlines(f.String)
			}
		}
		updates = append(updates, store.Update{Key: id, Values: values})
	}
	return updates, rows.Err()
}

// ReplaceVerticalTabs turns embedded vertical tabs into line breaks: a blank
// line in session minutes, a single newline in lyrics. Returns rows changed
// per table.
func ReplaceVerticalTabs(ctx context.Context, q store.Querier) (map[string]int64, error) {
	changed := make(map[string]int64, len(verticalTabRules))
	for _, rule := range verticalTabRules {
		n, err := replaceInColumn(ctx, q, rule.Table, rule.Column, "\v", rule.Replacement)
		if err != nil {
			return changed, err
		}
		changed[rule.Table] = n
	}
	return changed, nil
}

func replaceInColumn(ctx context.Context, q store.Querier, table, column, old, replacement string) (int64, error) {
	if err := store.RequireColumns(ctx, q, table, column); err != nil {
		return 0, err
	}
	qt, err := store.Quote(table)
	if err != nil {
		return 0, err
	}
	qc, err := store.Quote(column)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = replace(%s, ?, ?) WHERE instr(%s, ?) > 0", qt, qc, qc, qc)
	res, err := q.ExecContext(ctx, stmt, old, replacement, old)
	if err != nil {
		return 0, fmt.Errorf("failed to replace in %s.%s: %w", table, column, err)
	}
	return res.RowsAffected()
}

// Pending counts the rows each pass would rewrite, without writing.
// Keys are "escaped newlines" and "vertical tabs in <table>.<column>".
func Pending(ctx context.Context, q store.Querier) (map[string]int64, error) {
	pending := make(map[string]int64, len(verticalTabRules)+1)

	var n int64
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions
		WHERE instr(name, '\n') > 0
		   OR instr(location, '\n') > 0
		   OR instr(freetext_minutes, '\n') > 0
	`).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("failed to count escaped newlines: %w", err)
	}
	pending["escaped newlines"] = n

	for _, rule := range verticalTabRules {
		qt, err := store.Quote(rule.Table)
		if err != nil {
			return nil, err
		}
		qc, err := store.Quote(rule.Column)
		if err != nil {
			return nil, err
		}
		stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE instr(%s, ?) > 0", qt, qc)
		if err := q.QueryRowContext(ctx, stmt, "\v").Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count vertical tabs in %s.%s: %w", rule.Table, rule.Column, err)
		}
		pending[fmt.Sprintf("vertical tabs in %s.%s", rule.Table, rule.Column)] = n
	}
	return pending, nil
}
