package store

import (
	"context"
	"fmt"
	"strings"
)

// Update is one row's new values, in the column order given to UpdateBatch
type Update struct {
	Key    any
	Values []any
}

// UpdateBatch writes all updates through one prepared statement
// (UPDATE table SET c1 = ?, ... WHERE key = ?) and returns the number of
// rows changed.
func UpdateBatch(ctx context.Context, q Querier, table, key string, columns []string, updates []Update) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	qt, err := Quote(table)
	if err != nil {
		return 0, err
	}
	qk, err := Quote(key)
	if err != nil {
		return 0, err
	}
	sets := make([]string, len(columns))
	for i, c := range columns {
		qc, err := Quote(c)
		if err != nil {
			return 0, err
		}
		sets[i] = qc + " = ?"
	}

	stmt, err := q.PrepareContext(ctx, fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", qt, strings.Join(sets, ", "), qk))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare update of %s: %w", table, err)
	}
	defer stmt.Close()

	var changed int64
	for _, u := range updates {
		if len(u.Values) != len(columns) {
			return changed, fmt.Errorf("update of %s row %v: %d values for %d columns", table, u.Key, len(u.Values), len(columns))
		}
		args := append(append(make([]any, 0, len(u.Values)+1), u.Values...), u.Key)
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return changed, fmt.Errorf("failed to update %s row %v: %w", table, u.Key, err)
		}
		n, _ := res.RowsAffected()
		changed += n
	}
	return changed, nil
}

// InsertBatch inserts rows through one prepared statement
func InsertBatch(ctx context.Context, q Querier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	qt, err := Quote(table)
	if err != nil {
		return 0, err
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		if quoted[i], err = Quote(c); err != nil {
			return 0, err
		}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	stmt, err := q.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qt, strings.Join(quoted, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return int64(i), fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return int64(len(rows)), nil
}
