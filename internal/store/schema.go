package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/franz/minutes-janitor/internal/util"
)

// Column describes one column as reported by PRAGMA table_info
type Column struct {
	Name    string
	Type    string
	NotNull bool
	PK      int // 1-based position in the primary key, 0 if not part of it
}

// IsText reports whether the column has TEXT affinity under SQLite's
// declared-type rules (CHAR, CLOB or TEXT anywhere in the type name).
func (c Column) IsText() bool {
	t := strings.ToUpper(c.Type)
	if strings.Contains(t, "INT") {
		return false
	}
	return strings.Contains(t, "CHAR") || strings.Contains(t, "CLOB") || strings.Contains(t, "TEXT")
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Quote returns the identifier quoted for use in SQL. Only plain
// identifiers are accepted; anything else is rejected.
func Quote(ident string) (string, error) {
	if !identRe.MatchString(ident) {
		return "", fmt.Errorf("%w: %q", util.ErrInvalidIdentifier, ident)
	}
	return `"` + ident + `"`, nil
}

// Tables lists user tables in name order, skipping SQLite's internal ones
func Tables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns the table's columns in declaration order. A table with
// no columns does not exist and yields util.ErrMissingTable.
func Columns(ctx context.Context, q Querier, table string) ([]Column, error) {
	quoted, err := Quote(table)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoted))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    any
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &col.PK); err != nil {
			return nil, err
		}
		col.NotNull = notNull != 0
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", util.ErrMissingTable, table)
	}
	return cols, nil
}

// HasColumn reports whether the table declares the column. Store errors
// are returned as errors, never read as "absent".
func HasColumn(ctx context.Context, q Querier, table, column string) (bool, error) {
	cols, err := Columns(ctx, q, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, column) {
			return true, nil
		}
	}
	return false, nil
}

// RequireColumns fails with util.ErrMissingColumn naming the first column
// of the list the table does not declare.
func RequireColumns(ctx context.Context, q Querier, table string, columns ...string) error {
	cols, err := Columns(ctx, q, table)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c.Name)] = true
	}
	for _, name := range columns {
		if !have[strings.ToLower(name)] {
			return fmt.Errorf("%w: %s.%s", util.ErrMissingColumn, table, name)
		}
	}
	return nil
}

// AddColumn adds a nullable column with a NULL default
func AddColumn(ctx context.Context, q Querier, table, column, typ string) error {
	qt, err := Quote(table)
	if err != nil {
		return err
	}
	qc, err := Quote(column)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s DEFAULT NULL", qt, qc, typ)
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}

// KeyColumn returns the column that identifies rows of the table: the
// catalog's declaration if the table is a known relation, else its
// single-column primary key, else rowid.
func KeyColumn(ctx context.Context, q Querier, table string) (string, error) {
	if rel, ok := Relation(table); ok {
		return rel.Key, nil
	}

	cols, err := Columns(ctx, q, table)
	if err != nil {
		return "", err
	}
	key := ""
	for _, c := range cols {
		if c.PK == 0 {
			continue
		}
		if key != "" {
			// Composite key
			return "rowid", nil
		}
		key = c.Name
	}
	if key == "" {
		return "rowid", nil
	}
	return key, nil
}
