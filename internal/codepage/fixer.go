package codepage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/util"
)

// TableResult counts what one table's pass did
type TableResult struct {
	Table     string
	Rows      int
	Fallbacks int // values that were not valid UTF-8 and came from the fallback
	Updated   int64
	Skipped   bool // no text columns, or already resolved
}

// Result aggregates a full pass over the archive
type Result struct {
	Tables    []TableResult
	Fallbacks int
	Updated   int64
}

// Invalid identifies a text value that is not valid UTF-8
type Invalid struct {
	Table  string
	Key    any
	Column string
}

// Config holds fixer configuration
type Config struct {
	Decoder  *Decoder // Defaults to NewDecoder()
	Progress bool     // Draw a progress bar per table
}

// Fixer rewrites text columns in place
type Fixer struct {
	decoder  *Decoder
	progress bool
}

// New creates a new Fixer
func New(cfg *Config) *Fixer {
	if cfg == nil {
		cfg = &Config{}
	}
	d := cfg.Decoder
	if d == nil {
		d = NewDecoder()
	}
	return &Fixer{decoder: d, progress: cfg.Progress}
}

// tableScan is one table read into memory
type tableScan struct {
	key     string
	columns []string
	keys    []any
	values  [][]any
}

func scanTable(ctx context.Context, q store.Querier, table string) (*tableScan, error) {
	cols, err := store.Columns(ctx, q, table)
	if err != nil {
		return nil, err
	}
	key, err := store.KeyColumn(ctx, q, table)
	if err != nil {
		return nil, err
	}

	scan := &tableScan{key: key}
	for _, c := range cols {
		if c.IsText() && !strings.EqualFold(c.Name, key) {
			scan.columns = append(scan.columns, c.Name)
		}
	}
	if len(scan.columns) == 0 {
		return scan, nil
	}

	selects := make([]string, 0, len(scan.columns)+1)
	for _, name := range append([]string{key}, scan.columns...) {
		quoted, err := store.Quote(name)
		if err != nil {
			return nil, err
		}
		selects = append(selects, quoted)
	}
	qt, _ := store.Quote(table)

	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), qt))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k any
		vals := make([]any, len(scan.columns))
		dest := make([]any, 0, len(vals)+1)
		dest = append(dest, &k)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		scan.keys = append(scan.keys, k)
		scan.values = append(scan.values, vals)
	}
	return scan, rows.Err()
}

// FixTable decodes every text value of one table and writes back the rows
// where something changed. The returned resolution marks the table done.
func (f *Fixer) FixTable(ctx context.Context, q store.Querier, table string, res Resolution) (TableResult, Resolution, error) {
	result := TableResult{Table: table}
	if res.Resolved(table) {
		result.Skipped = true
		return result, res, nil
	}

	scan, err := scanTable(ctx, q, table)
	if err != nil {
		return result, res, err
	}
	if len(scan.columns) == 0 {
		result.Skipped = true
		return result, res.with(table), nil
	}
	result.Rows = len(scan.keys)

	var bar *progressbar.ProgressBar
	if f.progress && result.Rows > 0 {
		bar = progressbar.NewOptions(result.Rows,
			progressbar.OptionSetDescription("Decoding "+table),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(util.ProgressWidth()),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
	}

	var updates []store.Update
	for i, vals := range scan.values {
		changed := false
		for j, v := range vals {
			s, ok := v.(string)
			if !ok {
				// NULLs, numbers and blobs are not text values
				continue
			}
			text, fallback, err := f.decoder.Decode([]byte(s), res)
			if err != nil {
				return result, res, fmt.Errorf("%s.%s row %v: %w", table, scan.columns[j], scan.keys[i], err)
			}
			if fallback {
				result.Fallbacks++
			}
			if text != s {
				vals[j] = text
				changed = true
			}
		}
		if changed {
			updates = append(updates, store.Update{Key: scan.keys[i], Values: vals})
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	result.Updated, err = store.UpdateBatch(ctx, q, table, scan.key, scan.columns, updates)
	if err != nil {
		return result, res, err
	}

	return result, res.with(table), nil
}

// FixAll runs FixTable over every table in name order, threading the
// resolution from table to table. The returned resolution is Done.
func (f *Fixer) FixAll(ctx context.Context, q store.Querier, res Resolution) (*Result, Resolution, error) {
	tables, err := store.Tables(ctx, q)
	if err != nil {
		return nil, res, err
	}

	result := &Result{}
	for _, table := range tables {
		var tr TableResult
		tr, res, err = f.FixTable(ctx, q, table, res)
		if err != nil {
			return result, res, err
		}
		if tr.Skipped {
			util.DebugLog("    %s: no text to decode", table)
		} else {
			util.DebugLog("    %s: %s rows, %d fallback decodes", table, util.Count(int64(tr.Rows)), tr.Fallbacks)
		}
		result.Tables = append(result.Tables, tr)
		result.Fallbacks += tr.Fallbacks
		result.Updated += tr.Updated
	}

	res.Done = true
	return result, res, nil
}

// Verify reports every text value in the archive that is not valid UTF-8.
// Nothing is written.
func Verify(ctx context.Context, q store.Querier) ([]Invalid, error) {
	tables, err := store.Tables(ctx, q)
	if err != nil {
		return nil, err
	}

	var invalid []Invalid
	for _, table := range tables {
		scan, err := scanTable(ctx, q, table)
		if err != nil {
			return nil, err
		}
		for i, vals := range scan.values {
			for j, v := range vals {
				if s, ok := v.(string); ok && !utf8.ValidString(s) {
					invalid = append(invalid, Invalid{Table: table, Key: scan.keys[i], Column: scan.columns[j]})
				}
			}
		}
	}
	return invalid, nil
}
