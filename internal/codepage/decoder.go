// Package codepage recovers text written by the archive's legacy
// platform: values are UTF-8 where possible and Mac Roman otherwise.
package codepage

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/franz/minutes-janitor/internal/util"
)

// Resolution is the decoding state threaded through a run. Tables listed
// in it are already valid UTF-8; once Done is set every table is, and only
// the primary decoding is accepted.
type Resolution struct {
	Done   bool
	tables map[string]bool
}

// Resolved reports whether the table was already brought to UTF-8
func (r Resolution) Resolved(table string) bool {
	return r.Done || r.tables[table]
}

// with returns a copy of r with table marked resolved
func (r Resolution) with(table string) Resolution {
	tables := make(map[string]bool, len(r.tables)+1)
	for t := range r.tables {
		tables[t] = true
	}
	tables[table] = true
	return Resolution{Done: r.Done, tables: tables}
}

// Decoder turns raw text bytes into valid UTF-8
type Decoder struct {
	fallback encoding.Encoding
}

// NewDecoder returns a decoder falling back to Mac Roman
func NewDecoder() *Decoder {
	return &Decoder{fallback: charmap.Macintosh}
}

// NewDecoderWithFallback returns a decoder using a different legacy
// single-byte encoding
func NewDecoderWithFallback(fallback encoding.Encoding) *Decoder {
	return &Decoder{fallback: fallback}
}

// Decode returns raw as text. Valid UTF-8 comes back unchanged; anything
// else is decoded with the fallback, reported by the second return value.
// Under a done resolution the fallback is not tried.
func (d *Decoder) Decode(raw []byte, res Resolution) (string, bool, error) {
	if utf8.Valid(raw) {
		return string(raw), false, nil
	}
	if res.Done {
		return "", false, fmt.Errorf("%w: invalid UTF-8 %q", util.ErrEncoding, clip(raw))
	}

	out, err := d.fallback.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: %q: %v", util.ErrEncoding, clip(raw), err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false, fmt.Errorf("%w: %q", util.ErrEncoding, clip(raw))
	}
	return string(out), true, nil
}

func clip(raw []byte) []byte {
	if len(raw) > 40 {
		return raw[:40]
	}
	return raw
}
