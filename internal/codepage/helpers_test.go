package codepage_test

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

func utf8Fallback() encoding.Encoding {
	return unicode.UTF8
}
