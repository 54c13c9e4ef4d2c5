// Package names derives display strings from the archive's structured
// name fields.
package names

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Person is one first/last/date triple
type Person struct {
	First string
	Last  string
	Date  string
}

// Name joins first and last with a space, or returns whichever is present
func (p Person) Name() string {
	if p.First != "" && p.Last != "" {
		return p.First + " " + p.Last
	}
	return p.First + p.Last
}

// Source is the attribution of a tune or a text: up to two people and the
// book it was taken from
type Source struct {
	A    Person
	B    Person
	Book string
}

// JoinList joins non-empty entries as "a & b" or "a, b & c"
func JoinList(entries ...string) string {
	var list []string
	for _, e := range entries {
		if e != "" {
			list = append(list, e)
		}
	}
	if len(list) >= 3 {
		return strings.Join(list[:len(list)-1], ", ") + " & " + list[len(list)-1]
	}
	return strings.Join(list, " & ")
}

// Compose formats the attribution line.
//
//	J Bach & Hymnal, 1750
//	Lowell Mason, 1830; William Walker, 1835
//
// When both people carry a date the second form is used and the book is
// only shown in place of a nameless second person.
func Compose(src Source) string {
	a, b := src.A.Name(), src.B.Name()

	out := JoinList(a, b, src.Book)
	if src.A.Date != "" {
		out = out + ", " + src.A.Date
	}
	if src.A.Date != "" && src.B.Date != "" {
		second := b
		if second == "" {
			second = src.Book
		}
		out = a + ", " + src.A.Date + "; " + second + ", " + src.B.Date
	}
	return out
}

// LastName returns the last whitespace-separated word of a leader's name,
// NFC-normalized. Blank names have no last name.
func LastName(name string) string {
	fields := strings.Fields(norm.NFC.String(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
