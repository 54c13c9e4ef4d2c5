package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonName(t *testing.T) {
	assert.Equal(t, "J Bach", Person{First: "J", Last: "Bach"}.Name())
	assert.Equal(t, "Bach", Person{Last: "Bach"}.Name())
	assert.Equal(t, "J", Person{First: "J"}.Name())
	assert.Equal(t, "", Person{Date: "1750"}.Name())
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", JoinList())
	assert.Equal(t, "a", JoinList("", "a", ""))
	assert.Equal(t, "a & b", JoinList("a", "", "b"))
	assert.Equal(t, "a, b & c", JoinList("a", "b", "c"))
	assert.Equal(t, "a, b, c & d", JoinList("a", "b", "c", "d"))
}

func TestCompose(t *testing.T) {
	cases := []struct {
		name string
		src  Source
		want string
	}{
		{
			name: "single person with book and date",
			src:  Source{A: Person{First: "J", Last: "Bach", Date: "1750"}, Book: "Hymnal"},
			want: "J Bach & Hymnal, 1750",
		},
		{
			name: "two people and a book, no dates",
			src: Source{
				A:    Person{First: "B.F.", Last: "White"},
				B:    Person{First: "E.J.", Last: "King"},
				Book: "The Sacred Harp",
			},
			want: "B.F. White, E.J. King & The Sacred Harp",
		},
		{
			name: "both dated overrides the single-date form",
			src: Source{
				A:    Person{First: "Lowell", Last: "Mason", Date: "1830"},
				B:    Person{First: "William", Last: "Walker", Date: "1835"},
				Book: "Southern Harmony",
			},
			want: "Lowell Mason, 1830; William Walker, 1835",
		},
		{
			name: "both dated, nameless second person uses the book",
			src: Source{
				A:    Person{Last: "Wyeth", Date: "1813"},
				B:    Person{Date: "1820"},
				Book: "Repository of Sacred Music",
			},
			want: "Wyeth, 1813; Repository of Sacred Music, 1820",
		},
		{
			name: "second date alone is ignored",
			src:  Source{A: Person{First: "Isaac", Last: "Watts"}, B: Person{Last: "Wesley", Date: "1740"}},
			want: "Isaac Watts & Wesley",
		},
		{
			name: "book only",
			src:  Source{Book: "Missouri Harmony"},
			want: "Missouri Harmony",
		},
		{
			name: "nothing",
			src:  Source{},
			want: "",
		},
		{
			name: "date without a name",
			src:  Source{A: Person{Date: "1800"}},
			want: ", 1800",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compose(tc.src))
		})
	}
}

func TestLastName(t *testing.T) {
	assert.Equal(t, "Denson", LastName("Hugh McGraw Denson"))
	assert.Equal(t, "Ivey", LastName("  David  Ivey  "))
	assert.Equal(t, "Cher", LastName("Cher"))
	assert.Equal(t, "", LastName("   "))
	// Decomposed e + combining acute comes back composed
	assert.Equal(t, "Beaudoin\u00e9", LastName("Anne Beaudoine\u0301"))
}
