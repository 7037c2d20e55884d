package textclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanExample(t *testing.T) {
	got := Clean("1234 5678 9012\nName: A.K. Singh\n@#$%")

	assert.False(t, got.IsEmpty())
	assert.Equal(t, "1234 5678 9012\nName: A.K. Singh", got.String())
	assert.Equal(t, []string{"1234 5678 9012", "Name: A.K. Singh"}, got.Lines())
}

func TestCleanLineRules(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and collapses", "   GOVT   OF\tINDIA  ", "GOVT OF INDIA"},
		{"drops disallowed", "DOB: 01/02/1990 *", "DOB: 01/02/1990"},
		{"keeps parens and commas", "S/O: Ram (Late), Delhi", "S/O: Ram (Late), Delhi"},
		{"drops short lines", "a\n|\nok", "ok"},
		{"removed chars leave gap", "AB @ CD", "AB CD"},
		{"non ascii removed", "नाम Name", "Name"},
		{"crlf", "line one\r\nline two\rline three", "line one\nline two\nline three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in).String())
		})
	}
}

func TestCleanEmptyMarker(t *testing.T) {
	for _, in := range []string{"", "   ", "@#$%\n!\n~", "a\nb\nc"} {
		got := Clean(in)
		assert.True(t, got.IsEmpty(), "input %q", in)
		assert.Equal(t, EmptyMarker, got.Display())
	}

	var zero CanonicalText
	assert.True(t, zero.IsEmpty())
	assert.False(t, FromLines("ok").IsEmpty())
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"1234 5678 9012\nName: A.K. Singh\n@#$%",
		"INCOME TAX DEPARTMENT   GOVT. OF INDIA\n\n\nABCPX1234F\n   Father's Name\n01/01/1990",
		"  ~~ noise ~~ \n x \n Dr. R.  Sharma ",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once.String())
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestCleanerConfig(t *testing.T) {
	c := New(Config{Punctuation: ":", MinLineLength: 4})

	got := c.Clean("Name: A.K. Singh\nabc\n12/34")
	assert.Equal(t, "Name: AK Singh\n1234", got.String())
	assert.Equal(t, got, c.Clean(got.String()))
}
