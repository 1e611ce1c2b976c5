package answer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	got := Format([]Line{
		{Label: "Downtown branch", Value: "5 accounts"},
		{Label: "Uptown branch", Value: "3 accounts"},
	})
	assert.Equal(t, "Here are the results:\n- Downtown branch: 5 accounts, - Uptown branch: 3 accounts", got)
	assert.True(t, IsCanonical(got))

	assert.Equal(t, Header, Format(nil))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Line
		ok   bool
	}{
		{
			name: "canonical",
			in:   "Here are the results:\n- Montreal: 950.00, - Ottawa: -10.00",
			want: []Line{{"Montreal", "950.00"}, {"Ottawa", "-10.00"}},
			ok:   true,
		},
		{
			name: "one per line",
			in:   "Here are the results:\n- Alice: 3\n- Bob: 2\n- Charlie: 1",
			want: []Line{{"Alice", "3"}, {"Bob", "2"}, {"Charlie", "1"}},
			ok:   true,
		},
		{
			name: "lines with trailing commas",
			in:   "Here are the results:\n- Alice: 3,\n- Bob: 2",
			want: []Line{{"Alice", "3"}, {"Bob", "2"}},
			ok:   true,
		},
		{
			name: "thousands separators stay in the value",
			in:   "Here are the results:\n- Toronto: 12,345.67, - Calgary: 1,000.00",
			want: []Line{{"Toronto", "12,345.67"}, {"Calgary", "1,000.00"}},
			ok:   true,
		},
		{
			name: "markdown and chatter",
			in:   "Sure!\n```\nHere are the results:\n- **Toronto**: 10\n```\nLet me know if you need more.",
			want: []Line{{"Toronto", "10"}},
			ok:   true,
		},
		{
			name: "colons inside labels",
			in:   "Here are the results:\n- 10:00: 4\n- Note: closed accounts: 2",
			want: []Line{{"10:00", "4"}, {"Note: closed accounts", "2"}},
			ok:   true,
		},
		{
			name: "no space after colon",
			in:   "Here are the results:\n- Alice:3",
			want: []Line{{"Alice", "3"}},
			ok:   true,
		},
		{
			name: "explanation",
			in:   "The database has no column for mortgages, so this cannot be answered.",
			ok:   false,
		},
		{
			name: "header only",
			in:   "Here are the results:",
			ok:   false,
		},
		{
			name: "entry without value separator",
			in:   "Here are the results:\n- nothing here",
			ok:   false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.in)
			assert.Equal(t, tc.ok, ok)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("Here are the results:\n- Alice: 3\n- Bob: 2\n")
	assert.Equal(t, "Here are the results:\n- Alice: 3, - Bob: 2", got)
	assert.True(t, IsCanonical(got))

	explanation := "  The members table has no mortgage column.  "
	assert.Equal(t, "The members table has no mortgage column.", Normalize(explanation))
	assert.False(t, IsCanonical(Normalize(explanation)))
}

func TestIsCanonical(t *testing.T) {
	assert.True(t, IsCanonical("Here are the results:\n- A: 1"))
	assert.False(t, IsCanonical("Here are the results:\n- A: 1\n- B: 2"))
	assert.True(t, IsCanonical(Format([]Line{{"10:00", "4"}, {"Alice", "3"}})))
	assert.False(t, IsCanonical("Intro\nHere are the results:\n- A: 1"))
	assert.False(t, IsCanonical("Here are the results: - A: 1"))
}
