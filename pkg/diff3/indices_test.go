package diff3

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func chars(s string) []string {
	return strings.Split(s, "")
}

func TestDiffIndices(t *testing.T) {
	tests := []struct {
		name      string
		orig, new string
		want      []Hunk
	}{
		{name: "zero to something", orig: "", new: "hello", want: []Hunk{{0, 0, 0, 5}}},
		{name: "add in front", orig: "word.", new: "hello. word.", want: []Hunk{{0, 0, 0, 7}}},
		{name: "add in back", orig: "word.", new: "word. bye.", want: []Hunk{{5, 0, 5, 5}}},
		{name: "replace all", orig: "foo", new: "bar", want: []Hunk{{0, 3, 0, 3}}},
		{name: "replace middle", orig: "one two three", new: "one four three", want: []Hunk{{4, 2, 4, 1}, {7, 0, 6, 2}}},
		{name: "delete front", orig: "one two three", new: "two three", want: []Hunk{{0, 4, 0, 0}}},
		{name: "delete back", orig: "one two three", new: "one two", want: []Hunk{{7, 6, 7, 0}}},
		{name: "delete middle", orig: "one two three", new: "one three", want: []Hunk{{5, 4, 5, 0}}},
		{name: "identical", orig: "same", new: "same", want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DiffIndices(chars(tc.orig), chars(tc.new)))
		})
	}
}

func TestMergeIndices(t *testing.T) {
	tests := []struct {
		name              string
		left, orig, right string
		want              []Region
	}{
		{
			name: "one-sided change",
			left: "", orig: "hello", right: "",
			want: []Region{
				{Side: SideConflict, LeftStart: 0, LeftLength: 0, OrigStart: 0, OrigLength: 5, RightStart: 0, RightLength: 0},
			},
		},
		{
			name: "non-conflicting adds",
			left: "word.", orig: "hello. word.", right: "word. bye.",
			want: []Region{
				{Side: SideConflict, LeftStart: 0, LeftLength: 0, OrigStart: 0, OrigLength: 7, RightStart: 0, RightLength: 0},
				{Side: SideOrig, Start: 7, Length: 5},
				{Side: SideRight, Start: 5, Length: 5},
			},
		},
		{
			name: "conflicting adds",
			left: "", orig: "hello", right: "world",
			want: []Region{
				{Side: SideConflict, LeftStart: 0, LeftLength: 0, OrigStart: 0, OrigLength: 5, RightStart: 0, RightLength: 5},
			},
		},
		{
			name: "untouched",
			left: "abc", orig: "abc", right: "abc",
			want: []Region{{Side: SideOrig, Start: 0, Length: 3}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MergeIndices(chars(tc.left), chars(tc.orig), chars(tc.right)))
		})
	}
}
