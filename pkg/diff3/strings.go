package diff3

import (
	"strings"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
)

// MergeSequences merges two edits of orig item by item. Where both sides changed the same run
// differently, left's run is followed by right's; identical runs are kept once.
func MergeSequences(orig, left, right []string) []string {
	var out []string
	sides := map[Side][]string{SideLeft: left, SideOrig: orig, SideRight: right}
	for _, region := range MergeIndices(left, orig, right) {
		if region.Side != SideConflict {
			out = append(out, sides[region.Side][region.Start:region.Start+region.Length]...)
			continue
		}
		leftRun := left[region.LeftStart : region.LeftStart+region.LeftLength]
		rightRun := right[region.RightStart : region.RightStart+region.RightLength]
		out = append(out, leftRun...)
		if !equalRuns(leftRun, rightRun) {
			out = append(out, rightRun...)
		}
	}
	return out
}

func equalRuns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// MergeStrings merges two concurrent edits of the text orig character by character.
func MergeStrings(orig, left, right string) string {
	return strings.Join(MergeSequences(runes(orig), runes(left), runes(right)), "")
}

// MergeText is a HandleMerge hook that resolves concurrent edits of the same string with
// MergeStrings and treats every other disagreement as a conflict.
func MergeText(orig, left, right jsonvalue.Value, path Path) (jsonvalue.Value, error) {
	if orig.Kind() == jsonvalue.KindString && left.Kind() == jsonvalue.KindString && right.Kind() == jsonvalue.KindString {
		return jsonvalue.String(MergeStrings(orig.AsString(), left.AsString(), right.AsString())), nil
	}
	return Conflict(orig, left, right, path)
}
