package diff3

import (
	"golang.org/x/exp/slices"
)

// Side identifies which input a merge region is read from.
type Side int

const (
	SideConflict Side = -1
	SideLeft     Side = 0
	SideOrig     Side = 1
	SideRight    Side = 2
)

// Region is one run of the merged sequence. A stable region copies Length items of Side starting
// at Start. A conflict region (Side == SideConflict) carries the spans of all three inputs.
type Region struct {
	Side   Side
	Start  int
	Length int

	LeftStart, LeftLength   int
	OrigStart, OrigLength   int
	RightStart, RightLength int
}

// Hunk is a change between two sequences: the span [OrigStart, OrigStart+OrigLength) of the first
// is replaced by [OtherStart, OtherStart+OtherLength) of the second.
type Hunk struct {
	OrigStart, OrigLength   int
	OtherStart, OtherLength int
}

type candidate struct {
	index1, index2 int
	chain          *candidate
}

// lcs returns the tail of a linked list through a longest common subsequence of a and b.
func lcs(a, b []string) *candidate {
	classes := make(map[string][]int)
	for j, item := range b {
		classes[item] = append(classes[item], j)
	}

	candidates := []*candidate{{index1: -1, index2: -1}}
	for i, item := range a {
		r := 0
		c := candidates[0]
		for _, j := range classes[item] {
			s := r
			for ; s < len(candidates); s++ {
				if candidates[s].index2 < j && (s == len(candidates)-1 || candidates[s+1].index2 > j) {
					break
				}
			}
			if s < len(candidates) {
				next := &candidate{index1: i, index2: j, chain: candidates[s]}
				if r == len(candidates) {
					candidates = append(candidates, c)
				} else {
					candidates[r] = c
				}
				r = s + 1
				c = next
				if r == len(candidates) {
					break
				}
			}
		}
		if r == len(candidates) {
			candidates = append(candidates, c)
		} else {
			candidates[r] = c
		}
	}
	return candidates[len(candidates)-1]
}

// DiffIndices returns the hunks that turn orig into other, in order.
func DiffIndices(orig, other []string) []Hunk {
	var result []Hunk
	tail1, tail2 := len(orig), len(other)
	for c := lcs(orig, other); c != nil; c = c.chain {
		mismatch1 := tail1 - c.index1 - 1
		mismatch2 := tail2 - c.index2 - 1
		tail1, tail2 = c.index1, c.index2
		if mismatch1 > 0 || mismatch2 > 0 {
			result = append(result, Hunk{
				OrigStart:   tail1 + 1,
				OrigLength:  mismatch1,
				OtherStart:  tail2 + 1,
				OtherLength: mismatch2,
			})
		}
	}
	slices.Reverse(result)
	return result
}

type sideHunk struct {
	Hunk
	side Side
}

// MergeIndices computes the classic diff3 merge of left and right against their common
// ancestor orig. Runs changed on one side only are stable regions read from that side; runs
// changed on both sides are reported as conflict regions.
func MergeIndices(left, orig, right []string) []Region {
	var hunks []sideHunk
	for _, h := range DiffIndices(orig, left) {
		hunks = append(hunks, sideHunk{Hunk: h, side: SideLeft})
	}
	for _, h := range DiffIndices(orig, right) {
		hunks = append(hunks, sideHunk{Hunk: h, side: SideRight})
	}
	slices.SortStableFunc(hunks, func(x, y sideHunk) int {
		return x.OrigStart - y.OrigStart
	})

	var result []Region
	commonOffset := 0
	copyCommon := func(target int) {
		if target > commonOffset {
			result = append(result, Region{Side: SideOrig, Start: commonOffset, Length: target - commonOffset})
			commonOffset = target
		}
	}

	for hunkIndex := 0; hunkIndex < len(hunks); hunkIndex++ {
		first := hunkIndex
		hunk := hunks[hunkIndex]
		regionLhs := hunk.OrigStart
		regionRhs := regionLhs + hunk.OrigLength
		for hunkIndex < len(hunks)-1 {
			next := hunks[hunkIndex+1]
			if next.OrigStart > regionRhs {
				break
			}
			regionRhs = max(regionRhs, next.OrigStart+next.OrigLength)
			hunkIndex++
		}

		copyCommon(regionLhs)
		if first == hunkIndex {
			if hunk.OtherLength > 0 {
				result = append(result, Region{Side: hunk.side, Start: hunk.OtherStart, Length: hunk.OtherLength})
			}
		} else {
			// Fold every hunk of each side into one span, then correct for the skew between the
			// region of orig and the part of it each side actually touched.
			bounds := map[Side]*[4]int{
				SideLeft:  {len(left), -1, len(orig), -1},
				SideRight: {len(right), -1, len(orig), -1},
			}
			for i := first; i <= hunkIndex; i++ {
				h := hunks[i]
				b := bounds[h.side]
				b[0] = min(h.OtherStart, b[0])
				b[1] = max(h.OtherStart+h.OtherLength, b[1])
				b[2] = min(h.OrigStart, b[2])
				b[3] = max(h.OrigStart+h.OrigLength, b[3])
			}
			l, r := bounds[SideLeft], bounds[SideRight]
			leftLhs := l[0] + (regionLhs - l[2])
			leftRhs := l[1] + (regionRhs - l[3])
			rightLhs := r[0] + (regionLhs - r[2])
			rightRhs := r[1] + (regionRhs - r[3])
			result = append(result, Region{
				Side:        SideConflict,
				LeftStart:   leftLhs,
				LeftLength:  leftRhs - leftLhs,
				OrigStart:   regionLhs,
				OrigLength:  regionRhs - regionLhs,
				RightStart:  rightLhs,
				RightLength: rightRhs - rightLhs,
			})
		}
		commonOffset = regionRhs
	}

	copyCommon(len(orig))
	return result
}
