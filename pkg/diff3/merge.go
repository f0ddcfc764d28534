// Package diff3 implements a three-way structural merge of JSON values.
//
// Objects merge key by key. Arrays are reduced to objects keyed by Handler.ArrayItemKey so
// unrelated insertions and deletions on both sides compose; the order of the result comes from a
// diff3 merge of the key sequences.
package diff3

import (
	"sort"
	"strconv"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
)

// Handler customises a merge. Nil fields fall back to DefaultArrayItemKey and Conflict.
type Handler struct {
	// ArrayItemKey identifies an array element across the three versions of its array.
	ArrayItemKey func(item jsonvalue.Value, index int, path Path) string
	// HandleMerge resolves a value changed differently on both sides. Returning Undefined
	// deletes it.
	HandleMerge func(orig, left, right jsonvalue.Value, path Path) (jsonvalue.Value, error)
}

// DefaultArrayItemKey keys an array element by its string coercion.
func DefaultArrayItemKey(item jsonvalue.Value, _ int, _ Path) string {
	return jsonvalue.CoerceString(item)
}

// IndexKey keys an array element by its position.
func IndexKey(_ jsonvalue.Value, index int, _ Path) string {
	return strconv.Itoa(index)
}

// Conflict is the default HandleMerge: it refuses to pick a side.
func Conflict(_, _, _ jsonvalue.Value, path Path) (jsonvalue.Value, error) {
	return jsonvalue.Undefined, &ConflictError{Path: path}
}

// Merge reconciles left and right, two edits of orig. Any side may be Undefined to represent
// a missing value. The error is a *ConflictError when the handler refuses to resolve a value.
func Merge(orig, left, right jsonvalue.Value, h *Handler) (jsonvalue.Value, error) {
	m := merger{arrayItemKey: DefaultArrayItemKey, handleMerge: Conflict}
	if h != nil {
		if h.ArrayItemKey != nil {
			m.arrayItemKey = h.ArrayItemKey
		}
		if h.HandleMerge != nil {
			m.handleMerge = h.HandleMerge
		}
	}
	return m.merge(orig, left, right, Path{})
}

type merger struct {
	arrayItemKey func(item jsonvalue.Value, index int, path Path) string
	handleMerge  func(orig, left, right jsonvalue.Value, path Path) (jsonvalue.Value, error)
}

func (m *merger) merge(orig, left, right jsonvalue.Value, path Path) (jsonvalue.Value, error) {
	if jsonvalue.Equal(left, right) {
		return right, nil
	}
	if jsonvalue.Equal(orig, left) {
		return right, nil
	}
	if jsonvalue.Equal(orig, right) {
		return left, nil
	}

	kind := left.Kind()
	if orig.Kind() == kind && right.Kind() == kind {
		switch kind {
		case jsonvalue.KindArray:
			return m.mergeArray(orig.Items(), left.Items(), right.Items(), path)
		case jsonvalue.KindObject:
			fields, err := m.mergeFields(orig.Fields(), left.Fields(), right.Fields(), path)
			if err != nil {
				return jsonvalue.Undefined, err
			}
			return jsonvalue.Object(fields), nil
		}
	}
	return m.handleMerge(orig, left, right, path)
}

func (m *merger) mergeFields(orig, left, right map[string]jsonvalue.Value, path Path) (map[string]jsonvalue.Value, error) {
	keys := make([]string, 0, len(left)+len(right))
	seen := make(map[string]struct{}, len(left)+len(right))
	for _, side := range []map[string]jsonvalue.Value{left, right, orig} {
		for k := range side {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	// sorted so the reported conflict path does not depend on map iteration
	sort.Strings(keys)

	out := make(map[string]jsonvalue.Value, len(keys))
	for _, k := range keys {
		o, inOrig := orig[k]
		l, inLeft := left[k]
		r, inRight := right[k]
		switch {
		case inLeft && !inRight && !inOrig:
			out[k] = l
		case inRight && !inLeft && !inOrig:
			out[k] = r
		case !inLeft && !inRight:
			// deleted on both sides
		default:
			merged, err := m.merge(o, l, r, path.child(k))
			if err != nil {
				return nil, err
			}
			if !merged.IsUndefined() {
				out[k] = merged
			}
		}
	}
	return out, nil
}

type keyedArray struct {
	keys   []string
	values map[string]jsonvalue.Value
}

func (m *merger) keyed(items []jsonvalue.Value, path Path) keyedArray {
	ka := keyedArray{keys: make([]string, len(items)), values: make(map[string]jsonvalue.Value, len(items))}
	for i, item := range items {
		key := m.arrayItemKey(item, i, path)
		ka.keys[i] = key
		ka.values[key] = item
	}
	return ka
}

func (m *merger) mergeArray(orig, left, right []jsonvalue.Value, path Path) (jsonvalue.Value, error) {
	o := m.keyed(orig, path)
	l := m.keyed(left, path)
	r := m.keyed(right, path)

	values, err := m.mergeFields(o.values, l.values, r.values, path)
	if err != nil {
		return jsonvalue.Undefined, err
	}

	result := make([]jsonvalue.Value, 0, len(left)+len(right))
	add := func(key string) {
		if v, ok := values[key]; ok {
			result = append(result, v)
		}
	}

	sides := map[Side][]string{SideLeft: l.keys, SideOrig: o.keys, SideRight: r.keys}
	for _, region := range MergeIndices(l.keys, o.keys, r.keys) {
		if region.Side != SideConflict {
			for _, key := range sides[region.Side][region.Start : region.Start+region.Length] {
				add(key)
			}
			continue
		}

		leftRun := l.keys[region.LeftStart : region.LeftStart+region.LeftLength]
		rightRun := r.keys[region.RightStart : region.RightStart+region.RightLength]
		inRight := setOf(rightRun)
		inOrig := setOf(o.keys[region.OrigStart : region.OrigStart+region.OrigLength])
		emitted := make(map[string]struct{}, len(leftRun)+len(rightRun))

		for _, key := range leftRun {
			_, keptRight := inRight[key]
			_, wasOrig := inOrig[key]
			if keptRight || !wasOrig {
				emitted[key] = struct{}{}
				add(key)
			}
		}
		for _, key := range rightRun {
			_, wasOrig := inOrig[key]
			_, done := emitted[key]
			if !wasOrig && !done {
				emitted[key] = struct{}{}
				add(key)
			}
		}
	}
	return jsonvalue.Array(result...), nil
}

func setOf(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}
