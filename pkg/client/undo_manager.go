package client

import (
	"fmt"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
)

// Edit is one tracked local change.
type Edit struct {
	Before jsonvalue.Value
	After  jsonvalue.Value
}

// UndoGroup is a set of edits undone and redone together. Metadata is that of the latest edit.
type UndoGroup[M any] struct {
	Edits    []Edit
	Count    int
	Metadata M
}

// UndoManager keeps grouped undo and redo stacks. Undoing an edit is a three-way merge of its
// reversal into the current state, so changes made since then by anyone else survive.
type UndoManager[M any] struct {
	merge Merger
	undos []*UndoGroup[M]
	redos []*UndoGroup[M]
}

func NewUndoManager[M any](merge Merger) *UndoManager[M] {
	if merge == nil {
		merge = Diff3Merger(nil)
	}
	return &UndoManager[M]{merge: merge}
}

// TrackEdit records a local edit. With merge set the edit joins the top group, otherwise it
// starts a new one. Tracking always clears the redo stack.
func (u *UndoManager[M]) TrackEdit(before, after jsonvalue.Value, metadata M, merge bool) {
	if !merge || len(u.undos) == 0 {
		u.undos = append(u.undos, &UndoGroup[M]{})
	}
	group := u.undos[len(u.undos)-1]
	if n := len(group.Edits); n > 0 && jsonvalue.Equal(group.Edits[n-1].After, before) {
		group.Edits[n-1].After = after
	} else {
		group.Edits = append(group.Edits, Edit{Before: before, After: after})
	}
	group.Count++
	group.Metadata = metadata
	u.redos = nil
}

// Undo reverts the top group against state. On a merge conflict the stacks are left unchanged.
func (u *UndoManager[M]) Undo(state jsonvalue.Value) (jsonvalue.Value, error) {
	if len(u.undos) == 0 {
		return state, nil
	}
	group := u.undos[len(u.undos)-1]
	for i := len(group.Edits) - 1; i >= 0; i-- {
		edit := group.Edits[i]
		next, err := u.merge(edit.After, edit.Before, state)
		if err != nil {
			return state, fmt.Errorf("failed to undo: %w", err)
		}
		state = next
	}
	u.undos = u.undos[:len(u.undos)-1]
	u.redos = append(u.redos, group)
	return state, nil
}

// Redo reapplies the most recently undone group against state.
func (u *UndoManager[M]) Redo(state jsonvalue.Value) (jsonvalue.Value, error) {
	if len(u.redos) == 0 {
		return state, nil
	}
	group := u.redos[len(u.redos)-1]
	for _, edit := range group.Edits {
		next, err := u.merge(edit.Before, edit.After, state)
		if err != nil {
			return state, fmt.Errorf("failed to redo: %w", err)
		}
		state = next
	}
	u.redos = u.redos[:len(u.redos)-1]
	u.undos = append(u.undos, group)
	return state, nil
}

// NextUndo returns the group the next Undo would revert.
func (u *UndoManager[M]) NextUndo() (*UndoGroup[M], bool) {
	if len(u.undos) == 0 {
		return nil, false
	}
	return u.undos[len(u.undos)-1], true
}

func (u *UndoManager[M]) NextRedo() (*UndoGroup[M], bool) {
	if len(u.redos) == 0 {
		return nil, false
	}
	return u.redos[len(u.redos)-1], true
}

func (u *UndoManager[M]) HasUndo() bool {
	return len(u.undos) > 0
}

func (u *UndoManager[M]) HasRedo() bool {
	return len(u.redos) > 0
}
