package client

import (
	"fmt"

	"github.com/astromechza/collabodux-go/pkg/diff3"
	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/messages"
	"github.com/astromechza/collabodux-go/pkg/patch"
)

// Normalizer turns a raw server document into the local state shape. It must accept Undefined
// and fill in defaults rather than fail where it can.
type Normalizer func(raw jsonvalue.Value) (jsonvalue.Value, error)

// Merger reconciles local with remote, both descending from base.
type Merger func(base, local, remote jsonvalue.Value) (jsonvalue.Value, error)

// DefaultNormalizer maps a missing document to an empty object and passes everything else
// through.
func DefaultNormalizer(raw jsonvalue.Value) (jsonvalue.Value, error) {
	if raw.IsUndefined() {
		return jsonvalue.Object(nil), nil
	}
	return raw, nil
}

// Diff3Merger builds a Merger on diff3.Merge with the given handler, which may be nil.
func Diff3Merger(h *diff3.Handler) Merger {
	return func(base, local, remote jsonvalue.Value) (jsonvalue.Value, error) {
		return diff3.Merge(base, local, remote, h)
	}
}

// PatchStateManager holds the local state, the last raw remote state, and the vtag of that
// remote. It is not safe for concurrent use.
type PatchStateManager struct {
	normalize Normalizer
	merge     Merger

	local  jsonvalue.Value
	remote jsonvalue.Value
	vtag   string
}

func NewPatchStateManager(normalize Normalizer, merge Merger) (*PatchStateManager, error) {
	if normalize == nil {
		normalize = DefaultNormalizer
	}
	if merge == nil {
		merge = Diff3Merger(nil)
	}
	local, err := normalize(jsonvalue.Undefined)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	return &PatchStateManager{normalize: normalize, merge: merge, local: local, vtag: messages.RootVTag}, nil
}

func (m *PatchStateManager) Local() jsonvalue.Value {
	return m.local
}

func (m *PatchStateManager) Remote() jsonvalue.Value {
	return m.remote
}

func (m *PatchStateManager) VTag() string {
	return m.vtag
}

// HasRemote reports whether a server snapshot has been seen.
func (m *PatchStateManager) HasRemote() bool {
	return m.vtag != messages.RootVTag || !m.remote.IsUndefined()
}

// SetLocal replaces the local state and reports whether it changed.
func (m *PatchStateManager) SetLocal(local jsonvalue.Value) bool {
	if jsonvalue.Equal(m.local, local) {
		return false
	}
	m.local = local
	return true
}

// MergeRemote merges a new raw remote state into the local state and reports whether the local
// state changed.
func (m *PatchStateManager) MergeRemote(raw jsonvalue.Value, vtag string) (bool, error) {
	next, err := m.normalize(raw)
	if err != nil {
		return false, &ValidationError{Err: err}
	}
	base, err := m.normalize(m.remote)
	if err != nil {
		return false, &ValidationError{Err: err}
	}
	merged, err := m.merge(base, m.local, next)
	if err != nil {
		return false, fmt.Errorf("failed to merge remote state: %w", err)
	}
	changed := m.SetLocal(merged)
	m.remote = raw
	m.vtag = vtag
	return changed, nil
}

// PatchRemote applies a patch to the raw remote state and merges the result.
func (m *PatchStateManager) PatchRemote(p patch.Patch, vtag string) (bool, error) {
	next, err := patch.Apply(m.remote, p)
	if err != nil {
		return false, fmt.Errorf("failed to patch remote state: %w", err)
	}
	if next.IsUndefined() {
		return false, ErrPatchUndefined
	}
	return m.MergeRemote(next, vtag)
}

// AcceptLocalChanges records that the server accepted state as vtag. Local edits made after
// state was sent are kept.
func (m *PatchStateManager) AcceptLocalChanges(state jsonvalue.Value, vtag string) {
	m.remote = state
	m.vtag = vtag
}

// LocalPatches returns the patch from the raw remote state to the local state.
func (m *PatchStateManager) LocalPatches() (patch.Patch, error) {
	return patch.Diff(m.remote, m.local)
}

// HasPendingChanges reports whether the local state differs from the remote state.
func (m *PatchStateManager) HasPendingChanges() bool {
	return !jsonvalue.Equal(m.remote, m.local)
}
