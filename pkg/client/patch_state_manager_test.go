package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/messages"
	"github.com/astromechza/collabodux-go/pkg/patch"
)

func newManager(t *testing.T) *PatchStateManager {
	t.Helper()
	m, err := NewPatchStateManager(nil, nil)
	assert.Equal(t, nil, err)
	return m
}

func TestPatchStateManagerSetLocal(t *testing.T) {
	m := newManager(t)
	assert.Equal(t, true, m.SetLocal(jsonvalue.MustParse(`{"first":"hello"}`)))
	assert.Equal(t, `{"first":"hello"}`, m.Local().String())
	p, err := m.LocalPatches()
	assert.Equal(t, nil, err)
	assert.Equal(t, `[{"op":"replace","path":"","value":{"first":"hello"}}]`, p.String())
	assert.Equal(t, false, m.SetLocal(jsonvalue.MustParse(`{"first":"hello"}`)))
}

func TestPatchStateManagerMergeRemote(t *testing.T) {
	m := newManager(t)
	assert.Equal(t, messages.RootVTag, m.VTag())
	assert.Equal(t, false, m.HasRemote())
	changed, err := m.MergeRemote(jsonvalue.MustParse(`{"last":"world"}`), "1")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, changed)
	assert.Equal(t, true, m.HasRemote())
	assert.Equal(t, "1", m.VTag())
	assert.Equal(t, `{"last":"world"}`, m.Local().String())
	assert.Equal(t, false, m.HasPendingChanges())
}

func TestPatchStateManagerAcceptLocalChanges(t *testing.T) {
	m := newManager(t)
	m.SetLocal(jsonvalue.MustParse(`{"first":"hello"}`))
	m.AcceptLocalChanges(jsonvalue.MustParse(`{"first":"hello"}`), "1")
	p, err := m.LocalPatches()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(p))
	assert.Equal(t, "1", m.VTag())
}

func TestPatchStateManagerAcceptKeepsLaterEdits(t *testing.T) {
	m := newManager(t)
	sent := jsonvalue.MustParse(`{"a":1}`)
	m.SetLocal(sent)
	m.SetLocal(jsonvalue.MustParse(`{"a":1,"b":2}`))
	m.AcceptLocalChanges(sent, "1")
	p, err := m.LocalPatches()
	assert.Equal(t, nil, err)
	assert.Equal(t, `[{"op":"add","path":"/b","value":2}]`, p.String())
}

func TestPatchStateManagerPatchRemote(t *testing.T) {
	m := newManager(t)
	changed, err := m.PatchRemote(patch.Patch{{Op: patch.OpReplace, Path: "", Value: jsonvalue.String("world")}}, "1")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, changed)
}

func TestPatchStateManagerPatchRemoteAndMerge(t *testing.T) {
	m := newManager(t)
	m.SetLocal(jsonvalue.MustParse(`{"first":"hello"}`))
	changed, err := m.PatchRemote(patch.Patch{{Op: patch.OpReplace, Path: "", Value: jsonvalue.MustParse(`{"last":"world"}`)}}, "1")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, changed)
	assert.Equal(t, "1", m.VTag())
	assert.Equal(t, `{"first":"hello","last":"world"}`, m.Local().String())
	p, err := m.LocalPatches()
	assert.Equal(t, nil, err)
	assert.Equal(t, `[{"op":"add","path":"/first","value":"hello"}]`, p.String())
}

func TestPatchStateManagerPatchRemoteUndefined(t *testing.T) {
	m := newManager(t)
	_, err := m.PatchRemote(patch.Patch{}, "1")
	assert.Equal(t, ErrPatchUndefined, err)
	assert.Equal(t, "patch results in undefined", err.Error())
}

func TestPatchStateManagerPatchRemoteInvalid(t *testing.T) {
	m := newManager(t)
	_, err := m.PatchRemote(patch.Patch{{Op: patch.OpReplace, Path: "/foo/bar", Value: jsonvalue.String("")}}, "1")
	assert.NotEqual(t, nil, err)
	assert.Equal(t, true, strings.Contains(err.Error(), "[op:replace] path not found: /foo/bar"))
	assert.Equal(t, messages.RootVTag, m.VTag())
}

func TestPatchStateManagerNormalizerErrors(t *testing.T) {
	rejectArrays := func(raw jsonvalue.Value) (jsonvalue.Value, error) {
		if raw.Kind() == jsonvalue.KindArray {
			return jsonvalue.Undefined, errors.New("arrays are not documents")
		}
		return DefaultNormalizer(raw)
	}
	m, err := NewPatchStateManager(rejectArrays, nil)
	assert.Equal(t, nil, err)
	_, err = m.MergeRemote(jsonvalue.MustParse(`[1]`), "1")
	var ve *ValidationError
	assert.Equal(t, true, errors.As(err, &ve))
	assert.Equal(t, messages.RootVTag, m.VTag())
}
