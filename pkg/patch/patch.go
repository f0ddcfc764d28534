// Package patch produces and applies RFC 6902 JSON patches over jsonvalue documents.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	jsonpatch5 "github.com/evanphx/json-patch/v5"
	"github.com/snorwin/jsonpatch"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
)

const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

var ErrTestFailed = errors.New("test operation failed")

type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value jsonvalue.Value `json:"value,omitzero"`
}

type Patch []Operation

func (p Patch) String() string {
	buf, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("<invalid patch: %v>", err)
	}
	return string(buf)
}

func carriesValue(op string) bool {
	return op == OpAdd || op == OpReplace || op == OpTest
}

// Diff returns the operations that turn from into to. Either side may be Undefined.
func Diff(from, to jsonvalue.Value) (Patch, error) {
	if jsonvalue.Equal(from, to) {
		return Patch{}, nil
	}
	if to.IsUndefined() {
		return Patch{{Op: OpRemove, Path: ""}}, nil
	}
	root := Patch{{Op: OpReplace, Path: "", Value: to}}
	if from.Kind() != jsonvalue.KindObject || to.Kind() != jsonvalue.KindObject {
		return root, nil
	}

	out, err := createPatch(from, to)
	if err != nil {
		slog.Debug("failed to generate patch, replacing document", "err", err)
		return root, nil
	}

	// a patch that does not reproduce the target is replaced wholesale
	if applied, err := Apply(from, out); err != nil || !jsonvalue.Equal(applied, to) {
		slog.Debug("generated patch did not round trip, replacing document", "patch", out.String(), "err", err)
		return root, nil
	}
	return out, nil
}

func createPatch(from, to jsonvalue.Value) (Patch, error) {
	list, err := jsonpatch.CreateJSONPatch(to.Interface(), from.Interface())
	if err != nil {
		return nil, fmt.Errorf("failed to create json patch: %w", err)
	}
	ops := list.List()
	out := make(Patch, 0, len(ops))
	for _, op := range ops {
		converted := Operation{Op: op.Operation, Path: op.Path}
		if carriesValue(op.Operation) {
			if converted.Value, err = jsonvalue.FromInterface(op.Value); err != nil {
				return nil, fmt.Errorf("failed to convert value at %s: %w", op.Path, err)
			}
		}
		out = append(out, converted)
	}
	return out, nil
}

// Apply applies p to doc strictly: a missing path, a failed test, or an operation on an
// Undefined document fails the whole patch and doc is left as it was. Operations on the root
// pointer may turn the document into Undefined.
func Apply(doc jsonvalue.Value, p Patch) (jsonvalue.Value, error) {
	for i := 0; i < len(p); {
		if p[i].Path == "" {
			next, err := applyRoot(doc, p[i])
			if err != nil {
				return jsonvalue.Undefined, err
			}
			doc = next
			i++
			continue
		}

		end := i
		for end < len(p) && p[end].Path != "" {
			end++
		}
		next, err := applyNested(doc, p[i:end])
		if err != nil {
			return jsonvalue.Undefined, err
		}
		doc = next
		i = end
	}
	return doc, nil
}

func applyRoot(doc jsonvalue.Value, op Operation) (jsonvalue.Value, error) {
	switch op.Op {
	case OpAdd, OpReplace:
		if op.Value.IsUndefined() {
			return jsonvalue.Undefined, fmt.Errorf("[op:%s] missing value for root", op.Op)
		}
		return op.Value, nil
	case OpRemove:
		if doc.IsUndefined() {
			return jsonvalue.Undefined, fmt.Errorf("[op:remove] path not found: /")
		}
		return jsonvalue.Undefined, nil
	case OpTest:
		if !jsonvalue.Equal(doc, op.Value) {
			return jsonvalue.Undefined, fmt.Errorf("[op:test] %w at root", ErrTestFailed)
		}
		return doc, nil
	default:
		return jsonvalue.Undefined, fmt.Errorf("[op:%s] unsupported operation on root", op.Op)
	}
}

func applyNested(doc jsonvalue.Value, ops Patch) (jsonvalue.Value, error) {
	if doc.IsUndefined() {
		return jsonvalue.Undefined, fmt.Errorf("[op:%s] path not found: %s", ops[0].Op, ops[0].Path)
	}
	raw, err := json.Marshal(ops)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to encode patch: %w", err)
	}
	decoded, err := jsonpatch5.DecodePatch(raw)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to decode patch: %w", err)
	}
	encodedDoc, err := json.Marshal(doc)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to encode document: %w", err)
	}

	opts := jsonpatch5.NewApplyOptions()
	opts.SupportNegativeIndices = false
	opts.AllowMissingPathOnRemove = false
	opts.EnsurePathExistsOnAdd = false
	out, err := decoded.ApplyWithOptions(encodedDoc, opts)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to apply patch: %w", err)
	}
	return jsonvalue.Parse(out)
}
