package patch

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
)

func TestDiffApplyRoundTrip(t *testing.T) {
	docs := []string{
		`{}`,
		`{"a":1}`,
		`{"a":2,"b":"x"}`,
		`{"a":null,"nested":{"list":[1,2,3],"flag":true}}`,
		`{"nested":{"list":[3,1],"flag":false},"extra":[{"id":1}]}`,
		`{"slash/key":"v","tilde~key":[null]}`,
		`[1,2,3]`,
		`"scalar"`,
		`null`,
	}
	for _, from := range docs {
		for _, to := range docs {
			t.Run(from+" -> "+to, func(t *testing.T) {
				a, b := jsonvalue.MustParse(from), jsonvalue.MustParse(to)
				p, err := Diff(a, b)
				assert.Equal(t, nil, err)
				applied, err := Apply(a, p)
				assert.Equal(t, nil, err)
				assert.Equal(t, b.String(), applied.String())
			})
		}
	}
}

func TestDiffEqualIsEmpty(t *testing.T) {
	p, err := Diff(jsonvalue.MustParse(`{"a":[1]}`), jsonvalue.MustParse(`{"a":[1]}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(p))
}

func TestDiffFromUndefined(t *testing.T) {
	p, err := Diff(jsonvalue.Undefined, jsonvalue.MustParse(`{"first":"hello"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, `[{"op":"replace","path":"","value":{"first":"hello"}}]`, p.String())
}

func TestDiffAddsKey(t *testing.T) {
	p, err := Diff(jsonvalue.MustParse(`{"last":"world"}`), jsonvalue.MustParse(`{"first":"hello","last":"world"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, `[{"op":"add","path":"/first","value":"hello"}]`, p.String())
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		doc     jsonvalue.Value
		patch   string
		want    string
		wantErr bool
	}{
		{name: "replace root of undefined", doc: jsonvalue.Undefined, patch: `[{"op":"replace","path":"","value":"world"}]`, want: `"world"`},
		{name: "empty patch keeps undefined", doc: jsonvalue.Undefined, patch: `[]`, want: `undefined`},
		{name: "nested on undefined", doc: jsonvalue.Undefined, patch: `[{"op":"add","path":"/a","value":1}]`, wantErr: true},
		{name: "missing path", doc: jsonvalue.MustParse(`{}`), patch: `[{"op":"replace","path":"/foo/bar","value":""}]`, wantErr: true},
		{name: "remove missing", doc: jsonvalue.MustParse(`{}`), patch: `[{"op":"remove","path":"/foo"}]`, wantErr: true},
		{name: "add null", doc: jsonvalue.MustParse(`{}`), patch: `[{"op":"add","path":"/n","value":null}]`, want: `{"n":null}`},
		{name: "append", doc: jsonvalue.MustParse(`{"l":[1]}`), patch: `[{"op":"add","path":"/l/-","value":2}]`, want: `{"l":[1,2]}`},
		{name: "move", doc: jsonvalue.MustParse(`{"a":1}`), patch: `[{"op":"move","from":"/a","path":"/b"}]`, want: `{"b":1}`},
		{name: "copy", doc: jsonvalue.MustParse(`{"a":[1]}`), patch: `[{"op":"copy","from":"/a","path":"/b"}]`, want: `{"a":[1],"b":[1]}`},
		{name: "test passes", doc: jsonvalue.MustParse(`{"a":1}`), patch: `[{"op":"test","path":"/a","value":1},{"op":"add","path":"/b","value":2}]`, want: `{"a":1,"b":2}`},
		{name: "test fails", doc: jsonvalue.MustParse(`{"a":1}`), patch: `[{"op":"test","path":"/a","value":2}]`, wantErr: true},
		{name: "remove root", doc: jsonvalue.MustParse(`{"a":1}`), patch: `[{"op":"remove","path":""}]`, want: `undefined`},
		{name: "root then nested", doc: jsonvalue.Undefined, patch: `[{"op":"add","path":"","value":{}},{"op":"add","path":"/x","value":[]}]`, want: `{"x":[]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p Patch
			assert.Equal(t, nil, json.Unmarshal([]byte(tc.patch), &p))
			out, err := Apply(tc.doc, p)
			if tc.wantErr {
				assert.NotEqual(t, nil, err)
				return
			}
			assert.Equal(t, nil, err)
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestOperationEncoding(t *testing.T) {
	p := Patch{
		{Op: OpRemove, Path: "/a"},
		{Op: OpAdd, Path: "/b", Value: jsonvalue.Null()},
		{Op: OpMove, From: "/c", Path: "/d"},
	}
	assert.Equal(t, `[{"op":"remove","path":"/a"},{"op":"add","path":"/b","value":null},{"op":"move","path":"/d","from":"/c"}]`, p.String())
}
