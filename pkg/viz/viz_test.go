package viz

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-playground/assert/v2"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "{2}", label("", jsonvalue.MustParse(`{"a":1,"b":2}`)))
	assert.Equal(t, "list: [3]", label("list", jsonvalue.MustParse(`[1,2,3]`)))
	assert.Equal(t, `name: "x"`, label("name", jsonvalue.String("x")))
	long := label("", jsonvalue.String(strings.Repeat("a", 100)))
	assert.Equal(t, maxLabel+3, len(long))

	wide := label("", jsonvalue.String(strings.Repeat("é", 100)))
	assert.Equal(t, true, utf8.ValidString(wide))
	assert.Equal(t, maxLabel+3, utf8.RuneCountInString(wide))
}

func TestRenderValueToSvg(t *testing.T) {
	var buf bytes.Buffer
	err := RenderValueToSvg(&buf, jsonvalue.MustParse(`{"title":"doc","todos":[{"done":true},{"done":false}]}`))
	assert.Equal(t, nil, err)
	out := buf.String()
	assert.Equal(t, true, strings.Contains(out, "<svg"))
	assert.Equal(t, true, strings.Contains(out, "todos: [2]"))
}

func TestRenderToTemp(t *testing.T) {
	path, err := RenderToTemp(jsonvalue.MustParse(`{"counter":1}`))
	assert.Equal(t, nil, err)
	defer os.Remove(path)
	raw, err := os.ReadFile(path)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, strings.Contains(string(raw), "counter: 1"))
}
