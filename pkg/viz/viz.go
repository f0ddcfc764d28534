package viz

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
)

const maxLabel = 48

// RenderValueToSvg draws the document as a tree: one node per value, one edge per object key or
// array index.
func RenderValueToSvg(w io.Writer, v jsonvalue.Value) error {
	g := graphviz.New()
	defer g.Close()

	graph, err := g.Graph()
	if err != nil {
		return fmt.Errorf("failed to setup graph: %w", err)
	}
	defer graph.Close()

	if _, err := addNode(graph, "/", "", v); err != nil {
		return err
	}

	var buff bytes.Buffer
	if err := g.Render(graph, graphviz.SVG, &buff); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	if _, err := w.Write(buff.Bytes()); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

func addNode(graph *cgraph.Graph, name, key string, v jsonvalue.Value) (*cgraph.Node, error) {
	n, err := graph.CreateNode(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	n.SetLabel(label(key, v))

	link := func(childKey string, child jsonvalue.Value) error {
		childName := name + "/" + childKey
		if name == "/" {
			childName = "/" + childKey
		}
		c, err := addNode(graph, childName, childKey, child)
		if err != nil {
			return err
		}
		if _, err := graph.CreateEdge(childName, n, c); err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
		return nil
	}

	switch v.Kind() {
	case jsonvalue.KindObject:
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			if err := link(k, child); err != nil {
				return nil, err
			}
		}
	case jsonvalue.KindArray:
		for i, child := range v.Items() {
			if err := link(strconv.Itoa(i), child); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

func label(key string, v jsonvalue.Value) string {
	var text string
	switch v.Kind() {
	case jsonvalue.KindObject:
		text = fmt.Sprintf("{%d}", v.Len())
	case jsonvalue.KindArray:
		text = fmt.Sprintf("[%d]", v.Len())
	default:
		text = v.String()
	}
	if runes := []rune(text); len(runes) > maxLabel {
		text = string(runes[:maxLabel]) + "..."
	}
	if key == "" {
		return text
	}
	return key + ": " + text
}

// RenderToTemp renders v into a new svg file in the temp directory and returns its path.
func RenderToTemp(v jsonvalue.Value) (string, error) {
	tf := filepath.Join(os.TempDir(), fmt.Sprintf("%d%d.svg", time.Now().UnixNano(), rand.Int()))
	f, err := os.Create(tf)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := RenderValueToSvg(f, v); err != nil {
		return "", err
	}
	return tf, nil
}
