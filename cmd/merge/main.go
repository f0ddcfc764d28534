package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/docopt/docopt-go"

	"github.com/astromechza/collabodux-go/pkg/diff3"
	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/logging"
	"github.com/astromechza/collabodux-go/pkg/viz"
)

const version = "0.0.1"

const usage = `Three-way merge of json documents.

Prints the merge of two edits of a common original to stdout.

Usage:
    merge <orig> <left> <right> [--by-index] [--text] [--svg]
    merge -h | --help
    merge --version

Options:
    -h --help   Show this screen.
    --version   Show version.
    --by-index  Match array items by position instead of by value.
    --text      Merge strings changed on both sides instead of failing.
    --svg       Also render the result to an svg file in the temp directory.`

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func readDoc(path string) (jsonvalue.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to read input file: %w", err)
	}
	doc, err := jsonvalue.Parse(raw)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

func mainInner() error {
	logging.Init("text")

	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		return err
	}

	docs := make([]jsonvalue.Value, 0, 3)
	for _, name := range []string{"<orig>", "<left>", "<right>"} {
		path, _ := opts.String(name)
		doc, err := readDoc(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	h := new(diff3.Handler)
	if byIndex, _ := opts.Bool("--by-index"); byIndex {
		h.ArrayItemKey = diff3.IndexKey
	}
	if text, _ := opts.Bool("--text"); text {
		h.HandleMerge = diff3.MergeText
	}

	merged, err := diff3.Merge(docs[0], docs[1], docs[2], h)
	if err != nil {
		return fmt.Errorf("failed to merge: %w", err)
	}
	fmt.Println(merged.String())

	if svg, _ := opts.Bool("--svg"); svg {
		svgPath, err := viz.RenderToTemp(merged)
		if err != nil {
			return fmt.Errorf("failed to render: %w", err)
		}
		slog.Info("rendered", "path", "file://"+svgPath)
	}
	return nil
}
