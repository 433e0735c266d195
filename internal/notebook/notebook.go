// Package notebook reads and cleans Jupyter notebook JSON without re-encoding it.
package notebook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Extension is the file extension of notebook documents.
const Extension = ".ipynb"

var ErrInvalidNotebook = errors.New("invalid notebook")

func cells(raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: malformed json", ErrInvalidNotebook)
	}
	list := gjson.GetBytes(raw, "cells")
	if !list.IsArray() {
		return gjson.Result{}, fmt.Errorf("%w: missing cells array", ErrInvalidNotebook)
	}
	return list, nil
}

// StripOutputs clears outputs and execution counters of every code cell.
// Everything else in the document is kept byte for byte, so stripping an
// already stripped notebook returns it unchanged.
func StripOutputs(raw []byte) ([]byte, error) {
	list, err := cells(raw)
	if err != nil {
		return nil, err
	}
	var idx []int
	i := 0
	list.ForEach(func(_, cell gjson.Result) bool {
		if cell.Get("cell_type").String() == "code" {
			idx = append(idx, i)
		}
		i++
		return true
	})

	out := raw
	for _, n := range idx {
		if out, err = sjson.SetRawBytes(out, fmt.Sprintf("cells.%d.outputs", n), []byte("[]")); err != nil {
			return nil, fmt.Errorf("clear outputs of cell %d: %w", n, err)
		}
		if out, err = sjson.SetRawBytes(out, fmt.Sprintf("cells.%d.execution_count", n), []byte("null")); err != nil {
			return nil, fmt.Errorf("clear execution count of cell %d: %w", n, err)
		}
	}
	return out, nil
}

// MarkdownText concatenates the source of all markdown cells in document order.
// Cells are separated by a newline unless the previous one already ends in one,
// so a heading always starts its own line.
func MarkdownText(raw []byte) (string, error) {
	list, err := cells(raw)
	if err != nil {
		return "", err
	}
	var (
		b        strings.Builder
		endsLine bool
	)
	list.ForEach(func(_, cell gjson.Result) bool {
		if cell.Get("cell_type").String() != "markdown" {
			return true
		}
		src := cellSource(cell.Get("source"))
		if src == "" {
			return true
		}
		if b.Len() > 0 && !endsLine {
			b.WriteByte('\n')
		}
		b.WriteString(src)
		endsLine = strings.HasSuffix(src, "\n")
		return true
	})
	return b.String(), nil
}

// cellSource accepts both the list-of-lines and the single string form.
func cellSource(src gjson.Result) string {
	if !src.IsArray() {
		return src.String()
	}
	var b strings.Builder
	for _, line := range src.Array() {
		b.WriteString(line.String())
	}
	return b.String()
}
