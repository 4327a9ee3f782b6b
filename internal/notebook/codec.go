package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/MimeLyc/notebook-translator/internal/errs"
)

// Parse decodes nbformat v4 JSON.
func Parse(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errs.Wrap(err, errs.MalformedDocument, "notebook is not valid JSON")
	}

	rawCells, ok := top["cells"]
	if !ok {
		return nil, errs.New(errs.MalformedDocument, "notebook has no cells field")
	}
	var cells []map[string]json.RawMessage
	if err := json.Unmarshal(rawCells, &cells); err != nil {
		return nil, errs.Wrap(err, errs.MalformedDocument, "cells is not a list of objects")
	}
	delete(top, "cells")

	doc := &Document{
		Fragments: make([]Fragment, 0, len(cells)),
		Fields:    top,
	}
	for i, cell := range cells {
		frag, err := decodeCell(i, cell)
		if err != nil {
			return nil, err
		}
		doc.Fragments = append(doc.Fragments, frag)
	}
	return doc, nil
}

func decodeCell(position int, cell map[string]json.RawMessage) (Fragment, error) {
	var cellType string
	if err := json.Unmarshal(cell["cell_type"], &cellType); err != nil {
		return Fragment{}, errs.New(errs.MalformedDocument, "cell has no cell_type").
			WithContext("cell", position)
	}
	switch cellType {
	case CellMarkdown, CellCode, CellRaw:
	default:
		return Fragment{}, errs.Newf(errs.MalformedDocument, "unknown cell_type %q", cellType).
			WithContext("cell", position)
	}

	rawSource, ok := cell["source"]
	if !ok {
		return Fragment{}, errs.New(errs.MalformedDocument, "cell has no source").
			WithContext("cell", position)
	}

	text, isString, err := decodeSource(rawSource)
	if err != nil {
		return Fragment{}, errs.Wrap(err, errs.MalformedDocument, "cell source is neither a string nor a list of strings").
			WithContext("cell", position)
	}

	meta := make(map[string]json.RawMessage, len(cell))
	for k, v := range cell {
		if k == "cell_type" || k == "source" {
			continue
		}
		meta[k] = v
	}

	frag := Fragment{
		Position:       position,
		Kind:           kindFor(cellType),
		CellType:       cellType,
		Meta:           meta,
		sourceIsString: isString,
	}
	frag.SetText(text)
	return frag, nil
}

func decodeSource(raw json.RawMessage) (string, bool, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", false, err
	}
	return strings.Join(parts, ""), false, nil
}

// splitKeepEnds splits text after every "\n", the way nbformat stores multi-line sources.
func splitKeepEnds(text string) []string {
	if text == "" {
		return []string{}
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// Marshal encodes the document with the one-space indent nbformat uses.
func Marshal(doc *Document) ([]byte, error) {
	cells := make([]map[string]any, 0, len(doc.Fragments))
	for _, f := range doc.Fragments {
		cell := make(map[string]any, len(f.Meta)+2)
		for k, v := range f.Meta {
			cell[k] = v
		}
		cell["cell_type"] = f.CellType
		if f.sourceIsString {
			cell["source"] = f.Text()
		} else {
			cell["source"] = splitKeepEnds(f.Text())
		}
		cells = append(cells, cell)
	}

	top := make(map[string]any, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		top[k] = v
	}
	top["cells"] = cells

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(top); err != nil {
		return nil, fmt.Errorf("encode notebook: %w", err)
	}
	return buf.Bytes(), nil
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notebook %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		if e, ok := err.(*errs.Error); ok {
			e.WithContext("path", path)
		}
		return nil, err
	}
	return doc, nil
}

func Write(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write notebook %s: %w", path, err)
	}
	return nil
}
