package notebook

import (
	"encoding/json"
	"strings"
)

type Kind int

const (
	Prose Kind = iota
	Executable
)

func (k Kind) String() string {
	if k == Prose {
		return "prose"
	}
	return "executable"
}

const (
	CellMarkdown = "markdown"
	CellCode     = "code"
	CellRaw      = "raw"
)

// Fragment is one cell of the notebook. Lines never carry the trailing "\n";
// Text joins them back so that the original source round-trips byte for byte.
type Fragment struct {
	Position int
	Kind     Kind
	CellType string
	Lines    []string
	// Meta holds every cell field except cell_type and source, untouched.
	Meta map[string]json.RawMessage

	sourceIsString bool
}

func NewFragment(position int, cellType, text string) Fragment {
	f := Fragment{
		Position: position,
		Kind:     kindFor(cellType),
		CellType: cellType,
		Meta:     map[string]json.RawMessage{},
	}
	f.SetText(text)
	return f
}

func kindFor(cellType string) Kind {
	if cellType == CellMarkdown {
		return Prose
	}
	return Executable
}

func (f Fragment) Text() string {
	return strings.Join(f.Lines, "\n")
}

func (f *Fragment) SetText(text string) {
	f.Lines = strings.Split(text, "\n")
}

// Clone returns a copy whose Lines can be modified without touching f.
func (f Fragment) Clone() Fragment {
	c := f
	c.Lines = append([]string(nil), f.Lines...)
	if f.Meta != nil {
		c.Meta = make(map[string]json.RawMessage, len(f.Meta))
		for k, v := range f.Meta {
			c.Meta[k] = v
		}
	}
	return c
}

type Document struct {
	Fragments []Fragment
	// Fields holds every top-level field except cells.
	Fields map[string]json.RawMessage
}

func (d *Document) Clone() *Document {
	c := &Document{
		Fragments: make([]Fragment, len(d.Fragments)),
		Fields:    make(map[string]json.RawMessage, len(d.Fields)),
	}
	for i, f := range d.Fragments {
		c.Fragments[i] = f.Clone()
	}
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	return c
}

type notebookMetadata struct {
	Kernelspec struct {
		DisplayName string `json:"display_name"`
		Language    string `json:"language"`
	} `json:"kernelspec"`
	LanguageInfo struct {
		Name string `json:"name"`
	} `json:"language_info"`
}

func (d *Document) metadata() notebookMetadata {
	var md notebookMetadata
	if raw, ok := d.Fields["metadata"]; ok {
		_ = json.Unmarshal(raw, &md)
	}
	return md
}

// Language returns the programming language of the notebook's code cells,
// or "" when the metadata doesn't say.
func (d *Document) Language() string {
	md := d.metadata()
	if md.LanguageInfo.Name != "" {
		return strings.ToLower(md.LanguageInfo.Name)
	}
	return strings.ToLower(md.Kernelspec.Language)
}
