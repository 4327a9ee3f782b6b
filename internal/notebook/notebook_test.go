package notebook

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/notebook-translator/internal/errs"
)

func TestLoadSample(t *testing.T) {
	t.Parallel()

	doc, err := Load(filepath.Join("testdata", "sample.ipynb"))
	require.NoError(t, err)
	require.Len(t, doc.Fragments, 3)

	md := doc.Fragments[0]
	assert.Equal(t, Prose, md.Kind)
	assert.Equal(t, []string{"# Title", "Hello <world> & friends"}, md.Lines)
	assert.Equal(t, "# Title\nHello <world> & friends", md.Text())

	code := doc.Fragments[1]
	assert.Equal(t, Executable, code.Kind)
	assert.Equal(t, 1, code.Position)
	assert.Equal(t, "x = 1  # set x", code.Text())

	raw := doc.Fragments[2]
	assert.Equal(t, Executable, raw.Kind)
	assert.Equal(t, "", raw.Text())

	assert.Equal(t, "python", doc.Language())
}

func TestMarshalPreservesStructure(t *testing.T) {
	t.Parallel()

	doc, err := Load(filepath.Join("testdata", "sample.ipynb"))
	require.NoError(t, err)

	out, err := Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Hello <world> & friends")

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))

	cells := got["cells"].([]any)
	first := cells[0].(map[string]any)
	assert.Equal(t, []any{"# Title\n", "Hello <world> & friends"}, first["source"])
	assert.Equal(t, "a1", first["id"])

	second := cells[1].(map[string]any)
	assert.Equal(t, "x = 1  # set x", second["source"])
	assert.EqualValues(t, 3, second["execution_count"])
	assert.Len(t, second["outputs"], 1)

	third := cells[2].(map[string]any)
	assert.Equal(t, []any{}, third["source"])

	meta := got["metadata"].(map[string]any)
	assert.Equal(t, map[string]any{"keep": true}, meta["custom"])
	assert.EqualValues(t, 5, got["nbformat_minor"])

	again, err := Parse(out)
	require.NoError(t, err)
	for i := range doc.Fragments {
		assert.Equal(t, doc.Fragments[i].Text(), again.Fragments[i].Text())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not json":       `{"cells": [`,
		"no cells":       `{"metadata": {}}`,
		"cells not list": `{"cells": {}}`,
		"bad cell type":  `{"cells": [{"cell_type": "heading", "source": ""}]}`,
		"no source":      `{"cells": [{"cell_type": "code"}]}`,
		"numeric source": `{"cells": [{"cell_type": "code", "source": 7}]}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.MalformedDocument), err.Error())
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	doc := &Document{
		Fragments: []Fragment{NewFragment(0, CellMarkdown, "a\nb")},
		Fields:    map[string]json.RawMessage{"nbformat": json.RawMessage("4")},
	}
	c := doc.Clone()
	c.Fragments[0].Lines[0] = "changed"
	c.Fields["nbformat"] = json.RawMessage("5")

	assert.Equal(t, "a\nb", doc.Fragments[0].Text())
	assert.Equal(t, json.RawMessage("4"), doc.Fields["nbformat"])
}

func TestDescribeAndOutputPath(t *testing.T) {
	t.Parallel()

	doc, err := Load(filepath.Join("testdata", "sample.ipynb"))
	require.NoError(t, err)

	info := Describe(doc)
	assert.Equal(t, Info{
		Cells:         3,
		MarkdownCells: 1,
		CodeCells:     1,
		RawCells:      1,
		Format:        "4.5",
		Kernel:        "Python 3",
		Language:      "python",
	}, info)

	assert.Equal(t, filepath.Join("nb", "lesson_translated_ko.ipynb"), OutputPath("nb/lesson.ipynb", "KO"))
}
