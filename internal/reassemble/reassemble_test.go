package reassemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/notebook"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

func newDoc(frags ...notebook.Fragment) *notebook.Document {
	for i := range frags {
		frags[i].Position = i
	}
	return &notebook.Document{Fragments: frags}
}

func extract(t *testing.T, doc *notebook.Document, codeComments bool) *segment.Plan {
	t.Helper()
	plan, err := segment.Extract(doc, segment.Options{
		TranslateCodeComments:     codeComments,
		TranslateEmbeddedComments: true,
		CodeLanguage:              "python",
		Rules:                     segment.SkipRules{MinLength: 2},
	})
	require.NoError(t, err)
	return plan
}

func translate(plan *segment.Plan, id int, text string) {
	plan.Spans[id].Translated = text
	plan.Spans[id].Done = true
}

func TestAssembleNothingTranslatedIsIdentity(t *testing.T) {
	t.Parallel()

	doc := newDoc(
		notebook.NewFragment(0, notebook.CellMarkdown, "Intro  \n```python\nx = 1  # one thing\n```\n\ntrailing"),
		notebook.NewFragment(0, notebook.CellCode, "y = 2  # two things"),
	)
	plan := extract(t, doc, true)

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	for i := range doc.Fragments {
		assert.Equal(t, doc.Fragments[i].Text(), out.Fragments[i].Text())
	}
}

func TestAssembleScenarioCommentFailure(t *testing.T) {
	t.Parallel()

	doc := newDoc(
		notebook.NewFragment(0, notebook.CellMarkdown, "# Title\nHello world"),
		notebook.NewFragment(0, notebook.CellCode, "x = 1  # set x"),
	)
	plan := extract(t, doc, true)
	require.Len(t, plan.Spans, 2)
	translate(plan, 0, "# 제목\n안녕 세계")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, "# 제목\n안녕 세계", out.Fragments[0].Text())
	assert.Equal(t, "x = 1  # set x", out.Fragments[1].Text())
}

func TestAssembleCommentSubstitution(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellCode, "import os\nx = 1  # set x\nprint(x)"))
	plan := extract(t, doc, true)
	translate(plan, 0, "x 설정")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, "import os\nx = 1  # x 설정\nprint(x)", out.Fragments[0].Text())
	assert.Equal(t, "import os\nx = 1  # set x\nprint(x)", doc.Fragments[0].Text())
}

func TestAssembleRejectsMultilineComment(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellCode, "x = 1  # set x"))
	plan := extract(t, doc, true)
	translate(plan, 0, "x를\n설정")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Equal(t, "x = 1  # set x", out.Fragments[0].Text())
	require.Len(t, rejected, 1)
	assert.Equal(t, 0, rejected[0].SpanID)
}

func TestAssembleRegionsReinserted(t *testing.T) {
	t.Parallel()

	text := "Run this:\n```python\nimport os  # standard library\nprint(os.getcwd())\n```\nThen that."
	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, text))
	plan := extract(t, doc, false)
	require.Len(t, plan.Spans, 2)
	translate(plan, 0, "이것을 실행하세요:\n<<<CODE_BLOCK_0>>>\n그 다음.")
	translate(plan, 1, "표준 라이브러리")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t,
		"이것을 실행하세요:\n```python\nimport os  # 표준 라이브러리\nprint(os.getcwd())\n```\n그 다음.",
		out.Fragments[0].Text())
}

func TestAssembleIndentedRegionKeepsCode(t *testing.T) {
	t.Parallel()

	text := "1. Install the package:\n\n    ```python\n    import os  # load os\n    x = compute()\n    ```\n2. Done."
	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, text))
	plan := extract(t, doc, false)
	require.Len(t, plan.Spans, 2)
	translate(plan, 0, "1. 패키지를 설치합니다:\n\n<<<CODE_BLOCK_0>>>\n2. 완료.")
	translate(plan, 1, "os 불러오기")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t,
		"1. 패키지를 설치합니다:\n\n    ```python\n    import os  # os 불러오기\n    x = compute()\n    ```\n2. 완료.",
		out.Fragments[0].Text())
	require.NoError(t, Verify(doc, out, plan))
}

func TestAssemblePlaceholderMovedInline(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, "See:\n```\nrun()\n```"))
	plan := extract(t, doc, false)
	translate(plan, 0, "보기: <<<CODE_BLOCK_0>>>")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, "보기: \n```\nrun()\n```", out.Fragments[0].Text())
}

func TestAssembleRejectsLostPlaceholder(t *testing.T) {
	t.Parallel()

	text := "Run:\n```\nrun()  # go fast\n```\nDone."
	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, text))
	plan := extract(t, doc, false)
	translate(plan, 0, "실행하고 끝.")
	translate(plan, 1, "빠르게")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Equal(t, "Run:\n```\nrun()  # 빠르게\n```\nDone.", out.Fragments[0].Text())
	require.Len(t, rejected, 1)
	assert.Equal(t, 0, rejected[0].SpanID)
	assert.Contains(t, rejected[0].Reason, "<<<CODE_BLOCK_0>>>")
}

func TestAssembleRejectsDuplicatedPlaceholder(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, "A:\n```\nx\n```"))
	plan := extract(t, doc, false)
	translate(plan, 0, "<<<CODE_BLOCK_0>>>\n<<<CODE_BLOCK_0>>>")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Equal(t, doc.Fragments[0].Text(), out.Fragments[0].Text())
	assert.Len(t, rejected, 1)
}

func TestAssembleRejectsTranslationOpeningFence(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, "Look:\n```\nx\n```\nok"))
	plan := extract(t, doc, false)
	translate(plan, 0, "```\n봐:\n<<<CODE_BLOCK_0>>>\n좋아")

	out, rejected, err := Assemble(doc, plan)
	require.NoError(t, err)
	assert.Equal(t, doc.Fragments[0].Text(), out.Fragments[0].Text())
	require.Len(t, rejected, 1)
	assert.Equal(t, "translation changes code block structure", rejected[0].Reason)
}

func TestAssemblePlanMismatch(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, "a"))
	_, _, err := Assemble(doc, &segment.Plan{})
	assert.True(t, errs.Is(err, errs.Invariant))
}

func TestVerifyDetectsExecutableChange(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellCode, "x = 1  # set x"))
	plan := extract(t, doc, true)

	changed := doc.Clone()
	changed.Fragments[0].SetText("x = 2  # set x")
	assert.True(t, errs.Is(Verify(doc, changed, plan), errs.Invariant))

	commentOnly := doc.Clone()
	commentOnly.Fragments[0].SetText("x = 1  # x 설정")
	assert.NoError(t, Verify(doc, commentOnly, plan))
}

func TestVerifyDetectsRegionChange(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, "T\n```\nx = 1\n```"))
	plan := extract(t, doc, false)

	changed := doc.Clone()
	changed.Fragments[0].SetText("T\n```\nx = 2\n```")
	assert.True(t, errs.Is(Verify(doc, changed, plan), errs.Invariant))

	prose := doc.Clone()
	prose.Fragments[0].SetText("제목\n```\nx = 1\n```")
	assert.NoError(t, Verify(doc, prose, plan))
}

func TestVerifyDetectsMetadataChange(t *testing.T) {
	t.Parallel()

	doc := newDoc(notebook.NewFragment(0, notebook.CellMarkdown, "T"))
	plan := extract(t, doc, false)

	changed := doc.Clone()
	changed.Fragments[0].Meta["id"] = []byte(`"other"`)
	assert.True(t, errs.Is(Verify(doc, changed, plan), errs.Invariant))
}
