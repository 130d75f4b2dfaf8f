package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/chunker"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

func elementsOf(texts ...string) []domain.Element {
	els := make([]domain.Element, len(texts))
	for i, txt := range texts {
		els[i] = domain.Element{
			Doc:       "po.docx",
			Page:      i + 1,
			ElementID: string(rune('a' + i)),
			Type:      "NarrativeText",
			Text:      txt,
		}
	}
	return els
}

func TestBuild_SmallInputSingleParent(t *testing.T) {
	parents, children := chunker.Build(elementsOf("بند اول قرارداد.", "Clause two text."))
	require.Len(t, parents, 1)
	require.Len(t, children, 1)

	p := parents[0]
	assert.Equal(t, "po.docx", p.Doc)
	assert.Equal(t, 1, p.PageStart)
	assert.Equal(t, 2, p.PageEnd)
	assert.Equal(t, []string{"a", "b"}, p.ElementIDs)

	c := children[0]
	assert.Equal(t, p.ID, c.ParentID)
	assert.Equal(t, 0, c.Offset)
	assert.Equal(t, p.Text, c.Text)
}

func TestBuild_ParentsCoverEveryCharacterExactlyOnce(t *testing.T) {
	para := strings.Repeat("شرایط تحویل کالا مطابق اینکوترمز. ", 40) // ~1300 runes
	parents, _ := chunker.Build(elementsOf(para, para, para))

	require.Greater(t, len(parents), 1)
	var rebuilt strings.Builder
	prevEnd := 0
	for _, p := range parents {
		assert.Equal(t, prevEnd, p.DocOffset, "parents must be contiguous")
		prevEnd = p.DocOffset + len([]rune(p.Text))
		rebuilt.WriteString(p.Text)
	}
	want := para + "\n" + para + "\n" + para
	assert.Equal(t, want, rebuilt.String())
}

func TestBuild_ParentSizeRespected(t *testing.T) {
	text := strings.Repeat("عبارت نمونه برای تقسیم بندی. ", 300)
	parents, _ := chunker.Build(elementsOf(text))
	for _, p := range parents {
		assert.LessOrEqual(t, len([]rune(p.Text)), chunker.ParentSize)
	}
}

func TestBuild_HardSplitWithoutBoundaries(t *testing.T) {
	// 4000 runes with no space, newline, or sentence end
	text := strings.Repeat("x", 4000)
	parents, _ := chunker.Build(elementsOf(text))
	require.Len(t, parents, 3)
	assert.Equal(t, chunker.ParentSize, len([]rune(parents[0].Text)))
	assert.Equal(t, chunker.ParentSize, len([]rune(parents[1].Text)))
}

func TestBuild_ChildOffsetsWithinParentBounds(t *testing.T) {
	text := strings.Repeat("بند ضمانت نامه پیش پرداخت. ", 200)
	parents, children := chunker.Build(elementsOf(text))

	byID := make(map[string]domain.ParentChunk)
	for _, p := range parents {
		byID[p.ID.String()] = p
	}
	require.NotEmpty(t, children)
	for _, c := range children {
		p, ok := byID[c.ParentID.String()]
		require.True(t, ok, "child references unknown parent")
		plen := len([]rune(p.Text))
		assert.GreaterOrEqual(t, c.Offset, 0)
		assert.Less(t, c.Offset, plen)
		assert.LessOrEqual(t, c.Offset+len([]rune(c.Text)), plen)
		assert.Equal(t, p.DocOffset+c.Offset, c.DocOffset)
	}
}

func TestBuild_ChildrenOverlapAndCoverParent(t *testing.T) {
	text := strings.Repeat("پرداخت نهایی پس از تحویل. ", 100) // > one child, < one parent
	parents, children := chunker.Build(elementsOf(text))
	require.Len(t, parents, 1)
	require.Greater(t, len(children), 1)

	step := int(float64(chunker.ChildSize) * (1 - chunker.ChildOverlap))
	for i, c := range children {
		assert.Equal(t, i*step, c.Offset)
	}
	last := children[len(children)-1]
	assert.Equal(t, len([]rune(parents[0].Text)), last.Offset+len([]rune(last.Text)))
}

func TestBuild_SeparateDocsNeverShareParents(t *testing.T) {
	els := elementsOf("متن سند اول")
	els = append(els, domain.Element{Doc: "pi.docx", Page: 1, ElementID: "z", Text: "متن سند دوم"})
	parents, _ := chunker.Build(els)
	require.Len(t, parents, 2)
	assert.NotEqual(t, parents[0].Doc, parents[1].Doc)
}

func TestBuild_EmptyInput(t *testing.T) {
	parents, children := chunker.Build(nil)
	assert.Empty(t, parents)
	assert.Empty(t, children)
}
