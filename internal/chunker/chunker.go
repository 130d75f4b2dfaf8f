// Package chunker splits normalized document elements into parent chunks
// (the indexed unit) and overlapping child chunks (the evidence unit).
//
// Parents target ~1900 characters and are cut at paragraph or sentence
// boundaries, falling back to a hard split when a run of text carries no
// boundary. Children are ~600-character windows with 15% overlap and never
// cross a parent boundary. Every source character lands in exactly one
// parent; overlap regions are the only duplicated spans.
package chunker

import (
	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

const (
	ParentSize   = 1900
	ChildSize    = 600
	ChildOverlap = 0.15
)

// elementSpan records where one element's text sits in the concatenated document.
type elementSpan struct {
	start, end int // rune offsets, end exclusive
	page       int
	elementID  string
}

// Build produces parent and child chunks for a set of ordered elements.
// Elements from multiple documents may be mixed; they are processed per
// document in input order. Build is pure: identical input (and a fixed id
// source) yields identical chunk geometry.
func Build(elements []domain.Element) ([]domain.ParentChunk, []domain.ChildChunk) {
	byDoc := make(map[string][]domain.Element)
	var docOrder []string
	for _, el := range elements {
		if _, seen := byDoc[el.Doc]; !seen {
			docOrder = append(docOrder, el.Doc)
		}
		byDoc[el.Doc] = append(byDoc[el.Doc], el)
	}

	var parents []domain.ParentChunk
	var children []domain.ChildChunk
	for _, doc := range docOrder {
		p, c := buildDoc(doc, byDoc[doc])
		parents = append(parents, p...)
		children = append(children, c...)
	}
	return parents, children
}

func buildDoc(doc string, elements []domain.Element) ([]domain.ParentChunk, []domain.ChildChunk) {
	var text []rune
	var spans []elementSpan
	for i, el := range elements {
		if i > 0 {
			text = append(text, '\n')
		}
		start := len(text)
		text = append(text, []rune(el.Text)...)
		spans = append(spans, elementSpan{start: start, end: len(text), page: el.Page, elementID: el.ElementID})
	}
	if len(text) == 0 {
		return nil, nil
	}

	var parents []domain.ParentChunk
	var children []domain.ChildChunk
	for pos := 0; pos < len(text); {
		end := cutPoint(text, pos, ParentSize)
		parent := domain.ParentChunk{
			ID:        uuid.New(),
			Doc:       doc,
			DocOffset: pos,
			Text:      string(text[pos:end]),
		}
		parent.PageStart, parent.PageEnd, parent.ElementIDs = coverage(spans, pos, end)
		parents = append(parents, parent)
		children = append(children, splitChildren(&parent, spans)...)
		pos = end
	}
	return parents, children
}

// cutPoint returns the exclusive end of the chunk starting at pos, preferring
// a paragraph break, then a line break, then a sentence end, then a space
// within the size window. With no boundary at all it hard-splits at the limit.
func cutPoint(text []rune, pos, size int) int {
	limit := pos + size
	if limit >= len(text) {
		return len(text)
	}
	best := -1
	bestClass := 0
	for i := limit; i > pos; i-- {
		c := boundaryClass(text, i)
		if c > bestClass {
			best, bestClass = i, c
		}
		if bestClass == 4 {
			break
		}
	}
	if best <= pos {
		return limit
	}
	return best
}

// boundaryClass ranks the split quality of cutting just before index i:
// 4 paragraph break, 3 line break, 2 sentence end, 1 space, 0 none.
func boundaryClass(text []rune, i int) int {
	prev := text[i-1]
	switch {
	case prev == '\n' && i >= 2 && text[i-2] == '\n':
		return 4
	case prev == '\n':
		return 3
	case prev == '.' || prev == '؟' || prev == '!' || prev == '۔':
		return 2
	case prev == ' ':
		return 1
	}
	return 0
}

func splitChildren(parent *domain.ParentChunk, spans []elementSpan) []domain.ChildChunk {
	runes := []rune(parent.Text)
	step := int(float64(ChildSize) * (1 - ChildOverlap))
	var out []domain.ChildChunk
	for pos := 0; ; pos += step {
		end := pos + ChildSize
		if end > len(runes) {
			end = len(runes)
		}
		docOff := parent.DocOffset + pos
		page, _, _ := coverage(spans, docOff, docOff+(end-pos))
		out = append(out, domain.ChildChunk{
			ID:        uuid.New(),
			ParentID:  parent.ID,
			Doc:       parent.Doc,
			Page:      page,
			Offset:    pos,
			DocOffset: docOff,
			Text:      string(runes[pos:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return out
}

// coverage reports the page range and element ids overlapping [start, end).
func coverage(spans []elementSpan, start, end int) (pageStart, pageEnd int, elementIDs []string) {
	first := true
	for _, s := range spans {
		if s.end <= start || s.start >= end {
			continue
		}
		if first {
			pageStart, pageEnd = s.page, s.page
			first = false
		} else {
			if s.page < pageStart {
				pageStart = s.page
			}
			if s.page > pageEnd {
				pageEnd = s.page
			}
		}
		elementIDs = append(elementIDs, s.elementID)
	}
	return pageStart, pageEnd, elementIDs
}
