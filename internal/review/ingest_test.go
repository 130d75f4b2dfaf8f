package review_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/review"
)

type fakeIndexer struct {
	upserts  int
	degraded bool
	err      error
}

func (f *fakeIndexer) Upsert(_ context.Context, _ domain.ParentChunk) (bool, error) {
	f.upserts++
	return f.degraded, f.err
}

func elements() []domain.Element {
	return []domain.Element{
		{Doc: "po.docx", Page: 1, ElementID: "e1", Type: "paragraph", Text: strings.Repeat("شرایط عمومی سفارش خرید. ", 120)},
		{Doc: "po.docx", Page: 2, ElementID: "e2", Type: "paragraph", Text: strings.Repeat("ضمانت نامه حسن انجام کار. ", 120)},
	}
}

func TestBuildAndIndex_IndexesEveryParent(t *testing.T) {
	idx := &fakeIndexer{}
	chunks, err := review.BuildAndIndex(context.Background(), idx, elements())
	require.NoError(t, err)
	require.NotEmpty(t, chunks.Parents)
	require.NotEmpty(t, chunks.Children)
	assert.Equal(t, len(chunks.Parents), idx.upserts)
	assert.False(t, chunks.Degraded)
}

func TestBuildAndIndex_DegradedBackendFlagged(t *testing.T) {
	idx := &fakeIndexer{degraded: true}
	chunks, err := review.BuildAndIndex(context.Background(), idx, elements())
	require.NoError(t, err)
	assert.True(t, chunks.Degraded)
}

func TestBuildAndIndex_TotalOutageAborts(t *testing.T) {
	idx := &fakeIndexer{err: domain.ErrBackendUnavailable}
	_, err := review.BuildAndIndex(context.Background(), idx, elements())
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestBuildAndIndex_RejectsMalformedElements(t *testing.T) {
	idx := &fakeIndexer{}
	_, err := review.BuildAndIndex(context.Background(), idx, []domain.Element{{Doc: "po.docx", Text: "متن"}})
	assert.ErrorIs(t, err, domain.ErrInvalidElements)
	assert.Zero(t, idx.upserts)
}
