package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/normalize"
)

func TestText_PersianDigits(t *testing.T) {
	assert.Equal(t, "10% of 120", normalize.Text("۱۰% of ۱۲۰"))
}

func TestText_ArabicIndicDigits(t *testing.T) {
	assert.Equal(t, "60", normalize.Text("٦٠"))
}

func TestText_YehKafUnification(t *testing.T) {
	// Arabic yeh and kaf fold to their Farsi forms
	assert.Equal(t, "ی", normalize.Text("ي"))
	assert.Equal(t, "ک", normalize.Text("ك"))
}

func TestText_StripsZWNJ(t *testing.T) {
	assert.Equal(t, "میشود", normalize.Text("می‌شود"))
}

func TestText_Empty(t *testing.T) {
	assert.Equal(t, "", normalize.Text(""))
}

func TestElements_DropsEmptyText(t *testing.T) {
	els := []domain.Element{
		{Doc: "po.docx", ElementID: "e1", Text: "بند ۱"},
		{Doc: "po.docx", ElementID: "e2", Text: "   "},
	}
	out, err := normalize.Elements(els)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "بند 1", out[0].Text)
}

func TestElements_MissingIDIsInputError(t *testing.T) {
	els := []domain.Element{{Doc: "po.docx", Text: "x"}}
	_, err := normalize.Elements(els)
	assert.ErrorIs(t, err, domain.ErrInvalidElements)
}
