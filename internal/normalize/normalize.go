// Package normalize folds bilingual Persian/English contract text into a
// canonical form before chunking: Persian and Arabic-Indic digits become ASCII,
// yeh/kaf variants are unified, and zero-width non-joiners are stripped.
package normalize

import (
	"strings"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

var digitFold = map[rune]rune{
	// Persian digits
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
	// Arabic-Indic digits appear in mixed-source POs
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
}

const (
	arabicYeh = 'ي'
	farsiYeh  = 'ی'
	arabicKaf = 'ك'
	farsiKaf  = 'ک'
	zwnj      = '‌'
)

// Text returns the canonical form of s.
func Text(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case digitFold[r] != 0:
			b.WriteRune(digitFold[r])
		case r == arabicYeh:
			b.WriteRune(farsiYeh)
		case r == arabicKaf:
			b.WriteRune(farsiKaf)
		case r == zwnj:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Elements normalizes element text in place-order, returning a new slice.
// Elements with empty text (images, separators) are dropped. A missing
// element id or document name is a structural input error and aborts the run.
func Elements(els []domain.Element) ([]domain.Element, error) {
	out := make([]domain.Element, 0, len(els))
	for _, el := range els {
		if el.ElementID == "" || el.Doc == "" {
			return nil, domain.ErrInvalidElements
		}
		el.Text = Text(el.Text)
		if strings.TrimSpace(el.Text) == "" {
			continue
		}
		out = append(out, el)
	}
	return out, nil
}
