package topics

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// strippedPunctuation lists the marks removed from surface forms. Hyphens are kept
// so that compounds like "e-sports" survive.
const strippedPunctuation = "#.,!?:;\"'()[]{}«»“”„"

// letterFolds maps language-specific letter variants onto their plain form.
var letterFolds = map[rune]rune{
	'ё': 'е',
}

// Normalize turns a surface tag into its lookup key: case-folded, diacritics
// folded, punctuation stripped, whitespace collapsed.
func Normalize(s string) string {
	folded := cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false

	for _, r := range folded {
		if strings.ContainsRune(strippedPunctuation, r) {
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if to, ok := letterFolds[r]; ok {
			r = to
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	return b.String()
}
