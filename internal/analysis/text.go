package analysis

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from feed-provided title or summary text and
// collapses whitespace. Input without tags is only whitespace-normalized.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpaces(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpaces(s)
	}
	doc.Find("script, style").Remove()
	return collapseSpaces(doc.Text())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
