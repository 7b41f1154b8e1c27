// Package sanitize cleans user-supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/goliatone/go-slug"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = bluemonday.StrictPolicy()

// Text strips markup and collapses all whitespace, line breaks included,
// into single spaces.
func Text(value string) string {
	return strings.Join(strings.Fields(stripTags(value)), " ")
}

// Textarea strips markup but keeps line breaks. Trailing spaces on each
// line are dropped.
func Textarea(value string) string {
	lines := strings.Split(strings.ReplaceAll(stripTags(value), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Slug turns arbitrary text into a lowercase, dash-separated URL slug.
// Accented letters are folded to their base form first. Returns "" when
// nothing usable remains.
func Slug(value string) string {
	folded, _, err := transform.String(accentFolder(), stripTags(value))
	if err != nil {
		folded = value
	}

	normalized, err := slug.Normalize(strings.ToLower(strings.TrimSpace(folded)))
	if err != nil {
		return ""
	}
	return normalized
}

// WordCount counts words in the text content of an HTML fragment. A word
// is a run of letters, apostrophes and hyphens.
func WordCount(content string) int {
	if strings.TrimSpace(content) == "" {
		return 0
	}

	text := content
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		text = doc.Text()
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	})

	count := 0
	for _, word := range words {
		if strings.Trim(word, "'-") != "" {
			count++
		}
	}
	return count
}

func stripTags(value string) string {
	return html.UnescapeString(strictPolicy.Sanitize(value))
}

func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
