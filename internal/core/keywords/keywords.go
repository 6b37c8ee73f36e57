// Package keywords turns a resolved caption into a short product-search query.
package keywords

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMax is used when Extract is called with a non-positive limit.
const DefaultMax = 8

const minWordRunes = 3

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@[\p{L}\p{N}_.]+`)
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// Extract returns up to limit keywords from caption: hashtags first in the order they appear,
// then remaining words of at least three letters that are not stopwords.
// Accents are stripped and everything is lowercased, so "Café" and "cafe" are one keyword.
func Extract(caption string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMax
	}

	text := strings.ToLower(fold(caption))
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")

	var out []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.Trim(m[1], "_"))
	}
	text = hashtagPattern.ReplaceAllString(text, " ")

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out = append(out, lo.Filter(words, func(w string, _ int) bool {
		return keep(w)
	})...)

	out = lo.Uniq(lo.Compact(out))
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Query joins the extracted keywords into a space-separated search string.
func Query(caption string, limit int) string {
	return strings.Join(Extract(caption, limit), " ")
}

func keep(word string) bool {
	if len([]rune(word)) < minWordRunes {
		return false
	}
	if stopwords[word] {
		return false
	}
	return strings.IndexFunc(word, unicode.IsLetter) >= 0
}

// fold decomposes s and drops combining marks.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
