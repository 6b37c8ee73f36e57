package linkcache

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Ellipsis is appended to fields cut at the length limit.
const Ellipsis = "…"

// Truncate shortens s to at most limit grapheme clusters, appending Ellipsis when it cuts.
// Counting graphemes keeps emoji and combining sequences intact.
func Truncate(s string, limit int) string {
	if limit <= 0 || uniseg.GraphemeClusterCount(s) <= limit {
		return s
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; n < limit && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	b.WriteString(Ellipsis)
	return b.String()
}
