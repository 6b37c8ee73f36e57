package resolver

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// candidate is one downloadable option scraped from an upstream.
type candidate struct {
	URL   string
	Label string
	Ext   string
	Score float64
}

// rankCandidates drops invalid URLs, orders by descending score (stable for ties)
// and keeps only the first occurrence of each URL.
func rankCandidates(candidates []candidate) []candidate {
	valid := lo.Filter(candidates, func(c candidate, _ int) bool {
		return isValidMediaURL(c.URL)
	})
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Score > valid[j].Score
	})
	return lo.UniqBy(valid, func(c candidate) string {
		return c.URL
	})
}

// newMediaSelection builds a MediaSelection from candidates already ordered by rankCandidates.
func newMediaSelection(ranked []candidate, fileName string, audioOnly bool) (*MediaSelection, error) {
	if len(ranked) == 0 {
		return nil, ErrNoMedia
	}
	best := ranked[0]
	if !isValidMediaURL(best.URL) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaURL, best.URL)
	}

	fallbacks := make([]string, 0, len(ranked)-1)
	for _, c := range ranked[1:] {
		if c.URL == best.URL {
			continue
		}
		fallbacks = append(fallbacks, c.URL)
	}
	if len(fallbacks) == 0 {
		fallbacks = nil
	}

	return &MediaSelection{
		URL:          best.URL,
		FallbackURLs: fallbacks,
		FileName:     fileName,
		ContentType:  guessContentType(best.Ext, audioOnly),
		QualityLabel: strings.TrimSpace(best.Label),
	}, nil
}

// resolutionPattern matches a three-to-four digit resolution, optionally followed by "p".
var resolutionPattern = regexp.MustCompile(`(\d{3,4})p?`)

// resolutionScore extracts the resolution number from a quality label, or 0.
func resolutionScore(label string) float64 {
	m := resolutionPattern.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return float64(n)
}
