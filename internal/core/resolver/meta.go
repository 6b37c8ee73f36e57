package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

// Open Graph video properties, most specific first.
var ogVideoProperties = []string{"og:video:secure_url", "og:video", "og:video:url"}

// facebookSourcePattern finds the JSON-escaped video source fields embedded in Facebook page scripts.
var facebookSourcePattern = regexp.MustCompile(
	`"(browser_native_hd_url|playable_url_quality_hd|hd_src|browser_native_sd_url|playable_url|sd_src)"\s*:\s*"((?:[^"\\]|\\.)+)"`,
)

// facebookSourceScores ranks the Facebook source fields: HD above SD.
var facebookSourceScores = map[string]float64{
	"browser_native_hd_url":   720,
	"playable_url_quality_hd": 720,
	"hd_src":                  720,
	"browser_native_sd_url":   360,
	"playable_url":            360,
	"sd_src":                  360,
}

// MetaStrategy resolves Instagram and Facebook links. It reads the public page first
// and falls back to the extraction tool when the page exposes no media.
type MetaStrategy struct {
	client    *http.Client
	extractor MetadataExtractor
	userAgent string
}

// NewMetaStrategy creates the Meta strategy. extractor may be nil, which disables the fallback.
func NewMetaStrategy(cfg Config, client *http.Client, extractor MetadataExtractor) *MetaStrategy {
	return &MetaStrategy{
		client:    client,
		extractor: extractor,
		userAgent: cfg.UserAgent,
	}
}

func (s *MetaStrategy) Name() ServiceName { return ServiceMeta }

func (s *MetaStrategy) IsApplicable(link string) bool {
	return hostMatches(safeHostname(link), "instagram.com", "facebook.com", "fb.watch")
}

func (s *MetaStrategy) Resolve(ctx context.Context, link string) (*Result, error) {
	result, pageErr := s.resolveFromPage(ctx, link)
	if pageErr == nil {
		return result, nil
	}
	if s.extractor == nil {
		return nil, pageErr
	}

	slog.Info("[META] page extraction failed, falling back to metadata tool",
		"link", link,
		"error", pageErr,
	)

	result, toolErr := s.resolveWithExtractor(ctx, link)
	if toolErr != nil {
		return nil, errors.Join(pageErr, toolErr)
	}
	return result, nil
}

func isFacebookHost(host string) bool {
	return hostMatches(host, "facebook.com", "fb.watch")
}

// resolveFromPage reads Open Graph tags, plus the embedded HD/SD sources on Facebook pages.
func (s *MetaStrategy) resolveFromPage(ctx context.Context, link string) (*Result, error) {
	req, err := newRequest(ctx, http.MethodGet, link, nil, s.userAgent)
	if err != nil {
		return nil, err
	}
	page, err := fetchBody(s.client, req, ServiceMeta)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("page does not parse: %w", err)
	}

	var candidates []candidate
	if isFacebookHost(safeHostname(link)) {
		candidates = append(candidates, facebookCandidates(page)...)
	}
	for i, prop := range ogVideoProperties {
		if v := metaContent(doc, prop); v != "" {
			candidates = append(candidates, candidate{
				URL:   v,
				Label: metaContent(doc, "og:video:height"),
				Ext:   "mp4",
				Score: float64(len(ogVideoProperties) - i),
			})
		}
	}

	ranked := rankCandidates(candidates)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: page exposes no video tags", ErrNoMedia)
	}

	title := metaContent(doc, "og:title")
	video, err := newMediaSelection(ranked, buildFileName(title, "meta-"+lastPathSegment(link), "mp4"), false)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Service:     ServiceMeta,
		Title:       title,
		Description: metaContent(doc, "og:description"),
		Thumbnail:   metaContent(doc, "og:image"),
		ShareURL:    lo.Ternary(metaContent(doc, "og:url") != "", metaContent(doc, "og:url"), link),
		Video:       video,
	}
	result.setExtra("source", "page")
	return result, nil
}

// resolveWithExtractor uses the tool's top-level url, then any progressive mp4 formats.
func (s *MetaStrategy) resolveWithExtractor(ctx context.Context, link string) (*Result, error) {
	info, err := s.extractor.Extract(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("metadata tool fallback failed: %w", err)
	}

	label, _ := lo.Coalesce(info.FormatNote, info.Format)
	ext, _ := lo.Coalesce(strings.ToLower(info.Ext), "mp4")

	// The top-level url is the tool's own pick and outranks every listed format.
	candidates := []candidate{{URL: info.URL, Label: label, Ext: ext, Score: 1 << 20}}
	for _, f := range info.Formats {
		if f.IsProgressive() && !f.IsStreamingManifest() && strings.EqualFold(f.Ext, "mp4") {
			candidates = append(candidates, candidate{URL: f.URL, Label: f.FormatNote, Ext: "mp4", Score: f.Height})
		}
	}

	ranked := rankCandidates(candidates)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("metadata tool fallback: %w", ErrNoMedia)
	}

	video, err := newMediaSelection(ranked, buildFileName(info.Title, "meta-"+info.ID, ranked[0].Ext), false)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Service:     ServiceMeta,
		Title:       info.Title,
		Description: info.Description,
		Thumbnail:   bestThumbnail(info),
		ShareURL:    link,
		Video:       video,
	}
	result.setExtra("source", "ytdlp")
	result.setExtra("duration", NormalizeDuration(info.Duration))
	return result, nil
}

func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

// facebookCandidates extracts and unescapes the HD/SD source URLs embedded in page scripts.
func facebookCandidates(page []byte) []candidate {
	var out []candidate
	for _, m := range facebookSourcePattern.FindAllSubmatch(page, -1) {
		var src string
		if err := json.Unmarshal([]byte(`"`+string(m[2])+`"`), &src); err != nil {
			continue
		}
		field := string(m[1])
		score := facebookSourceScores[field]
		out = append(out, candidate{
			URL:   src,
			Label: lo.Ternary(score >= 720, "HD", "SD"),
			Ext:   "mp4",
			Score: score,
		})
	}
	return out
}
