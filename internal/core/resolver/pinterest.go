package resolver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PinterestStrategy resolves pins through a third-party conversion page that lists
// the pin's video files as an HTML table.
type PinterestStrategy struct {
	client       *http.Client
	converterURL string
	userAgent    string
}

// NewPinterestStrategy creates the Pinterest strategy.
func NewPinterestStrategy(cfg Config, client *http.Client) *PinterestStrategy {
	return &PinterestStrategy{
		client:       client,
		converterURL: cfg.PinterestConverterURL,
		userAgent:    cfg.UserAgent,
	}
}

func (s *PinterestStrategy) Name() ServiceName { return ServicePinterest }

func (s *PinterestStrategy) IsApplicable(link string) bool {
	host := safeHostname(link)
	return hostMatches(host, "pin.it") || hostHasLabel(host, "pinterest")
}

func (s *PinterestStrategy) Resolve(ctx context.Context, link string) (*Result, error) {
	canonical := s.canonicalize(ctx, link)

	req, err := newFormRequest(ctx, s.converterURL, url.Values{"url": {canonical}}, s.userAgent)
	if err != nil {
		return nil, err
	}
	page, err := fetchBody(s.client, req, ServicePinterest)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, NewAvailabilityError(ServicePinterest, http.StatusBadGateway,
			"converter page does not parse: %v", err)
	}

	rows := parsePinterestRows(doc)
	if len(rows) == 0 {
		return nil, NewAvailabilityError(ServicePinterest, http.StatusBadGateway,
			"converter page has no download table")
	}

	ranked := rankCandidates(scorePinterestRows(rows))
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: no mp4 rows among %d converter rows", ErrNoMedia, len(rows))
	}

	title := strings.TrimSpace(doc.Find("h2").First().Text())
	selection, err := newMediaSelection(ranked, buildFileName(title, "pinterest-"+lastPathSegment(canonical), "mp4"), false)
	if err != nil {
		return nil, err
	}

	thumb, _ := doc.Find("img[src]").First().Attr("src")
	if !isValidMediaURL(thumb) {
		thumb = ""
	}

	result := &Result{
		Service:   ServicePinterest,
		Title:     title,
		Thumbnail: thumb,
		ShareURL:  canonical,
		Video:     selection,
	}
	result.setExtra("pinId", lastPathSegment(canonical))

	slog.Debug("[PINTEREST] resolved pin",
		"share_url", canonical,
		"quality", selection.QualityLabel,
		"fallbacks", len(selection.FallbackURLs),
	)
	return result, nil
}

// canonicalize expands pin.it short links into the canonical pin URL. It never fails:
// when the redirect chain cannot be read the original link is used.
func (s *PinterestStrategy) canonicalize(ctx context.Context, link string) string {
	if !hostMatches(safeHostname(link), "pin.it") {
		return link
	}

	req, err := newRequest(ctx, http.MethodGet, link, nil, s.userAgent)
	if err != nil {
		return link
	}
	resp, err := s.client.Do(req)
	if err != nil {
		slog.Debug("[PINTEREST] short link expansion failed, using original",
			"link", link,
			"error", err,
		)
		return link
	}
	_ = resp.Body.Close()

	if final := resp.Request.URL.String(); !hostMatches(safeHostname(final), "pin.it") && isValidMediaURL(final) {
		return final
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		if target, err := resp.Request.URL.Parse(loc); err == nil && isValidMediaURL(target.String()) {
			return target.String()
		}
	}
	return link
}

// pinterestRow is one quality/format/url triple from the converter table.
type pinterestRow struct {
	Quality string
	Format  string
	URL     string
}

func parsePinterestRows(doc *goquery.Document) []pinterestRow {
	var rows []pinterestRow
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		link := cells.Eq(2)
		href, ok := link.Find("a[href]").First().Attr("href")
		if !ok {
			href = link.Text()
		}
		rows = append(rows, pinterestRow{
			Quality: strings.TrimSpace(cells.Eq(0).Text()),
			Format:  strings.TrimSpace(cells.Eq(1).Text()),
			URL:     strings.TrimSpace(href),
		})
	})
	return rows
}

// scorePinterestRows keeps mp4 rows and scores each by the resolution in its quality label.
func scorePinterestRows(rows []pinterestRow) []candidate {
	out := make([]candidate, 0, len(rows))
	for _, r := range rows {
		if !strings.Contains(strings.ToLower(r.Format), "mp4") {
			continue
		}
		out = append(out, candidate{
			URL:   r.URL,
			Label: r.Quality,
			Ext:   "mp4",
			Score: resolutionScore(r.Quality),
		})
	}
	return out
}
