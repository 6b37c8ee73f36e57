package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// nextDataScriptID is the id of the script tag carrying the Next.js page payload.
const nextDataScriptID = "__NEXT_DATA__"

// watermarkSuffixPattern matches the ".<n>.<n>" infix the Shopee CDN inserts before ".mp4"
// in watermarked renditions.
var watermarkSuffixPattern = regexp.MustCompile(`\.\d+\.\d+(\.mp4)`)

// StripWatermarkSuffix derives the clean rendition URL from a watermarked Shopee video URL.
// URLs without the infix are returned unchanged.
func StripWatermarkSuffix(videoURL string) string {
	return watermarkSuffixPattern.ReplaceAllString(videoURL, "$1")
}

// Paths probed inside pageProps.
var (
	shopeeVideoPaths = [][]string{
		{"mediaInfo", "video"},
		{"videoInfo"},
		{"video"},
		{"data", "video"},
	}
	shopeeTitlePaths = [][]string{
		{"mediaInfo", "title"},
		{"videoInfo", "title"},
		{"shareInfo", "title"},
	}
	// shopeeCaptionPaths are the nested caption fields captionFor reads from pageProps.
	shopeeCaptionPaths = [][]string{
		{"mediaInfo", "caption"},
		{"mediaInfo", "video", "caption"},
		{"videoInfo", "caption"},
		{"shareInfo", "caption"},
	}
)

// ShopeeStrategy resolves Shopee Video share links.
type ShopeeStrategy struct {
	client          *http.Client
	shortLinkClient *http.Client
	userAgent       string
}

// NewShopeeStrategy creates the Shopee strategy.
func NewShopeeStrategy(cfg Config, client *http.Client) *ShopeeStrategy {
	return &ShopeeStrategy{
		client:          client,
		shortLinkClient: withoutRedirects(client, cfg.ShortLinkTimeout),
		userAgent:       cfg.UserAgent,
	}
}

func (s *ShopeeStrategy) Name() ServiceName { return ServiceShopee }

func (s *ShopeeStrategy) IsApplicable(link string) bool {
	host := safeHostname(link)
	return isShopeeShortHost(host) || hostHasLabel(host, "shopee")
}

func isShopeeShortHost(host string) bool {
	return hostMatches(host, "shp.ee") || strings.HasPrefix(host, "s.shopee.")
}

func (s *ShopeeStrategy) Resolve(ctx context.Context, link string) (*Result, error) {
	universal, err := s.universalLink(ctx, link)
	if err != nil {
		return nil, err
	}

	shareURL, err := shareURLFromUniversal(universal)
	if err != nil {
		return nil, err
	}

	req, err := newRequest(ctx, http.MethodGet, shareURL, nil, s.userAgent)
	if err != nil {
		return nil, err
	}
	page, err := fetchBody(s.client, req, ServiceShopee)
	if err != nil {
		return nil, err
	}

	raw, ok := extractScriptByID(page, nextDataScriptID)
	if !ok {
		return nil, NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"share page %s has no %s script", shareURL, nextDataScriptID)
	}

	var nextData map[string]any
	if err := json.Unmarshal(raw, &nextData); err != nil {
		return nil, NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"share page payload is not JSON: %v", err)
	}

	pageProps := lookupMap(nextData, "props", "pageProps")
	if pageProps == nil {
		return nil, NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"share page payload has no props.pageProps")
	}

	video := locateShopeeVideo(pageProps)
	if video == nil {
		return nil, fmt.Errorf("%w: share page has no video descriptor", ErrNoMedia)
	}

	ranked := rankCandidates(shopeeCandidates(video))
	title := firstString(pageProps, shopeeTitlePaths...)
	videoID := firstString(video, []string{"id"}, []string{"videoId"}, []string{"vid"})
	if videoID == "" {
		videoID = lookupString(pageProps, "mediaInfo", "id")
	}

	selection, err := newMediaSelection(ranked, buildFileName(title, "shopee-"+videoID, "mp4"), false)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Service:   ServiceShopee,
		Title:     title,
		Thumbnail: firstString(video, []string{"cover"}, []string{"coverUrl"}, []string{"thumbUrl"}),
		ShareURL:  shareURL,
		Video:     selection,
		PageProps: pageProps,
	}
	result.setExtra("videoId", videoID)
	result.setExtra("duration", NormalizeDuration(lookupNumber(video, "duration")))

	slog.Debug("[SHOPEE] resolved share page",
		"share_url", shareURL,
		"video_url", selection.URL,
		"fallbacks", len(selection.FallbackURLs),
	)
	return result, nil
}

// universalLink turns a short link into its universal link via a single non-followed redirect,
// or validates that link already is a universal link.
func (s *ShopeeStrategy) universalLink(ctx context.Context, link string) (string, error) {
	u, err := parseHTTPURL(link)
	if err != nil {
		return "", &UnsupportedLinkError{Link: link}
	}

	if !isShopeeShortHost(strings.ToLower(u.Hostname())) {
		if !strings.Contains(u.Path, "universal-link") {
			return "", &UnsupportedLinkError{Link: link}
		}
		return link, nil
	}

	return s.followShortLink(ctx, link)
}

func (s *ShopeeStrategy) followShortLink(ctx context.Context, link string) (string, error) {
	req, err := newRequest(ctx, http.MethodGet, link, nil, s.userAgent)
	if err != nil {
		return "", err
	}

	resp, err := s.shortLinkClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("short link request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently && resp.StatusCode != http.StatusFound {
		return "", NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"short link answered %d instead of a redirect", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"short link redirect has no Location header")
	}

	target, err := resp.Request.URL.Parse(location)
	if err != nil {
		return "", NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"short link redirect location %q does not parse: %v", location, err)
	}
	return target.String(), nil
}

// shareURLFromUniversal reads the share page URL from the universal link's redir parameter.
func shareURLFromUniversal(universal string) (string, error) {
	u, err := url.Parse(universal)
	if err != nil {
		return "", NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"universal link %q does not parse: %v", universal, err)
	}

	redir := u.Query().Get("redir")
	if redir == "" {
		return "", NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"universal link has no redir parameter")
	}

	// Some share flows encode the parameter twice.
	if strings.HasPrefix(strings.ToLower(redir), "http%3a") {
		if decoded, err := url.QueryUnescape(redir); err == nil {
			redir = decoded
		}
	}

	if !isValidMediaURL(redir) {
		return "", NewAvailabilityError(ServiceShopee, http.StatusBadGateway,
			"redir parameter %q is not a URL", redir)
	}
	return redir, nil
}

// extractScriptByID returns the text content of the <script> element with the given id.
func extractScriptByID(page []byte, id string) ([]byte, bool) {
	z := html.NewTokenizer(bytes.NewReader(page))
	inTarget := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil, false
		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "script" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "id" && attr.Val == id {
					inTarget = true
					break
				}
			}
		case html.TextToken:
			if inTarget {
				text := bytes.TrimSpace(z.Text())
				if len(text) == 0 {
					return nil, false
				}
				return text, true
			}
		case html.EndTagToken:
			if inTarget {
				return nil, false
			}
		}
	}
}

func locateShopeeVideo(pageProps map[string]any) map[string]any {
	for _, p := range shopeeVideoPaths {
		if v := lookupMap(pageProps, p...); v != nil {
			return v
		}
	}
	return nil
}

// shopeeCandidates ranks the clean rendition above any explicit URL, and the
// watermarked original last.
func shopeeCandidates(video map[string]any) []candidate {
	var out []candidate
	if wm := lookupString(video, "watermarkVideoUrl"); wm != "" {
		clean := StripWatermarkSuffix(wm)
		out = append(out, candidate{URL: clean, Label: "original", Ext: "mp4", Score: 2})
		if clean != wm {
			out = append(out, candidate{URL: wm, Label: "watermarked", Ext: "mp4", Score: 0})
		}
	}
	for _, key := range []string{"videoUrl", "url", "video_url"} {
		if v := lookupString(video, key); v != "" {
			out = append(out, candidate{URL: v, Label: "original", Ext: "mp4", Score: 1})
		}
	}
	return out
}
