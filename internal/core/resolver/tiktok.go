package resolver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TikTok option scoring weights. The unwatermarked tier exceeds any four-digit
// resolution plus the HD bonus.
const (
	tiktokNoWatermarkBonus = 100000
	tiktokHDBonus          = 50
)

var (
	tiktokNoWatermarkPattern = regexp.MustCompile(`(?i)\b(no|without)[\s-]+watermark\b`)
	tiktokResolutionPattern  = regexp.MustCompile(`(\d{3,4})p`)
	tiktokHDPattern          = regexp.MustCompile(`(?i)\bhd\b`)
	tiktokAudioPattern       = regexp.MustCompile(`(?i)\b(mp3|audio|music)\b`)
	whitespacePattern        = regexp.MustCompile(`\s+`)
)

// TikTokStrategy resolves TikTok links through a third-party downloader's AJAX endpoint,
// which answers with an HTML fragment of download anchors.
type TikTokStrategy struct {
	client        *http.Client
	downloaderURL string
	userAgent     string
}

// NewTikTokStrategy creates the TikTok strategy.
func NewTikTokStrategy(cfg Config, client *http.Client) *TikTokStrategy {
	return &TikTokStrategy{
		client:        client,
		downloaderURL: cfg.TikTokDownloaderURL,
		userAgent:     cfg.UserAgent,
	}
}

func (s *TikTokStrategy) Name() ServiceName { return ServiceTikTok }

func (s *TikTokStrategy) IsApplicable(link string) bool {
	return hostMatches(safeHostname(link), "tiktok.com")
}

func (s *TikTokStrategy) Resolve(ctx context.Context, link string) (*Result, error) {
	form := url.Values{
		"id":     {link},
		"locale": {"en"},
		"tt":     {"0"},
	}
	req, err := newFormRequest(ctx, s.downloaderURL, form, s.userAgent)
	if err != nil {
		return nil, err
	}
	req.Header.Set("HX-Request", "true")

	fragment, err := fetchBody(s.client, req, ServiceTikTok)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragment))
	if err != nil {
		return nil, NewAvailabilityError(ServiceTikTok, http.StatusBadGateway,
			"downloader fragment does not parse: %v", err)
	}

	videos, audios := parseTikTokOptions(doc)
	if len(videos) == 0 {
		if len(audios) == 0 {
			return nil, NewAvailabilityError(ServiceTikTok, http.StatusBadGateway,
				"downloader fragment has no download anchors")
		}
		return nil, fmt.Errorf("%w: downloader offered audio only", ErrNoMedia)
	}

	title := strings.TrimSpace(doc.Find("p.maintext").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h2").First().Text())
	}
	videoID := lastPathSegment(link)

	video, err := newMediaSelection(rankCandidates(videos), buildFileName(title, "tiktok-"+videoID, "mp4"), false)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Service:  ServiceTikTok,
		Title:    title,
		ShareURL: link,
		Video:    video,
	}
	if ranked := rankCandidates(audios); len(ranked) > 0 {
		if audio, err := newMediaSelection(ranked, buildFileName(title, "tiktok-"+videoID, "mp3"), true); err == nil {
			result.Audio = audio
		}
	}
	if thumb, ok := doc.Find("img[src]").First().Attr("src"); ok && isValidMediaURL(thumb) {
		result.Thumbnail = thumb
	}
	result.setExtra("videoId", videoID)

	slog.Debug("[TIKTOK] resolved video",
		"link", link,
		"quality", video.QualityLabel,
		"fallbacks", len(video.FallbackURLs),
	)
	return result, nil
}

// parseTikTokOptions splits the fragment's anchors into scored video and audio candidates.
func parseTikTokOptions(doc *goquery.Document) (videos, audios []candidate) {
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !isValidMediaURL(href) {
			return
		}
		label := strings.TrimSpace(whitespacePattern.ReplaceAllString(a.Text(), " "))
		if tiktokAudioPattern.MatchString(label) {
			audios = append(audios, candidate{URL: href, Label: label, Ext: "mp3"})
			return
		}
		videos = append(videos, candidate{
			URL:   href,
			Label: label,
			Ext:   "mp4",
			Score: scoreTikTokOption(label),
		})
	})
	return videos, audios
}

// scoreTikTokOption ranks unwatermarked options above every watermarked one,
// then by resolution, with a small bonus for HD labels.
func scoreTikTokOption(label string) float64 {
	var score float64
	if tiktokNoWatermarkPattern.MatchString(label) {
		score += tiktokNoWatermarkBonus
	}
	if m := tiktokResolutionPattern.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			score += float64(n)
		}
	}
	if tiktokHDPattern.MatchString(label) {
		score += tiktokHDBonus
	}
	return score
}
