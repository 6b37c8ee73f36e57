package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"Linkgrab/internal/core/ytdlp"
)

// audioContainers are the extensions accepted for the audio-only selection.
var audioContainers = map[string]bool{
	"m4a":  true,
	"mp4":  true,
	"webm": true,
	"mp3":  true,
	"opus": true,
	"ogg":  true,
	"aac":  true,
}

// YouTubeStrategy resolves YouTube links from the extraction tool's format dump.
type YouTubeStrategy struct {
	extractor MetadataExtractor
}

// NewYouTubeStrategy creates the YouTube strategy.
func NewYouTubeStrategy(extractor MetadataExtractor) *YouTubeStrategy {
	return &YouTubeStrategy{extractor: extractor}
}

func (s *YouTubeStrategy) Name() ServiceName { return ServiceYouTube }

func (s *YouTubeStrategy) IsApplicable(link string) bool {
	return hostMatches(safeHostname(link), "youtube.com", "youtu.be", "youtube-nocookie.com")
}

func (s *YouTubeStrategy) Resolve(ctx context.Context, link string) (*Result, error) {
	if s.extractor == nil {
		return nil, NewAvailabilityError(ServiceYouTube, http.StatusServiceUnavailable,
			"metadata extractor is not configured")
	}

	info, err := s.extractor.Extract(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("metadata extraction failed: %w", err)
	}

	fallbackName := "youtube-" + info.ID
	video, err := newMediaSelection(
		rankCandidates(youtubeVideoCandidates(info.Formats)),
		buildFileName(info.Title, fallbackName, "mp4"),
		false,
	)
	if err != nil {
		return nil, fmt.Errorf("no progressive mp4 format: %w", err)
	}

	result := &Result{
		Service:     ServiceYouTube,
		Title:       info.Title,
		Description: info.Description,
		Thumbnail:   bestThumbnail(info),
		ShareURL:    lo.Ternary(info.WebpageURL != "", info.WebpageURL, link),
		Video:       video,
	}

	audioRanked := rankCandidates(youtubeAudioCandidates(info.Formats, video.URL))
	if len(audioRanked) > 0 {
		audio, err := newMediaSelection(audioRanked, buildFileName(info.Title, fallbackName, audioRanked[0].Ext), true)
		if err == nil {
			result.Audio = audio
		}
	}

	result.setExtra("videoId", info.ID)
	result.setExtra("duration", NormalizeDuration(info.Duration))

	slog.Debug("[YOUTUBE] resolved video",
		"id", info.ID,
		"formats", len(info.Formats),
		"quality", video.QualityLabel,
		"has_audio", result.Audio != nil,
	)
	return result, nil
}

// youtubeVideoCandidates keeps progressive mp4 files and scores them by height,
// else total bitrate, else frame rate times ten.
func youtubeVideoCandidates(formats []ytdlp.Format) []candidate {
	out := make([]candidate, 0, len(formats))
	for _, f := range formats {
		if !f.IsProgressive() || f.IsStreamingManifest() || !strings.EqualFold(f.Ext, "mp4") {
			continue
		}
		var score float64
		switch {
		case f.Height > 0:
			score = f.Height
		case f.TBR > 0:
			score = f.TBR
		case f.FPS > 0:
			score = f.FPS * 10
		}
		label := f.FormatNote
		if f.Height > 0 {
			label = fmt.Sprintf("%.0fp", f.Height)
		}
		out = append(out, candidate{URL: f.URL, Label: label, Ext: "mp4", Score: score})
	}
	return out
}

// youtubeAudioCandidates keeps audio-only files, skipping the URL already chosen for video.
func youtubeAudioCandidates(formats []ytdlp.Format, videoURL string) []candidate {
	out := make([]candidate, 0, len(formats))
	for _, f := range formats {
		ext := strings.ToLower(f.Ext)
		if !f.IsAudioOnly() || f.IsStreamingManifest() || !audioContainers[ext] || f.URL == videoURL {
			continue
		}
		score := f.ABR
		if score == 0 {
			score = f.TBR
		}
		label := f.FormatNote
		if score > 0 {
			label = fmt.Sprintf("%.0fkbps", score)
		}
		out = append(out, candidate{URL: f.URL, Label: label, Ext: ext, Score: score})
	}
	return out
}

// bestThumbnail returns the widest listed thumbnail, or the single thumbnail field.
func bestThumbnail(info *ytdlp.Info) string {
	thumbs := lo.Filter(info.Thumbnails, func(t ytdlp.Thumbnail, _ int) bool {
		return isValidMediaURL(t.URL)
	})
	if len(thumbs) == 0 {
		return info.Thumbnail
	}
	widest := lo.MaxBy(thumbs, func(a, b ytdlp.Thumbnail) bool {
		return a.Width > b.Width
	})
	return widest.URL
}
