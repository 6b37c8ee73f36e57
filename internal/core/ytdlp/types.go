package ytdlp

import "strings"

// Info is the subset of the tool's single-JSON dump the resolvers read.
// Numeric fields are float64 because the tool emits ints, floats and nulls interchangeably.
type Info struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Duration    float64     `json:"duration"`
	Thumbnail   string      `json:"thumbnail"`
	Thumbnails  []Thumbnail `json:"thumbnails"`
	WebpageURL  string      `json:"webpage_url"`
	Extractor   string      `json:"extractor_key"`

	// Top-level fields describe the format the tool would pick by default.
	URL        string  `json:"url"`
	Ext        string  `json:"ext"`
	Format     string  `json:"format"`
	FormatNote string  `json:"format_note"`
	Height     float64 `json:"height"`

	Formats []Format `json:"formats"`
}

// Format is one entry of the formats list.
type Format struct {
	FormatID   string  `json:"format_id"`
	FormatNote string  `json:"format_note"`
	Ext        string  `json:"ext"`
	URL        string  `json:"url"`
	Protocol   string  `json:"protocol"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FPS        float64 `json:"fps"`
	TBR        float64 `json:"tbr"`
	ABR        float64 `json:"abr"`
	Filesize   float64 `json:"filesize"`
}

// Thumbnail is one entry of the thumbnails list.
type Thumbnail struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}

// IsProgressive reports whether the format carries both audio and video in one stream.
func (f Format) IsProgressive() bool {
	return hasCodec(f.VCodec) && hasCodec(f.ACodec)
}

// IsAudioOnly reports whether the format has an audio stream and no video.
func (f Format) IsAudioOnly() bool {
	return f.VCodec == "none" && hasCodec(f.ACodec)
}

// IsStreamingManifest reports whether the format is an HLS or DASH manifest rather than a file.
func (f Format) IsStreamingManifest() bool {
	p := strings.ToLower(f.Protocol)
	return strings.Contains(p, "m3u8") || strings.Contains(p, "dash") || strings.Contains(p, "f4m")
}
