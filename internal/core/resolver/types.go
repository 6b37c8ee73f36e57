package resolver

// ServiceName identifies the platform strategy that produced a Result.
type ServiceName string

const (
	ServiceShopee    ServiceName = "shopee"
	ServicePinterest ServiceName = "pinterest"
	ServiceTikTok    ServiceName = "tiktok"
	ServiceYouTube   ServiceName = "youtube"
	ServiceMeta      ServiceName = "meta"
)

// Known reports whether s is one of the built-in services.
func (s ServiceName) Known() bool {
	switch s {
	case ServiceShopee, ServicePinterest, ServiceTikTok, ServiceYouTube, ServiceMeta:
		return true
	}
	return false
}

// String returns the service tag.
func (s ServiceName) String() string {
	return string(s)
}

// DisplayName returns the human-readable platform name used in client-facing messages.
func (s ServiceName) DisplayName() string {
	switch s {
	case ServiceShopee:
		return "Shopee"
	case ServicePinterest:
		return "Pinterest"
	case ServiceTikTok:
		return "TikTok"
	case ServiceYouTube:
		return "YouTube"
	case ServiceMeta:
		return "Instagram/Facebook"
	default:
		return string(s)
	}
}

// MediaSelection is one downloadable asset: the best candidate plus ranked alternates.
type MediaSelection struct {
	// URL is the byte-serving address of the best candidate.
	URL string `json:"url"`

	// FallbackURLs holds the remaining candidates, highest score first.
	// It never contains URL.
	FallbackURLs []string `json:"fallbackUrls,omitempty"`

	// FileName is the suggested save name, including extension.
	FileName string `json:"fileName,omitempty"`

	// ContentType is the best-guess MIME type of the asset.
	ContentType string `json:"contentType,omitempty"`

	// QualityLabel is a human-readable quality descriptor ("720p", "128kbps").
	QualityLabel string `json:"qualityLabel,omitempty"`
}

// Result is the normalized output of every strategy.
type Result struct {
	Service     ServiceName     `json:"service"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	ShareURL    string          `json:"shareUrl,omitempty"`
	Video       *MediaSelection `json:"video,omitempty"`
	Audio       *MediaSelection `json:"audio,omitempty"`

	// PageProps relays the Next.js page payload; only the Shopee strategy sets it.
	PageProps map[string]any `json:"pageProps,omitempty"`

	// Extras is an open side channel for per-platform fields (duration, ids, raw dumps).
	Extras map[string]any `json:"extras,omitempty"`
}

// setExtra stores a value in Extras, skipping zero values.
func (r *Result) setExtra(key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
	case float64:
		if v == 0 {
			return
		}
	}
	if r.Extras == nil {
		r.Extras = make(map[string]any)
	}
	r.Extras[key] = value
}

// Resolved is a Result handed back to the client together with the hash
// under which its caption was remembered.
type Resolved struct {
	Result
	LinkHash string `json:"linkHash"`
}
