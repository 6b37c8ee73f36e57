package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
)

// linkPattern finds the first URL inside free text.
var linkPattern = regexp.MustCompile(`https?://\S+`)

// ExtractLink returns the first http(s) URL found in text, or the trimmed text itself.
func ExtractLink(text string) string {
	if match := linkPattern.FindString(text); match != "" {
		return match
	}
	return strings.TrimSpace(text)
}

// HashLink returns the content hash under which a resolved link is remembered.
func HashLink(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])
}

// parseHTTPURL parses an absolute http(s) URL with a host.
func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrInvalidMediaURL
	}
	if u.Hostname() == "" {
		return nil, ErrInvalidMediaURL
	}
	return u, nil
}

// isValidMediaURL reports whether raw is an absolute http(s) URL.
func isValidMediaURL(raw string) bool {
	_, err := parseHTTPURL(raw)
	return err == nil
}

// safeHostname returns the lowercased hostname of link, or "" when it does not parse.
func safeHostname(link string) string {
	u, err := parseHTTPURL(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// hostMatches reports whether host equals one of the suffixes or is a subdomain of one.
func hostMatches(host string, suffixes ...string) bool {
	if host == "" {
		return false
	}
	for _, s := range suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// hostHasLabel reports whether any dot-separated label of host equals label,
// which matches country domains like pinterest.co.uk or shopee.co.id.
func hostHasLabel(host, label string) bool {
	if host == "" {
		return false
	}
	for _, part := range strings.Split(host, ".") {
		if part == label {
			return true
		}
	}
	return false
}

// lastPathSegment returns the last non-empty path segment of link.
func lastPathSegment(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}

const maxFileNameRunes = 80

// buildFileName turns a title (or a fallback slug) into a filesystem-safe name with extension.
func buildFileName(title, fallback, ext string) string {
	base := sanitizeFileName(title)
	if base == "" {
		base = sanitizeFileName(fallback)
	}
	if base == "" {
		base = "media"
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func sanitizeFileName(s string) string {
	var b strings.Builder
	lastDash := false
	count := 0
	for _, r := range strings.TrimSpace(s) {
		if count >= maxFileNameRunes {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
			count++
		case r == '_' || r == '-' || unicode.IsSpace(r) || r == '.':
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
				count++
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// guessContentType maps a file extension to a MIME type.
func guessContentType(ext string, audioOnly bool) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	switch ext {
	case "mp4":
		if audioOnly {
			return "audio/mp4"
		}
		return "video/mp4"
	case "m4a":
		return "audio/mp4"
	case "webm":
		if audioOnly {
			return "audio/webm"
		}
		return "video/webm"
	case "mp3":
		return "audio/mpeg"
	case "opus", "ogg":
		return "audio/ogg"
	case "":
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
