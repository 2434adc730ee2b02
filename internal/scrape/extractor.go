// Package scrape extracts candidate media links from HTML documents
// returned by third-party download services.
package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// hostDenylist filters out links that point back at the source platforms
// or at the download services' own assets.
var hostDenylist = []string{
	"twitter.com", "facebook.com", "instagram.com", "youtube.com", "googlevideo.com",
	"ssstwitter", "snapinsta", "savefrom", "snaptik", "musicaldown", "ssstik",
	"fonts.googleapis", "cdnjs", "jquery", "cloudflare", "analytics",
}

// pageExtensions are endings that mark a link as a web page rather than media.
var pageExtensions = []string{".html", ".php", ".css", ".js"}

var (
	attrURLPattern = regexp.MustCompile(`(?i)(?:href|src|data-video-url|data-src)=["'](https?://[^"']+)["']`)
	mediaExtProbe  = []string{".mp4", ".webm"}
)

// Extractor pulls direct media URLs out of service response pages.
type Extractor struct {
	// Hints narrows candidates to URLs containing at least one of these
	// substrings. Empty means accept any URL that survives the denylist.
	Hints []string
}

// NewExtractor returns an extractor with the default candidate hints.
func NewExtractor() *Extractor {
	return &Extractor{Hints: []string{"tiktok", "video", "cdn"}}
}

// Extract returns candidate media URLs found in an HTML body, best first.
// Links with a video extension sort ahead of everything else.
func (e *Extractor) Extract(body string) []string {
	candidates := e.collect(body)
	if len(candidates) == 0 {
		return nil
	}

	var direct, rest []string
	for _, u := range candidates {
		if HasVideoExtension(u) {
			direct = append(direct, u)
		} else {
			rest = append(rest, u)
		}
	}
	return append(direct, rest...)
}

// First returns the best candidate from body, or "" when nothing usable
// was found.
func (e *Extractor) First(body string) string {
	links := e.Extract(body)
	if len(links) == 0 {
		return ""
	}
	return links[0]
}

func (e *Extractor) collect(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(u string) {
		if u == "" || !e.accept(u) {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		doc.Find("[href], [src], [data-video-url], [data-src]").Each(func(_ int, s *goquery.Selection) {
			for _, attr := range []string{"data-video-url", "href", "src", "data-src"} {
				if v, ok := s.Attr(attr); ok && strings.HasPrefix(v, "http") {
					add(v)
				}
			}
		})
	}

	// Regex sweep catches links in inline scripts and malformed markup
	// that the DOM walk misses.
	for _, m := range attrURLPattern.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

func (e *Extractor) accept(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if i := strings.IndexByte(lower, '#'); i >= 0 {
		lower = lower[:i]
	}
	for _, bad := range hostDenylist {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	for _, ext := range pageExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	if HasVideoExtension(lower) {
		return true
	}
	if len(e.Hints) == 0 {
		return true
	}
	for _, hint := range e.Hints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// HasVideoExtension reports whether the URL contains a direct video
// file extension.
func HasVideoExtension(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range mediaExtProbe {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}
