package domain

import "strings"

// Platform identifies the social network a URL belongs to.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformPinterest Platform = "pinterest"
	PlatformFacebook  Platform = "facebook"
	PlatformYouTube   Platform = "youtube"

	// PlatformUniversal is used when no known domain matches.
	PlatformUniversal Platform = "universal"
)

// String returns the string representation of the Platform.
func (p Platform) String() string {
	return string(p)
}

// platformPatterns maps each platform to the URL substrings that identify it.
// Order matters: platforms are checked in declaration order.
var platformPatterns = []struct {
	platform Platform
	patterns []string
}{
	{PlatformTikTok, []string{"tiktok.com", "vt.tiktok.com", "vm.tiktok.com", "m.tiktok.com"}},
	{PlatformInstagram, []string{"instagram.com"}},
	{PlatformPinterest, []string{"pinterest.com", "pin.it"}},
	{PlatformFacebook, []string{"facebook.com", "fb.watch"}},
	{PlatformYouTube, []string{"youtube.com", "youtu.be"}},
}

// ClassifyURL determines the platform for a URL by substring matching
// against known domains. Returns PlatformUniversal when nothing matches.
func ClassifyURL(rawURL string) Platform {
	lower := strings.ToLower(rawURL)
	for _, entry := range platformPatterns {
		for _, pat := range entry.patterns {
			if strings.Contains(lower, pat) {
				return entry.platform
			}
		}
	}
	return PlatformUniversal
}
