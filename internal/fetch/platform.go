// Package fetch - platform.go provides platform detection and platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known competition listing site.
type Platform string

const (
	// PlatformInfoLomba is the infolomba listing site
	PlatformInfoLomba Platform = "infolomba"
	// PlatformLombaKu is the lombaku listing site
	PlatformLombaKu Platform = "lombaku"
	// PlatformInstagram is the social profile host
	PlatformInstagram Platform = "instagram"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the competition platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)

	switch {
	case strings.Contains(host, "infolomba"):
		return PlatformInfoLomba
	case strings.Contains(host, "lombaku"):
		return PlatformLombaKu
	case strings.Contains(host, "instagram.com"), strings.Contains(host, "cdninstagram.com"):
		return PlatformInstagram
	}

	return PlatformUnknown
}

// PlatformContentSelectors returns detail-page content selectors for a platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformInfoLomba:
		return []string{
			".event-description", // detail body
			".description",
			".entry-content",
			"article",
		}
	case PlatformLombaKu:
		return []string{
			".competition-detail__description",
			".detail-content",
			".post-content",
			"article",
		}
	default:
		return DefaultTextSelectors()
	}
}

// PlatformNoiseSelectors returns selectors removed before detail text extraction.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		// Social and share buttons
		".social-share",
		".share-buttons",
		".social-links",

		// Related posts and comments
		".related-posts",
		".comments",
		"#comments",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
	}

	switch platform {
	case PlatformInfoLomba:
		return append(common,
			".event-sidebar",
			".btn-daftar",
		)
	case PlatformLombaKu:
		return append(common,
			".ads-wrapper",
			".newsletter",
		)
	default:
		return common
	}
}
