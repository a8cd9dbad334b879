package domain

import (
	"net/url"
	"strings"
)

var postPathMarkers = []string{"/reel", "/reels", "/p/", "/tv/"}

// IsInstagramURL reports whether raw is an http(s) URL pointing at an
// Instagram post, reel or tv page on instagram.com or one of its
// subdomains.
func IsInstagramURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host != "instagram.com" && !strings.HasSuffix(host, ".instagram.com") {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, m := range postPathMarkers {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}
