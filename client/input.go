package client

import (
	"regexp"
	"strings"

	"github.com/famomatic/bvdl/internal/types"
)

// DefaultHost serves the detail pages.
const DefaultHost = "www.bilibili.com"

var (
	videoCodePattern = regexp.MustCompile(`^[0-9A-Za-z]+$`)
	videoPathPattern = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.-]*://)?[^/?#\s]+(?:/[^?#\s]*)?/video/([0-9A-Za-z]+)(?:[/?#]|$)`)
)

// ExtractBVID accepts either a raw video code or a detail-page URL and
// returns the code.
func ExtractBVID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", &types.MalformedIdentifierError{Input: input}
	}
	if videoCodePattern.MatchString(s) {
		return s, nil
	}
	if m := videoPathPattern.FindStringSubmatch(s); len(m) == 2 {
		return m[1], nil
	}
	return "", &types.MalformedIdentifierError{Input: input}
}

// ResolveURL returns the canonical detail-page URL for input on host.
// ResolveURL(host, ResolveURL(host, x)) == ResolveURL(host, x).
func ResolveURL(host, input string) (string, error) {
	code, err := ExtractBVID(input)
	if err != nil {
		return "", err
	}
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	return "https://" + host + "/video/" + code, nil
}
