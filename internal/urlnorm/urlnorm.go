// Package urlnorm maps raw browser URLs onto the hostname/path keys that
// activity is attributed to.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalized is the attribution key for a raw URL.
type Normalized struct {
	Hostname  string
	Path      string
	Protocol  string
	FullPath  string
	IsWebPage bool
}

var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"_ga":          {},
	"ref":          {},
	"source":       {},
}

// Normalize lowercases the host, strips a leading "www.", drops a trailing
// slash and removes known tracking parameters. Non-web schemes are grouped
// under a synthetic hostname and reported with IsWebPage false.
func Normalize(raw string) Normalized {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return Normalized{Hostname: "Invalid", Path: raw, Protocol: "unknown:", FullPath: raw}
	}

	protocol := strings.ToLower(u.Scheme) + ":"
	if protocol != "http:" && protocol != "https:" {
		return Normalized{
			Hostname: systemHostname(protocol),
			Path:     u.Path,
			Protocol: protocol,
			FullPath: raw,
		}
	}

	host := strings.ToLower(u.Hostname())
	path := normalizePath(u.EscapedPath()) + cleanQuery(u.RawQuery)

	return Normalized{
		Hostname:  strings.TrimPrefix(host, "www."),
		Path:      path,
		Protocol:  protocol,
		FullPath:  protocol + "//" + host + path,
		IsWebPage: true,
	}
}

// IsTrackable reports whether raw is an http(s) URL.
func IsTrackable(raw string) bool {
	return raw != "" && Normalize(raw).IsWebPage
}

// Hostname is shorthand for Normalize(raw).Hostname.
func Hostname(raw string) string {
	return Normalize(raw).Hostname
}

func systemHostname(protocol string) string {
	switch protocol {
	case "file:":
		return "Local File"
	case "chrome-extension:", "moz-extension:":
		return "Extension"
	case "about:", "chrome:", "edge:":
		return "Browser"
	default:
		return "System"
	}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}

// cleanQuery drops tracking parameters while keeping the remaining ones in
// their original order.
func cleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if _, drop := trackingParams[strings.ToLower(key)]; drop {
			continue
		}
		kept = append(kept, pair)
	}
	if len(kept) == 0 {
		return ""
	}
	return "?" + strings.Join(kept, "&")
}
