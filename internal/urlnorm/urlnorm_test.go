package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_WebPages(t *testing.T) {
	tests := []struct {
		raw      string
		hostname string
		path     string
		fullPath string
	}{
		{"https://www.Example.com/docs/", "example.com", "/docs", "https://www.example.com/docs"},
		{"http://blog.test.org/post/123", "blog.test.org", "/post/123", "http://blog.test.org/post/123"},
		{"https://example.com", "example.com", "/", "https://example.com/"},
		{"https://example.com/search?q=go&utm_source=x&fbclid=1", "example.com", "/search?q=go", "https://example.com/search?q=go"},
		{"https://example.com/a?utm_medium=mail", "example.com", "/a", "https://example.com/a"},
	}

	for _, tc := range tests {
		n := Normalize(tc.raw)
		assert.True(t, n.IsWebPage, tc.raw)
		assert.Equal(t, tc.hostname, n.Hostname, "hostname for %s", tc.raw)
		assert.Equal(t, tc.path, n.Path, "path for %s", tc.raw)
		assert.Equal(t, tc.fullPath, n.FullPath, "full path for %s", tc.raw)
	}
}

func TestNormalize_SystemSchemes(t *testing.T) {
	tests := []struct {
		raw      string
		hostname string
	}{
		{"file:///home/me/notes.txt", "Local File"},
		{"chrome-extension://abcdef/popup.html", "Extension"},
		{"about:blank", "Browser"},
		{"chrome://newtab/", "Browser"},
		{"ftp://example.com/pub", "System"},
	}

	for _, tc := range tests {
		n := Normalize(tc.raw)
		assert.False(t, n.IsWebPage, tc.raw)
		assert.Equal(t, tc.hostname, n.Hostname, tc.raw)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	n := Normalize("not a url")
	assert.False(t, n.IsWebPage)
	assert.Equal(t, "Invalid", n.Hostname)
	assert.Equal(t, "not a url", n.Path)
}

func TestIsTrackable(t *testing.T) {
	assert.True(t, IsTrackable("https://example.com"))
	assert.True(t, IsTrackable("http://example.com/x"))
	assert.False(t, IsTrackable(""))
	assert.False(t, IsTrackable("chrome://settings"))
}
