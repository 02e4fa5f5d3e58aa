package clients

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/packshelf/packshelf/pkg/provider"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a repository or resource doesn't exist
	// on the hosting service.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client from provider settings: request
// timeout plus optional outbound proxies with credentials.
func NewHTTPClient(settings provider.Settings) *http.Client {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if settings.HTTPProxy != "" || settings.HTTPSProxy != "" {
		client.Transport = &http.Transport{Proxy: proxyFunc(settings)}
	}
	return client
}

func proxyFunc(settings provider.Settings) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		raw := settings.HTTPProxy
		if req.URL.Scheme == "https" && settings.HTTPSProxy != "" {
			raw = settings.HTTPSProxy
		}
		if raw == "" {
			return nil, nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		if settings.ProxyUsername != "" {
			u.User = url.UserPassword(settings.ProxyUsername, settings.ProxyPassword)
		}
		return u, nil
	}
}

// ParseRepoURL extracts owner and repository name from a source URL using
// the given pattern. The pattern must capture owner (group 1) and name
// (group 2). Returns ok=false when the URL doesn't match.
func ParseRepoURL(re *regexp.Regexp, repoURL string) (owner, name string, ok bool) {
	m := re.FindStringSubmatch(repoURL)
	if len(m) < 3 {
		return "", "", false
	}
	return m[1], strings.TrimSuffix(m[2], ".git"), true
}

// LatestTag picks the highest semantic version from a list of tag names.
// Tags that don't parse as versions are ignored; prerelease versions are
// skipped unless prereleases is true. Returns ok=false when no tag
// qualifies.
func LatestTag(tags []string, prereleases bool) (string, bool) {
	var best, bestCanon string
	for _, tag := range tags {
		canon := canonicalVersion(tag)
		if canon == "" {
			continue
		}
		if !prereleases && semver.Prerelease(canon) != "" {
			continue
		}
		if bestCanon == "" || semver.Compare(canon, bestCanon) > 0 {
			best, bestCanon = tag, canon
		}
	}
	return best, bestCanon != ""
}

// Version returns the version string a tag represents, without any leading
// "v". Returns empty when the tag isn't a valid version.
func Version(tag string) string {
	canon := canonicalVersion(tag)
	if canon == "" {
		return ""
	}
	return strings.TrimPrefix(canon, "v")
}

func canonicalVersion(tag string) string {
	v := strings.TrimSpace(tag)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// FormatDate normalizes an RFC 3339 timestamp from a hosting API to the
// catalog's "YYYY-MM-DD HH:MM:SS" form. Unparseable input is returned
// unchanged so the raw value is still visible downstream.
func FormatDate(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// TimestampVersion derives a version string from a commit timestamp, used
// when a repository has no release tags. Mirrors the catalog convention
// "YYYY.MM.DD.HH.MM.SS".
func TimestampVersion(t time.Time) string {
	return t.UTC().Format("2006.01.02.15.04.05")
}
