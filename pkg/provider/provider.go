// Package provider defines the polymorphic contract shared by all
// package-metadata providers.
//
// A provider turns one source URL (a hosted repository or a static index
// file) into normalized package records for the catalog. Each hosting
// service has its own implementation under a subpackage (bitbucket, github,
// jsonindex); a routing table in the registry subpackage picks the right
// one for a URL. Providers are constructed per source URL, used for one
// catalog-refresh pass, and discarded.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is the single failure kind providers report: the source's
// metadata could not be obtained. Network failures, API error responses,
// non-whitelisted sources, and malformed responses all collapse to it; the
// client layer owns any finer-grained diagnostics. Callers omit the source
// from the catalog when they see it.
var ErrUnavailable = errors.New("source metadata unavailable")

// Settings carries the configuration handed to every provider. Providers
// store it verbatim and pass it through to their API client, which validates
// what it needs.
type Settings struct {
	// CacheLength is the freshness window for the underlying HTTP cache.
	CacheLength time.Duration

	// Debug enables verbose logging in the client layer.
	Debug bool

	// Timeout bounds each outbound API request.
	Timeout time.Duration

	// UserAgent is sent on every API request.
	UserAgent string

	// Outbound proxy configuration, all optional.
	HTTPProxy     string
	HTTPSProxy    string
	ProxyUsername string
	ProxyPassword string

	// QueryStringParams holds extra query parameters to attach to API
	// calls, keyed by API host.
	QueryStringParams map[string]map[string]string

	// InstallPrereleases selects prerelease versions when picking the
	// download for a package.
	InstallPrereleases bool
}

// Download describes the selected release artifact for a package.
type Download struct {
	URL     string `json:"url"`
	Date    string `json:"date"`
	Version string `json:"version"`
}

// Package is one normalized catalog record.
//
// LastModified is empty when the remote API reports no date for the
// selected download. PreviousNames, Labels and Sources are always non-nil
// so the record marshals with empty arrays rather than null.
type Package struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Homepage      string   `json:"homepage"`
	Author        string   `json:"author"`
	LastModified  string   `json:"last_modified,omitempty"`
	Download      Download `json:"download"`
	PreviousNames []string `json:"previous_names"`
	Labels        []string `json:"labels"`
	Sources       []string `json:"sources"`
	Readme        string   `json:"readme,omitempty"`
	Issues        string   `json:"issues,omitempty"`
	Donate        string   `json:"donate,omitempty"`
}

// Packages maps package name to its catalog record.
type Packages map[string]Package

// RepoInfo is the repository metadata half of the API client contract.
type RepoInfo struct {
	Name        string
	Description string
	Homepage    string
	Author      string
	Readme      string
	Issues      string
	Donate      string
}

// RepoClient is the API client collaborator a repository provider consumes.
// Implementations handle transport, pagination, rate limits and auth; the
// provider only reshapes their output.
type RepoClient interface {
	// RepoInfo fetches repository metadata for the source URL.
	RepoInfo(ctx context.Context, repoURL string) (*RepoInfo, error)

	// DownloadInfo fetches the latest release for the source URL, honoring
	// the prerelease setting.
	DownloadInfo(ctx context.Context, repoURL string) (*Download, error)
}

// Provider is the contract the catalog aggregator consumes. All
// implementations must behave identically so callers can treat them
// uniformly.
//
// Implementations memoize: FetchPackages computes its result at most once
// per instance and repeated calls return the memoized value, including a
// memoized failure. They are safe for use from a single logical flow of
// control; concurrent warm-up across instances is the caller's concern.
type Provider interface {
	// Prefetch triggers FetchPackages purely to populate the memo ahead of
	// time. Failures are captured in the memo, never surfaced here.
	Prefetch(ctx context.Context)

	// FetchPackages returns the normalized records for this source, or
	// ErrUnavailable. When validSources is non-nil and does not contain
	// the provider's source URL, it fails without any network call.
	FetchPackages(ctx context.Context, validSources []string) (Packages, error)

	// RenamedPackages maps old package names to new ones, for sources
	// whose model carries renames.
	RenamedPackages() map[string]string

	// UnavailablePackages lists packages the source declares but that
	// cannot be installed on the current platform.
	UnavailablePackages() []string
}
