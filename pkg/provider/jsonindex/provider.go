// Package jsonindex allows using a static JSON index file served over HTTP
// as the source for many packages at once.
//
// The index document lists packages with their releases; this provider
// normalizes every entry into the shared catalog record shape, picking the
// release that fits the current platform and prerelease setting.
package jsonindex

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"slices"

	"github.com/packshelf/packshelf/pkg/cache"
	"github.com/packshelf/packshelf/pkg/clients"
	"github.com/packshelf/packshelf/pkg/provider"
)

var indexURLPattern = regexp.MustCompile(`^https?://\S+\.json$`)

// fetcher is the slice of the shared client this provider needs.
type fetcher interface {
	Cached(ctx context.Context, key string, v any, fetch func() error) error
	Get(ctx context.Context, url string, v any) error
}

// Provider reads a JSON index document and exposes its packages through the
// shared provider contract. Like the repository providers, the result
// (including a failure) is memoized per instance.
type Provider struct {
	repo     string
	settings provider.Settings
	client   fetcher
	platform string
	fetched  *fetchResult

	renamed     map[string]string
	unavailable []string
}

type fetchResult struct {
	packages provider.Packages
	err      error
}

// MatchURL indicates whether this provider can handle the given source URL:
// any http(s) URL pointing at a .json document.
func MatchURL(repo string) bool {
	return indexURLPattern.MatchString(repo)
}

// New creates a provider for the given index URL.
func New(repo string, settings provider.Settings, backend cache.Cache) *Provider {
	return &Provider{
		repo:     repo,
		settings: settings,
		client:   clients.NewClient(backend, "index:", settings, nil),
		platform: hostPlatform(),
	}
}

// Prefetch loads the index ahead of time, capturing the result (or failure)
// in the memo.
func (p *Provider) Prefetch(ctx context.Context) {
	_, _ = p.FetchPackages(ctx, nil)
}

// FetchPackages downloads the index document through the shared client
// (repeat fetches within the freshness window come from the cache backend)
// and normalizes every listed package. Packages whose releases all target
// other platforms are omitted and reported by UnavailablePackages instead.
func (p *Provider) FetchPackages(ctx context.Context, validSources []string) (provider.Packages, error) {
	if p.fetched != nil {
		return p.fetched.packages, p.fetched.err
	}

	if validSources != nil && !slices.Contains(validSources, p.repo) {
		return p.fail()
	}

	var doc document
	err := p.client.Cached(ctx, p.repo, &doc, func() error {
		return p.client.Get(ctx, p.repo, &doc)
	})
	if err != nil {
		return p.fail()
	}

	pkgs := provider.Packages{}
	p.renamed = doc.RenamedPackages
	p.unavailable = []string{}

	for _, entry := range doc.Packages {
		if entry.Name == "" {
			continue
		}

		compatible := entry.releasesFor(p.platform)
		if len(compatible) == 0 && len(entry.Releases) > 0 {
			p.unavailable = append(p.unavailable, entry.Name)
			continue
		}

		release, ok := latestRelease(compatible, p.settings.InstallPrereleases)
		if !ok {
			continue
		}

		pkgs[entry.Name] = provider.Package{
			Name:          entry.Name,
			Description:   entry.Description,
			Homepage:      entry.Homepage,
			Author:        entry.Author,
			LastModified:  release.Date,
			Download:      provider.Download{URL: release.URL, Date: release.Date, Version: release.Version},
			PreviousNames: orEmpty(entry.PreviousNames),
			Labels:        orEmpty(entry.Labels),
			Sources:       []string{p.repo},
			Readme:        entry.Readme,
			Issues:        entry.Issues,
			Donate:        entry.Donate,
		}
	}

	p.fetched = &fetchResult{packages: pkgs}
	return pkgs, nil
}

func (p *Provider) fail() (provider.Packages, error) {
	err := fmt.Errorf("%w: %s", provider.ErrUnavailable, p.repo)
	p.fetched = &fetchResult{err: err}
	return nil, err
}

// RenamedPackages returns the index's old-name to new-name map. Empty until
// the index has been fetched successfully.
func (p *Provider) RenamedPackages() map[string]string {
	if p.fetched == nil || p.fetched.err != nil || p.renamed == nil {
		return map[string]string{}
	}
	return p.renamed
}

// UnavailablePackages lists index entries whose releases all target other
// platforms. Empty until the index has been fetched successfully.
func (p *Provider) UnavailablePackages() []string {
	if p.fetched == nil || p.fetched.err != nil || p.unavailable == nil {
		return []string{}
	}
	return p.unavailable
}

// latestRelease picks the highest-versioned release, skipping prereleases
// unless allowed.
func latestRelease(releases []release, prereleases bool) (release, bool) {
	versions := make([]string, len(releases))
	for i, r := range releases {
		versions[i] = r.Version
	}
	tag, ok := clients.LatestTag(versions, prereleases)
	if !ok {
		return release{}, false
	}
	for _, r := range releases {
		if r.Version == tag {
			return r, true
		}
	}
	return release{}, false
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// hostPlatform maps the runtime OS to the platform names index documents
// use.
func hostPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "osx"
	default:
		return runtime.GOOS
	}
}

type document struct {
	SchemaVersion   string            `json:"schema_version"`
	Packages        []packageEntry    `json:"packages"`
	RenamedPackages map[string]string `json:"renamed_packages"`
}

type packageEntry struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Author        string    `json:"author"`
	Homepage      string    `json:"homepage"`
	Readme        string    `json:"readme"`
	Issues        string    `json:"issues"`
	Donate        string    `json:"donate"`
	Labels        []string  `json:"labels"`
	PreviousNames []string  `json:"previous_names"`
	Releases      []release `json:"releases"`
}

type release struct {
	Version   string   `json:"version"`
	URL       string   `json:"url"`
	Date      string   `json:"date"`
	Platforms []string `json:"platforms"`
}

// releasesFor filters the entry's releases to those installable on the
// given platform. A release with no platform list, or listing "*", runs
// anywhere.
func (e *packageEntry) releasesFor(platform string) []release {
	var out []release
	for _, r := range e.Releases {
		if len(r.Platforms) == 0 || slices.Contains(r.Platforms, "*") || slices.Contains(r.Platforms, platform) {
			out = append(out, r)
		}
	}
	return out
}

var _ provider.Provider = (*Provider)(nil)
