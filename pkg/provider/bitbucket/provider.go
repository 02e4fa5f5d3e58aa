// Package bitbucket allows using a public BitBucket repository as the
// source for a single package.
package bitbucket

import (
	"context"
	"fmt"
	"slices"

	"github.com/packshelf/packshelf/pkg/cache"
	bbclient "github.com/packshelf/packshelf/pkg/clients/bitbucket"
	"github.com/packshelf/packshelf/pkg/provider"
)

// Provider turns one public BitBucket repository URL into a normalized
// single-package catalog record.
//
// Instances memoize their result, including failures: the API is queried at
// most once per instance regardless of how often FetchPackages is called.
type Provider struct {
	repo     string
	settings provider.Settings
	client   provider.RepoClient
	fetched  *fetchResult
}

type fetchResult struct {
	packages provider.Packages
	err      error
}

// MatchURL indicates whether this provider can handle the given source URL.
// It accepts https://bitbucket.org/owner/name with or without a trailing
// slash and nothing else.
func MatchURL(repo string) bool {
	return bbclient.MatchURL(repo)
}

// New creates a provider for the given BitBucket repository URL. Settings
// are stored verbatim and passed through to the API client; no validation
// happens here.
func New(repo string, settings provider.Settings, backend cache.Cache) *Provider {
	return &Provider{
		repo:     repo,
		settings: settings,
		client:   bbclient.NewClient(backend, settings),
	}
}

// Prefetch performs the API calls ahead of time, capturing the result (or
// failure) in the memo so a later FetchPackages returns immediately.
func (p *Provider) Prefetch(ctx context.Context) {
	_, _ = p.FetchPackages(ctx, nil)
}

// FetchPackages uses the BitBucket API to construct the record for the one
// package this repository holds, keyed by the name the API reports.
//
// When validSources is non-nil and doesn't contain the source URL, the
// provider fails without touching the network. All failure causes collapse
// to provider.ErrUnavailable; the memoized result (success or failure) is
// returned on every subsequent call.
func (p *Provider) FetchPackages(ctx context.Context, validSources []string) (provider.Packages, error) {
	if p.fetched != nil {
		return p.fetched.packages, p.fetched.err
	}

	if validSources != nil && !slices.Contains(validSources, p.repo) {
		return p.fail()
	}

	info, err := p.client.RepoInfo(ctx, p.repo)
	if err != nil {
		return p.fail()
	}

	download, err := p.client.DownloadInfo(ctx, p.repo)
	if err != nil {
		return p.fail()
	}

	pkgs := provider.Packages{info.Name: {
		Name:          info.Name,
		Description:   info.Description,
		Homepage:      info.Homepage,
		Author:        info.Author,
		LastModified:  download.Date,
		Download:      *download,
		PreviousNames: []string{},
		Labels:        []string{},
		Sources:       []string{p.repo},
		Readme:        info.Readme,
		Issues:        info.Issues,
		Donate:        info.Donate,
	}}
	p.fetched = &fetchResult{packages: pkgs}
	return pkgs, nil
}

func (p *Provider) fail() (provider.Packages, error) {
	err := fmt.Errorf("%w: %s", provider.ErrUnavailable, p.repo)
	p.fetched = &fetchResult{err: err}
	return nil, err
}

// RenamedPackages exists for contract compatibility; the BitBucket API has
// no rename concept.
func (p *Provider) RenamedPackages() map[string]string {
	return map[string]string{}
}

// UnavailablePackages exists for contract compatibility. API-backed sources
// have no per-platform downloads, so no package can be unavailable.
func (p *Provider) UnavailablePackages() []string {
	return []string{}
}

var _ provider.Provider = (*Provider)(nil)
