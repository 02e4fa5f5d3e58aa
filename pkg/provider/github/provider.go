// Package github allows using a public GitHub repository as the source for
// a single package.
package github

import (
	"context"
	"fmt"
	"slices"

	"github.com/packshelf/packshelf/pkg/cache"
	ghclient "github.com/packshelf/packshelf/pkg/clients/github"
	"github.com/packshelf/packshelf/pkg/provider"
)

// Provider turns one public GitHub repository URL into a normalized
// single-package catalog record. Semantics mirror the BitBucket provider:
// the result (or failure) is memoized per instance.
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
func MatchURL(repo string) bool {
	return ghclient.MatchURL(repo)
}

// New creates a provider for the given GitHub repository URL.
func New(repo string, settings provider.Settings, backend cache.Cache) *Provider {
	return &Provider{
		repo:     repo,
		settings: settings,
		client:   ghclient.NewClient(backend, settings),
	}
}

// Prefetch performs the API calls ahead of time, capturing the result (or
// failure) in the memo.
func (p *Provider) Prefetch(ctx context.Context) {
	_, _ = p.FetchPackages(ctx, nil)
}

// FetchPackages uses the GitHub API to construct the record for the one
// package this repository holds. See the bitbucket provider for the shared
// memoization and whitelist semantics.
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

// RenamedPackages exists for contract compatibility; the GitHub API has no
// rename concept.
func (p *Provider) RenamedPackages() map[string]string {
	return map[string]string{}
}

// UnavailablePackages exists for contract compatibility. API-backed sources
// have no per-platform downloads, so no package can be unavailable.
func (p *Provider) UnavailablePackages() []string {
	return []string{}
}

var _ provider.Provider = (*Provider)(nil)
