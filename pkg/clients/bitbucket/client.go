// Package bitbucket implements the API client for public BitBucket
// repositories, using the BitBucket API 2.0.
package bitbucket

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/packshelf/packshelf/pkg/cache"
	"github.com/packshelf/packshelf/pkg/clients"
	"github.com/packshelf/packshelf/pkg/provider"
)

var repoURLPattern = regexp.MustCompile(`^https?://bitbucket\.org/([^/]+)/([^/]+?)/?$`)

// Client provides access to the BitBucket API for repository metadata.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*clients.Client
	baseURL     string
	prereleases bool
}

// NewClient creates a BitBucket API client with the given cache backend.
func NewClient(backend cache.Cache, settings provider.Settings) *Client {
	return &Client{
		Client:      clients.NewClient(backend, "bitbucket:", settings, nil),
		baseURL:     "https://api.bitbucket.org/2.0",
		prereleases: settings.InstallPrereleases,
	}
}

// MatchURL reports whether repoURL is a public BitBucket repository URL of
// the form https://bitbucket.org/owner/name.
func MatchURL(repoURL string) bool {
	return repoURLPattern.MatchString(repoURL)
}

// RepoInfo retrieves repository metadata for a BitBucket repository URL.
func (c *Client) RepoInfo(ctx context.Context, repoURL string) (*provider.RepoInfo, error) {
	owner, name, ok := clients.ParseRepoURL(repoURLPattern, repoURL)
	if !ok {
		return nil, fmt.Errorf("%w: not a bitbucket repository: %s", clients.ErrNotFound, repoURL)
	}

	var info provider.RepoInfo
	key := owner + "/" + name + ":info"
	err := c.Cached(ctx, key, &info, func() error {
		return c.fetchRepoInfo(ctx, owner, name, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetchRepoInfo(ctx context.Context, owner, name string, info *provider.RepoInfo) error {
	data, err := c.fetchRepo(ctx, owner, name)
	if err != nil {
		return err
	}

	homepage := data.Website
	if homepage == "" {
		homepage = fmt.Sprintf("https://bitbucket.org/%s/%s", owner, name)
	}

	*info = provider.RepoInfo{
		Name:        data.Name,
		Description: data.Description,
		Homepage:    homepage,
		Author:      data.Owner.Nickname,
		Readme:      fmt.Sprintf("https://bitbucket.org/%s/%s/raw/%s/README.md", owner, name, data.branch()),
	}
	if data.HasIssues {
		info.Issues = fmt.Sprintf("https://bitbucket.org/%s/%s/issues", owner, name)
	}
	return nil
}

// DownloadInfo retrieves the latest release for a BitBucket repository.
// It prefers the highest semver tag; repositories without usable tags fall
// back to the head commit of the main branch with a timestamp version.
func (c *Client) DownloadInfo(ctx context.Context, repoURL string) (*provider.Download, error) {
	owner, name, ok := clients.ParseRepoURL(repoURLPattern, repoURL)
	if !ok {
		return nil, fmt.Errorf("%w: not a bitbucket repository: %s", clients.ErrNotFound, repoURL)
	}

	var dl provider.Download
	key := owner + "/" + name + ":download"
	err := c.Cached(ctx, key, &dl, func() error {
		return c.fetchDownload(ctx, owner, name, &dl)
	})
	if err != nil {
		return nil, err
	}
	return &dl, nil
}

func (c *Client) fetchDownload(ctx context.Context, owner, name string, dl *provider.Download) error {
	tags, err := c.fetchTags(ctx, owner, name)
	if err != nil && !errors.Is(err, clients.ErrNotFound) {
		return err
	}

	names := make([]string, 0, len(tags))
	dates := make(map[string]string, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
		dates[t.Name] = t.Target.Date
	}

	if tag, ok := clients.LatestTag(names, c.prereleases); ok {
		*dl = provider.Download{
			URL:     fmt.Sprintf("https://bitbucket.org/%s/%s/get/%s.tar.gz", owner, name, tag),
			Date:    clients.FormatDate(dates[tag]),
			Version: clients.Version(tag),
		}
		return nil
	}

	// No release tags: fall back to the main branch head.
	repo, err := c.fetchRepo(ctx, owner, name)
	if err != nil {
		return err
	}
	branch := repo.branch()

	commit, err := c.fetchCommit(ctx, owner, name, branch)
	if err != nil {
		return err
	}
	when, err := time.Parse(time.RFC3339, commit.Date)
	if err != nil {
		return fmt.Errorf("commit date for %s/%s: %w", owner, name, err)
	}

	*dl = provider.Download{
		URL:     fmt.Sprintf("https://bitbucket.org/%s/%s/get/%s.tar.gz", owner, name, branch),
		Date:    clients.FormatDate(commit.Date),
		Version: clients.TimestampVersion(when),
	}
	return nil
}

func (c *Client) fetchRepo(ctx context.Context, owner, name string) (*repoResponse, error) {
	var data repoResponse
	url := fmt.Sprintf("%s/repositories/%s/%s", c.baseURL, owner, name)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, fmt.Errorf("%w: bitbucket repo %s/%s", err, owner, name)
		}
		return nil, err
	}
	return &data, nil
}

func (c *Client) fetchTags(ctx context.Context, owner, name string) ([]tagResponse, error) {
	var data tagsResponse
	url := fmt.Sprintf("%s/repositories/%s/%s/refs/tags?pagelen=100&sort=-target.date", c.baseURL, owner, name)
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, err
	}
	return data.Values, nil
}

func (c *Client) fetchCommit(ctx context.Context, owner, name, rev string) (*commitResponse, error) {
	var data commitResponse
	url := fmt.Sprintf("%s/repositories/%s/%s/commit/%s", c.baseURL, owner, name, rev)
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

type repoResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	HasIssues   bool   `json:"has_issues"`
	Owner       struct {
		Nickname string `json:"nickname"`
	} `json:"owner"`
	MainBranch struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
}

func (r *repoResponse) branch() string {
	if r.MainBranch.Name != "" {
		return r.MainBranch.Name
	}
	return "master"
}

type tagsResponse struct {
	Values []tagResponse `json:"values"`
}

type tagResponse struct {
	Name   string `json:"name"`
	Target struct {
		Date string `json:"date"`
	} `json:"target"`
}

type commitResponse struct {
	Date string `json:"date"`
}
