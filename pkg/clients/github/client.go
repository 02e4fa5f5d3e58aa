// Package github implements the API client for public GitHub repositories,
// using the GitHub REST API v3.
package github

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

var repoURLPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)/?$`)

// Client provides access to the GitHub API for repository metadata.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*clients.Client
	baseURL     string
	prereleases bool
}

// NewClient creates a GitHub API client with the given cache backend.
// Requests are unauthenticated; rate limits are the caller's concern.
func NewClient(backend cache.Cache, settings provider.Settings) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	return &Client{
		Client:      clients.NewClient(backend, "github:", settings, headers),
		baseURL:     "https://api.github.com",
		prereleases: settings.InstallPrereleases,
	}
}

// MatchURL reports whether repoURL is a public GitHub repository URL of the
// form https://github.com/owner/name.
func MatchURL(repoURL string) bool {
	return repoURLPattern.MatchString(repoURL)
}

// RepoInfo retrieves repository metadata for a GitHub repository URL.
func (c *Client) RepoInfo(ctx context.Context, repoURL string) (*provider.RepoInfo, error) {
	owner, name, ok := clients.ParseRepoURL(repoURLPattern, repoURL)
	if !ok {
		return nil, fmt.Errorf("%w: not a github repository: %s", clients.ErrNotFound, repoURL)
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

	homepage := data.Homepage
	if homepage == "" {
		homepage = data.HTMLURL
	}

	*info = provider.RepoInfo{
		Name:        data.Name,
		Description: data.Description,
		Homepage:    homepage,
		Author:      data.Owner.Login,
		Readme:      fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/README.md", owner, name, data.branch()),
	}
	if data.HasIssues {
		info.Issues = data.HTMLURL + "/issues"
	}
	return nil
}

// DownloadInfo retrieves the latest release for a GitHub repository.
// It prefers the highest semver tag; repositories without usable tags fall
// back to the default branch with a timestamp version from the last push.
func (c *Client) DownloadInfo(ctx context.Context, repoURL string) (*provider.Download, error) {
	owner, name, ok := clients.ParseRepoURL(repoURLPattern, repoURL)
	if !ok {
		return nil, fmt.Errorf("%w: not a github repository: %s", clients.ErrNotFound, repoURL)
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
	repo, err := c.fetchRepo(ctx, owner, name)
	if err != nil {
		return err
	}

	tags, err := c.fetchTags(ctx, owner, name)
	if err != nil && !errors.Is(err, clients.ErrNotFound) {
		return err
	}

	date := clients.FormatDate(repo.PushedAt)

	if tag, ok := clients.LatestTag(tags, c.prereleases); ok {
		*dl = provider.Download{
			URL:     fmt.Sprintf("https://codeload.github.com/%s/%s/tar.gz/refs/tags/%s", owner, name, tag),
			Date:    date,
			Version: clients.Version(tag),
		}
		return nil
	}

	// No release tags: fall back to the default branch head.
	when, err := time.Parse(time.RFC3339, repo.PushedAt)
	if err != nil {
		return fmt.Errorf("pushed_at for %s/%s: %w", owner, name, err)
	}

	*dl = provider.Download{
		URL:     fmt.Sprintf("https://codeload.github.com/%s/%s/tar.gz/refs/heads/%s", owner, name, repo.branch()),
		Date:    date,
		Version: clients.TimestampVersion(when),
	}
	return nil
}

func (c *Client) fetchRepo(ctx context.Context, owner, name string) (*repoResponse, error) {
	var data repoResponse
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, name)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, fmt.Errorf("%w: github repo %s/%s", err, owner, name)
		}
		return nil, err
	}
	return &data, nil
}

func (c *Client) fetchTags(ctx context.Context, owner, name string) ([]string, error) {
	var data []tagResponse
	url := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=100", c.baseURL, owner, name)
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(data))
	for _, t := range data {
		names = append(names, t.Name)
	}
	return names, nil
}

type repoResponse struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Homepage      string `json:"homepage"`
	HTMLURL       string `json:"html_url"`
	HasIssues     bool   `json:"has_issues"`
	PushedAt      string `json:"pushed_at"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (r *repoResponse) branch() string {
	if r.DefaultBranch != "" {
		return r.DefaultBranch
	}
	return "master"
}

type tagResponse struct {
	Name string `json:"name"`
}
