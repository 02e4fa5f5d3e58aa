package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/packshelf/packshelf/pkg/cache"
	"github.com/packshelf/packshelf/pkg/clients"
	"github.com/packshelf/packshelf/pkg/provider"
)

func testClient(serverURL string, prereleases bool) *Client {
	return &Client{
		Client:      clients.NewClient(cache.NewNullCache(), "github:", provider.Settings{}, nil),
		baseURL:     serverURL,
		prereleases: prereleases,
	}
}

func repoHandler(t *testing.T, tagsJSON string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/alice/widget":
			w.Write([]byte(`{
				"name": "Widget",
				"description": "a widget",
				"homepage": "",
				"html_url": "https://github.com/alice/widget",
				"has_issues": true,
				"pushed_at": "2021-05-01T09:15:00Z",
				"default_branch": "main",
				"owner": {"login": "alice"}
			}`))
		case "/repos/alice/widget/tags":
			w.Write([]byte(tagsJSON))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestRepoInfo(t *testing.T) {
	server := httptest.NewServer(repoHandler(t, `[]`))
	defer server.Close()

	c := testClient(server.URL, false)

	info, err := c.RepoInfo(context.Background(), "https://github.com/alice/widget")
	if err != nil {
		t.Fatalf("RepoInfo failed: %v", err)
	}

	if info.Name != "Widget" {
		t.Errorf("name = %q, want Widget", info.Name)
	}
	// Empty homepage falls back to the repository page.
	if info.Homepage != "https://github.com/alice/widget" {
		t.Errorf("homepage = %q", info.Homepage)
	}
	if info.Issues != "https://github.com/alice/widget/issues" {
		t.Errorf("issues = %q", info.Issues)
	}
	if info.Readme != "https://raw.githubusercontent.com/alice/widget/main/README.md" {
		t.Errorf("readme = %q", info.Readme)
	}
}

func TestDownloadInfoFromTags(t *testing.T) {
	server := httptest.NewServer(repoHandler(t, `[{"name": "v1.4.0"}, {"name": "v1.3.0"}]`))
	defer server.Close()

	c := testClient(server.URL, false)

	dl, err := c.DownloadInfo(context.Background(), "https://github.com/alice/widget")
	if err != nil {
		t.Fatalf("DownloadInfo failed: %v", err)
	}

	if dl.Version != "1.4.0" {
		t.Errorf("version = %q, want 1.4.0", dl.Version)
	}
	if dl.URL != "https://codeload.github.com/alice/widget/tar.gz/refs/tags/v1.4.0" {
		t.Errorf("url = %q", dl.URL)
	}
	if dl.Date != "2021-05-01 09:15:00" {
		t.Errorf("date = %q", dl.Date)
	}
}

func TestDownloadInfoFallsBackToBranch(t *testing.T) {
	server := httptest.NewServer(repoHandler(t, `[]`))
	defer server.Close()

	c := testClient(server.URL, false)

	dl, err := c.DownloadInfo(context.Background(), "https://github.com/alice/widget")
	if err != nil {
		t.Fatalf("DownloadInfo failed: %v", err)
	}

	if dl.URL != "https://codeload.github.com/alice/widget/tar.gz/refs/heads/main" {
		t.Errorf("url = %q, want default branch tarball", dl.URL)
	}
	if dl.Version != "2021.05.01.09.15.00" {
		t.Errorf("version = %q, want timestamp version", dl.Version)
	}
}

func TestRepoInfoNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := testClient(server.URL, false)

	_, err := c.RepoInfo(context.Background(), "https://github.com/alice/widget")
	if !errors.Is(err, clients.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
