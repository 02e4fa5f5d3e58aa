package bitbucket

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
		Client:      clients.NewClient(cache.NewNullCache(), "bitbucket:", provider.Settings{}, nil),
		baseURL:     serverURL,
		prereleases: prereleases,
	}
}

func repoHandler(t *testing.T, tagsJSON string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repositories/alice/widget":
			w.Write([]byte(`{
				"name": "Widget",
				"description": "a widget",
				"website": "https://example.com",
				"has_issues": true,
				"owner": {"nickname": "alice"},
				"mainbranch": {"name": "main"}
			}`))
		case "/repositories/alice/widget/refs/tags":
			w.Write([]byte(tagsJSON))
		case "/repositories/alice/widget/commit/main":
			w.Write([]byte(`{"date": "2020-06-15T08:30:00+00:00"}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestRepoInfo(t *testing.T) {
	server := httptest.NewServer(repoHandler(t, `{"values": []}`))
	defer server.Close()

	c := testClient(server.URL, false)

	info, err := c.RepoInfo(context.Background(), "https://bitbucket.org/alice/widget")
	if err != nil {
		t.Fatalf("RepoInfo failed: %v", err)
	}

	if info.Name != "Widget" {
		t.Errorf("name = %q, want Widget", info.Name)
	}
	if info.Author != "alice" {
		t.Errorf("author = %q, want alice", info.Author)
	}
	if info.Homepage != "https://example.com" {
		t.Errorf("homepage = %q", info.Homepage)
	}
	if info.Issues != "https://bitbucket.org/alice/widget/issues" {
		t.Errorf("issues = %q", info.Issues)
	}
	if info.Readme != "https://bitbucket.org/alice/widget/raw/main/README.md" {
		t.Errorf("readme = %q", info.Readme)
	}
}

func TestRepoInfoNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := testClient(server.URL, false)

	_, err := c.RepoInfo(context.Background(), "https://bitbucket.org/alice/widget")
	if !errors.Is(err, clients.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRepoInfoRejectsForeignURL(t *testing.T) {
	c := testClient("http://unused", false)

	_, err := c.RepoInfo(context.Background(), "https://github.com/alice/widget")
	if !errors.Is(err, clients.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound for non-bitbucket URL", err)
	}
}

func TestDownloadInfoFromTags(t *testing.T) {
	tags := `{"values": [
		{"name": "1.0.0", "target": {"date": "2019-01-01T00:00:00+00:00"}},
		{"name": "1.2.0", "target": {"date": "2020-01-01T12:00:00+00:00"}},
		{"name": "2.0.0-rc.1", "target": {"date": "2020-02-01T12:00:00+00:00"}}
	]}`
	server := httptest.NewServer(repoHandler(t, tags))
	defer server.Close()

	c := testClient(server.URL, false)

	dl, err := c.DownloadInfo(context.Background(), "https://bitbucket.org/alice/widget")
	if err != nil {
		t.Fatalf("DownloadInfo failed: %v", err)
	}

	if dl.Version != "1.2.0" {
		t.Errorf("version = %q, want 1.2.0 (prerelease skipped)", dl.Version)
	}
	if dl.URL != "https://bitbucket.org/alice/widget/get/1.2.0.tar.gz" {
		t.Errorf("url = %q", dl.URL)
	}
	if dl.Date != "2020-01-01 12:00:00" {
		t.Errorf("date = %q", dl.Date)
	}
}

func TestDownloadInfoPrereleases(t *testing.T) {
	tags := `{"values": [
		{"name": "1.2.0", "target": {"date": "2020-01-01T12:00:00+00:00"}},
		{"name": "2.0.0-rc.1", "target": {"date": "2020-02-01T12:00:00+00:00"}}
	]}`
	server := httptest.NewServer(repoHandler(t, tags))
	defer server.Close()

	c := testClient(server.URL, true)

	dl, err := c.DownloadInfo(context.Background(), "https://bitbucket.org/alice/widget")
	if err != nil {
		t.Fatalf("DownloadInfo failed: %v", err)
	}
	if dl.Version != "2.0.0-rc.1" {
		t.Errorf("version = %q, want 2.0.0-rc.1", dl.Version)
	}
}

func TestDownloadInfoFallsBackToBranch(t *testing.T) {
	server := httptest.NewServer(repoHandler(t, `{"values": []}`))
	defer server.Close()

	c := testClient(server.URL, false)

	dl, err := c.DownloadInfo(context.Background(), "https://bitbucket.org/alice/widget")
	if err != nil {
		t.Fatalf("DownloadInfo failed: %v", err)
	}

	if dl.URL != "https://bitbucket.org/alice/widget/get/main.tar.gz" {
		t.Errorf("url = %q, want main branch tarball", dl.URL)
	}
	if dl.Version != "2020.06.15.08.30.00" {
		t.Errorf("version = %q, want timestamp version", dl.Version)
	}
	if dl.Date != "2020-06-15 08:30:00" {
		t.Errorf("date = %q", dl.Date)
	}
}

func TestMatchURL(t *testing.T) {
	if !MatchURL("https://bitbucket.org/alice/widget") {
		t.Error("should match plain repository URL")
	}
	if MatchURL("https://bitbucket.org/alice/widget/src/main/") {
		t.Error("should not match deep paths")
	}
}
