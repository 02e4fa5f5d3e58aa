package bitbucket

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/packshelf/packshelf/pkg/provider"
)

type mockClient struct {
	info          *provider.RepoInfo
	infoErr       error
	download      *provider.Download
	downloadErr   error
	infoCalls     int
	downloadCalls int
}

func (m *mockClient) RepoInfo(ctx context.Context, repoURL string) (*provider.RepoInfo, error) {
	m.infoCalls++
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return m.info, nil
}

func (m *mockClient) DownloadInfo(ctx context.Context, repoURL string) (*provider.Download, error) {
	m.downloadCalls++
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return m.download, nil
}

func testProvider(repo string, client provider.RepoClient) *Provider {
	return &Provider{repo: repo, client: client}
}

func happyClient() *mockClient {
	return &mockClient{
		info: &provider.RepoInfo{
			Name:        "Widget",
			Description: "d",
			Homepage:    "h",
			Author:      "alice",
			Readme:      "r",
			Issues:      "i",
			Donate:      "don",
		},
		download: &provider.Download{URL: "u", Date: "2020-01-01", Version: "1.0"},
	}
}

func TestMatchURL(t *testing.T) {
	tests := []struct {
		repo string
		want bool
	}{
		{"https://bitbucket.org/alice/widget", true},
		{"https://bitbucket.org/alice/widget/", true},
		{"http://bitbucket.org/alice/widget", true},
		{"https://bitbucket.org/alice/widget/src", false},
		{"https://bitbucket.org/alice", false},
		{"https://github.com/alice/widget", false},
		{"bitbucket.org/alice/widget", false},
		{"ftp://bitbucket.org/alice/widget", false},
	}

	for _, tt := range tests {
		if got := MatchURL(tt.repo); got != tt.want {
			t.Errorf("MatchURL(%q) = %v, want %v", tt.repo, got, tt.want)
		}
	}
}

func TestFetchPackages(t *testing.T) {
	repo := "https://bitbucket.org/alice/widget"
	p := testProvider(repo, happyClient())

	pkgs, err := p.FetchPackages(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchPackages failed: %v", err)
	}

	if len(pkgs) != 1 {
		t.Fatalf("got %d packages, want 1", len(pkgs))
	}
	got, ok := pkgs["Widget"]
	if !ok {
		t.Fatalf("missing entry keyed by repo name, got %v", pkgs)
	}

	want := provider.Package{
		Name:          "Widget",
		Description:   "d",
		Homepage:      "h",
		Author:        "alice",
		LastModified:  "2020-01-01",
		Download:      provider.Download{URL: "u", Date: "2020-01-01", Version: "1.0"},
		PreviousNames: []string{},
		Labels:        []string{},
		Sources:       []string{repo},
		Readme:        "r",
		Issues:        "i",
		Donate:        "don",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("package = %+v, want %+v", got, want)
	}
}

func TestFetchPackagesMemoizes(t *testing.T) {
	client := happyClient()
	p := testProvider("https://bitbucket.org/alice/widget", client)
	ctx := context.Background()

	first, err := p.FetchPackages(ctx, nil)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := p.FetchPackages(ctx, nil)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated calls returned different values")
	}
	if client.infoCalls != 1 || client.downloadCalls != 1 {
		t.Errorf("client calls = %d/%d, want 1/1 (memoized)", client.infoCalls, client.downloadCalls)
	}
}

func TestFetchPackagesMemoizesFailure(t *testing.T) {
	client := &mockClient{infoErr: errors.New("boom")}
	p := testProvider("https://bitbucket.org/alice/widget", client)
	ctx := context.Background()

	if _, err := p.FetchPackages(ctx, nil); !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if _, err := p.FetchPackages(ctx, nil); !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("second call: got %v, want ErrUnavailable", err)
	}

	if client.infoCalls != 1 {
		t.Errorf("infoCalls = %d, want 1 (failure memoized)", client.infoCalls)
	}
}

func TestFetchPackagesSourceNotWhitelisted(t *testing.T) {
	client := happyClient()
	p := testProvider("https://bitbucket.org/alice/widget", client)

	valid := []string{"https://bitbucket.org/bob/other"}
	_, err := p.FetchPackages(context.Background(), valid)
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}

	if client.infoCalls != 0 || client.downloadCalls != 0 {
		t.Errorf("client was invoked (%d/%d calls) despite pruned source", client.infoCalls, client.downloadCalls)
	}
}

func TestFetchPackagesWhitelistedSource(t *testing.T) {
	repo := "https://bitbucket.org/alice/widget"
	p := testProvider(repo, happyClient())

	pkgs, err := p.FetchPackages(context.Background(), []string{repo})
	if err != nil {
		t.Fatalf("FetchPackages failed: %v", err)
	}
	if len(pkgs) != 1 {
		t.Errorf("got %d packages, want 1", len(pkgs))
	}
}

func TestFetchPackagesRepoInfoFailureSkipsDownload(t *testing.T) {
	client := happyClient()
	client.infoErr = errors.New("api error")
	p := testProvider("https://bitbucket.org/alice/widget", client)

	if _, err := p.FetchPackages(context.Background(), nil); !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if client.downloadCalls != 0 {
		t.Errorf("downloadCalls = %d, want 0 when repo info fails", client.downloadCalls)
	}
}

func TestFetchPackagesDownloadFailure(t *testing.T) {
	client := happyClient()
	client.downloadErr = errors.New("no downloads")
	p := testProvider("https://bitbucket.org/alice/widget", client)

	if _, err := p.FetchPackages(context.Background(), nil); !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestFetchPackagesEmptyDownloadDate(t *testing.T) {
	client := happyClient()
	client.download = &provider.Download{URL: "u", Version: "1.0"}
	p := testProvider("https://bitbucket.org/alice/widget", client)

	pkgs, err := p.FetchPackages(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchPackages failed: %v", err)
	}
	if got := pkgs["Widget"].LastModified; got != "" {
		t.Errorf("LastModified = %q, want empty when download has no date", got)
	}
}

func TestPrefetchWarmsMemo(t *testing.T) {
	client := happyClient()
	p := testProvider("https://bitbucket.org/alice/widget", client)

	p.Prefetch(context.Background())
	if client.infoCalls != 1 {
		t.Fatalf("infoCalls after Prefetch = %d, want 1", client.infoCalls)
	}

	if _, err := p.FetchPackages(context.Background(), nil); err != nil {
		t.Fatalf("FetchPackages after Prefetch failed: %v", err)
	}
	if client.infoCalls != 1 {
		t.Errorf("infoCalls = %d, want 1 (served from memo)", client.infoCalls)
	}
}

func TestPrefetchCapturesFailure(t *testing.T) {
	client := &mockClient{infoErr: errors.New("down")}
	p := testProvider("https://bitbucket.org/alice/widget", client)

	p.Prefetch(context.Background()) // must not panic

	if _, err := p.FetchPackages(context.Background(), nil); !errors.Is(err, provider.ErrUnavailable) {
		t.Errorf("got %v, want memoized ErrUnavailable", err)
	}
	if client.infoCalls != 1 {
		t.Errorf("infoCalls = %d, want 1", client.infoCalls)
	}
}

func TestStubsAreConstant(t *testing.T) {
	p := testProvider("https://bitbucket.org/alice/widget", happyClient())

	if got := p.RenamedPackages(); len(got) != 0 {
		t.Errorf("RenamedPackages() = %v, want empty map", got)
	}
	if got := p.UnavailablePackages(); len(got) != 0 {
		t.Errorf("UnavailablePackages() = %v, want empty slice", got)
	}

	// Still empty after a fetch.
	p.Prefetch(context.Background())
	if got := p.RenamedPackages(); len(got) != 0 {
		t.Errorf("RenamedPackages() after fetch = %v, want empty map", got)
	}
	if got := p.UnavailablePackages(); got == nil || len(got) != 0 {
		t.Errorf("UnavailablePackages() after fetch = %v, want empty slice", got)
	}
}
