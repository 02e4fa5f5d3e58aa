package registry

import (
	"testing"

	"github.com/packshelf/packshelf/pkg/cache"
	"github.com/packshelf/packshelf/pkg/provider"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		repo     string
		wantName string
		wantOK   bool
	}{
		{"https://bitbucket.org/alice/widget", "bitbucket", true},
		{"https://bitbucket.org/alice/widget/", "bitbucket", true},
		{"https://github.com/alice/widget", "github", true},
		{"https://example.com/index.json", "jsonindex", true},
		{"https://gitlab.com/alice/widget", "", false},
		{"not a url", "", false},
	}

	for _, tt := range tests {
		name, ok := Match(tt.repo)
		if ok != tt.wantOK || name != tt.wantName {
			t.Errorf("Match(%q) = %q, %v; want %q, %v", tt.repo, name, ok, tt.wantName, tt.wantOK)
		}
	}
}

func TestResolve(t *testing.T) {
	backend := cache.NewNullCache()
	settings := provider.Settings{UserAgent: "packshelf-test"}

	p, ok := Resolve("https://bitbucket.org/alice/widget", settings, backend)
	if !ok {
		t.Fatal("Resolve should handle bitbucket URLs")
	}
	if p == nil {
		t.Fatal("Resolve returned nil provider")
	}

	if _, ok := Resolve("https://gitlab.com/alice/widget", settings, backend); ok {
		t.Error("Resolve should not handle unknown hosts")
	}
}

func TestFactoriesAreDisjointForHostingURLs(t *testing.T) {
	// A hosting URL must match exactly one factory.
	for _, repo := range []string{
		"https://bitbucket.org/alice/widget",
		"https://github.com/alice/widget",
	} {
		matches := 0
		for _, f := range Default() {
			if f.Match(repo) {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("%s matched %d factories, want 1", repo, matches)
		}
	}
}
