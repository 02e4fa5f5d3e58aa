// Package registry routes source URLs to the provider implementation that
// can handle them.
package registry

import (
	"github.com/packshelf/packshelf/pkg/cache"
	"github.com/packshelf/packshelf/pkg/provider"
	"github.com/packshelf/packshelf/pkg/provider/bitbucket"
	"github.com/packshelf/packshelf/pkg/provider/github"
	"github.com/packshelf/packshelf/pkg/provider/jsonindex"
)

// Factory describes one provider implementation: a URL predicate and a
// constructor.
type Factory struct {
	// Name identifies the provider family (e.g. "bitbucket").
	Name string

	// Match reports whether this provider can handle the source URL.
	// Pure and stateless.
	Match func(repo string) bool

	// New constructs a provider instance for one source URL.
	New func(repo string, settings provider.Settings, backend cache.Cache) provider.Provider
}

// Default returns the built-in provider factories in match order. Repository
// providers come before the index provider so hosting URLs never fall
// through to it.
func Default() []Factory {
	return []Factory{
		{
			Name:  "bitbucket",
			Match: bitbucket.MatchURL,
			New: func(repo string, s provider.Settings, b cache.Cache) provider.Provider {
				return bitbucket.New(repo, s, b)
			},
		},
		{
			Name:  "github",
			Match: github.MatchURL,
			New: func(repo string, s provider.Settings, b cache.Cache) provider.Provider {
				return github.New(repo, s, b)
			},
		},
		{
			Name:  "jsonindex",
			Match: jsonindex.MatchURL,
			New: func(repo string, s provider.Settings, b cache.Cache) provider.Provider {
				return jsonindex.New(repo, s, b)
			},
		},
	}
}

// Resolve constructs a provider for the source URL using the first matching
// factory. Returns ok=false when no provider handles the URL.
func Resolve(repo string, settings provider.Settings, backend cache.Cache) (provider.Provider, bool) {
	for _, f := range Default() {
		if f.Match(repo) {
			return f.New(repo, settings, backend), true
		}
	}
	return nil, false
}

// Match returns the name of the provider family handling the URL, or
// ok=false when none does.
func Match(repo string) (string, bool) {
	for _, f := range Default() {
		if f.Match(repo) {
			return f.Name, true
		}
	}
	return "", false
}
