package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/packshelf/packshelf/pkg/provider"
	"github.com/packshelf/packshelf/pkg/provider/registry"
)

// fetchCommand creates the fetch command: one source URL in, one normalized
// metadata record out.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		noCache      bool
		prereleases  bool
		timeout      time.Duration
		validSources []string
	)

	cmd := &cobra.Command{
		Use:   "fetch <source-url>",
		Short: "Fetch normalized package metadata for a source URL",
		Long: `Fetch routes the source URL to the provider that handles it (BitBucket,
GitHub, or a static JSON index), queries the hosting API, and prints the
normalized package records as JSON on stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			repo := args[0]

			runID := uuid.NewString()
			logger.Debug("starting fetch", "run_id", runID, "source", repo)

			settings := c.config.Settings()
			if prereleases {
				settings.InstallPrereleases = true
			}
			if timeout > 0 {
				settings.Timeout = timeout
			}

			backend, err := c.newBackend(noCache)
			if err != nil {
				return err
			}
			defer backend.Close()

			prov, ok := registry.Resolve(repo, settings, backend)
			if !ok {
				return fmt.Errorf("no provider handles %s", repo)
			}
			name, _ := registry.Match(repo)
			logger.Debug("resolved provider", "run_id", runID, "provider", name)

			spinner := newSpinnerWithContext(ctx, "Fetching "+repo)
			spinner.Start()

			prog := newProgress(logger)
			var sources []string
			if len(validSources) > 0 {
				sources = validSources
			}
			pkgs, err := prov.FetchPackages(ctx, sources)
			spinner.Stop()

			if err != nil {
				if errors.Is(err, provider.ErrUnavailable) {
					printError("Source unavailable: %s", repo)
					return err
				}
				return err
			}
			prog.done(fmt.Sprintf("Fetched %d package(s)", len(pkgs)))

			out, err := json.MarshalIndent(pkgs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))

			if renamed := prov.RenamedPackages(); len(renamed) > 0 {
				printInfo("%d renamed package(s)", len(renamed))
				for _, old := range sortedKeys(renamed) {
					printDetail("%s %s %s", old, "->", renamed[old])
				}
			}
			if unavailable := prov.UnavailablePackages(); len(unavailable) > 0 {
				printWarning("%d package(s) unavailable on this platform", len(unavailable))
				for _, name := range unavailable {
					printDetail("%s", name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the HTTP response cache")
	cmd.Flags().BoolVar(&prereleases, "prereleases", false, "select prerelease versions")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout (overrides config)")
	cmd.Flags().StringSliceVar(&validSources, "valid-source", nil, "whitelist of permissible source URLs; the fetch fails without a network call when the source is not listed")

	return cmd
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
