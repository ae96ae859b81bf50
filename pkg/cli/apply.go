package cli

import (
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/crates-dev/patchctl/pkg/git"
	"github.com/crates-dev/patchctl/pkg/patch"
	"github.com/crates-dev/patchctl/pkg/source"
)

type applyOptions struct {
	path         string
	gitURL       string
	branch       string
	tag          string
	rev          string
	pattern      string
	manifestPath string
	verbosity    int
}

func cmdApply() *cobra.Command {
	opts := applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Patch matching dependencies to build against an alternate source",
		Example: `  # Build against a local checkout of the rattler workspace
  patchctl apply --path ../rattler --pattern "rattler-*"

  # Build against a branch of a remote repository
  patchctl apply --git https://github.com/conda/rattler --branch feat/new-solver --pattern "rattler-*"`,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := clog.NewLogger(newLogger(opts.verbosity))
			ctx := clog.WithLogger(cmd.Context(), logger)

			if err := opts.validate(); err != nil {
				return err
			}

			src := source.Local(opts.path)
			if opts.gitURL != "" {
				// Refuse a pattern-less remote apply before fetching
				// anything.
				if opts.pattern == "" {
					return patch.ErrPatternRequired
				}

				remote := source.Remote{
					URL: opts.gitURL,
					Reference: source.GitReference{
						Branch: opts.branch,
						Tag:    opts.tag,
						Rev:    opts.rev,
					},
				}
				dir, cleanup, err := git.Fetch(ctx, remote)
				if err != nil {
					return err
				}
				defer cleanup() //nolint:errcheck

				src = source.FromRemote(dir, remote)
			}

			result, err := patch.Apply(ctx, patch.ApplyOptions{
				Source:       src,
				Pattern:      opts.pattern,
				ManifestPath: opts.manifestPath,
			})
			if err != nil {
				return err
			}

			for _, w := range result.Warnings {
				logger.Warnf("%s: %s", w.Crate, w.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patched %d dependenc(ies) in %s\n", len(result.Patched), result.ManifestPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.path, "path", "", "local path to the alternate source (a package or workspace root)")
	cmd.Flags().StringVar(&opts.gitURL, "git", "", "git repository URL of the alternate source")
	cmd.Flags().StringVar(&opts.branch, "branch", "", "git branch to use (only with --git)")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "git tag to use (only with --git)")
	cmd.Flags().StringVar(&opts.rev, "rev", "", "git revision to use (only with --git)")
	cmd.Flags().StringVar(&opts.pattern, "pattern", "", `glob over crate names to scope the patch (e.g. "rattler-*")`)
	cmd.Flags().StringVar(&opts.manifestPath, "manifest-path", "", "path to the Cargo.toml to modify (defaults to the current directory)")
	addVerboseFlag(&opts.verbosity, cmd)

	cmd.MarkFlagsMutuallyExclusive("path", "git")
	cmd.MarkFlagsMutuallyExclusive("branch", "tag", "rev")

	return cmd
}

func (opts *applyOptions) validate() error {
	if opts.path == "" && opts.gitURL == "" {
		return fmt.Errorf("no source specified, use --path or --git")
	}
	if opts.gitURL == "" && (opts.branch != "" || opts.tag != "" || opts.rev != "") {
		return fmt.Errorf("--branch, --tag and --rev require --git")
	}
	return nil
}
