package cli

import (
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/crates-dev/patchctl/pkg/patch"
)

type removeOptions struct {
	pattern      string
	manifestPath string
	verbosity    int
}

func cmdRemove() *cobra.Command {
	opts := removeOptions{}
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Restore patched dependencies to their original declarations",
		Example: `  # Undo everything patchctl applied
  patchctl remove

  # Undo only the rattler crates, leave other patches in place
  patchctl remove --pattern "rattler-*"`,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := clog.NewLogger(newLogger(opts.verbosity))
			ctx := clog.WithLogger(cmd.Context(), logger)

			result, err := patch.Remove(ctx, patch.RemoveOptions{
				Pattern:      opts.pattern,
				ManifestPath: opts.manifestPath,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d dependenc(ies) in %s\n", len(result.Restored), result.ManifestPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.pattern, "pattern", "", `glob over crate names to scope the removal (e.g. "rattler-*")`)
	cmd.Flags().StringVar(&opts.manifestPath, "manifest-path", "", "path to the Cargo.toml to modify (defaults to the current directory)")
	addVerboseFlag(&opts.verbosity, cmd)

	return cmd
}
