package cli

import (
	"github.com/spf13/cobra"
	"sigs.k8s.io/release-utils/version"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "patchctl",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Temporarily redirect Cargo dependencies to an alternate source",
		Long: `patchctl redirects a project's declared dependencies to an alternate
source (a local directory or a git reference) by writing [patch] override
entries into Cargo.toml, and reverses that change exactly later. The
bookkeeping needed to undo a patch is stored in the manifest's own
metadata namespace, so no external state is kept.`,
	}

	cmd.AddCommand(
		cmdApply(),
		cmdRemove(),
		version.Version(),
	)

	return cmd
}
