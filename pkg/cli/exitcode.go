package cli

import (
	"errors"

	"github.com/crates-dev/patchctl/pkg/git"
	"github.com/crates-dev/patchctl/pkg/manifest"
	"github.com/crates-dev/patchctl/pkg/patch"
	"github.com/crates-dev/patchctl/pkg/source"
)

// ExitCode maps each failure kind to a distinct process exit code so
// wrapper scripts can tell them apart.
func ExitCode(err error) int {
	var parseErr *manifest.ParseError
	var fetchErr *git.FetchError

	switch {
	case err == nil:
		return 0
	case errors.Is(err, patch.ErrTargetManifestNotFound):
		return 2
	case errors.Is(err, source.ErrNotFound):
		return 3
	case errors.As(err, &parseErr):
		return 4
	case errors.Is(err, patch.ErrPatternRequired):
		return 5
	case errors.Is(err, patch.ErrNoMatchingCrates):
		return 6
	case errors.Is(err, source.ErrNoMembers):
		return 7
	case errors.As(err, &fetchErr):
		return 8
	default:
		return 1
	}
}
