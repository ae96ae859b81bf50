// Package patch is the manifest patch/revert engine: it selects which of a
// project's declared dependencies to redirect at an alternate source,
// writes the override entries and version updates into the manifest, and
// reverses its own changes later using only the bookkeeping it stored in
// the manifest's metadata namespace.
package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/crates-dev/patchctl/pkg/manifest"
)

// DefaultOrigin is the override-table key used when the selected
// dependencies come from the default registry.
const DefaultOrigin = "crates-io"

var (
	// ErrTargetManifestNotFound means the manifest to patch does not exist.
	ErrTargetManifestNotFound = errors.New("target manifest not found")

	// ErrNoMatchingCrates means selection produced an empty working set,
	// which would make apply a silent no-op.
	ErrNoMatchingCrates = errors.New("no crates match")

	// ErrPatternRequired rejects patching every dependency from a remote
	// source; redirecting a whole project at an arbitrary remote tree
	// needs an explicit pattern.
	ErrPatternRequired = errors.New("a pattern is required when patching from a git source")
)

// Warning is a per-crate condition that did not stop the operation, such
// as a declaration without a version field to rewrite.
type Warning struct {
	Crate   string
	Message string
}

// Result reports what an apply or remove pass did to the manifest.
type Result struct {
	ManifestPath string
	Patched      []string
	Restored     []string
	Skipped      []string
	Warnings     []Warning
}

// resolveManifestPath defaults to Cargo.toml in the current directory.
func resolveManifestPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine current directory: %w", err)
	}
	return filepath.Join(cwd, manifest.Filename), nil
}

// loadTarget stats and loads the manifest to mutate.
func loadTarget(path string) (*manifest.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetManifestNotFound, path)
	}
	return manifest.Load(path)
}

// detectOrigin picks the override-table key for the selected crates: when
// a majority of their declarations point at the same git URL that URL is
// the origin, otherwise the default registry.
func detectOrigin(doc *manifest.Document, names []string) string {
	counts := map[string]int{}
	for _, name := range names {
		if url := doc.DependencyGitURL(name); url != "" {
			counts[url]++
		}
	}

	best, bestCount := "", 0
	for url, count := range counts {
		if count > bestCount || (count == bestCount && url < best) {
			best, bestCount = url, count
		}
	}

	if bestCount > len(names)/2 {
		return best
	}
	return DefaultOrigin
}

// versionDelta describes the move from one requirement to another for
// logging. Requirement strings that don't parse as versions yield "".
func versionDelta(from, to string) string {
	trim := func(s string) string {
		return strings.TrimLeft(strings.TrimSpace(s), "^~=")
	}
	fromV, err := goversion.NewVersion(trim(from))
	if err != nil {
		return ""
	}
	toV, err := goversion.NewVersion(trim(to))
	if err != nil {
		return ""
	}
	switch {
	case toV.GreaterThan(fromV):
		return "upgrade"
	case toV.LessThan(fromV):
		return "downgrade"
	default:
		return "same version"
	}
}
