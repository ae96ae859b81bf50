package patch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crates-dev/patchctl/pkg/manifest"
	"github.com/crates-dev/patchctl/pkg/source"
)

const targetManifest = `[package]
name = "test-project"
version = "0.1.0"

[dependencies]
rattler-one = "1.0.0"
rattler-two = { version = "2.0.0", features = ["extra"] }
bar-core = "0.5.0"
serde = "1.0"
`

// writeTarget writes a target manifest into its own directory and returns
// its path.
func writeTarget(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), manifest.Filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeSourceWorkspace lays out an alternate-source workspace containing
// newer versions of the rattler crates plus bar-core.
func writeSourceWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		dir := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.Filename), []byte(content), 0o644))
	}

	write(".", `[workspace]
members = ["crates/*"]
`)
	write("crates/rattler-one", `[package]
name = "rattler-one"
version = "1.1.0"
`)
	write("crates/rattler-two", `[package]
name = "rattler-two"
version = "2.1.0"
`)
	write("crates/bar-core", `[package]
name = "bar-core"
version = "0.6.0"
`)
	write("crates/unrelated", `[package]
name = "unrelated"
version = "0.0.1"
`)

	return root
}

func reload(t *testing.T, path string) *manifest.Document {
	t.Helper()
	doc, err := manifest.Load(path)
	require.NoError(t, err)
	return doc
}

func TestApply_localWorkspace(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, targetManifest)
	srcRoot := writeSourceWorkspace(t)

	result, err := Apply(ctx, ApplyOptions{
		Source:       source.Local(srcRoot),
		Pattern:      "rattler-*",
		ManifestPath: target,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rattler-one", "rattler-two"}, result.Patched)
	assert.Empty(t, result.Warnings)

	doc := reload(t, target)

	// Version requirements follow the source's concrete versions.
	assert.Equal(t, "1.1.0", doc.DependencyVersion("rattler-one"))
	assert.Equal(t, "2.1.0", doc.DependencyVersion("rattler-two"))

	// Unmatched and undeclared crates are untouched.
	assert.Equal(t, "0.5.0", doc.DependencyVersion("bar-core"))
	assert.Equal(t, "1.0", doc.DependencyVersion("serde"))
	assert.False(t, doc.HasOverride(DefaultOrigin, "unrelated"))

	// Override entries point at the member directories.
	assert.True(t, doc.HasOverride(DefaultOrigin, "rattler-one"))
	assert.True(t, doc.HasOverride(DefaultOrigin, "rattler-two"))

	// Bookkeeping captured the pre-patch requirements.
	md := doc.ReadMetadata()
	require.NotNil(t, md)
	assert.Equal(t, map[string]string{
		"rattler-one": "1.0.0",
		"rattler-two": "2.0.0",
	}, md.OriginalVersions)
	assert.Equal(t, []string{DefaultOrigin}, md.ManagedOverrides)
}

func TestApply_isIdempotent(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, targetManifest)
	srcRoot := writeSourceWorkspace(t)

	opts := ApplyOptions{Source: source.Local(srcRoot), Pattern: "rattler-*", ManifestPath: target}

	_, err := Apply(ctx, opts)
	require.NoError(t, err)
	_, err = Apply(ctx, opts)
	require.NoError(t, err)

	md := reload(t, target).ReadMetadata()
	require.NotNil(t, md)

	// The second apply must not capture the already-patched 1.1.0 as an
	// original.
	assert.Equal(t, map[string]string{
		"rattler-one": "1.0.0",
		"rattler-two": "2.0.0",
	}, md.OriginalVersions)
}

func TestApply_noPatternPatchesEverythingDeclared(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, targetManifest)
	srcRoot := writeSourceWorkspace(t)

	result, err := Apply(ctx, ApplyOptions{Source: source.Local(srcRoot), ManifestPath: target})
	require.NoError(t, err)
	assert.Equal(t, []string{"bar-core", "rattler-one", "rattler-two"}, result.Patched)
}

func TestApply_remoteSourceRequiresPattern(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, targetManifest)
	srcRoot := writeSourceWorkspace(t)

	before, err := os.ReadFile(target)
	require.NoError(t, err)

	_, err = Apply(ctx, ApplyOptions{
		Source:       source.FromRemote(srcRoot, source.Remote{URL: "https://github.com/conda/rattler"}),
		ManifestPath: target,
	})
	require.ErrorIs(t, err, ErrPatternRequired)

	after, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a rejected apply must not mutate the manifest")
}

func TestApply_remoteSourceRecordsGitDescriptor(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, targetManifest)
	srcRoot := writeSourceWorkspace(t)

	remote := source.Remote{
		URL:       "https://github.com/conda/rattler",
		Reference: source.GitReference{Branch: "feat/new-solver"},
	}
	_, err := Apply(ctx, ApplyOptions{
		Source:       source.FromRemote(srcRoot, remote),
		Pattern:      "rattler-*",
		ManifestPath: target,
	})
	require.NoError(t, err)

	out := reload(t, target).String()
	assert.Contains(t, out, `git = "https://github.com/conda/rattler"`)
	assert.Contains(t, out, `branch = "feat/new-solver"`)
	assert.NotContains(t, out, srcRoot, "override entries must record the remote, not the checkout")
}

func TestApply_noMatchingCrates(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, targetManifest)
	srcRoot := writeSourceWorkspace(t)

	_, err := Apply(ctx, ApplyOptions{
		Source:       source.Local(srcRoot),
		Pattern:      "nope-*",
		ManifestPath: target,
	})
	require.ErrorIs(t, err, ErrNoMatchingCrates)
}

func TestApply_targetManifestMissing(t *testing.T) {
	ctx := context.Background()
	srcRoot := writeSourceWorkspace(t)

	_, err := Apply(ctx, ApplyOptions{
		Source:       source.Local(srcRoot),
		ManifestPath: filepath.Join(t.TempDir(), manifest.Filename),
	})
	require.ErrorIs(t, err, ErrTargetManifestNotFound)
}

func TestApply_missingVersionFieldIsWarningNotError(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, `[package]
name = "test-project"
version = "0.1.0"

[dependencies]
rattler-one = { git = "https://example.com/rattler", branch = "main" }
`)
	srcRoot := writeSourceWorkspace(t)

	result, err := Apply(ctx, ApplyOptions{
		Source:       source.Local(srcRoot),
		Pattern:      "rattler-one",
		ManifestPath: target,
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "rattler-one", result.Warnings[0].Crate)

	doc := reload(t, target)
	md := doc.ReadMetadata()
	require.NotNil(t, md)

	// No version to restore later, recorded as empty.
	assert.Equal(t, map[string]string{"rattler-one": ""}, md.OriginalVersions)
}

func TestApply_skipsExistingOverrideEntries(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, targetManifest+`
[patch.crates-io]
rattler-one = { path = "/home/user/hand-written" }
`)
	srcRoot := writeSourceWorkspace(t)

	result, err := Apply(ctx, ApplyOptions{
		Source:       source.Local(srcRoot),
		Pattern:      "rattler-*",
		ManifestPath: target,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rattler-one"}, result.Skipped)
	assert.Equal(t, []string{"rattler-two"}, result.Patched)

	doc := reload(t, target)

	// The hand-written entry and its version requirement are untouched.
	assert.Contains(t, doc.String(), "/home/user/hand-written")
	assert.Equal(t, "1.0.0", doc.DependencyVersion("rattler-one"))

	md := doc.ReadMetadata()
	require.NotNil(t, md)
	assert.Equal(t, map[string]string{"rattler-two": "2.0.0"}, md.OriginalVersions)
}

func TestApply_detectsCommonGitOrigin(t *testing.T) {
	ctx := context.Background()
	origin := "https://github.com/conda/rattler"
	target := writeTarget(t, `[package]
name = "test-project"
version = "0.1.0"

[dependencies]
rattler-one = { version = "1.0.0", git = "`+origin+`" }
rattler-two = { version = "2.0.0", git = "`+origin+`" }
`)
	srcRoot := writeSourceWorkspace(t)

	_, err := Apply(ctx, ApplyOptions{
		Source:       source.Local(srcRoot),
		Pattern:      "rattler-*",
		ManifestPath: target,
	})
	require.NoError(t, err)

	doc := reload(t, target)
	assert.True(t, doc.HasOverride(origin, "rattler-one"))
	assert.True(t, doc.HasOverride(origin, "rattler-two"))
	assert.False(t, doc.HasOverride(DefaultOrigin, "rattler-one"))

	md := doc.ReadMetadata()
	require.NotNil(t, md)
	assert.Equal(t, []string{origin}, md.ManagedOverrides)
}

func TestApply_workspaceTargetUsesWorkspaceMetadata(t *testing.T) {
	ctx := context.Background()
	target := writeTarget(t, `[workspace]
members = ["crates/*"]

[workspace.dependencies]
rattler-one = "1.0.0"
`)
	srcRoot := writeSourceWorkspace(t)

	_, err := Apply(ctx, ApplyOptions{
		Source:       source.Local(srcRoot),
		Pattern:      "rattler-*",
		ManifestPath: target,
	})
	require.NoError(t, err)

	doc := reload(t, target)
	assert.Equal(t, "1.1.0", doc.DependencyVersion("rattler-one"))
	assert.Contains(t, doc.String(), "[workspace.metadata.patchctl")
}

func TestDetectOrigin_majorityRule(t *testing.T) {
	doc, err := manifest.Parse([]byte(`[dependencies]
a = { version = "1", git = "https://example.com/repo" }
b = { version = "1", git = "https://example.com/repo" }
c = "1"
`))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/repo", detectOrigin(doc, []string{"a", "b", "c"}))
	assert.Equal(t, DefaultOrigin, detectOrigin(doc, []string{"a", "c", "d", "e"}))
}

func TestVersionDelta(t *testing.T) {
	assert.Equal(t, "upgrade", versionDelta("1.0.0", "1.1.0"))
	assert.Equal(t, "downgrade", versionDelta("2.0.0", "1.9.0"))
	assert.Equal(t, "same version", versionDelta("^1.0.0", "1.0.0"))
	assert.Equal(t, "", versionDelta(">=1.0, <2.0", "1.1.0"))
}
