package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
	goversion "github.com/hashicorp/go-version"

	"github.com/crates-dev/patchctl/pkg/manifest"
)

var (
	// ErrNotFound means the source root does not exist on disk.
	ErrNotFound = errors.New("source path does not exist")

	// ErrNoMembers means the source root is a workspace that resolves to
	// zero member packages.
	ErrNoMembers = errors.New("no workspace members found")
)

// Crate is one package available in an alternate source: its name, its
// concrete version, and the directory containing its own Cargo.toml.
type Crate struct {
	Name    string
	Version string
	Dir     string
}

// Discover enumerates the crates available under root. A workspace root
// yields one crate per resolved member (plus the root itself when it is
// also a package); a single-package root yields exactly one crate.
func Discover(ctx context.Context, root string) ([]Crate, error) {
	log := clog.FromContext(ctx)

	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	doc, err := manifest.Load(filepath.Join(absRoot, manifest.Filename))
	if err != nil {
		return nil, err
	}

	var crates []Crate

	switch {
	case doc.HasWorkspace():
		memberDirs, err := resolveMembers(absRoot, doc)
		if err != nil {
			return nil, err
		}
		rootIsMember := false
		for _, dir := range memberDirs {
			if dir == absRoot {
				rootIsMember = true
			}
			crate, err := readPackage(dir, doc)
			if err != nil {
				return nil, err
			}
			crates = append(crates, crate)
		}
		if doc.HasPackage() && !rootIsMember {
			crate, err := readPackage(absRoot, doc)
			if err != nil {
				return nil, err
			}
			crates = append(crates, crate)
		}
		if len(crates) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoMembers, root)
		}

	case doc.HasPackage():
		crate, err := readPackage(absRoot, doc)
		if err != nil {
			return nil, err
		}
		crates = append(crates, crate)

	default:
		return nil, fmt.Errorf("%w: %s declares neither [workspace] nor [package]", ErrNoMembers, root)
	}

	for _, c := range crates {
		if c.Version == "" {
			continue
		}
		if _, err := goversion.NewVersion(c.Version); err != nil {
			log.Warnf("crate %s has version %q that does not parse as a version: %v", c.Name, c.Version, err)
		}
	}

	sort.Slice(crates, func(i, j int) bool { return crates[i].Name < crates[j].Name })

	log.Infof("discovered %d crate(s) in %s", len(crates), root)
	return crates, nil
}

// resolveMembers expands the workspace members list, including glob
// entries, into absolute member directories, honoring workspace.exclude.
func resolveMembers(root string, doc *manifest.Document) ([]string, error) {
	excluded := map[string]bool{}
	for _, e := range doc.WorkspaceExcludes() {
		excluded[filepath.Join(root, filepath.FromSlash(e))] = true
	}

	var dirs []string
	seen := map[string]bool{}

	for _, member := range doc.WorkspaceMembers() {
		pattern := filepath.Join(root, filepath.FromSlash(member))

		var candidates []string
		if strings.ContainsAny(member, "*?[") {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid workspace member pattern %q: %w", member, err)
			}
			candidates = matches
		} else {
			candidates = []string{pattern}
		}

		for _, dir := range candidates {
			if excluded[dir] || seen[dir] {
				continue
			}
			st, err := os.Stat(dir)
			if err != nil || !st.IsDir() {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, manifest.Filename)); err != nil {
				continue
			}
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	return dirs, nil
}

// readPackage loads a member's manifest and extracts its name and version.
// A `version.workspace = true` member inherits workspace.package.version
// from the workspace root.
func readPackage(dir string, workspaceRoot *manifest.Document) (Crate, error) {
	doc, err := manifest.Load(filepath.Join(dir, manifest.Filename))
	if err != nil {
		return Crate{}, err
	}

	name := doc.PackageName()
	if name == "" {
		return Crate{}, fmt.Errorf("manifest in %s has no package name", dir)
	}

	version := doc.PackageVersion()
	if version == "" && doc.PackageVersionInheritsWorkspace() && workspaceRoot != nil {
		version = workspaceRoot.WorkspacePackageVersion()
	}

	return Crate{Name: name, Version: version, Dir: dir}, nil
}
