// Package manifest is the editing layer over Cargo.toml documents. It wraps
// the go-toml tree so the rest of the tool only ever works with named table
// paths (get/set/remove) and never touches raw TOML, and it owns the atomic
// write-back of a modified document.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml"
)

// Filename is the manifest file name Cargo expects.
const Filename = "Cargo.toml"

// ParseError reports a manifest that exists but could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Document is one loaded Cargo.toml. It is owned by a single invocation:
// load once, mutate in memory, save once.
type Document struct {
	path string
	tree *toml.Tree
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &Document{path: path, tree: tree}, nil
}

// Parse builds a document from raw TOML without a backing file. Used by
// tests; Save requires a path.
func Parse(data []byte) (*Document, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return &Document{tree: tree}, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// String serializes the document.
func (d *Document) String() string {
	s, err := d.tree.ToTomlString()
	if err != nil {
		// A tree we built from valid TOML and mutated with valid values
		// always serializes.
		panic(fmt.Sprintf("manifest serialization failed: %v", err))
	}
	return s
}

// Save writes the document back to its file atomically: the serialized
// content goes to a temp file in the same directory which is then renamed
// over the target, so an interrupted write leaves either the old or the new
// manifest, never a truncated one.
func (d *Document) Save() error {
	if d.path == "" {
		return fmt.Errorf("document has no backing file")
	}

	mode := fs.FileMode(0o644)
	if st, err := os.Stat(d.path); err == nil {
		mode = st.Mode().Perm()
	}

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, "."+Filename+".")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(d.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set mode on %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", d.path, err)
	}

	return nil
}

// HasWorkspace reports whether the document declares a [workspace] table.
func (d *Document) HasWorkspace() bool {
	return d.tree.HasPath([]string{"workspace"})
}

// HasPackage reports whether the document declares a [package] table.
func (d *Document) HasPackage() bool {
	return d.tree.HasPath([]string{"package"})
}

// PackageName returns package.name, or "" when absent.
func (d *Document) PackageName() string {
	return d.stringAt([]string{"package", "name"})
}

// PackageVersion returns package.version when it is a plain string. It
// returns "" both when absent and when the field is the
// `version.workspace = true` inheritance form; use
// PackageVersionInheritsWorkspace to tell those apart.
func (d *Document) PackageVersion() string {
	return d.stringAt([]string{"package", "version"})
}

// PackageVersionInheritsWorkspace reports the `version.workspace = true`
// inheritance form of package.version.
func (d *Document) PackageVersionInheritsWorkspace() bool {
	v, ok := d.tree.GetPath([]string{"package", "version"}).(*toml.Tree)
	if !ok {
		return false
	}
	inherit, _ := v.Get("workspace").(bool)
	return inherit
}

// WorkspacePackageVersion returns workspace.package.version, the value
// inherited by members that declare `version.workspace = true`.
func (d *Document) WorkspacePackageVersion() string {
	return d.stringAt([]string{"workspace", "package", "version"})
}

// WorkspaceMembers returns the workspace.members list, which may contain
// glob entries such as "crates/*".
func (d *Document) WorkspaceMembers() []string {
	return d.stringSliceAt([]string{"workspace", "members"})
}

// WorkspaceExcludes returns the workspace.exclude list.
func (d *Document) WorkspaceExcludes() []string {
	return d.stringSliceAt([]string{"workspace", "exclude"})
}

func (d *Document) stringAt(path []string) string {
	s, _ := d.tree.GetPath(path).(string)
	return s
}

func (d *Document) stringSliceAt(path []string) []string {
	switch v := d.tree.GetPath(path).(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// sortedKeys returns a tree's keys in stable order; go-toml's Keys() is
// map-ordered.
func sortedKeys(t *toml.Tree) []string {
	keys := t.Keys()
	sort.Strings(keys)
	return keys
}
