package manifest

import (
	"sort"

	toml "github.com/pelletier/go-toml"
)

// dependencySections lists every table a dependency can be declared in, in
// the order used when capturing a crate's current version requirement. A
// crate declared in several sections has all occurrences rewritten.
var dependencySections = [][]string{
	{"workspace", "dependencies"},
	{"workspace", "dev-dependencies"},
	{"workspace", "build-dependencies"},
	{"dependencies"},
	{"dev-dependencies"},
	{"build-dependencies"},
}

// DependencyNames returns the sorted union of crate names declared in any
// dependency section.
func (d *Document) DependencyNames() []string {
	seen := map[string]bool{}
	for _, section := range dependencySections {
		table, ok := d.tree.GetPath(section).(*toml.Tree)
		if !ok {
			continue
		}
		for _, name := range table.Keys() {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasDependency reports whether any dependency section declares the crate.
func (d *Document) HasDependency(name string) bool {
	for _, section := range dependencySections {
		table, ok := d.tree.GetPath(section).(*toml.Tree)
		if ok && table.Has(name) {
			return true
		}
	}
	return false
}

// DependencyVersion returns the crate's declared version requirement: the
// bare string form, or the table form's version field. Returns "" when the
// crate is undeclared or has no version field (a pure path/git dependency).
// A crate declared in several sections reports the first declaring
// section's value; one requirement string is tracked per crate, so a
// restore writes that string into every section.
func (d *Document) DependencyVersion(name string) string {
	for _, section := range dependencySections {
		table, ok := d.tree.GetPath(section).(*toml.Tree)
		if !ok || !table.Has(name) {
			continue
		}
		switch dep := table.Get(name).(type) {
		case string:
			return dep
		case *toml.Tree:
			if v, ok := dep.Get("version").(string); ok {
				return v
			}
		}
	}
	return ""
}

// DependencyGitURL returns the git URL of the crate's declaration, if the
// declaration is a table with a git field.
func (d *Document) DependencyGitURL(name string) string {
	for _, section := range dependencySections {
		table, ok := d.tree.GetPath(section).(*toml.Tree)
		if !ok || !table.Has(name) {
			continue
		}
		if dep, ok := table.Get(name).(*toml.Tree); ok {
			if url, ok := dep.Get("git").(string); ok {
				return url
			}
		}
	}
	return ""
}

// SetDependencyVersion rewrites the crate's version requirement in every
// section that declares it with a version, preserving all other fields of
// a table-form declaration. Declarations without a version field are left
// alone. Returns the number of occurrences updated.
func (d *Document) SetDependencyVersion(name, version string) int {
	updated := 0
	for _, section := range dependencySections {
		table, ok := d.tree.GetPath(section).(*toml.Tree)
		if !ok || !table.Has(name) {
			continue
		}
		switch dep := table.Get(name).(type) {
		case string:
			table.Set(name, version)
			updated++
		case *toml.Tree:
			if _, ok := dep.Get("version").(string); ok {
				dep.Set("version", version)
				updated++
			}
		}
	}
	return updated
}
