package manifest

import (
	"fmt"

	toml "github.com/pelletier/go-toml"
)

const patchSection = "patch"

// OverrideOrigins returns the origin keys of the [patch] section (registry
// names or git URLs), sorted.
func (d *Document) OverrideOrigins() []string {
	section, ok := d.tree.GetPath([]string{patchSection}).(*toml.Tree)
	if !ok {
		return nil
	}
	return sortedKeys(section)
}

// OverriddenCrates returns every crate that has an override entry under any
// origin, mapped to that origin. Entries written manually by the user count
// the same as entries written by this tool.
func (d *Document) OverriddenCrates() map[string]string {
	out := map[string]string{}
	section, ok := d.tree.GetPath([]string{patchSection}).(*toml.Tree)
	if !ok {
		return out
	}
	for _, origin := range sortedKeys(section) {
		table, ok := section.Get(origin).(*toml.Tree)
		if !ok {
			continue
		}
		for _, crate := range sortedKeys(table) {
			if _, exists := out[crate]; !exists {
				out[crate] = origin
			}
		}
	}
	return out
}

// SetOverride writes (or overwrites) the override entry for a crate under
// the given origin. The entry maps location fields (path, or git plus
// branch/tag/rev) to string values.
func (d *Document) SetOverride(origin, crate string, entry map[string]interface{}) error {
	tree, err := toml.TreeFromMap(entry)
	if err != nil {
		return fmt.Errorf("failed to build override entry for %s: %w", crate, err)
	}
	d.tree.SetPath([]string{patchSection, origin, crate}, tree)
	return nil
}

// HasOverride reports whether the crate has an entry under the origin.
func (d *Document) HasOverride(origin, crate string) bool {
	return d.tree.HasPath([]string{patchSection, origin, crate})
}

// RemoveOverride deletes the crate's entry under the given origin, if
// present. The origin table itself is left in place; see
// PruneOverrideTable.
func (d *Document) RemoveOverride(origin, crate string) {
	path := []string{patchSection, origin, crate}
	if d.tree.HasPath(path) {
		d.tree.DeletePath(path) //nolint:errcheck // existence just checked
	}
}

// PruneOverrideTable deletes the origin's table when it has no entries left,
// and the whole [patch] section when no origins remain. Reports whether the
// origin table was deleted (or was already gone).
func (d *Document) PruneOverrideTable(origin string) bool {
	pruned := false

	originPath := []string{patchSection, origin}
	table, ok := d.tree.GetPath(originPath).(*toml.Tree)
	if !ok {
		pruned = true
	} else if len(table.Keys()) == 0 {
		d.tree.DeletePath(originPath) //nolint:errcheck // existence just checked
		pruned = true
	}

	section, ok := d.tree.GetPath([]string{patchSection}).(*toml.Tree)
	if ok && len(section.Keys()) == 0 {
		d.tree.DeletePath([]string{patchSection}) //nolint:errcheck // existence just checked
	}

	return pruned
}
