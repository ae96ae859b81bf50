package manifest

import (
	"fmt"
	"slices"
	"sort"

	toml "github.com/pelletier/go-toml"
)

// MetadataKey is the tool's namespace under package.metadata /
// workspace.metadata. Cargo ignores metadata tables for build purposes,
// which is what makes the bookkeeping safe to store in the manifest itself.
const MetadataKey = "patchctl"

const (
	originalVersionsKey = "original-versions"
	managedOverridesKey = "managed-overrides"
)

// Metadata is the tool's bookkeeping block. OriginalVersions maps each
// crate with an active managed override to the version requirement it had
// before patching ("" when the declaration had no version field).
// ManagedOverrides lists the override-table origins this tool created and
// is allowed to delete.
type Metadata struct {
	OriginalVersions map[string]string
	ManagedOverrides []string
}

// NewMetadata returns an empty bookkeeping block.
func NewMetadata() *Metadata {
	return &Metadata{OriginalVersions: map[string]string{}}
}

// Empty reports whether nothing is managed anymore, meaning the block
// should be removed from the manifest.
func (m *Metadata) Empty() bool {
	return len(m.OriginalVersions) == 0 && len(m.ManagedOverrides) == 0
}

// AddManagedOverride records an origin as tool-owned. Set semantics.
func (m *Metadata) AddManagedOverride(origin string) {
	if !slices.Contains(m.ManagedOverrides, origin) {
		m.ManagedOverrides = append(m.ManagedOverrides, origin)
	}
}

// RemoveManagedOverride drops an origin from the managed set.
func (m *Metadata) RemoveManagedOverride(origin string) {
	m.ManagedOverrides = slices.DeleteFunc(m.ManagedOverrides, func(o string) bool {
		return o == origin
	})
}

// IsManaged reports whether this tool owns the origin's override table.
func (m *Metadata) IsManaged(origin string) bool {
	return slices.Contains(m.ManagedOverrides, origin)
}

// metadataPath returns where the block belongs in this document. The
// workspace location wins whenever a [workspace] table exists, even if the
// document is also a package: workspace-level overrides are the only ones
// visible to every member, so the bookkeeping lives next to them.
func (d *Document) metadataPath() []string {
	if d.HasWorkspace() {
		return []string{"workspace", "metadata", MetadataKey}
	}
	return []string{"package", "metadata", MetadataKey}
}

// ReadMetadata returns the bookkeeping block, or nil when the manifest has
// none. Both candidate locations are checked so a block survives the
// manifest gaining or losing a [workspace] table between invocations.
func (d *Document) ReadMetadata() *Metadata {
	for _, root := range []string{"workspace", "package"} {
		block, ok := d.tree.GetPath([]string{root, "metadata", MetadataKey}).(*toml.Tree)
		if !ok {
			continue
		}

		md := NewMetadata()

		if versions, ok := block.Get(originalVersionsKey).(*toml.Tree); ok {
			for _, crate := range versions.Keys() {
				if v, ok := versions.Get(crate).(string); ok {
					md.OriginalVersions[crate] = v
				}
			}
		}

		switch managed := block.Get(managedOverridesKey).(type) {
		case []string:
			for _, origin := range managed {
				md.AddManagedOverride(origin)
			}
		case []interface{}:
			for _, item := range managed {
				if origin, ok := item.(string); ok {
					md.AddManagedOverride(origin)
				}
			}
		}

		return md
	}
	return nil
}

// WriteMetadata stores the block in the manifest, replacing any previous
// one. An empty block is removed instead.
func (d *Document) WriteMetadata(md *Metadata) error {
	if md.Empty() {
		d.ClearMetadata()
		return nil
	}

	versions := map[string]interface{}{}
	for crate, v := range md.OriginalVersions {
		versions[crate] = v
	}

	sorted := slices.Clone(md.ManagedOverrides)
	sort.Strings(sorted)
	managed := make([]interface{}, 0, len(sorted))
	for _, origin := range sorted {
		managed = append(managed, origin)
	}

	block, err := toml.TreeFromMap(map[string]interface{}{
		originalVersionsKey: versions,
		managedOverridesKey: managed,
	})
	if err != nil {
		return fmt.Errorf("failed to build metadata block: %w", err)
	}

	d.ClearMetadata()
	d.tree.SetPath(d.metadataPath(), block)
	return nil
}

// ClearMetadata deletes the bookkeeping block from both candidate
// locations, pruning a metadata table left empty by the deletion.
func (d *Document) ClearMetadata() {
	for _, root := range []string{"workspace", "package"} {
		blockPath := []string{root, "metadata", MetadataKey}
		if d.tree.HasPath(blockPath) {
			d.tree.DeletePath(blockPath) //nolint:errcheck // existence just checked
		}

		metaPath := []string{root, "metadata"}
		if meta, ok := d.tree.GetPath(metaPath).(*toml.Tree); ok && len(meta.Keys()) == 0 {
			d.tree.DeletePath(metaPath) //nolint:errcheck // existence just checked
		}
	}
}
