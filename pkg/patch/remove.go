package patch

import (
	"context"
	"slices"
	"sort"

	"github.com/chainguard-dev/clog"
	"github.com/samber/lo"

	"github.com/crates-dev/patchctl/pkg/manifest"
	"github.com/crates-dev/patchctl/pkg/pattern"
)

// RemoveOptions configures one remove pass.
type RemoveOptions struct {
	// Pattern scopes which managed crates are restored. Empty means all.
	Pattern string

	// ManifestPath overrides the manifest to modify; empty means
	// ./Cargo.toml.
	ManifestPath string
}

// Remove restores managed dependencies to their recorded original state:
// patched → clean. A manifest with no managed metadata is a successful
// no-op, so remove is safe to invoke unconditionally. With a pattern, only
// matching crates are restored and the bookkeeping for the rest stays in
// place for a later remove.
func Remove(ctx context.Context, opts RemoveOptions) (*Result, error) {
	log := clog.FromContext(ctx)

	var matcher *pattern.Matcher
	if opts.Pattern != "" {
		m, err := pattern.Compile(opts.Pattern)
		if err != nil {
			return nil, err
		}
		matcher = m
	}

	path, err := resolveManifestPath(opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	doc, err := loadTarget(path)
	if err != nil {
		return nil, err
	}

	result := &Result{ManifestPath: path}

	md := doc.ReadMetadata()
	if md == nil {
		log.Infof("no managed patches in %s, nothing to remove", path)
		return result, nil
	}

	managedBefore := len(md.ManagedOverrides)
	result.Restored = revertManaged(ctx, doc, md, matcher)

	if len(result.Restored) == 0 && len(md.ManagedOverrides) == managedBefore {
		log.Infof("no managed crates match pattern %q in %s", matcher.String(), path)
		return result, nil
	}

	if err := doc.WriteMetadata(md); err != nil {
		return nil, err
	}
	if err := doc.Save(); err != nil {
		return nil, err
	}

	if md.Empty() {
		log.Infof("removed all patches from %s", path)
	} else {
		log.Infof("removed %d patch(es) from %s, %d still managed", len(result.Restored), path, len(md.OriginalVersions))
	}
	return result, nil
}

// revertManaged undoes the managed patches whose crate names match, in
// place: version requirements are set back to the recorded strings
// byte-for-byte, override entries are deleted, and origin tables this tool
// created are pruned once empty. Override tables the tool does not own are
// never touched. The metadata block is updated but not written back;
// callers decide whether to persist or discard it.
func revertManaged(ctx context.Context, doc *manifest.Document, md *manifest.Metadata, matcher *pattern.Matcher) []string {
	log := clog.FromContext(ctx)

	names := lo.Keys(md.OriginalVersions)
	sort.Strings(names)

	var restored []string
	for _, name := range names {
		if !matcher.Matches(name) {
			continue
		}

		if original := md.OriginalVersions[name]; original != "" {
			doc.SetDependencyVersion(name, original)
			log.Infof("restoring %s to %s", name, original)
		} else {
			log.Debugf("restoring %s (no version to restore)", name)
		}

		for _, origin := range doc.OverrideOrigins() {
			if md.IsManaged(origin) {
				doc.RemoveOverride(origin, name)
			}
		}

		delete(md.OriginalVersions, name)
		restored = append(restored, name)
	}

	for _, origin := range slices.Clone(md.ManagedOverrides) {
		if doc.PruneOverrideTable(origin) {
			md.RemoveManagedOverride(origin)
			continue
		}
		// The table survived because it still has entries. Keep claiming it
		// only while one of our remaining crates is among them; entries the
		// user authored themselves are not ours to manage.
		stillOurs := false
		for name := range md.OriginalVersions {
			if doc.HasOverride(origin, name) {
				stillOurs = true
				break
			}
		}
		if !stillOurs {
			md.RemoveManagedOverride(origin)
		}
	}

	return restored
}
