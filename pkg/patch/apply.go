package patch

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/samber/lo"

	"github.com/crates-dev/patchctl/pkg/manifest"
	"github.com/crates-dev/patchctl/pkg/pattern"
	"github.com/crates-dev/patchctl/pkg/source"
)

// ApplyOptions configures one apply pass.
type ApplyOptions struct {
	// Source is the alternate source to discover crates in. For a git
	// source the checkout has already been fetched by the collaborator.
	Source source.Source

	// Pattern scopes which dependencies are patched. Empty means all, which
	// is only allowed for local sources.
	Pattern string

	// ManifestPath overrides the manifest to patch; empty means
	// ./Cargo.toml.
	ManifestPath string
}

// Apply redirects the manifest's matching dependencies at the alternate
// source: clean → patched. A manifest that already carries managed patches
// is reverted to its recorded originals first, so re-running apply
// converges instead of capturing an already-patched version as "original".
// Nothing is written to disk unless the whole pass succeeds.
func Apply(ctx context.Context, opts ApplyOptions) (*Result, error) {
	log := clog.FromContext(ctx)

	if opts.Source.IsRemote() && opts.Pattern == "" {
		return nil, ErrPatternRequired
	}

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

	// Start from a fresh state when a previous apply is still in effect.
	dirty := false
	if md := doc.ReadMetadata(); md != nil {
		reverted := revertManaged(ctx, doc, md, nil)
		if len(reverted) > 0 {
			log.Infof("reverting %d previously patched crate(s) before re-applying", len(reverted))
		}
		doc.ClearMetadata()
		dirty = true
	}

	crates, err := source.Discover(ctx, opts.Source.Dir)
	if err != nil {
		return nil, err
	}

	selected := Select(doc, crates, matcher)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: pattern %q selected none of the %d discovered crate(s)", ErrNoMatchingCrates, matcher.String(), len(crates))
	}

	// Never overwrite an override entry that is already present, whether
	// hand-written or left by another tool.
	overridden := doc.OverriddenCrates()
	var toPatch []source.Crate
	for _, crate := range selected {
		if origin, exists := overridden[crate.Name]; exists {
			log.Warnf("skipping %s: an override entry already exists under %q", crate.Name, origin)
			result.Skipped = append(result.Skipped, crate.Name)
			continue
		}
		toPatch = append(toPatch, crate)
	}

	if len(toPatch) == 0 {
		log.Infof("no crates to patch after skipping existing override entries")
		if dirty {
			if err := doc.Save(); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	names := lo.Map(toPatch, func(c source.Crate, _ int) string { return c.Name })
	origin := detectOrigin(doc, names)
	if origin != DefaultOrigin {
		log.Infof("detected git origin for selected dependencies: %s", origin)
	}

	md := manifest.NewMetadata()
	for _, crate := range toPatch {
		if err := doc.SetOverride(origin, crate.Name, overrideEntry(opts.Source, crate)); err != nil {
			return nil, err
		}

		current := doc.DependencyVersion(crate.Name)
		if _, captured := md.OriginalVersions[crate.Name]; !captured {
			md.OriginalVersions[crate.Name] = current
		}

		switch {
		case current == "":
			log.Warnf("%s has no version field to rewrite; override entry written anyway", crate.Name)
			result.Warnings = append(result.Warnings, Warning{
				Crate:   crate.Name,
				Message: "declaration has no version field; wrote override entry without a version rewrite",
			})
		case crate.Version == "":
			log.Warnf("%s has no version in the alternate source; keeping requirement %q", crate.Name, current)
		default:
			doc.SetDependencyVersion(crate.Name, crate.Version)
			if delta := versionDelta(current, crate.Version); delta != "" {
				log.Infof("patching %s %s -> %s (%s)", crate.Name, current, crate.Version, delta)
			} else {
				log.Infof("patching %s %s -> %s", crate.Name, current, crate.Version)
			}
		}

		result.Patched = append(result.Patched, crate.Name)
	}
	md.AddManagedOverride(origin)

	if err := doc.WriteMetadata(md); err != nil {
		return nil, err
	}
	if err := doc.Save(); err != nil {
		return nil, err
	}

	log.Infof("applied %d patch(es) to %s", len(result.Patched), path)
	return result, nil
}

// overrideEntry builds the location table for one override entry: a path
// for local sources, the git descriptor exactly as given for remote ones.
func overrideEntry(src source.Source, crate source.Crate) map[string]interface{} {
	if !src.IsRemote() {
		return map[string]interface{}{"path": crate.Dir}
	}

	entry := map[string]interface{}{"git": src.Remote.URL}
	ref := src.Remote.Reference
	switch {
	case ref.Branch != "":
		entry["branch"] = ref.Branch
	case ref.Tag != "":
		entry["tag"] = ref.Tag
	case ref.Rev != "":
		entry["rev"] = ref.Rev
	}
	return entry
}
