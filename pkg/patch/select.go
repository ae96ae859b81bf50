package patch

import (
	"github.com/samber/lo"

	"github.com/crates-dev/patchctl/pkg/manifest"
	"github.com/crates-dev/patchctl/pkg/pattern"
	"github.com/crates-dev/patchctl/pkg/source"
)

// Select intersects the discovered crates with the manifest's declared
// dependencies, filtered by pattern. Crates present in the source but not
// declared anywhere in the manifest are dropped: the tool only ever
// touches dependencies the project already has.
func Select(doc *manifest.Document, crates []source.Crate, m *pattern.Matcher) []source.Crate {
	return lo.Filter(crates, func(c source.Crate, _ int) bool {
		return m.Matches(c.Name) && doc.HasDependency(c.Name)
	})
}
