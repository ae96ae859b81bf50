// Package pattern compiles glob-style crate name patterns into anchored
// matchers. `*` matches zero or more characters, `?` matches exactly one,
// everything else is literal. A pattern must match the whole crate name:
// "rattler-*" matches "rattler-one" but not "my-rattler-one" or "rattler".
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher is a compiled crate name pattern. The zero value is not usable;
// use Compile. A nil *Matcher matches every name.
type Matcher struct {
	raw string
	re  *regexp.Regexp
}

// Compile translates a glob pattern into an anchored matcher.
func Compile(pattern string) (*Matcher, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, ch := range pattern {
		switch ch {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	return &Matcher{raw: pattern, re: re}, nil
}

// Matches reports whether name matches the full pattern. A nil matcher
// matches everything, which lets callers treat "no pattern supplied" and
// "match-all pattern" uniformly.
func (m *Matcher) Matches(name string) bool {
	if m == nil {
		return true
	}
	return m.re.MatchString(name)
}

func (m *Matcher) String() string {
	if m == nil {
		return "*"
	}
	return m.raw
}
