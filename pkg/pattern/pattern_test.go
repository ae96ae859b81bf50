package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_anchored(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{pattern: "rattler-*", name: "rattler-one", want: true},
		{pattern: "rattler-*", name: "rattler-core", want: true},
		{pattern: "rattler-*", name: "my-rattler-one", want: false},
		{pattern: "rattler-*", name: "rattler", want: false},
		{pattern: "rattler*", name: "rattler", want: true},
		{pattern: "rattler*", name: "rattler-one", want: true},
		{pattern: "foo*bar", name: "foobar", want: true},
		{pattern: "foo*bar", name: "foo123bar", want: true},
		{pattern: "foo*bar", name: "foo123baz", want: false},
		{pattern: "foo-?", name: "foo-1", want: true},
		{pattern: "foo-?", name: "foo-12", want: false},
		{pattern: "exact", name: "exact", want: true},
		{pattern: "exact", name: "exactly", want: false},
	}
	for _, test := range tests {
		t.Run(test.pattern+"/"+test.name, func(t *testing.T) {
			m, err := Compile(test.pattern)
			require.NoError(t, err)
			assert.Equal(t, test.want, m.Matches(test.name))
		})
	}
}

func TestMatcher_escapesRegexpMetachars(t *testing.T) {
	m, err := Compile("crate+name?(test)*")
	require.NoError(t, err)

	assert.True(t, m.Matches("crate+name1(test)foo"))
	assert.False(t, m.Matches("crate-name1(test)foo"))
}

func TestMatcher_nilMatchesEverything(t *testing.T) {
	var m *Matcher
	assert.True(t, m.Matches("anything"))
	assert.Equal(t, "*", m.String())
}
