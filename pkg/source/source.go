// Package source describes where alternate copies of crates come from and
// discovers the crates available there.
package source

// GitReference pins a git source to a branch, tag, or revision. At most one
// field is set; the zero value means the remote's default branch.
type GitReference struct {
	Branch string
	Tag    string
	Rev    string
}

// IsZero reports whether no reference was given.
func (r GitReference) IsZero() bool {
	return r == GitReference{}
}

// Remote is a git source exactly as the user specified it. It is carried
// through unchanged so override entries can record it.
type Remote struct {
	URL       string
	Reference GitReference
}

// Source is the alternate source crates are discovered in. Dir is always a
// local directory; for a git source it is the checkout produced by the
// fetch collaborator and Remote records where it came from.
type Source struct {
	Dir    string
	Remote *Remote
}

// Local returns a source rooted at a local directory.
func Local(dir string) Source {
	return Source{Dir: dir}
}

// FromRemote returns a source backed by a local checkout of a git remote.
func FromRemote(dir string, remote Remote) Source {
	return Source{Dir: dir, Remote: &remote}
}

// IsRemote reports whether the source came from a git remote.
func (s Source) IsRemote() bool {
	return s.Remote != nil
}
