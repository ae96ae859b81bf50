// Package git fetches a git source to a local checkout so crate discovery
// can run against it. The core patch engine never talks to the network;
// this package is the collaborator that turns a remote reference into a
// directory.
package git

import (
	"context"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitHttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/crates-dev/patchctl/pkg/source"
)

// FetchError reports a failed clone or checkout of the remote.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// GetGitAuth returns basic auth from GITHUB_TOKEN, or nil when no token is
// set so anonymous clones of public repositories still work.
func GetGitAuth() *gitHttp.BasicAuth {
	gitToken := os.Getenv("GITHUB_TOKEN")
	if gitToken == "" {
		return nil
	}

	return &gitHttp.BasicAuth{
		Username: "abc123",
		Password: gitToken,
	}
}

// Fetch clones the remote into a temporary directory and returns that
// directory plus a cleanup func. Branch and tag references clone shallow;
// pinning to a revision needs history, so that clones full and checks the
// revision out afterwards.
func Fetch(ctx context.Context, remote source.Remote) (string, func() error, error) {
	log := clog.FromContext(ctx)

	tempDir, err := os.MkdirTemp("", "patchctl")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary folder to clone source into: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(tempDir) }

	cloneOpts := &gogit.CloneOptions{
		URL:               remote.URL,
		Auth:              GetGitAuth(),
		RecurseSubmodules: gogit.NoRecurseSubmodules,
	}

	ref := remote.Reference
	switch {
	case ref.Branch != "":
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(ref.Branch)
		cloneOpts.SingleBranch = true
		cloneOpts.Depth = 1
	case ref.Tag != "":
		cloneOpts.ReferenceName = plumbing.NewTagReferenceName(ref.Tag)
		cloneOpts.SingleBranch = true
		cloneOpts.Depth = 1
	case ref.IsZero():
		cloneOpts.Depth = 1
	}

	log.Infof("cloning %s into a temporary directory, this may take a while", remote.URL)

	repo, err := gogit.PlainCloneContext(ctx, tempDir, false, cloneOpts)
	if err != nil {
		cleanup() //nolint:errcheck
		return "", nil, &FetchError{URL: remote.URL, Err: err}
	}

	if ref.Rev != "" {
		wt, err := repo.Worktree()
		if err != nil {
			cleanup() //nolint:errcheck
			return "", nil, &FetchError{URL: remote.URL, Err: err}
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{Hash: plumbing.NewHash(ref.Rev)}); err != nil {
			cleanup() //nolint:errcheck
			return "", nil, &FetchError{URL: remote.URL, Err: fmt.Errorf("failed to checkout revision %s: %w", ref.Rev, err)}
		}
	}

	return tempDir, cleanup, nil
}
