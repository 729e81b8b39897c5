package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrMissing means the repository has no .constructum.yml at the fetched
// commit.
var ErrMissing = errors.New("no " + FileName + " found")

// Fetcher materializes repository content in a local workspace and reads
// the manifest out of it.
type Fetcher interface {
	// FetchManifest shallow-fetches the repository into
	// <root>/<repoName> and checks out only the manifest file at
	// commit. This is the advisory server-side fetch: it validates the
	// manifest without materializing the tree.
	FetchManifest(ctx context.Context, cloneURL string, repoName string, commit string) (*Manifest, error)

	// FetchWorkspace shallow-fetches the repository into
	// <root>/<repoName> and hard-resets the working tree to commit.
	// Returns the manifest and the working directory steps run in.
	FetchWorkspace(ctx context.Context, cloneURL string, repoName string, commit string) (*Manifest, string, error)
}

type gitFetcher struct {
	root string
}

// NewFetcher returns a Fetcher cloning under root via the git CLI.
func NewFetcher(root string) Fetcher {
	return &gitFetcher{root: root}
}

func (g *gitFetcher) FetchManifest(ctx context.Context, cloneURL string, repoName string, commit string) (*Manifest, error) {
	workdir, err := g.fetch(ctx, cloneURL, repoName)
	if err != nil {
		return nil, err
	}
	// detach just the manifest file; the server never needs the tree.
	if err := runGit(ctx, workdir, "checkout", commit, "--", FileName); err != nil {
		return nil, err
	}
	return readManifest(workdir)
}

func (g *gitFetcher) FetchWorkspace(ctx context.Context, cloneURL string, repoName string, commit string) (*Manifest, string, error) {
	workdir, err := g.fetch(ctx, cloneURL, repoName)
	if err != nil {
		return nil, "", err
	}
	if err := runGit(ctx, workdir, "reset", "--hard", commit); err != nil {
		return nil, "", err
	}
	m, err := readManifest(workdir)
	if err != nil {
		return nil, "", err
	}
	return m, workdir, nil
}

func (g *gitFetcher) fetch(ctx context.Context, cloneURL string, repoName string) (string, error) {
	workdir := filepath.Join(g.root, repoName)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return "", fmt.Errorf("preparing workspace %s: %w", workdir, err)
	}

	if err := runGit(ctx, workdir, "init"); err != nil {
		return "", err
	}
	// re-fetches land in an initialized workspace; the origin remote may
	// already be there.
	_ = runGit(ctx, workdir, "remote", "add", "origin", cloneURL)
	if err := runGit(ctx, workdir, "fetch", "--tags", "--depth", "100", "origin"); err != nil {
		return "", err
	}
	return workdir, nil
}

func runGit(ctx context.Context, workdir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workdir
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, stderr.String())
	}
	return nil
}

func readManifest(workdir string) (*Manifest, error) {
	doc, err := os.ReadFile(filepath.Join(workdir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissing
		}
		return nil, err
	}
	return Parse(doc)
}
