package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

const defaultRemoteName = "origin"

// AuthProvider supplies transport credentials for a remote URL. A nil
// AuthMethod lets go-git fall back to its defaults (e.g. ssh-agent).
type AuthProvider interface {
	AuthFor(ctx context.Context, url string) (transport.AuthMethod, error)
}

// GoGit opens repositories with go-git.
type GoGit struct {
	Auth AuthProvider
}

func NewGoGit(auth AuthProvider) *GoGit {
	return &GoGit{Auth: auth}
}

func (g *GoGit) Open(path string) (Repository, error) {
	// No parent lookup: a plain folder inside another work tree is not a repo.
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: false})
	if err != nil {
		return nil, err
	}
	return &goGitRepository{repo: r, auth: g.Auth}, nil
}

type goGitRepository struct {
	repo *git.Repository
	auth AuthProvider
}

func (r *goGitRepository) DefaultRemote() (Remote, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, fmt.Errorf("read repository config: %w", err)
	}
	if len(cfg.Remotes) == 0 {
		return nil, ErrNoRemote
	}

	name, ok := selectDefaultRemote(cfg, currentBranch(r.repo))
	if !ok {
		return nil, ErrNoRemote
	}

	rc, ok := cfg.Remotes[name]
	if !ok {
		return nil, fmt.Errorf("remote %q is not configured", name)
	}
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("remote %q: %w", name, err)
	}

	remote, err := r.repo.Remote(name)
	if err != nil {
		return nil, fmt.Errorf("remote %q: %w", name, err)
	}
	return &goGitRemote{remote: remote, auth: r.auth}, nil
}

// selectDefaultRemote picks the fetch remote: the current branch's upstream
// remote, then "origin", then the sole configured remote.
func selectDefaultRemote(cfg *gitconfig.Config, branch string) (string, bool) {
	if branch != "" {
		if b, ok := cfg.Branches[branch]; ok && b.Remote != "" && b.Remote != "." {
			return b.Remote, true
		}
	}
	if _, ok := cfg.Remotes[defaultRemoteName]; ok {
		return defaultRemoteName, true
	}
	if len(cfg.Remotes) == 1 {
		for name := range cfg.Remotes {
			return name, true
		}
	}
	return "", false
}

// currentBranch returns the short name HEAD points at, without requiring the
// branch to have commits yet.
func currentBranch(repo *git.Repository) string {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return ""
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return ""
	}
	return head.Target().Short()
}

type goGitRemote struct {
	remote *git.Remote
	auth   AuthProvider
}

func (r *goGitRemote) Name() string {
	return r.remote.Config().Name
}

func (r *goGitRemote) Fetch(ctx context.Context) (int, error) {
	cfg := r.remote.Config()

	var auth transport.AuthMethod
	if r.auth != nil && len(cfg.URLs) > 0 {
		a, err := r.auth.AuthFor(ctx, cfg.URLs[0])
		if err != nil {
			return 0, fmt.Errorf("resolve credentials: %w", err)
		}
		auth = a
	}

	refs, err := r.remote.ListContext(ctx, &git.ListOptions{Auth: auth})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	err = r.remote.FetchContext(ctx, &git.FetchOptions{RemoteName: cfg.Name, Auth: auth})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) && !errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return 0, err
	}
	return len(refs), nil
}
