package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/sync/singleflight"

	gh "fetchall/internal/github"
)

// TokenResolver returns an access token for host, or "" if none is available.
type TokenResolver func(ctx context.Context, host string) (string, error)

// TokenVerifier checks a token once before it is used. Returning
// gh.ErrTokenRejected drops the token for the rest of the run.
type TokenVerifier func(ctx context.Context, token string) (login string, err error)

// Credentials provides HTTPS token auth for GitHub remotes.
//
// Tokens are resolved at most once per host per run: concurrent fetches share
// one in-flight resolution and later fetches read the cached result.
type Credentials struct {
	resolve TokenResolver
	verify  TokenVerifier
	hosts   map[string]bool
	stderr  io.Writer
	verbose bool

	group  singleflight.Group
	tokens sync.Map // host -> string
}

type CredentialsOption func(*Credentials)

// WithTokenVerifier verifies each resolved token before first use.
func WithTokenVerifier(v TokenVerifier) CredentialsOption {
	return func(c *Credentials) { c.verify = v }
}

// WithHosts replaces the set of hosts tokens are attached to.
func WithHosts(hosts ...string) CredentialsOption {
	return func(c *Credentials) {
		c.hosts = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			c.hosts[strings.ToLower(h)] = true
		}
	}
}

func WithDiagnostics(w io.Writer, verbose bool) CredentialsOption {
	return func(c *Credentials) {
		c.stderr = w
		c.verbose = verbose
	}
}

func NewCredentials(resolve TokenResolver, opts ...CredentialsOption) *Credentials {
	c := &Credentials{
		resolve: resolve,
		hosts:   map[string]bool{gh.DefaultHost: true},
		stderr:  io.Discard,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(c)
		}
	}
	if c.stderr == nil {
		c.stderr = io.Discard
	}
	return c
}

// NewGitHubCredentials resolves tokens from the environment or the gh CLI
// and, when verify is set, checks them against the GitHub API.
func NewGitHubCredentials(verify bool, stderr io.Writer, verbose bool) *Credentials {
	resolve := func(ctx context.Context, host string) (string, error) {
		tok, _, err := gh.ResolveAuthToken(ctx, "", host)
		return tok, err
	}
	opts := []CredentialsOption{WithDiagnostics(stderr, verbose)}
	if verify {
		opts = append(opts, WithTokenVerifier(func(ctx context.Context, token string) (string, error) {
			client, err := gh.NewClient(ctx, token, gh.WithVerbose(verbose, stderr))
			if err != nil {
				return "", err
			}
			return client.VerifyToken(ctx)
		}))
	}
	return NewCredentials(resolve, opts...)
}

func (c *Credentials) AuthFor(ctx context.Context, rawURL string) (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(rawURL)
	if err != nil {
		// go-git reports the malformed URL itself.
		return nil, nil
	}
	host := strings.ToLower(ep.Host)
	if ep.Protocol != "https" || !c.hosts[host] || ep.User != "" || ep.Password != "" {
		return nil, nil
	}

	token, err := c.token(ctx, host)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}, nil
}

func (c *Credentials) token(ctx context.Context, host string) (string, error) {
	if v, ok := c.tokens.Load(host); ok {
		return v.(string), nil
	}

	v, err, _ := c.group.Do(host, func() (any, error) {
		if v, ok := c.tokens.Load(host); ok {
			return v, nil
		}
		token, err := c.lookup(ctx, host)
		if err != nil {
			return "", err
		}
		c.tokens.Store(host, token)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Credentials) lookup(ctx context.Context, host string) (string, error) {
	if c.resolve == nil {
		return "", nil
	}
	token, err := c.resolve(ctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		fmt.Fprintf(c.stderr, "Warning: could not resolve a token for %s, fetching anonymously: %v\n", host, err)
		return "", nil
	}
	if token == "" || c.verify == nil {
		return token, nil
	}

	login, err := c.verify(ctx, token)
	switch {
	case errors.Is(err, gh.ErrTokenRejected):
		fmt.Fprintf(c.stderr, "Warning: the token for %s was rejected, fetching anonymously\n", host)
		return "", nil
	case err != nil:
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if c.verbose {
			fmt.Fprintf(c.stderr, "[verbose] token check for %s skipped: %v\n", host, err)
		}
	case c.verbose:
		fmt.Fprintf(c.stderr, "[verbose] using token for %s (%s)\n", host, login)
	}
	return token, nil
}
