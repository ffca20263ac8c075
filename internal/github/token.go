package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultHost is the host tokens are resolved for when none is given.
const DefaultHost = "github.com"

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGHEnv    AuthTokenSource = "env:GH_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
)

// ghTokenTimeout bounds `gh auth token` when the caller set no deadline.
const ghTokenTimeout = 5 * time.Second

var tokenEnvVars = []struct {
	name   string
	source AuthTokenSource
}{
	{"GITHUB_TOKEN", AuthTokenSourceEnv},
	{"GH_TOKEN", AuthTokenSourceGHEnv},
}

// ResolveAuthToken resolves a GitHub access token for host. The first
// non-empty value wins: provided, $GITHUB_TOKEN, $GH_TOKEN, then
// `gh auth token -h <host>`.
//
// An empty token with a nil error means no token is available. The token is
// never printed.
func ResolveAuthToken(ctx context.Context, provided, host string) (string, AuthTokenSource, error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}
	for _, v := range tokenEnvVars {
		if tok := strings.TrimSpace(os.Getenv(v.name)); tok != "" {
			return tok, v.source, nil
		}
	}

	if host == "" {
		host = DefaultHost
	}
	tok, err := ghAuthToken(ctx, host)
	if err != nil || tok == "" {
		return "", "", err
	}
	return tok, AuthTokenSourceGitHubCL, nil
}

// ghAuthToken asks the gh CLI for its stored token. A missing binary or a
// logged-out gh yields "" without error.
func ghAuthToken(ctx context.Context, host string) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ghTokenTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "gh", "auth", "token", "-h", host)
	cmd.Env = ghEnv(os.Environ())
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Output may echo credentials context; drop it.
		return "", nil
	}

	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, nil
}

// ghEnv returns env with GH_PAGER forced to cat.
func ghEnv(env []string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, "GH_PAGER=") {
			out = append(out, kv)
		}
	}
	return append(out, "GH_PAGER=cat")
}
