package fetch

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

var knownErrorMessages = []struct {
	err error
	msg string
}{
	{git.ErrRepositoryNotExists, "repository does not exist"},
	{transport.ErrAuthenticationRequired, "authentication required"},
	{transport.ErrAuthorizationFailed, "authorization failed"},
	{transport.ErrInvalidAuthMethod, "invalid auth method"},
	{transport.ErrRepositoryNotFound, "remote repository not found"},
	{context.DeadlineExceeded, "timed out"},
	{context.Canceled, "canceled"},
}

// presentError turns err into a short, single-line detail for the report.
//
// Well-known go-git errors map to fixed phrases unless verbose is set.
// Userinfo embedded in URLs is always redacted.
func presentError(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	if !verbose {
		for _, k := range knownErrorMessages {
			if errors.Is(err, k.err) {
				return k.msg
			}
		}
	}
	return singleLine(redactURLCredentials(err.Error()))
}

var urlUserinfo = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/@\s]+@`)

func redactURLCredentials(s string) string {
	return urlUserinfo.ReplaceAllString(s, "${1}***@")
}

func singleLine(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
