package output

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"fetchall/internal/fetch"
)

// kindDescription is the one-line meaning of each outcome kind in the report.
var kindDescription = map[fetch.Kind]string{
	fetch.KindSuccess:                "fetched from the default remote",
	fetch.KindNotARepository:         "directory could not be opened as a git repository",
	fetch.KindNoRemote:               "repository has no remote to fetch from",
	fetch.KindRemoteResolutionFailed: "remote is configured but could not be resolved",
	fetch.KindFetchFailed:            "connecting to or fetching from the remote failed",
	fetch.KindCancelled:              "not started because the run was cancelled",
}

const maxReasonRunes = 120

// normalizeReason collapses whitespace and truncates long failure details so
// that identical causes group together.
func normalizeReason(detail string) string {
	s := strings.Join(strings.Fields(detail), " ")
	if s == "" {
		return "(no detail)"
	}
	if utf8.RuneCountInString(s) > maxReasonRunes {
		r := []rune(s)
		return string(r[:maxReasonRunes-3]) + "..."
	}
	return s
}

type reasonGroup struct {
	Kind   fetch.Kind
	Reason string
	Repos  []string
}

// groupFailures buckets non-success outcomes by kind and normalized detail,
// largest group first.
func groupFailures(outcomes []fetch.Outcome) []reasonGroup {
	type key struct {
		kind   fetch.Kind
		reason string
	}
	groups := make(map[key][]string)
	for _, o := range outcomes {
		if o.OK() {
			continue
		}
		k := key{kind: o.Kind, reason: normalizeReason(o.Detail)}
		groups[k] = append(groups[k], o.Name)
	}

	out := make([]reasonGroup, 0, len(groups))
	for k, repos := range groups {
		sort.Strings(repos)
		out = append(out, reasonGroup{Kind: k.kind, Reason: k.reason, Repos: repos})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Repos) != len(out[j].Repos) {
			return len(out[i].Repos) > len(out[j].Repos)
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// slowest returns up to n successful outcomes ordered by descending duration.
func slowest(outcomes []fetch.Outcome, n int) []fetch.Outcome {
	var ok []fetch.Outcome
	for _, o := range outcomes {
		if o.OK() && o.Duration > 0 {
			ok = append(ok, o)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool { return ok[i].Duration > ok[j].Duration })
	if len(ok) > n {
		ok = ok[:n]
	}
	return ok
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatRepoList(repos []string, max int) string {
	if len(repos) == 0 {
		return ""
	}
	if len(repos) <= max {
		return fmt.Sprintf("%d repos (%s)", len(repos), strings.Join(repos, ", "))
	}
	return fmt.Sprintf("%d repos (%s, +%d more)", len(repos), strings.Join(repos[:max], ", "), len(repos)-max)
}

// escapeCell keeps a value from breaking a Markdown table row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
