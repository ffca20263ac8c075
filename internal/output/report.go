package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"fetchall/internal/fetch"
)

// ReportSink collects outcomes and writes a Markdown summary on Close.
type ReportSink struct {
	path     string
	file     *os.File
	mu       sync.Mutex
	outcomes []fetch.Outcome
	started  *Event
	finished *Event
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{path: path, file: f}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case fetch.Outcome:
		s.outcomes = append(s.outcomes, t)
	case Event:
		switch t.Type {
		case EventRunStarted:
			s.started = &t
		case EventRunFinished:
			s.finished = &t
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.WriteString(s.render()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func (s *ReportSink) render() string {
	outcomes := append([]fetch.Outcome(nil), s.outcomes...)
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Name < outcomes[j].Name })

	counts := make(map[fetch.Kind]int)
	for _, o := range outcomes {
		counts[o.Kind]++
	}

	var b strings.Builder
	b.WriteString("# fetchall Report\n\n")

	if s.started != nil {
		if s.started.Root != "" {
			fmt.Fprintf(&b, "- Root: `%s`\n", s.started.Root)
		}
		if s.started.Mode != "" {
			fmt.Fprintf(&b, "- Mode: %s\n", s.started.Mode)
		}
	}
	fmt.Fprintf(&b, "- Repositories: %d\n", len(outcomes))
	if s.finished != nil && s.finished.ExitCode != nil {
		fmt.Fprintf(&b, "- Exit code: %d\n", *s.finished.ExitCode)
	}
	b.WriteString("\n")

	// --- Totals ---
	b.WriteString("## Totals\n\n")
	b.WriteString("| Outcome | Repos | Meaning |\n")
	b.WriteString("| --- | ---: | --- |\n")
	for _, k := range fetch.Kinds {
		if counts[k] == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %s |\n", k, counts[k], kindDescription[k])
	}
	if len(outcomes) == 0 {
		b.WriteString("| - | 0 | no repositories found |\n")
	}
	b.WriteString("\n")

	// --- Failures ---
	b.WriteString("## Failures\n\n")
	var failed []fetch.Outcome
	for _, o := range outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		b.WriteString("- None\n\n")
	} else {
		b.WriteString("| Repo | Outcome | Remote | Detail |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, o := range failed {
			remote := o.Remote
			if remote == "" {
				remote = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escapeCell(o.Name), o.Kind, escapeCell(remote), escapeCell(normalizeReason(o.Detail)))
		}
		b.WriteString("\n")

		b.WriteString("### Common causes\n\n")
		for _, g := range groupFailures(failed) {
			fmt.Fprintf(&b, "- **%s** %s: %s\n", g.Kind, g.Reason, formatRepoList(g.Repos, 5))
		}
		b.WriteString("\n")
	}

	// --- Fetched ---
	b.WriteString("## Fetched\n\n")
	if counts[fetch.KindSuccess] == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, o := range outcomes {
			if !o.OK() {
				continue
			}
			fmt.Fprintf(&b, "- %s (%s): %d refs\n", o.Name, o.Remote, o.RefCount)
		}
		b.WriteString("\n")

		if slow := slowest(outcomes, 5); len(slow) > 0 {
			b.WriteString("### Slowest fetches\n\n")
			for _, o := range slow {
				fmt.Fprintf(&b, "- %s: %s\n", o.Name, formatDuration(o.Duration))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
