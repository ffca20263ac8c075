package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"fetchall/internal/fetch"

	"github.com/fatih/color"
)

type ConsoleSink struct {
	writer        io.Writer
	format        string // "text", "json", "ndjson"
	mu            sync.Mutex
	buf           outcomeBuffer // For JSON array output
	allowedKinds  map[fetch.Kind]bool
	kindColors    map[fetch.Kind]*color.Color
	colorsEnabled bool
}

// NewConsoleSink renders outcomes to w (os.Stdout when nil). Kind tags are
// colored only when writing to a terminal stdout.
func NewConsoleSink(w io.Writer, format string, filterKinds []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer:        w,
		format:        format,
		colorsEnabled: w == os.Stdout && !color.NoColor,
		kindColors: map[fetch.Kind]*color.Color{
			fetch.KindSuccess:                color.New(color.FgGreen),
			fetch.KindNotARepository:         color.New(color.FgYellow),
			fetch.KindNoRemote:               color.New(color.FgYellow),
			fetch.KindRemoteResolutionFailed: color.New(color.FgRed),
			fetch.KindFetchFailed:            color.New(color.FgRed, color.Bold),
			fetch.KindCancelled:              color.New(color.Faint),
		},
	}

	if len(filterKinds) > 0 {
		s.allowedKinds = make(map[fetch.Kind]bool)
		for _, k := range filterKinds {
			s.allowedKinds[fetch.Kind(strings.ToUpper(k))] = true
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.allowedKinds) > 0 {
		if o, ok := v.(fetch.Outcome); ok && !s.allowedKinds[o.Kind] {
			return nil
		}
	}

	switch s.format {
	case "json":
		s.buf.add(v)
		return nil
	case "ndjson":
		return writeNDJSON(s.writer, v)
	case "text":
		o, ok := v.(fetch.Outcome)
		if !ok {
			// Ignore events in text mode.
			return nil
		}
		if _, err := fmt.Fprintln(s.writer, s.formatLine(o)); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// formatLine renders one outcome. The line is produced even when the detail
// is empty.
func (s *ConsoleSink) formatLine(o fetch.Outcome) string {
	tag := "[" + string(o.Kind) + "]"
	if c, ok := s.kindColors[o.Kind]; ok && s.colorsEnabled {
		tag = c.Sprint(tag)
	}
	if o.OK() {
		return fmt.Sprintf("%s %s: %d refs", tag, o.Name, o.RefCount)
	}
	if o.Detail == "" {
		return fmt.Sprintf("%s %s:", tag, o.Name)
	}
	return fmt.Sprintf("%s %s: %s", tag, o.Name, o.Detail)
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		return s.buf.encode(s.writer)
	case "text", "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}
