package output

import (
	"fmt"
	"io"
	"sync"
)

// EmitSink writes additional structured outputs.
//
// Formats:
//   - json: aggregates outcomes and writes a single JSON array on Close
//   - ndjson: streams Event values (one JSON object per line)
type EmitSink struct {
	writer io.Writer
	format string // "json" | "ndjson"
	mu     sync.Mutex
	buf    outcomeBuffer
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format}, nil
}

func (s *EmitSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		s.buf.add(v)
		return nil
	}
	return writeNDJSON(s.writer, v)
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		return s.buf.encode(s.writer)
	}
	return nil
}
