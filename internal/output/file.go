package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSink is an EmitSink backed by a file. NDJSON lines are flushed as they
// are written so a tail -f on the file follows the run.
type FileSink struct {
	*EmitSink
	path string
	file *os.File
	bw   *bufio.Writer
}

// formatForPath infers the structured format from the file extension.
func formatForPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".ndjson", ".jsonl":
		return "ndjson", nil
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q", ext)
	}
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	if format == "" {
		f, err := formatForPath(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	bw := bufio.NewWriter(f)
	emit, err := NewEmitSink(bw, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileSink{EmitSink: emit, path: path, file: f, bw: bw}, nil
}

func (s *FileSink) Close() error {
	err := s.EmitSink.Close()
	if ferr := s.bw.Flush(); err == nil {
		err = ferr
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
