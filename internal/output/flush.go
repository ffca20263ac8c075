package output

import "io"

type flusher interface {
	Flush() error
}

// flushIfPossible pushes buffered bytes (e.g. a bufio.Writer) out after each
// streamed line, so outcomes show up while other fetches are still running.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
