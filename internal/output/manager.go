package output

import (
	"errors"
	"fmt"
)

// Sink defines a destination for fetch outcomes and lifecycle events.
//
// Write receives fetch.Outcome and Event values; sinks ignore values they do
// not render.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans every value out to all sinks. A failing sink never stops the
// others from receiving the value.
type Manager struct {
	sinks  []Sink
	closed bool
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	if m.closed {
		return fmt.Errorf("output manager is closed")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Write(v any) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Close closes every sink once; later calls are no-ops.
func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}
