package output

import (
	"encoding/json"
	"io"

	"fetchall/internal/fetch"
)

// outcomeBuffer aggregates outcomes for the JSON array formats.
type outcomeBuffer struct {
	outcomes []fetch.Outcome
}

func (b *outcomeBuffer) add(v any) {
	if o, ok := v.(fetch.Outcome); ok {
		b.outcomes = append(b.outcomes, o)
	}
}

func (b *outcomeBuffer) encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	out := b.outcomes
	if out == nil {
		out = []fetch.Outcome{}
	}
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return flushIfPossible(w)
}

// writeNDJSON writes v as one Event line. Values other than Event and
// fetch.Outcome are ignored.
func writeNDJSON(w io.Writer, v any) error {
	var e Event
	switch t := v.(type) {
	case Event:
		e = t
	case fetch.Outcome:
		e = eventFromOutcome(t)
	default:
		return nil
	}
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return err
	}
	return flushIfPossible(w)
}
