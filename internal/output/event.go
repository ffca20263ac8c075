package output

import "fetchall/internal/fetch"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line):
// - run.started
// - repo.outcome
// - run.finished
//
// JSON mode remains an aggregate of fetch.Outcome values.
type Event struct {
	Type    string         `json:"type"`
	Repo    string         `json:"repo,omitempty"`
	Outcome *fetch.Outcome `json:"outcome,omitempty"`

	Root    string `json:"root,omitempty"`
	Repos   int    `json:"repos,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Workers int    `json:"workers,omitempty"`

	// ExitCode is set on run.finished only; a pointer so that 0 is still encoded.
	ExitCode *int               `json:"exit_code,omitempty"`
	Counts   map[fetch.Kind]int `json:"counts,omitempty"`
}

const (
	EventRunStarted  = "run.started"
	EventRepoOutcome = "repo.outcome"
	EventRunFinished = "run.finished"
)

func eventFromOutcome(o fetch.Outcome) Event {
	return Event{Type: EventRepoOutcome, Repo: o.Name, Outcome: &o}
}
