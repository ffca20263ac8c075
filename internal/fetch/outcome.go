package fetch

import (
	"encoding/json"
	"time"
)

// WorkItem is one candidate repository directory.
type WorkItem struct {
	// Name is the path relative to the scanned root, slash-separated.
	Name string `json:"name"`
	Path string `json:"path"`
}

type Kind string

const (
	KindSuccess                Kind = "SUCCESS"
	KindNotARepository         Kind = "NOT_A_REPOSITORY"
	KindNoRemote               Kind = "NO_REMOTE"
	KindRemoteResolutionFailed Kind = "REMOTE_RESOLUTION_FAILED"
	KindFetchFailed            Kind = "FETCH_FAILED"
	KindCancelled              Kind = "CANCELLED"
)

// Kinds lists every outcome kind in report order.
var Kinds = []Kind{
	KindSuccess,
	KindNotARepository,
	KindNoRemote,
	KindRemoteResolutionFailed,
	KindFetchFailed,
	KindCancelled,
}

// Outcome is the terminal result of fetching a single WorkItem.
//
// Only RefCount is meaningful for KindSuccess; Detail carries the failure
// message for every other kind and may be empty.
type Outcome struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Kind     Kind          `json:"kind"`
	RefCount int           `json:"ref_count,omitempty"`
	Remote   string        `json:"remote,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// MarshalJSON always emits ref_count for a success, including zero refs from
// an empty remote, and omits it for every other kind.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	out := struct {
		plain
		RefCount *int `json:"ref_count,omitempty"`
	}{plain: plain(o)}
	if o.Kind == KindSuccess {
		out.RefCount = &o.RefCount
	}
	return json.Marshal(out)
}

func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

func Succeeded(item WorkItem, remote string, refCount int) Outcome {
	return Outcome{Name: item.Name, Path: item.Path, Kind: KindSuccess, Remote: remote, RefCount: refCount}
}

func NotARepository(item WorkItem, detail string) Outcome {
	return Outcome{Name: item.Name, Path: item.Path, Kind: KindNotARepository, Detail: detail}
}

func NoRemoteConfigured(item WorkItem) Outcome {
	return Outcome{Name: item.Name, Path: item.Path, Kind: KindNoRemote}
}

func RemoteResolutionFailed(item WorkItem, detail string) Outcome {
	return Outcome{Name: item.Name, Path: item.Path, Kind: KindRemoteResolutionFailed, Detail: detail}
}

func FetchFailed(item WorkItem, remote, detail string) Outcome {
	return Outcome{Name: item.Name, Path: item.Path, Kind: KindFetchFailed, Remote: remote, Detail: detail}
}

// Cancelled is reported for items whose task never started because the run
// was cancelled first.
func Cancelled(item WorkItem, detail string) Outcome {
	return Outcome{Name: item.Name, Path: item.Path, Kind: KindCancelled, Detail: detail}
}
