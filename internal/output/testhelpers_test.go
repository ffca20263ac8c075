package output

import (
	"time"

	"fetchall/internal/fetch"
)

func sampleOutcomes() []fetch.Outcome {
	return []fetch.Outcome{
		{Name: "api", Path: "/src/api", Kind: fetch.KindSuccess, Remote: "origin", RefCount: 12, Duration: 1500 * time.Millisecond},
		{Name: "docs", Path: "/src/docs", Kind: fetch.KindNotARepository, Detail: "repository does not exist"},
		{Name: "scratch", Path: "/src/scratch", Kind: fetch.KindNoRemote},
		{Name: "web", Path: "/src/web", Kind: fetch.KindFetchFailed, Remote: "upstream", Detail: "authentication required"},
	}
}
