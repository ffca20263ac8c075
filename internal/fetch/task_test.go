package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeOpener struct {
	repos map[string]*fakeRepo
}

func (o *fakeOpener) Open(path string) (Repository, error) {
	r, ok := o.repos[path]
	if !ok {
		return nil, errors.New("repository does not exist")
	}
	return r, nil
}

type fakeRepo struct {
	remote *fakeRemote
	err    error
}

func (r *fakeRepo) DefaultRemote() (Remote, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.remote == nil {
		return nil, ErrNoRemote
	}
	return r.remote, nil
}

type fakeRemote struct {
	name  string
	refs  int
	err   error
	block bool
	panic bool
	calls int
}

func (r *fakeRemote) Name() string { return r.name }

func (r *fakeRemote) Fetch(ctx context.Context) (int, error) {
	r.calls++
	if r.panic {
		panic("boom")
	}
	if r.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return r.refs, r.err
}

func newFakeTask(t *testing.T, repos map[string]*fakeRepo) *Task {
	t.Helper()
	task, err := NewTask(&fakeOpener{repos: repos}, false)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	return task
}

func TestNewTask_RejectsNilOpener(t *testing.T) {
	if _, err := NewTask(nil, false); err == nil {
		t.Fatalf("expected error for nil opener")
	}
}

func TestTask_Run_Classification(t *testing.T) {
	repos := map[string]*fakeRepo{
		"/r/ok":       {remote: &fakeRemote{name: "origin", refs: 7}},
		"/r/noremote": {},
		"/r/badcfg":   {err: errors.New(`remote "origin": remote config: empty URL`)},
		"/r/netfail":  {remote: &fakeRemote{name: "origin", err: errors.New("dial tcp: connection refused")}},
		"/r/uptodate": {remote: &fakeRemote{name: "upstream", refs: 0}},
	}
	task := newFakeTask(t, repos)

	tests := []struct {
		name       string
		path       string
		wantKind   Kind
		wantRefs   int
		wantRemote string
		wantDetail string
	}{
		{name: "success", path: "/r/ok", wantKind: KindSuccess, wantRefs: 7, wantRemote: "origin"},
		{name: "not a repository", path: "/r/plain", wantKind: KindNotARepository, wantDetail: "repository does not exist"},
		{name: "no remote", path: "/r/noremote", wantKind: KindNoRemote},
		{name: "remote resolution failed", path: "/r/badcfg", wantKind: KindRemoteResolutionFailed, wantDetail: "empty URL"},
		{name: "fetch failed", path: "/r/netfail", wantKind: KindFetchFailed, wantRemote: "origin", wantDetail: "connection refused"},
		{name: "zero refs is success", path: "/r/uptodate", wantKind: KindSuccess, wantRemote: "upstream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := WorkItem{Name: strings.TrimPrefix(tt.path, "/r/"), Path: tt.path}
			got := task.Run(context.Background(), item)

			if got.Kind != tt.wantKind {
				t.Fatalf("kind: want %s, got %s (detail %q)", tt.wantKind, got.Kind, got.Detail)
			}
			if got.Name != item.Name || got.Path != item.Path {
				t.Fatalf("outcome not tagged with its item: %+v", got)
			}
			if got.RefCount != tt.wantRefs {
				t.Fatalf("refs: want %d, got %d", tt.wantRefs, got.RefCount)
			}
			if got.Remote != tt.wantRemote {
				t.Fatalf("remote: want %q, got %q", tt.wantRemote, got.Remote)
			}
			if !strings.Contains(got.Detail, tt.wantDetail) {
				t.Fatalf("detail: want it to contain %q, got %q", tt.wantDetail, got.Detail)
			}
			if got.OK() != (tt.wantKind == KindSuccess) {
				t.Fatalf("OK() mismatch for %s", got.Kind)
			}
		})
	}
}

func TestTask_Run_InterruptedDuringFetch(t *testing.T) {
	remote := &fakeRemote{name: "origin", block: true}
	task := newFakeTask(t, map[string]*fakeRepo{"/r/slow": {remote: remote}})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	got := task.Run(ctx, WorkItem{Name: "slow", Path: "/r/slow"})
	if got.Kind != KindFetchFailed {
		t.Fatalf("want %s, got %s", KindFetchFailed, got.Kind)
	}
	if !strings.HasPrefix(got.Detail, "interrupted:") {
		t.Fatalf("want interrupted detail, got %q", got.Detail)
	}
}

func TestTask_Run_CancelledBeforeFetchSkipsNetwork(t *testing.T) {
	remote := &fakeRemote{name: "origin", refs: 3}
	task := newFakeTask(t, map[string]*fakeRepo{"/r/ok": {remote: remote}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := task.Run(ctx, WorkItem{Name: "ok", Path: "/r/ok"})
	if got.Kind != KindFetchFailed || !strings.HasPrefix(got.Detail, "interrupted:") {
		t.Fatalf("want interrupted fetch failure, got %+v", got)
	}
	if remote.calls != 0 {
		t.Fatalf("remote fetched %d times after cancellation", remote.calls)
	}
}

func TestTask_Run_RecoversPanics(t *testing.T) {
	task := newFakeTask(t, map[string]*fakeRepo{"/r/p": {remote: &fakeRemote{name: "origin", panic: true}}})

	got := task.Run(context.Background(), WorkItem{Name: "p", Path: "/r/p"})
	if got.Kind != KindFetchFailed {
		t.Fatalf("want %s, got %s", KindFetchFailed, got.Kind)
	}
	if !strings.Contains(got.Detail, "panic: boom") {
		t.Fatalf("unexpected detail %q", got.Detail)
	}
	if got.Name != "p" {
		t.Fatalf("outcome lost its name: %+v", got)
	}
}

func TestTask_Run_RecordsDuration(t *testing.T) {
	task := newFakeTask(t, map[string]*fakeRepo{"/r/ok": {remote: &fakeRemote{name: "origin", refs: 1}}})
	ticks := []time.Time{time.Unix(100, 0), time.Unix(102, 0)}
	task.now = func() time.Time {
		v := ticks[0]
		ticks = ticks[1:]
		return v
	}

	got := task.Run(context.Background(), WorkItem{Name: "ok", Path: "/r/ok"})
	if got.Duration != 2*time.Second {
		t.Fatalf("want 2s, got %s", got.Duration)
	}
}
