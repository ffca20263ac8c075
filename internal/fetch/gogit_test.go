package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func initRepo(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit(%s): %v", dir, err)
	}
	return repo
}

func addRemote(t *testing.T, repo *git.Repository, name, url string) {
	t.Helper()
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		t.Fatalf("CreateRemote(%s): %v", name, err)
	}
}

func appendGitConfig(t *testing.T, dir, text string) {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(dir, ".git", "config"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("append config: %v", err)
	}
}

func runGoGit(t *testing.T, path string) Outcome {
	t.Helper()
	task, err := NewTask(NewGoGit(nil), false)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	return task.Run(context.Background(), WorkItem{Name: filepath.Base(path), Path: path})
}

func TestGoGit_PlainFolderIsNotARepository(t *testing.T) {
	root := t.TempDir()
	initRepo(t, root)
	plain := filepath.Join(root, "plain")
	if err := os.Mkdir(plain, 0o755); err != nil {
		t.Fatal(err)
	}

	// Nested inside a work tree, but must not resolve to the parent.
	got := runGoGit(t, plain)
	if got.Kind != KindNotARepository {
		t.Fatalf("want %s, got %s (%q)", KindNotARepository, got.Kind, got.Detail)
	}
	if got.Detail != "repository does not exist" {
		t.Fatalf("unexpected detail %q", got.Detail)
	}
}

func TestGoGit_NoRemote(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	got := runGoGit(t, dir)
	if got.Kind != KindNoRemote {
		t.Fatalf("want %s, got %s (%q)", KindNoRemote, got.Kind, got.Detail)
	}
}

func TestGoGit_DefaultRemoteSelection(t *testing.T) {
	tests := []struct {
		name    string
		remotes []string
		branch  string // branch.master.remote
		want    string
		wantErr string
	}{
		{name: "origin preferred", remotes: []string{"fork", "origin"}, want: "origin"},
		{name: "single remote", remotes: []string{"upstream"}, want: "upstream"},
		{name: "branch upstream wins", remotes: []string{"origin", "fork"}, branch: "fork", want: "fork"},
		{name: "ambiguous", remotes: []string{"a", "b"}, wantErr: ErrNoRemote.Error()},
		{name: "branch names missing remote", remotes: []string{"origin"}, branch: "gone", wantErr: `remote "gone" is not configured`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			repo := initRepo(t, dir)
			for _, name := range tt.remotes {
				addRemote(t, repo, name, "https://example.invalid/"+name+".git")
			}
			if tt.branch != "" {
				appendGitConfig(t, dir, "[branch \"master\"]\n\tremote = "+tt.branch+"\n\tmerge = refs/heads/master\n")
			}

			opened, err := NewGoGit(nil).Open(dir)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			remote, err := opened.DefaultRemote()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DefaultRemote: %v", err)
			}
			if remote.Name() != tt.want {
				t.Fatalf("want %q, got %q", tt.want, remote.Name())
			}
		})
	}
}

func TestGoGit_RemoteWithoutURLFailsResolution(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	appendGitConfig(t, dir, "[remote \"origin\"]\n\tfetch = +refs/heads/*:refs/remotes/origin/*\n")

	got := runGoGit(t, dir)
	if got.Kind != KindRemoteResolutionFailed {
		t.Fatalf("want %s, got %s (%q)", KindRemoteResolutionFailed, got.Kind, got.Detail)
	}
}

func TestGoGit_MalformedRefspecFailsResolution(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	appendGitConfig(t, dir, "[remote \"origin\"]\n\turl = https://example.invalid/x.git\n\tfetch = not-a-refspec\n")

	got := runGoGit(t, dir)
	if got.Kind != KindRemoteResolutionFailed {
		t.Fatalf("want %s, got %s (%q)", KindRemoteResolutionFailed, got.Kind, got.Detail)
	}
}

func TestGoGit_UnreachableRemoteFailsFetch(t *testing.T) {
	dir := t.TempDir()
	repo := initRepo(t, dir)
	addRemote(t, repo, "origin", filepath.Join(t.TempDir(), "missing"))

	got := runGoGit(t, dir)
	if got.Kind != KindFetchFailed {
		t.Fatalf("want %s, got %s (%q)", KindFetchFailed, got.Kind, got.Detail)
	}
	if got.Remote != "origin" {
		t.Fatalf("want remote origin, got %q", got.Remote)
	}
}

func TestGoGit_FetchFromLocalRemote(t *testing.T) {
	// The file transport execs git-upload-pack.
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	seedDir := t.TempDir()
	seed := initRepo(t, seedDir)
	if err := os.WriteFile(filepath.Join(seedDir, "README"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := seed.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := wt.Add("README"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)}
	if _, err := wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	localDir := t.TempDir()
	local := initRepo(t, localDir)
	addRemote(t, local, "origin", seedDir)

	got := runGoGit(t, localDir)
	if got.Kind != KindSuccess {
		t.Fatalf("want %s, got %s (%q)", KindSuccess, got.Kind, got.Detail)
	}
	if got.RefCount < 1 {
		t.Fatalf("want at least one advertised ref, got %d", got.RefCount)
	}

	if _, err := local.Reference("refs/remotes/origin/master", true); err != nil {
		t.Fatalf("remote-tracking ref not updated: %v", err)
	}

	// A second fetch is already up to date and still succeeds.
	again := runGoGit(t, localDir)
	if again.Kind != KindSuccess || again.RefCount != got.RefCount {
		t.Fatalf("refetch: want success with %d refs, got %+v", got.RefCount, again)
	}
}
