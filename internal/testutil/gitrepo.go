package testutil

import (
	"sort"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var commitEpoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// Repo is a throwaway git repository for tests.
type Repo struct {
	Dir  string
	Repo *git.Repository

	t       testing.TB
	commits int
}

// InitRepo creates an empty non-bare repository in dir.
func InitRepo(t testing.TB, dir string) *Repo {
	t.Helper()
	r, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("git init: %v", err)
	}
	return &Repo{Dir: dir, Repo: r, t: t}
}

// Commit writes files into the worktree, stages them and commits with msg.
// Each commit is one minute newer than the previous one so committer-time
// ordering is deterministic.
func (r *Repo) Commit(files map[string]string, msg string) plumbing.Hash {
	r.t.Helper()
	WriteFiles(r.t, r.Dir, files)
	wt, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			r.t.Fatalf("git add %s: %v", p, err)
		}
	}
	when := commitEpoch.Add(time.Duration(r.commits) * time.Minute)
	r.commits++
	h, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "author@example.com", When: when},
	})
	if err != nil {
		r.t.Fatalf("git commit: %v", err)
	}
	return h
}
