// Package vcs correlates task descriptors with the git commits that recorded
// them and recovers the resulting diffs and file contents.
//
// A commit belongs to a descriptor when its message contains the descriptor's
// token, "auto_coder_<name>_<md5 of the descriptor bytes>". Lookups are
// lenient: any git failure degrades to an empty result.
package vcs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/flarebyte/active-context/internal/descriptor"
)

const tokenPrefix = "auto_coder_"

// Token returns the commit-message token identifying a descriptor.
func Token(name string, content []byte) string {
	sum := md5.Sum(content)
	return tokenPrefix + name + "_" + hex.EncodeToString(sum[:])
}

// Match is the result of correlating one descriptor. CommitHash and Diff are
// empty when no commit carries the token.
type Match struct {
	Record     descriptor.Record `json:"record"`
	CommitHash string            `json:"commit,omitempty"`
	Diff       string            `json:"diff,omitempty"`
}

// FileChange holds the contents of one file before and after a commit.
// A side that does not exist is "".
type FileChange struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Options configures a Correlator.
type Options struct {
	// SkipDiff disables all git access: every lookup returns an empty result.
	SkipDiff bool
	Logger   *slog.Logger
}

// Correlator finds descriptor commits in the repository enclosing a project.
// It opens the repository on every call and is safe for concurrent use.
type Correlator struct {
	dir      string
	skipDiff bool
	log      *slog.Logger
}

func NewCorrelator(projectDir string, opts Options) *Correlator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		dir:      projectDir,
		skipDiff: opts.SkipDiff,
		log:      logger.With("component", "vcs"),
	}
}

// RepoRoot returns the absolute root of the enclosing repository, or "".
func (c *Correlator) RepoRoot() string {
	root, err := repoRootFor(c.dir)
	if err != nil {
		return ""
	}
	return root
}

// Find correlates rec and returns its diff. Failures are logged and yield a
// Match without commit or diff.
func (c *Correlator) Find(ctx context.Context, rec descriptor.Record) Match {
	m, err := c.Lookup(ctx, rec)
	if err != nil {
		c.log.Warn("commit correlation failed", "descriptor", rec.Name, "error", ErrorText(err), "detail", err)
	}
	return m
}

// Lookup is Find with the failure returned instead of logged. The returned
// Match is still usable when err != nil.
func (c *Correlator) Lookup(ctx context.Context, rec descriptor.Record) (Match, error) {
	m := Match{Record: rec}
	if c.skipDiff {
		return m, nil
	}
	commit, err := c.commitFor(ctx, rec)
	if err != nil || commit == nil {
		return m, err
	}
	m.CommitHash = commit.Hash.String()
	diff, err := commitDiff(ctx, commit)
	if err != nil {
		return m, err
	}
	m.Diff = diff
	return m, nil
}

// FindAll correlates many records with a single walk of the history.
// Results are returned in the order of recs.
func (c *Correlator) FindAll(ctx context.Context, recs []descriptor.Record) []Match {
	out := make([]Match, len(recs))
	for i, rec := range recs {
		out[i] = Match{Record: rec}
	}
	if c.skipDiff || len(recs) == 0 {
		return out
	}
	tokens := make(map[string][]int, len(recs))
	for i, rec := range recs {
		content, err := os.ReadFile(rec.Path)
		if err != nil {
			c.log.Warn("descriptor read failed", "descriptor", rec.Name, "error", err)
			continue
		}
		tok := Token(rec.Name, content)
		tokens[tok] = append(tokens[tok], i)
	}
	if len(tokens) == 0 {
		return out
	}
	repo, _, err := openRepo(c.dir)
	if err != nil {
		c.log.Warn("commit correlation failed", "error", ErrorText(err), "detail", err)
		return out
	}
	found := make(map[string]*object.Commit, len(tokens))
	err = walkNewestFirst(ctx, repo, func(commit *object.Commit) bool {
		for tok := range tokens {
			if _, done := found[tok]; done {
				continue
			}
			if strings.Contains(commit.Message, tok) {
				found[tok] = commit
			}
		}
		return len(found) < len(tokens)
	})
	if err != nil {
		c.log.Warn("commit correlation failed", "error", ErrorText(err), "detail", err)
	}
	for tok, commit := range found {
		diff, derr := commitDiff(ctx, commit)
		if derr != nil {
			c.log.Warn("commit diff failed", "commit", commit.Hash.String(), "error", ErrorText(derr), "detail", derr)
		}
		for _, i := range tokens[tok] {
			out[i].CommitHash = commit.Hash.String()
			out[i].Diff = diff
		}
	}
	return out
}

// FileChanges returns the before/after contents of every file changed by the
// commit correlated with rec, keyed by repository-relative slash path.
// Failures are logged and yield an empty map.
func (c *Correlator) FileChanges(ctx context.Context, rec descriptor.Record) map[string]FileChange {
	if c.skipDiff {
		return map[string]FileChange{}
	}
	commit, err := c.commitFor(ctx, rec)
	if err != nil {
		c.log.Warn("commit correlation failed", "descriptor", rec.Name, "error", ErrorText(err), "detail", err)
		return map[string]FileChange{}
	}
	if commit == nil {
		return map[string]FileChange{}
	}
	changes, err := commitChanges(ctx, commit)
	if err != nil {
		c.log.Warn("commit changes failed", "descriptor", rec.Name, "error", ErrorText(err), "detail", err)
		return map[string]FileChange{}
	}
	return changes
}

// commitFor returns the newest commit whose message contains rec's token, or
// nil when there is none.
func (c *Correlator) commitFor(ctx context.Context, rec descriptor.Record) (*object.Commit, error) {
	content, err := os.ReadFile(rec.Path)
	if err != nil {
		return nil, err
	}
	token := Token(rec.Name, content)
	repo, _, err := openRepo(c.dir)
	if err != nil {
		return nil, err
	}
	var match *object.Commit
	err = walkNewestFirst(ctx, repo, func(commit *object.Commit) bool {
		if strings.Contains(commit.Message, token) {
			match = commit
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// walkNewestFirst visits commits reachable from HEAD by committer time until
// visit returns false. An empty repository has nothing to visit.
func walkNewestFirst(ctx context.Context, repo *git.Repository, visit func(*object.Commit) bool) error {
	iter, err := repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return errors.Join(ErrCommitLookup, err)
	}
	defer iter.Close()
	err = iter.ForEach(func(commit *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !visit(commit) {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrCommitLookup, err)
	}
	return nil
}
