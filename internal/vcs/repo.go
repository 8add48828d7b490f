package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

var (
	ErrRepoNotFound = errors.New("git repo not found")
	ErrRepoOpen     = errors.New("git repo open failed")
	ErrCommitLookup = errors.New("git commit lookup failed")
	ErrDiff         = errors.New("git diff failed")
)

// ErrorText maps a correlation error to its short log message.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, ErrRepoNotFound):
		return "git repo not found"
	case errors.Is(err, ErrRepoOpen):
		return "git repo open failed"
	case errors.Is(err, ErrCommitLookup):
		return "git commit lookup failed"
	case errors.Is(err, ErrDiff):
		return "git diff failed"
	default:
		return "git error"
	}
}

func hasGitMetadataDir(root string) bool {
	_, err := os.Stat(filepath.Join(root, ".git"))
	return err == nil
}

// repoRootFor walks up from start until a directory holding .git is found.
func repoRootFor(start string) (string, error) {
	cur, err := filepath.Abs(start)
	if err != nil {
		return "", ErrRepoOpen
	}
	for {
		if hasGitMetadataDir(cur) {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", ErrRepoNotFound
		}
		cur = parent
	}
}

func openRepo(start string) (*git.Repository, string, error) {
	root, err := repoRootFor(start)
	if err != nil {
		return nil, "", err
	}
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrRepoOpen, err)
	}
	return repo, root, nil
}
