package vcs

import (
	"context"
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// commitDiff renders the unified diff of commit against its first parent. A
// root commit is rendered like `git show`: the commit header followed by the
// patch against the empty tree.
func commitDiff(ctx context.Context, commit *object.Commit) (string, error) {
	if commit.NumParents() == 0 {
		return showRoot(ctx, commit)
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return "", errors.Join(ErrDiff, err)
	}
	patch, err := parent.PatchContext(ctx, commit)
	if err != nil {
		return "", errors.Join(ErrDiff, err)
	}
	return patch.String(), nil
}

func showRoot(ctx context.Context, commit *object.Commit) (string, error) {
	changes, err := rootChanges(ctx, commit)
	if err != nil {
		return "", err
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return "", errors.Join(ErrDiff, err)
	}
	var b strings.Builder
	b.WriteString(commit.String())
	b.WriteString("\n")
	b.WriteString(patch.String())
	return b.String(), nil
}

func rootChanges(ctx context.Context, commit *object.Commit) (object.Changes, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Join(ErrDiff, err)
	}
	changes, err := object.DiffTreeWithOptions(ctx, nil, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, errors.Join(ErrDiff, err)
	}
	return changes, nil
}

func commitChanges(ctx context.Context, commit *object.Commit) (map[string]FileChange, error) {
	var changes object.Changes
	if commit.NumParents() == 0 {
		var err error
		if changes, err = rootChanges(ctx, commit); err != nil {
			return nil, err
		}
	} else {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, errors.Join(ErrDiff, err)
		}
		from, err := parent.Tree()
		if err != nil {
			return nil, errors.Join(ErrDiff, err)
		}
		to, err := commit.Tree()
		if err != nil {
			return nil, errors.Join(ErrDiff, err)
		}
		if changes, err = object.DiffTreeWithOptions(ctx, from, to, object.DefaultDiffTreeOptions); err != nil {
			return nil, errors.Join(ErrDiff, err)
		}
	}
	out := make(map[string]FileChange, len(changes))
	for _, ch := range changes {
		from, to, err := ch.Files()
		if err != nil {
			return nil, errors.Join(ErrDiff, err)
		}
		var fc FileChange
		if from != nil {
			if fc.Before, err = from.Contents(); err != nil {
				return nil, errors.Join(ErrDiff, err)
			}
		}
		if to != nil {
			if fc.After, err = to.Contents(); err != nil {
				return nil, errors.Join(ErrDiff, err)
			}
		}
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		out[name] = fc
	}
	return out, nil
}
