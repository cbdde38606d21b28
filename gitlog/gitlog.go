// Package gitlog turns git history into changelog bullets.
package gitlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Options restricts the commits returned by Collect.
type Options struct {
	// Since is a revision (tag, branch, hash). Commits reachable from it are excluded.
	Since string
	// Max limits the number of commits when positive.
	Max int
	// IncludeMerges keeps commits with more than one parent.
	IncludeMerges bool
}

// Commit is the part of a git commit a changelog cares about.
type Commit struct {
	Hash    string
	Subject string
	Author  string
	Email   string
	When    time.Time
}

// openRepo opens the repository containing path, or the current directory
// when path is empty.
func openRepo(path string) (*git.Repository, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	return repo, nil
}

// Collect returns the commits of HEAD not reachable from opts.Since, newest first.
func Collect(ctx context.Context, path string, opts Options) ([]Commit, error) {
	repo, err := openRepo(path)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	excluded := make(map[plumbing.Hash]bool)
	if opts.Since != "" {
		since, err := repo.ResolveRevision(plumbing.Revision(opts.Since))
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", opts.Since, err)
		}
		iter, err := repo.Log(&git.LogOptions{From: *since})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", opts.Since, err)
		}
		err = iter.ForEach(func(c *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			excluded[c.Hash] = true
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("walking HEAD: %w", err)
	}
	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if excluded[c.Hash] {
			return nil
		}
		if c.NumParents() > 1 && !opts.IncludeMerges {
			return nil
		}
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Subject: subject(c.Message),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
		})
		if opts.Max > 0 && len(commits) >= opts.Max {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	return commits, nil
}

// FirstRevision returns the first of revs that exists in the repository at path.
func FirstRevision(path string, revs ...string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}
	for _, rev := range revs {
		if rev == "" {
			continue
		}
		if _, err := repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
			return rev, nil
		}
	}
	return "", fmt.Errorf("none of %s found", strings.Join(revs, ", "))
}

// DEP14Tag returns the tag name DEP-14 gives to a Debian version,
// e.g. "debian/1%2.0_rc1-1" for "1:2.0~rc1-1".
//
// Reference: https://dep-team.pages.debian.net/deps/dep14/
func DEP14Tag(version string) string {
	r := strings.NewReplacer(":", "%", "~", "_")
	return "debian/" + r.Replace(version)
}

func subject(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(line)
}
