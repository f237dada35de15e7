// Package git reads version-control history for the changelog
// pipeline using the go-git library: commit logs for a revision or
// date range, plus the tag and remote metadata the renderer links to.
package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/raveheart1/tracklog/internal/changelog"
)

// Range bounds the commit log. At least one field must be set: From/To
// are revisions (hashes, branches, tags) and After/Before are date
// bounds. From is exclusive, To inclusive, matching `git log from..to`.
type Range struct {
	From   string
	To     string
	After  time.Time
	Before time.Time
}

// IsZero reports whether no bound is set.
func (r Range) IsZero() bool {
	return r.From == "" && r.To == "" && r.After.IsZero() && r.Before.IsZero()
}

// openRepo opens the repository containing dir, traversing up to find
// the repository root.
func openRepo(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	return repo, nil
}

// CommitLogs returns the commits in the given range, newest first,
// excluding merge commits. It fails when the workspace is not a
// readable repository, a range revision does not resolve, or the range
// contains no commits.
func CommitLogs(workspaceDir string, r Range) ([]*changelog.Commit, error) {
	if r.IsZero() {
		return nil, errors.New("no range defined for the changelog")
	}

	repo, err := openRepo(workspaceDir)
	if err != nil {
		return nil, err
	}

	opts := &gogit.LogOptions{}
	if r.To != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision(r.To))
		if err != nil {
			return nil, fmt.Errorf("resolving revision %q: %w", r.To, err)
		}
		opts.From = *hash
	}
	if !r.After.IsZero() {
		opts.Since = &r.After
	}
	if !r.Before.IsZero() {
		opts.Until = &r.Before
	}

	var stopAt plumbing.Hash
	if r.From != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision(r.From))
		if err != nil {
			return nil, fmt.Errorf("resolving revision %q: %w", r.From, err)
		}
		stopAt = *hash
	}

	iter, err := repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("reading commit log: %w", err)
	}
	defer iter.Close()

	var commits []*changelog.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == stopAt {
			return storer.ErrStop
		}
		if c.NumParents() > 1 {
			return nil // skip merge commits
		}
		commits = append(commits, toCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading commit log: %w", err)
	}

	if len(commits) == 0 {
		return nil, errors.New("no commits found in the given range")
	}
	return commits, nil
}

// toCommit converts a go-git commit into the pipeline's commit record.
func toCommit(c *object.Commit) *changelog.Commit {
	message := strings.TrimRight(c.Message, "\n")
	summary := message
	if i := strings.IndexByte(summary, '\n'); i >= 0 {
		summary = summary[:i]
	}
	return &changelog.Commit{
		Revision:    c.Hash.String(),
		Date:        c.Author.When,
		Summary:     summary,
		FullText:    message,
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
	}
}

// ProjectName returns the repository directory name.
func ProjectName(workspaceDir string) (string, error) {
	repo, err := openRepo(workspaceDir)
	if err != nil {
		return "", err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}
	return filepath.Base(worktree.Filesystem.Root()), nil
}

// RemoteURL returns the first URL of the origin remote.
func RemoteURL(workspaceDir string) (string, error) {
	repo, err := openRepo(workspaceDir)
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("getting origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.New("origin remote has no URL")
	}
	return urls[0], nil
}

// tagInfo pairs a tag name with the commit time of its target.
type tagInfo struct {
	name string
	when time.Time
}

// tagsByDate lists all tags, newest target commit first.
func tagsByDate(repo *gogit.Repository) ([]tagInfo, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var tags []tagInfo
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		commit, err := resolveTagCommit(repo, ref)
		if err != nil {
			return nil // skip tags that do not point at commits
		}
		tags = append(tags, tagInfo{name: ref.Name().Short(), when: commit.Committer.When})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].when.After(tags[j].when)
	})
	return tags, nil
}

// resolveTagCommit resolves a tag reference (lightweight or annotated)
// to its target commit.
func resolveTagCommit(repo *gogit.Repository, ref *plumbing.Reference) (*object.Commit, error) {
	if commit, err := repo.CommitObject(ref.Hash()); err == nil {
		return commit, nil
	}
	tag, err := repo.TagObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return tag.Commit()
}

// LatestTag returns the most recent tag by target commit date, or an
// empty string when the repository has no tags.
func LatestTag(workspaceDir string) (string, error) {
	repo, err := openRepo(workspaceDir)
	if err != nil {
		return "", err
	}
	tags, err := tagsByDate(repo)
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", nil
	}
	return tags[0].name, nil
}

// PreviousTag returns the tag preceding the latest one, or an empty
// string when fewer than two tags exist.
func PreviousTag(workspaceDir string) (string, error) {
	repo, err := openRepo(workspaceDir)
	if err != nil {
		return "", err
	}
	tags, err := tagsByDate(repo)
	if err != nil {
		return "", err
	}
	if len(tags) < 2 {
		return "", nil
	}
	return tags[1].name, nil
}

// TagTimestamp returns the commit time of the given tag's target.
func TagTimestamp(workspaceDir, tag string) (time.Time, error) {
	repo, err := openRepo(workspaceDir)
	if err != nil {
		return time.Time{}, err
	}

	ref, err := repo.Reference(plumbing.NewTagReferenceName(tag), true)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving tag %q: %w", tag, err)
	}
	commit, err := resolveTagCommit(repo, ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving tag %q to a commit: %w", tag, err)
	}
	return commit.Committer.When, nil
}
