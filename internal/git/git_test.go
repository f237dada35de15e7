package git

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepo builds a throwaway repository with deterministic commit
// times, one hour apart.
type testRepo struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	wt   *gogit.Worktree
	n    int
	when time.Time
}

func initRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{
		t:    t,
		dir:  dir,
		repo: repo,
		wt:   wt,
		when: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *testRepo) commit(message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	r.n++
	r.when = r.when.Add(time.Hour)

	name := fmt.Sprintf("file%d.txt", r.n)
	require.NoError(r.t, os.WriteFile(filepath.Join(r.dir, name), []byte(message), 0o644))
	_, err := r.wt.Add(name)
	require.NoError(r.t, err)

	sig := &object.Signature{Name: "Ann Example", Email: "ann@example.com", When: r.when}
	hash, err := r.wt.Commit(message, &gogit.CommitOptions{
		Author:    sig,
		Committer: sig,
		Parents:   parents,
	})
	require.NoError(r.t, err)
	return hash
}

func (r *testRepo) tag(name string, hash plumbing.Hash) {
	r.t.Helper()
	_, err := r.repo.CreateTag(name, hash, nil)
	require.NoError(r.t, err)
}

func TestCommitLogsRevisionRange(t *testing.T) {
	repo := initRepo(t)
	first := repo.commit("[PROJ-1] first change")
	repo.commit("[PROJ-2] second change")
	repo.commit("[PROJ-3] third change")

	commits, err := CommitLogs(repo.dir, Range{From: first.String(), To: "HEAD"})

	require.NoError(t, err)
	require.Len(t, commits, 2)
	// Newest first, with the From revision excluded.
	assert.Equal(t, "[PROJ-3] third change", commits[0].Summary)
	assert.Equal(t, "[PROJ-2] second change", commits[1].Summary)
	assert.Equal(t, "ann@example.com", commits[0].AuthorEmail)
	assert.Equal(t, "Ann Example", commits[0].AuthorName)
}

func TestCommitLogsDateRange(t *testing.T) {
	repo := initRepo(t)
	repo.commit("old change")
	repo.commit("mid change")
	cutoff := repo.when.Add(30 * time.Minute)
	repo.commit("new change")

	commits, err := CommitLogs(repo.dir, Range{To: "HEAD", After: cutoff})

	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "new change", commits[0].Summary)
}

func TestCommitLogsSkipsMergeCommits(t *testing.T) {
	repo := initRepo(t)
	repo.commit("base change")
	side := repo.commit("side change")
	main := repo.commit("main change")
	repo.commit("Merge branch 'side'", main, side)

	commits, err := CommitLogs(repo.dir, Range{To: "HEAD"})

	require.NoError(t, err)
	for _, c := range commits {
		assert.NotContains(t, c.Summary, "Merge branch")
	}
	assert.Len(t, commits, 3)
}

func TestCommitLogsSummaryAndFullText(t *testing.T) {
	repo := initRepo(t)
	repo.commit("[PROJ-9] short summary\n\nlonger body with details\n")

	commits, err := CommitLogs(repo.dir, Range{To: "HEAD"})

	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "[PROJ-9] short summary", commits[0].Summary)
	assert.Equal(t, "[PROJ-9] short summary\n\nlonger body with details", commits[0].FullText)
}

func TestCommitLogsErrors(t *testing.T) {
	repo := initRepo(t)
	head := repo.commit("only change")

	tests := map[string]struct {
		dir     string
		r       Range
		wantErr string
	}{
		"empty range": {
			dir:     repo.dir,
			r:       Range{},
			wantErr: "no range defined",
		},
		"unresolvable revision": {
			dir:     repo.dir,
			r:       Range{To: "does-not-exist"},
			wantErr: "does-not-exist",
		},
		"range with no commits": {
			dir:     repo.dir,
			r:       Range{From: head.String(), To: head.String()},
			wantErr: "no commits",
		},
		"not a repository": {
			dir:     t.TempDir(),
			r:       Range{To: "HEAD"},
			wantErr: "opening repository",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := CommitLogs(tc.dir, tc.r)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestTags(t *testing.T) {
	repo := initRepo(t)
	first := repo.commit("first release work")
	repo.tag("v1.0.0", first)
	second := repo.commit("second release work")
	repo.tag("v1.1.0", second)

	latest, err := LatestTag(repo.dir)
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", latest)

	previous, err := PreviousTag(repo.dir)
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", previous)

	when, err := TagTimestamp(repo.dir, "v1.0.0")
	require.NoError(t, err)
	assert.True(t, when.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestTagsEmptyRepository(t *testing.T) {
	repo := initRepo(t)
	repo.commit("untagged change")

	latest, err := LatestTag(repo.dir)
	require.NoError(t, err)
	assert.Empty(t, latest)

	previous, err := PreviousTag(repo.dir)
	require.NoError(t, err)
	assert.Empty(t, previous)

	_, err = TagTimestamp(repo.dir, "v9.9.9")
	assert.Error(t, err)
}

func TestProjectName(t *testing.T) {
	repo := initRepo(t)
	repo.commit("initial change")

	name, err := ProjectName(repo.dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Base(repo.dir), name)
}

func TestRemoteURL(t *testing.T) {
	repo := initRepo(t)
	repo.commit("initial change")
	_, err := repo.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://gitlab.example.com/acme/widgets.git"},
	})
	require.NoError(t, err)

	url, err := RemoteURL(repo.dir)

	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com/acme/widgets.git", url)
}

func TestRemoteURLMissingOrigin(t *testing.T) {
	repo := initRepo(t)
	repo.commit("initial change")

	_, err := RemoteURL(repo.dir)

	assert.Error(t, err)
}
