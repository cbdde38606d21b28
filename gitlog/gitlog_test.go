package gitlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2019, time.January, 7, 10, 0, 0, 0, time.UTC)

// testRepo creates a repository with a tagged import, two commits and a
// merge commit on top.
func testRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	n := 0
	commit := func(msg string, parents ...plumbing.Hash) plumbing.Hash {
		n++
		name := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(name, []byte(msg), 0o644))
		_, err := worktree.Add("file.txt")
		require.NoError(t, err)
		h, err := worktree.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{
				Name:  "Jane Doe",
				Email: "jane@example.org",
				When:  base.Add(time.Duration(n) * time.Hour),
			},
			Parents: parents,
		})
		require.NoError(t, err)
		return h
	}

	first := commit("Initial import")
	_, err = repo.CreateTag("debian/1.0-1", first, nil)
	require.NoError(t, err)
	second := commit("Fix typo in README\n\nThe long description is not kept.")
	third := commit("Add key rotation")
	commit("Merge branch 'feature'", third, second)
	return dir
}

func subjects(commits []Commit) []string {
	var out []string
	for _, c := range commits {
		out = append(out, c.Subject)
	}
	return out
}

func TestCollect(t *testing.T) {
	dir := testRepo(t)
	ctx := context.Background()

	tests := map[string]struct {
		opts Options
		want []string
	}{
		"all":         {Options{}, []string{"Add key rotation", "Fix typo in README", "Initial import"}},
		"since tag":   {Options{Since: "debian/1.0-1"}, []string{"Add key rotation", "Fix typo in README"}},
		"with merges": {Options{Since: "debian/1.0-1", IncludeMerges: true}, []string{"Merge branch 'feature'", "Add key rotation", "Fix typo in README"}},
		"max":         {Options{Max: 1}, []string{"Add key rotation"}},
		"since HEAD":  {Options{Since: "HEAD"}, nil},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			commits, err := Collect(ctx, dir, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, subjects(commits))
		})
	}
}

func TestCollect_CommitFields(t *testing.T) {
	commits, err := Collect(context.Background(), testRepo(t), Options{Max: 1})
	require.NoError(t, err)
	require.Len(t, commits, 1)
	c := commits[0]
	assert.Equal(t, "Jane Doe", c.Author)
	assert.Equal(t, "jane@example.org", c.Email)
	assert.Len(t, c.Hash, 40)
	assert.True(t, c.When.Equal(base.Add(3*time.Hour)), c.When)
}

func TestCollect_Subdirectory(t *testing.T) {
	dir := testRepo(t)
	sub := filepath.Join(dir, "debian")
	require.NoError(t, os.Mkdir(sub, 0o755))

	commits, err := Collect(context.Background(), sub, Options{Since: "debian/1.0-1"})
	require.NoError(t, err)
	assert.Len(t, commits, 2)
}

func TestCollect_Errors(t *testing.T) {
	dir := testRepo(t)

	_, err := Collect(context.Background(), dir, Options{Since: "debian/9.9-1"})
	assert.Error(t, err)

	_, err = Collect(context.Background(), t.TempDir(), Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Collect(ctx, dir, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFirstRevision(t *testing.T) {
	dir := testRepo(t)

	rev, err := FirstRevision(dir, "debian/9.9-1", "", "debian/1.0-1", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "debian/1.0-1", rev)

	_, err = FirstRevision(dir, "v9.9")
	assert.Error(t, err)
}

func TestDEP14Tag(t *testing.T) {
	assert.Equal(t, "debian/1%2.0_rc1-1", DEP14Tag("1:2.0~rc1-1"))
	assert.Equal(t, "debian/0.11.3-1", DEP14Tag("0.11.3-1"))
}
