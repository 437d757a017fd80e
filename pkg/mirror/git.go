package mirror

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// RepoStatus summarizes a local clone
type RepoStatus struct {
	Name       string
	Path       string
	LastCommit time.Time
	Commits    int
	Changes    []string
}

// Clean reports whether the working tree has no pending change
func (s RepoStatus) Clean() bool {
	return len(s.Changes) == 0
}

// Git drives the git binary
type Git struct {
	runner execx.Runner
	fs     types.FS
	logger zerolog.Logger
}

// NewGit creates a git client
func NewGit(runner execx.Runner, fsys types.FS) *Git {
	return &Git{
		runner: runner,
		fs:     fsys,
		logger: logging.GetLogger("git"),
	}
}

// IsRepo reports whether folder holds a .git directory
func (g *Git) IsRepo(folder string) bool {
	info, err := g.fs.Stat(filepath.Join(folder, ".git"))
	return err == nil && info.IsDir()
}

// Sync clones url into folder, or pulls when folder is already a clone.
// A pull that leaves HEAD untouched is reported in sync.
func (g *Git) Sync(ctx context.Context, url, folder string) (types.State, error) {
	if !g.IsRepo(folder) {
		if err := g.fs.MkdirAll(filepath.Dir(folder), 0755); err != nil {
			return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot create parent of %s", folder)
		}
		g.logger.Info().Str("url", url).Str("folder", folder).Msg("cloning")
		if _, err := g.runner.Run(ctx, execx.Cmd("git", "clone", "-q", url, folder)); err != nil {
			return types.StateFailed, err
		}
		return types.StatePatched, nil
	}

	before := g.head(ctx, folder)
	g.logger.Info().Str("folder", folder).Msg("pulling")
	if _, err := g.runner.Run(ctx, execx.Cmd("git", "-C", folder, "pull", "-q", "--no-rebase")); err != nil {
		return types.StateFailed, err
	}
	if after := g.head(ctx, folder); before != "" && before == after {
		return types.StateInSync, nil
	}
	return types.StatePatched, nil
}

func (g *Git) head(ctx context.Context, folder string) string {
	res, err := g.runner.Run(ctx, execx.Cmd("git", "-C", folder, "rev-parse", "HEAD"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// Status reads the last commit date, commit count and pending changes of repo
func (g *Git) Status(ctx context.Context, repo string) (RepoStatus, error) {
	st := RepoStatus{Name: filepath.Base(repo), Path: repo}

	res, err := g.runner.Run(ctx, execx.Cmd("git", "-C", repo, "log", "-1", "--format=%cI"))
	if err != nil {
		return st, err
	}
	if stamp := strings.TrimSpace(res.Stdout); stamp != "" {
		if st.LastCommit, err = time.Parse(time.RFC3339, stamp); err != nil {
			return st, errors.Wrapf(err, errors.ErrCommandFailed, "unexpected commit date %q", stamp)
		}
	}

	res, err = g.runner.Run(ctx, execx.Cmd("git", "-C", repo, "rev-list", "--all", "--count"))
	if err != nil {
		return st, err
	}
	if n := strings.TrimSpace(res.Stdout); n != "" {
		if st.Commits, err = strconv.Atoi(n); err != nil {
			return st, errors.Wrapf(err, errors.ErrCommandFailed, "unexpected commit count %q", n)
		}
	}

	res, err = g.runner.Run(ctx, execx.Cmd("git", "-C", repo, "status", "--porcelain"))
	if err != nil {
		return st, err
	}
	st.Changes = res.Lines()
	return st, nil
}

// Repos lists the clones found directly under stock
func (g *Git) Repos(stock string) ([]string, error) {
	entries, err := g.fs.ReadDir(stock)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileNotFound, "cannot list %s", stock)
	}
	var repos []string
	for _, e := range entries {
		p := filepath.Join(stock, e.Name())
		if e.IsDir() && g.IsRepo(p) {
			repos = append(repos, p)
		}
	}
	sort.Strings(repos)
	return repos, nil
}
