package mirror

import (
	"context"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/style"
)

// StatusAll reads the status of every clone under stock
func (g *Git) StatusAll(ctx context.Context, stock string) ([]RepoStatus, error) {
	repos, err := g.Repos(stock)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return nil, errors.Newf(errors.ErrNotFound, "No git repo found in '%s'", stock)
	}

	statuses := make([]RepoStatus, 0, len(repos))
	for _, repo := range repos {
		st, err := g.Status(ctx, repo)
		if err != nil {
			return statuses, errors.Wrapf(err, errors.ErrCommandFailed, "cannot read status of %s", repo)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// PrintStatus renders repository statuses, pending changes listed under
// their repository
func PrintStatus(p *style.Printer, statuses []RepoStatus) {
	p.Heading("Git repos status:")
	for _, st := range statuses {
		p.Field("Repo", 0, p.Render("Warning", st.Name))
		last := "never"
		if !st.LastCommit.IsZero() {
			last = st.LastCommit.Format("Mon Jan 2 2006 15:04:05")
		}
		p.Printf("%s %s (%d)\n", p.Render("Key", "Last commit:"), last, st.Commits)
		if st.Clean() {
			p.Println(p.Render("OK", "Up to date"))
		} else {
			p.Println(p.Render("Warning", "Uncommited changes:"))
			for _, change := range st.Changes {
				p.Println(change)
			}
		}
		p.Println()
	}
}
