package system

import (
	"bufio"
	"bytes"
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/types"
)

// Account database paths
const (
	PasswdPath = "/etc/passwd"
	GroupPath  = "/etc/group"
	HomeRoot   = "/home"
)

// ListUsers returns the accounts whose home directory is /home/<name>
func ListUsers(fsys types.FS) ([]string, error) {
	entries, err := fsys.ReadDir(HomeRoot)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot list /home")
	}
	accounts, err := readColonFile(fsys, PasswdPath)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(accounts))
	for _, fields := range accounts {
		known[fields[0]] = true
	}

	var users []string
	for _, e := range entries {
		if e.IsDir() && known[e.Name()] {
			users = append(users, e.Name())
		}
	}
	sort.Strings(users)
	return users, nil
}

// InGroup reports whether user belongs to group, either as a listed member
// or through its primary gid
func InGroup(fsys types.FS, user, group string) (bool, error) {
	groups, err := readColonFile(fsys, GroupPath)
	if err != nil {
		return false, err
	}

	var gid string
	for _, fields := range groups {
		if fields[0] != group || len(fields) < 3 {
			continue
		}
		gid = fields[2]
		if len(fields) > 3 {
			for _, member := range strings.Split(fields[3], ",") {
				if member == user {
					return true, nil
				}
			}
		}
	}
	if gid == "" {
		return false, nil
	}

	accounts, err := readColonFile(fsys, PasswdPath)
	if err != nil {
		return false, err
	}
	for _, fields := range accounts {
		if fields[0] == user && len(fields) > 3 && fields[3] == gid {
			return true, nil
		}
	}
	return false, nil
}

// AddToGroup adds user to group with adduser
func AddToGroup(ctx context.Context, runner execx.Runner, user, group string) error {
	_, err := runner.Run(ctx, execx.Cmd("adduser", user, group))
	return err
}

// IsVM reports whether the machine looks like a KVM or VirtualBox guest
func IsVM(ctx context.Context, runner execx.Runner) bool {
	res, err := runner.Run(ctx, execx.Cmd("lspci"))
	if err != nil {
		return false
	}
	out := strings.ToLower(res.Stdout)
	return strings.Contains(out, "paravirtual") || strings.Contains(out, "virtualbox")
}

func readColonFile(fsys types.FS, path string) ([][]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path)
	}

	var rows [][]string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Split(line, ":"))
	}
	return rows, nil
}

// LookupIDs resolves user and group names to numeric ids from the account
// database. An empty group selects the user's primary group.
func LookupIDs(fsys types.FS, user, group string) (int, int, error) {
	accounts, err := readColonFile(fsys, PasswdPath)
	if err != nil {
		return 0, 0, err
	}
	uid, gid := -1, -1
	for _, fields := range accounts {
		if fields[0] == user && len(fields) > 3 {
			uid, _ = strconv.Atoi(fields[2])
			gid, _ = strconv.Atoi(fields[3])
			break
		}
	}
	if uid < 0 {
		return 0, 0, errors.Newf(errors.ErrNotFound, "unknown user %s", user)
	}
	if group == "" {
		return uid, gid, nil
	}

	groups, err := readColonFile(fsys, GroupPath)
	if err != nil {
		return 0, 0, err
	}
	for _, fields := range groups {
		if fields[0] == group && len(fields) > 2 {
			if gid, err = strconv.Atoi(fields[2]); err == nil {
				return uid, gid, nil
			}
		}
	}
	return 0, 0, errors.Newf(errors.ErrNotFound, "unknown group %s", group)
}
