// Package prereq makes sure the packages a command depends on are
// installed, asking the operator before installing anything.
package prereq

import (
	"context"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Packages is the package database as seen by the resolver
type Packages interface {
	Missing(ctx context.Context, pkgs []string) ([]string, error)
	Install(ctx context.Context, pkgs []string, yes bool) error
}

// Resolver installs missing prerequisites
type Resolver struct {
	pkgs       Packages
	asker      prompt.Asker
	printer    *style.Printer
	fs         types.FS
	profile    *system.Profile
	adminGroup string
	logger     zerolog.Logger
}

// New creates a resolver. Members of adminGroup may install through sudo.
func New(pkgs Packages, asker prompt.Asker, printer *style.Printer, fs types.FS, profile *system.Profile, adminGroup string) *Resolver {
	return &Resolver{
		pkgs:       pkgs,
		asker:      asker,
		printer:    printer,
		fs:         fs,
		profile:    profile,
		adminGroup: adminGroup,
		logger:     logging.GetLogger("prereq"),
	}
}

// Ensure installs whatever pkgs are missing
func (r *Resolver) Ensure(ctx context.Context, pkgs []string) error {
	_, err := r.Reconcile(ctx, pkgs)
	return err
}

// Reconcile checks pkgs and installs the missing ones. The whole requested
// list is handed to the package manager so dependencies pinned together
// are resolved in one transaction.
func (r *Resolver) Reconcile(ctx context.Context, pkgs []string) (types.State, error) {
	missing, err := r.pkgs.Missing(ctx, pkgs)
	if err != nil {
		return types.StateFailed, err
	}
	r.logger.Debug().
		Str("state", string(types.StateChecked)).
		Strs("requested", pkgs).
		Strs("missing", missing).
		Msg("Checked prerequisites")

	if len(missing) == 0 {
		return types.StateInSync, nil
	}

	r.printer.Warn("Missing package(s): %s", strings.Join(missing, ", "))

	authorized, err := r.Authorized()
	if err != nil {
		return types.StateFailed, err
	}
	if !authorized {
		return types.StateFailed, errors.Newf(errors.ErrPermission,
			"Cannot install required package(s): need root or '%s' membership", r.adminGroup).
			WithDetail("packages", missing)
	}

	pronoun := "it"
	if len(missing) > 1 {
		pronoun = "them"
	}
	ok, err := r.asker.YesNo("Install "+pronoun, false)
	if err != nil {
		return types.StateFailed, err
	}
	if !ok {
		return types.StateFailed, errors.New(errors.ErrDeclined, "Installation of required package(s) declined").
			WithDetail("packages", missing)
	}

	if err := r.pkgs.Install(ctx, pkgs, true); err != nil {
		r.logger.Warn().Err(err).Msg("Package installation reported an error")
	}

	still, err := r.pkgs.Missing(ctx, missing)
	if err != nil {
		return types.StateFailed, err
	}
	if len(still) > 0 {
		return types.StateFailed, errors.Newf(errors.ErrMissingPackage,
			"Needed package(s) not installed: %s", strings.Join(still, ", ")).
			WithDetail("packages", still)
	}

	r.printer.OK("Package(s) installed: %s", strings.Join(missing, ", "))
	return types.StatePatched, nil
}

// Authorized reports whether the operator may install packages: root, or a
// member of the administrative group
func (r *Resolver) Authorized() (bool, error) {
	if r.profile.IsRoot() {
		return true, nil
	}
	if r.adminGroup == "" {
		return false, nil
	}
	return system.InGroup(r.fs, r.profile.User, r.adminGroup)
}
