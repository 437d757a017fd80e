// Package vbox starts and stops groups of VirtualBox machines with
// VBoxManage. A group is either listed in the configuration or discovered
// from the .vbox files stored under <stock>/<group>.
package vbox

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Package is the Debian package providing VBoxManage
const Package = "virtualbox"

const manage = "VBoxManage"

// Installer tells whether a package is installed
type Installer interface {
	IsInstalled(ctx context.Context, pkg string) (bool, error)
}

// Machine is what a .vbox file says about a VM
type Machine struct {
	Name   string
	UUID   string
	OSType string
}

// Manager runs the vbox sub-commands
type Manager struct {
	cfg     config.VBox
	fs      types.FS
	runner  execx.Runner
	pkgs    Installer
	printer *style.Printer
	profile *system.Profile
	logger  zerolog.Logger
}

// New creates a manager
func New(cfg config.VBox, fsys types.FS, runner execx.Runner, pkgs Installer, printer *style.Printer, profile *system.Profile) *Manager {
	return &Manager{
		cfg:     cfg,
		fs:      fsys,
		runner:  runner,
		pkgs:    pkgs,
		printer: printer,
		profile: profile,
		logger:  logging.GetLogger("vbox"),
	}
}

// RequireVirtualBox fails unless the virtualbox package is installed
func (m *Manager) RequireVirtualBox(ctx context.Context) error {
	ok, err := m.pkgs.IsInstalled(ctx, Package)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrMissingPackage, "VirtualBox not installed").WithDetail("packages", []string{Package})
	}
	return nil
}

// Stock is the folder holding one sub-folder per group
func (m *Manager) Stock() string {
	if filepath.IsAbs(m.cfg.Stock) {
		return m.cfg.Stock
	}
	return filepath.Join(m.profile.Home, m.cfg.Stock)
}

// ParseMachine reads the machine entry of a .vbox file
func ParseMachine(data []byte) (Machine, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return Machine{}, errors.Wrap(err, errors.ErrConfigParse, "invalid .vbox file")
	}
	root := doc.Root()
	if root == nil {
		return Machine{}, errors.New(errors.ErrConfigParse, "empty .vbox file")
	}
	el := root.SelectElement("Machine")
	if el == nil {
		return Machine{}, errors.New(errors.ErrConfigParse, "no Machine element in .vbox file")
	}
	m := Machine{
		Name:   el.SelectAttrValue("name", ""),
		UUID:   strings.Trim(el.SelectAttrValue("uuid", ""), "{}"),
		OSType: el.SelectAttrValue("OSType", ""),
	}
	if m.Name == "" {
		return Machine{}, errors.New(errors.ErrConfigParse, "unnamed machine in .vbox file")
	}
	return m, nil
}

// Discover lists the machines whose .vbox file lives under dir, one
// level deep as VirtualBox lays them out
func (m *Manager) Discover(dir string) ([]Machine, error) {
	entries, err := m.fs.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileNotFound, "cannot list %s", dir)
	}

	var machines []Machine
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := m.fs.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".vbox" {
				continue
			}
			path := filepath.Join(dir, e.Name(), f.Name())
			data, err := m.fs.ReadFile(path)
			if err != nil {
				continue
			}
			machine, err := ParseMachine(data)
			if err != nil {
				m.logger.Warn().Err(err).Str("file", path).Msg("skipping machine")
				continue
			}
			machines = append(machines, machine)
		}
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i].Name < machines[j].Name })
	return machines, nil
}

// Group resolves a group name to its machine names. An empty name selects
// the default group.
func (m *Manager) Group(name string) (string, []string, error) {
	if name == "" {
		name = m.cfg.DefaultGroup
	}
	if vms, ok := m.cfg.Groups[name]; ok {
		return name, vms, nil
	}

	dir := filepath.Join(m.Stock(), name)
	if info, err := m.fs.Stat(dir); err != nil || !info.IsDir() {
		return name, nil, errors.Newf(errors.ErrNotFound, "No VBox group '%s'", name)
	}
	machines, err := m.Discover(dir)
	if err != nil {
		return name, nil, err
	}
	vms := make([]string, 0, len(machines))
	for _, machine := range machines {
		vms = append(vms, machine.Name)
	}
	return name, vms, nil
}

// ParseVMList extracts names from `VBoxManage list vms` output, where each
// line reads `"name" {uuid}`
func ParseVMList(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, `"`) {
			continue
		}
		if end := strings.Index(line[1:], `"`); end >= 0 {
			names = append(names, line[1:end+1])
		}
	}
	return names
}

func (m *Manager) list(ctx context.Context, what string) ([]string, error) {
	res, err := m.runner.Run(ctx, execx.Cmd(manage, "list", what))
	if err != nil {
		return nil, err
	}
	return ParseVMList(res.Stdout), nil
}

// List prints the running machines
func (m *Manager) List(ctx context.Context) error {
	running, err := m.list(ctx, "runningvms")
	if err != nil {
		return err
	}
	m.printer.Heading("Running VMs:")
	if len(running) == 0 {
		m.printer.Println(m.printer.Render("Warning", "None"))
	}
	for _, vm := range running {
		m.printer.Println(vm)
	}
	m.printer.Println()
	return nil
}

// Start boots every stopped machine of a group headless
func (m *Manager) Start(ctx context.Context, group string) error {
	return m.each(ctx, group, "Starting", func(vm string, running bool) error {
		if running {
			m.printer.Warn("'%s' is already running", vm)
			return nil
		}
		_, err := m.runner.Run(ctx, execx.Cmd(manage, "startvm", vm, "--type", "headless"))
		if err != nil {
			return errors.Wrapf(err, errors.ErrCommandFailed, "Failed to start '%s'", vm)
		}
		m.printer.OK("'%s' started", vm)
		return nil
	})
}

// Stop powers off every running machine of a group
func (m *Manager) Stop(ctx context.Context, group string) error {
	return m.each(ctx, group, "Stopping", func(vm string, running bool) error {
		if !running {
			m.printer.Warn("'%s' is already down", vm)
			return nil
		}
		_, err := m.runner.Run(ctx, execx.Cmd(manage, "controlvm", vm, "poweroff"))
		if err != nil {
			return errors.Wrapf(err, errors.ErrCommandFailed, "Failed to stop '%s'", vm)
		}
		m.printer.OK("'%s' stopped", vm)
		return nil
	})
}

func (m *Manager) each(ctx context.Context, group, verb string, fn func(vm string, running bool) error) error {
	name, vms, err := m.Group(group)
	if err != nil {
		return err
	}
	known, err := m.list(ctx, "vms")
	if err != nil {
		return err
	}
	running, err := m.list(ctx, "runningvms")
	if err != nil {
		return err
	}

	m.printer.Heading("%s VBox group '%s'...", verb, name)
	failed := 0
	for _, vm := range vms {
		m.printer.Info("%s VM '%s'...", verb, vm)
		if !contains(known, vm) {
			m.printer.Error("No VM '%s' in '%s'", vm, name)
			failed++
			continue
		}
		if err := fn(vm, contains(running, vm)); err != nil {
			m.printer.Error("%s", errors.Message(err))
			failed++
		}
	}
	m.printer.Println()
	if failed > 0 {
		return errors.Newf(errors.ErrCommandFailed, "%d VM(s) of '%s' failed", failed, name)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
