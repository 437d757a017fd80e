package config

import (
	"time"

	"github.com/choopsit/toolz/pkg/system"
)

// Config is the complete toolz configuration
type Config struct {
	Prompt    Prompt          `koanf:"prompt"`
	Packages  Packages        `koanf:"packages"`
	System    system.Releases `koanf:"system"`
	Backup    Backup          `koanf:"backup"`
	Deploy    Deploy          `koanf:"deploy"`
	Git       Git             `koanf:"git"`
	Themes    Themes          `koanf:"themes"`
	TSM       TSM             `koanf:"tsm"`
	VBox      VBox            `koanf:"vbox"`
	USBKey    USBKey          `koanf:"usbkey"`
	Bootstrap Bootstrap       `koanf:"bootstrap"`
}

type Prompt struct {
	MaxRetries int `koanf:"max_retries"`
}

type Packages struct {
	// AdminGroup members may install packages through sudo
	AdminGroup       string   `koanf:"admin_group"`
	SupportedDistros []string `koanf:"supported_distros"`
}

type Backup struct {
	// Folder is the mount point fullupdate backs up to
	Folder        string              `koanf:"folder"`
	Prerequisites []string            `koanf:"prerequisites"`
	RsyncFlags    []string            `koanf:"rsync_flags"`
	Forbidden     []string            `koanf:"forbidden"`
	HomeItems     []string            `koanf:"home_items"`
	ConfigFiles   []string            `koanf:"config_files"`
	Extra         map[string][]string `koanf:"extra"`
}

type Deploy struct {
	Target       string   `koanf:"target"`
	Exclude      []string `koanf:"exclude"`
	RCFile       string   `koanf:"rc_file"`
	RCFallback   string   `koanf:"rc_fallback"`
	PathVariable string   `koanf:"path_variable"`
}

type Git struct {
	// Stock is relative to the home directory unless absolute
	Stock string `koanf:"stock"`
}

type Theme struct {
	Name  string `koanf:"name"`
	Color string `koanf:"color"`
}

type Themes struct {
	BaseURL          string   `koanf:"base_url"`
	WorkDir          string   `koanf:"work_dir"`
	GTKPrerequisites []string `koanf:"gtk_prerequisites"`
	GTK              []Theme  `koanf:"gtk"`
	Cursors          []Theme  `koanf:"cursors"`
}

type TSM struct {
	Settings  string        `koanf:"settings"`
	Downloads string        `koanf:"downloads"`
	PeerPort  int           `koanf:"peer_port"`
	Refresh   time.Duration `koanf:"refresh"`
	Service   string        `koanf:"service"`
}

type VBox struct {
	Stock        string              `koanf:"stock"`
	DefaultGroup string              `koanf:"default_group"`
	Groups       map[string][]string `koanf:"groups"`
}

type Image struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
	URL     string `koanf:"url"`
	File    string `koanf:"file"`
}

type Live struct {
	DefaultUser string   `koanf:"default_user"`
	Keyboard    string   `koanf:"keyboard"`
	Timezone    string   `koanf:"timezone"`
	Mirror      string   `koanf:"mirror"`
	Packages    []string `koanf:"packages"`
}

type USBKey struct {
	WorkDir       string   `koanf:"work_dir"`
	Prerequisites []string `koanf:"prerequisites"`
	BlockSize     string   `koanf:"block_size"`
	Images        []Image  `koanf:"images"`
	Live          Live     `koanf:"live"`
}

// Optional is an application the bootstrap offers to install
type Optional struct {
	Name     string   `koanf:"name"`
	Question string   `koanf:"question"`
	Packages []string `koanf:"packages"`
	Group    string   `koanf:"group"`
	I386     bool     `koanf:"i386"`
	SkipOnVM bool     `koanf:"skip_on_vm"`
}

// Mount is a labelled fstab entry
type Mount struct {
	Label      string `koanf:"label"`
	UUID       string `koanf:"uuid"`
	Mountpoint string `koanf:"mountpoint"`
	FSType     string `koanf:"fstype"`
	Options    string `koanf:"options"`
}

type Bootstrap struct {
	Groups     []string           `koanf:"groups"`
	Editor     string             `koanf:"editor"`
	VimPlugURL string             `koanf:"vim_plug_url"`
	Packages   []string           `koanf:"packages"`
	Purge      []string           `koanf:"purge"`
	Nvidia     []string           `koanf:"nvidia"`
	Optional   []Optional         `koanf:"optional"`
	Mounts     map[string][]Mount `koanf:"mounts"`
}
