package toolz

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Debian desktop administration toolbox"
	MsgPrereqShort     = "Install missing packages after confirmation"
	MsgPatchShort      = "Idempotent configuration file edits"
	MsgEnsureLineShort = "Append a line unless an equivalent one exists"
	MsgReplaceShort    = "Replace the lines matching a pattern"
	MsgMirrorShort     = "Copy trees and synchronize git clones"
	MsgOverwriteShort  = "Replace a file or directory by a copy of another"
	MsgGitShort        = "Clone a repository or pull an existing clone"
	MsgBackupShort     = "Back up home and configuration files with rsync"
	MsgFullUpdateShort = "Upgrade the system, themes and backup in one go"
	MsgDeployShort     = "Install scripts into the bin directory"
	MsgNetInfoShort    = "Show hostname, interfaces, gateway and DNS"
	MsgDfShort         = "Show mounted filesystems usage"
	MsgFetchShort      = "Show a system summary"
	MsgPkgBuildShort   = "Build a Debian package from a folder"
	MsgStatMyGitsShort = "Show the status of every git clone in the stock"
	MsgThemesShort     = "Install or refresh GTK and cursor themes"
	MsgTSMShort        = "Manage the local Transmission daemon"
	MsgWatchShort      = "Show the torrent queue until interrupted"
	MsgAddShort        = "Add a torrent file"
	MsgAddAllShort     = "Add every torrent file of the downloads folder"
	MsgDeleteShort     = "Delete a torrent and its data"
	MsgDeleteAllShort  = "Delete every finished torrent"
	MsgRestartShort    = "Restart the daemon"
	MsgStatusShort     = "Show the daemon status"
	MsgTestPortShort   = "Check the peer port is reachable"
	MsgSetPortShort    = "Change the peer port"
	MsgVBoxShort       = "Start and stop groups of VirtualBox machines"
	MsgVBoxListShort   = "List the virtual machines"
	MsgVBoxStartShort  = "Start the machines of a group"
	MsgVBoxStopShort   = "Power off the machines of a group"
	MsgUSBKeyShort     = "Write a bootable image or a custom live system to a USB key"
	MsgXfceInitShort   = "Turn a fresh Debian install into a configured Xfce desktop"
	MsgGenConfigShort  = "Print the configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgVersionFormat = "toolz version %s\n  commit: %s\n  built:  %s\n"
	MsgPatched       = "'%s' patched"
	MsgInSync        = "'%s' already up to date"
	MsgMirrored      = "'%s' copied to '%s'"
	MsgSynced        = "'%s' synchronized"
	MsgPrereqOK      = "All required packages are installed"

	// Error messages
	MsgErrNoCommand    = "no command specified"
	MsgErrMirror       = "Failed to copy '%s' to '%s'"
	MsgErrInvalidID    = "Invalid torrent id '%s'"
	MsgErrInvalidPort  = "Invalid port '%s'"
	MsgErrNoBackupDest = "No backup destination given and none configured"

	// Flag descriptions
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig    = "Configuration file read after the system and user files"
	MsgFlagYes       = "Answer yes to every question"
	MsgFlagPrefix    = "Match lines starting with this prefix instead of the whole line"
	MsgFlagPattern   = "Match lines starting with PATTERN instead of containing it"
	MsgFlagObsolete  = "Also purge obsolete packages"
	MsgFlagAll       = "Include pseudo filesystems"
	MsgFlagLive      = "Build a custom Debian live system"
	MsgFlagEffective = "Print the effective configuration instead of the commented defaults"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/patch-long.txt
	msgPatchLongRaw string
	MsgPatchLong    = strings.TrimSpace(msgPatchLongRaw)

	//go:embed msgs/backup-long.txt
	msgBackupLongRaw string
	MsgBackupLong    = strings.TrimSpace(msgBackupLongRaw)

	//go:embed msgs/fullupdate-long.txt
	msgFullUpdateLongRaw string
	MsgFullUpdateLong    = strings.TrimSpace(msgFullUpdateLongRaw)

	//go:embed msgs/usbkey-long.txt
	msgUSBKeyLongRaw string
	MsgUSBKeyLong    = strings.TrimSpace(msgUSBKeyLongRaw)

	//go:embed msgs/xfce-init-long.txt
	msgXfceInitLongRaw string
	MsgXfceInitLong    = strings.TrimSpace(msgXfceInitLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw) + "\n"
)
