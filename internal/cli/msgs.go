package cli

// Command descriptions
const (
	MsgRootShort = "Install and manage prebuilt bottles in user space"
	MsgRootLong  = `kegs installs prebuilt bottles into a root you own, keeps several
versions of a package side by side and links one of them as the default.

Inside a directory holding a kegs.toml manifest, commands act on that
project's own root (.kegs) and record what they install in kegs.lock.
Everywhere else they act on the global root.`

	MsgVersionShort   = "Print version information"
	MsgInstallShort   = "Install bottles from formula records"
	MsgUninstallShort = "Remove an installed package or one of its versions"
	MsgUpgradeShort   = "Replace an installed version with a newer one"
	MsgVerifyShort    = "Check that an installed version is intact"
	MsgSwitchShort    = "Make another installed version the default"
	MsgListShort      = "List installed packages"
	MsgWhichShort     = "Show which binary a command resolves to"
	MsgRunShort       = "Run a command through kegs resolution"
	MsgFetchShort     = "Download a file with integrity checking"
	MsgInfoShort      = "Describe a formula"
	MsgCacheShort     = "Manage the metadata cache"
	MsgCacheClear     = "Remove every cached formula record"
	MsgCompletion     = "Generate shell completion script"
	MsgGenConfigShort = "Print the default configuration"
)

// Long help
const (
	MsgInstallLong = `Install reads one or more resolved formula records (JSON) and installs
the bottle matching this platform. The bottle is fetched into the download
cache unless --archive names a local one.

Without arguments inside a project, every dependency in kegs.toml is
installed from the cached formula records.`

	MsgInstallExample = `  # Install from a formula record
  kegs install wget.json

  # Install a bottle already on disk
  kegs install wget.json --archive ./wget--1.24.5.arm64_sonoma.bottle.tar.gz

  # Install everything a project declares
  cd my-project && kegs install`

	MsgUninstallLong = `Uninstall removes every installed version of a package, or only the
version given after @. Removing a single version keeps the default links in
place; use switch to point them at a version that remains.`

	MsgUpgradeLong = `Upgrade installs the new formula's bottle and, only once that has
succeeded, removes the old version. A failed install leaves the old version
as it was.`

	MsgWhichLong = `Which resolves a command the way run does: the current project, then
projects in parent directories, then the global root, then $PATH. A command
may be pinned to a version as name@version.`

	MsgGenConfigLong = `Gen-config prints the built-in defaults as a config file. With -w it
writes them to the config location instead, refusing to overwrite an
existing file.`

	MsgGenConfigExample = `  kegs gen-config                      # Output to stdout
  kegs gen-config -w                   # Write to $XDG_CONFIG_HOME/kegs/config.toml
  kegs --config ./kegs.conf gen-config -w`

	MsgRunLong = `Run resolves the command as which does and replaces the kegs process
with it. Everything after the command name is passed through untouched.`
)

// Status messages
const (
	MsgSkippedFormat     = "%s %s is already installed"
	MsgRemovedFormat     = "removed %s %s"
	MsgUpgradedFormat    = "upgraded %s %s -> %s"
	MsgSwitchedFormat    = "%s now defaults to %s"
	MsgFetchedFormat     = "saved %s"
	MsgCacheCleared      = "metadata cache cleared"
	MsgNothingInstalled  = "nothing installed"
	MsgNoDependencies    = "kegs.toml declares no dependencies"
	MsgDefaultDangling   = "%s has no default version left; run kegs switch %s@<version>"
	MsgConfigWrittenFmt  = "wrote %s\n"
	MsgVersionFormat     = "kegs version %s\n"
	MsgVersionCommitFmt  = "Commit: %s\n"
	MsgVersionBuiltFmt   = "Built:  %s\n"
	MsgCompletionLongFmt = `To load completions:

Bash:
  $ source <(%[1]s completion bash)

Zsh:
  $ %[1]s completion zsh > "${fpath[1]}/_%[1]s"

Fish:
  $ %[1]s completion fish | source

PowerShell:
  PS> %[1]s completion powershell | Out-String | Invoke-Expression
`
)
