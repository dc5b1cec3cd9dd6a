package types

import "fmt"

// InstalledPackage is one (name, version) keg on disk
type InstalledPackage struct {
	Name    string
	Version string
	Path    string
	// Warnings are problems the install completed despite
	Warnings []string
}

func (p InstalledPackage) String() string {
	return p.Name + "@" + p.Version
}

// InstallationState is the coarse state of a package version
type InstallationState string

const (
	StateNotInstalled InstallationState = "notInstalled"
	StateInstalled    InstallationState = "installed"
	StateCorrupted    InstallationState = "corrupted"
)

// InstallationStatus is derived from the filesystem on every query and
// never stored
type InstallationStatus struct {
	State  InstallationState
	Reason string
}

// StatusNotInstalled reports an absent versioned directory
func StatusNotInstalled() InstallationStatus {
	return InstallationStatus{State: StateNotInstalled}
}

// StatusInstalled reports a keg whose links all resolve
func StatusInstalled() InstallationStatus {
	return InstallationStatus{State: StateInstalled}
}

// StatusCorrupted reports a keg with a missing or broken link or binary
func StatusCorrupted(reason string) InstallationStatus {
	return InstallationStatus{State: StateCorrupted, Reason: reason}
}

// IsInstalled is true only for a healthy keg
func (s InstallationStatus) IsInstalled() bool {
	return s.State == StateInstalled
}

func (s InstallationStatus) String() string {
	if s.State == StateCorrupted && s.Reason != "" {
		return fmt.Sprintf("%s(%s)", s.State, s.Reason)
	}
	return string(s.State)
}
