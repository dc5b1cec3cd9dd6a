package types

import "strings"

// PackageSpecification is a user-facing name[@version] token
type PackageSpecification struct {
	Name    string
	Version string
	valid   bool
}

// ParseSpecification parses name[@version]. Only the first "@" separates
// name from version, so "a@1.0@extra" has version "1.0@extra". A trailing
// empty version ("wget@") means no version.
func ParseSpecification(s string) PackageSpecification {
	name, version, _ := strings.Cut(s, "@")
	spec := PackageSpecification{
		Name:    strings.TrimSpace(name),
		Version: strings.TrimSpace(version),
	}
	spec.valid = IsValidName(spec.Name)
	return spec
}

// IsValid reports whether the name is non-empty and uses only [A-Za-z0-9._-]
func (p PackageSpecification) IsValid() bool {
	return p.valid
}

// HasVersion reports whether a version was given
func (p PackageSpecification) HasVersion() bool {
	return p.Version != ""
}

// FullSpecification renders the canonical name@version form, or just the
// name when no version is present
func (p PackageSpecification) FullSpecification() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

func (p PackageSpecification) String() string {
	return p.FullSpecification()
}

// IsValidName reports whether name is a non-empty [A-Za-z0-9._-]+ token
func IsValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return name != "." && name != ".."
}
