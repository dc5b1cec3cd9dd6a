package types

import (
	"fmt"
	"strings"
)

// DependencyKind classifies how a dependency is needed
type DependencyKind string

const (
	DependencyRequired    DependencyKind = "required"
	DependencyRecommended DependencyKind = "recommended"
	DependencyOptional    DependencyKind = "optional"
	DependencyBuild       DependencyKind = "build"
)

// ParseDependencyKind parses a dependency kind, accepting the empty string
// as required.
func ParseDependencyKind(s string) (DependencyKind, error) {
	switch DependencyKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", DependencyRequired:
		return DependencyRequired, nil
	case DependencyRecommended:
		return DependencyRecommended, nil
	case DependencyOptional:
		return DependencyOptional, nil
	case DependencyBuild:
		return DependencyBuild, nil
	default:
		return "", fmt.Errorf("unknown dependency kind: %q", s)
	}
}

// Dependency names another formula this one depends on
type Dependency struct {
	Name string         `json:"name" cbor:"name"`
	Kind DependencyKind `json:"kind" cbor:"kind"`
}

// AllPlatformsTag marks a bottle usable on every target
const AllPlatformsTag = "all"

// Bottle is a prebuilt archive for one platform
type Bottle struct {
	Digest      string `json:"digest" cbor:"digest"`
	PlatformTag string `json:"platform_tag" cbor:"platform_tag"`
	URL         string `json:"url,omitempty" cbor:"url,omitempty"`
}

// Formula is the fully resolved metadata record for one package version.
// It is produced by the manifest parser and treated as immutable here.
type Formula struct {
	Name         string       `json:"name" cbor:"name"`
	Description  string       `json:"description,omitempty" cbor:"description,omitempty"`
	Homepage     string       `json:"homepage,omitempty" cbor:"homepage,omitempty"`
	URL          string       `json:"url,omitempty" cbor:"url,omitempty"`
	SHA256       string       `json:"sha256,omitempty" cbor:"sha256,omitempty"`
	Version      string       `json:"version" cbor:"version"`
	Revision     int          `json:"revision,omitempty" cbor:"revision,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" cbor:"dependencies,omitempty"`
	Bottles      []Bottle     `json:"bottles,omitempty" cbor:"bottles,omitempty"`
}

// Validate checks the invariants every formula record must satisfy
func (f *Formula) Validate() error {
	if f == nil {
		return fmt.Errorf("formula is nil")
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("formula name is empty")
	}
	if !IsValidName(f.Name) {
		return fmt.Errorf("formula name %q contains invalid characters", f.Name)
	}
	if strings.TrimSpace(f.Version) == "" {
		return fmt.Errorf("formula %s has no version", f.Name)
	}
	if strings.ContainsAny(f.Version, "/\\") {
		return fmt.Errorf("formula %s version %q contains a path separator", f.Name, f.Version)
	}
	return nil
}

// PkgVersion is the version string used for the versioned directory. A
// positive revision is appended as "_<revision>".
func (f *Formula) PkgVersion() string {
	if f.Revision > 0 {
		return fmt.Sprintf("%s_%d", f.Version, f.Revision)
	}
	return f.Version
}

// PreferredBottle picks the bottle whose platform tag ranks highest in
// tags, an ordered list of tags compatible with the running target. The
// "all" tag is compatible everywhere and ranks after every listed tag.
func (f *Formula) PreferredBottle(tags []string) (Bottle, bool) {
	best := -1
	var chosen Bottle
	for _, b := range f.Bottles {
		rank := -1
		for i, tag := range tags {
			if b.PlatformTag == tag {
				rank = len(tags) - i + 1
				break
			}
		}
		if rank < 0 && b.PlatformTag == AllPlatformsTag {
			rank = 1
		}
		if rank > best {
			best = rank
			chosen = b
		}
	}
	return chosen, best > 0
}

// RuntimeDependencies returns the dependencies needed when the package runs,
// dropping build-only and optional ones.
func (f *Formula) RuntimeDependencies() []Dependency {
	var deps []Dependency
	for _, d := range f.Dependencies {
		if d.Kind == DependencyBuild || d.Kind == DependencyOptional {
			continue
		}
		deps = append(deps, d)
	}
	return deps
}

// Specification returns the pinned name@version token for this formula
func (f *Formula) Specification() PackageSpecification {
	return PackageSpecification{Name: f.Name, Version: f.PkgVersion()}
}
