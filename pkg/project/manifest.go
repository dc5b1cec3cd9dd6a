package project

import (
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/types"
)

var log = logging.GetLogger("project")

// AnyVersion in a manifest accepts whatever version is current
const AnyVersion = "*"

// Manifest is the parsed kegs.toml of a project
type Manifest struct {
	Dependencies map[string]string `toml:"dependencies"`
	Options      Options           `toml:"options,omitempty"`
}

// Options are per-project overrides of global settings
type Options struct {
	// ParentLookup overrides project.parent_lookup when set
	ParentLookup *bool `toml:"parent_lookup,omitempty"`
}

// LoadManifest reads and validates the manifest at path
func LoadManifest(fs types.FS, path string) (*Manifest, error) {
	logger := log.With().Str("manifest", path).Logger()

	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, errors.FromFS(err, path)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot parse %s", path).WithDetail("path", path)
	}
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]string)
	}
	for name, version := range m.Dependencies {
		if !types.IsValidName(name) {
			return nil, errors.Newf(errors.ErrInvalidInput, "invalid package name %q in %s", name, path).
				WithDetail("path", path).
				WithDetail("name", name)
		}
		m.Dependencies[name] = strings.TrimSpace(version)
	}

	logger.Debug().Int("dependencies", len(m.Dependencies)).Msg("manifest loaded")
	return &m, nil
}

// Specifications returns the dependencies as name[@version] tokens
// sorted by name. "*" and empty versions carry no version.
func (m *Manifest) Specifications() []types.PackageSpecification {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]types.PackageSpecification, 0, len(names))
	for _, name := range names {
		token := name
		if v := m.Dependencies[name]; v != "" && v != AnyVersion {
			token += "@" + v
		}
		specs = append(specs, types.ParseSpecification(token))
	}
	return specs
}

// Add records spec as a dependency, replacing any earlier entry
func (m *Manifest) Add(spec types.PackageSpecification) error {
	if !spec.IsValid() {
		return errors.Newf(errors.ErrInvalidInput, "invalid package %q", spec.FullSpecification())
	}
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]string)
	}
	version := spec.Version
	if version == "" {
		version = AnyVersion
	}
	m.Dependencies[spec.Name] = version
	return nil
}

// Remove drops name and reports whether it was present
func (m *Manifest) Remove(name string) bool {
	if _, ok := m.Dependencies[name]; !ok {
		return false
	}
	delete(m.Dependencies, name)
	return true
}

// Save writes the manifest to path
func (m *Manifest) Save(fs types.FS, path string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode manifest")
	}
	return writeAtomic(fs, path, data)
}

// writeAtomic replaces path with data through a temporary file
func writeAtomic(fs types.FS, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FromFS(err, filepath.Dir(path))
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := fs.WriteFile(tmp, data, 0644); err != nil {
		return errors.FromFS(err, tmp)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return errors.FromFS(err, path)
	}
	return nil
}
