package formula

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// apiFormula mirrors the fields of a formula API record kegs uses
type apiFormula struct {
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	Homepage string `json:"homepage"`
	Versions struct {
		Stable string `json:"stable"`
	} `json:"versions"`
	Revision int `json:"revision"`
	URLs     struct {
		Stable struct {
			URL      string `json:"url"`
			Checksum string `json:"checksum"`
		} `json:"stable"`
	} `json:"urls"`
	Dependencies            []string `json:"dependencies"`
	RecommendedDependencies []string `json:"recommended_dependencies"`
	OptionalDependencies    []string `json:"optional_dependencies"`
	BuildDependencies       []string `json:"build_dependencies"`
	Bottle                  struct {
		Stable struct {
			Files map[string]struct {
				URL    string `json:"url"`
				SHA256 string `json:"sha256"`
			} `json:"files"`
		} `json:"stable"`
	} `json:"bottle"`

	// Native encoding of types.Formula
	Version string `json:"version"`
}

// Load reads the formula record in the file at path
func Load(fs types.FS, path string) (*types.Formula, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, errors.FromFS(err, path)
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot read formula %s", path).WithDetail("path", path)
	}
	return f, nil
}

// Decode reads one formula record
func Decode(r io.Reader) (*types.Formula, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrIO, "cannot read formula")
	}
	return decodeOne(data)
}

// DecodeIndex reads a JSON array of formula records
func DecodeIndex(r io.Reader) ([]*types.Formula, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula index")
	}
	formulas := make([]*types.Formula, 0, len(raw))
	for i, item := range raw {
		f, err := decodeOne(item)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid formula at index %d", i).WithDetail("index", i)
		}
		formulas = append(formulas, f)
	}
	return formulas, nil
}

func decodeOne(data []byte) (*types.Formula, error) {
	var api apiFormula
	if err := json.Unmarshal(data, &api); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula JSON")
	}

	if api.Versions.Stable == "" && api.Version != "" {
		var native types.Formula
		if err := json.Unmarshal(data, &native); err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula JSON")
		}
		return validated(&native)
	}

	f := &types.Formula{
		Name:        api.Name,
		Description: api.Desc,
		Homepage:    api.Homepage,
		URL:         api.URLs.Stable.URL,
		SHA256:      api.URLs.Stable.Checksum,
		Version:     api.Versions.Stable,
		Revision:    api.Revision,
	}
	f.Dependencies = appendDeps(f.Dependencies, api.Dependencies, types.DependencyRequired)
	f.Dependencies = appendDeps(f.Dependencies, api.RecommendedDependencies, types.DependencyRecommended)
	f.Dependencies = appendDeps(f.Dependencies, api.OptionalDependencies, types.DependencyOptional)
	f.Dependencies = appendDeps(f.Dependencies, api.BuildDependencies, types.DependencyBuild)

	tags := make([]string, 0, len(api.Bottle.Stable.Files))
	for tag := range api.Bottle.Stable.Files {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		file := api.Bottle.Stable.Files[tag]
		digest := ""
		if file.SHA256 != "" {
			digest = "sha256:" + file.SHA256
		}
		f.Bottles = append(f.Bottles, types.Bottle{PlatformTag: tag, URL: file.URL, Digest: digest})
	}
	return validated(f)
}

func appendDeps(deps []types.Dependency, names []string, kind types.DependencyKind) []types.Dependency {
	for _, name := range names {
		deps = append(deps, types.Dependency{Name: name, Kind: kind})
	}
	return deps
}

func validated(f *types.Formula) (*types.Formula, error) {
	if err := f.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula")
	}
	return f, nil
}
