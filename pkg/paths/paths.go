package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/kegs/pkg/config"
	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Source tells which layer a resolved command came from
type Source string

const (
	SourceProject  Source = "project"
	SourceAncestor Source = "ancestor"
	SourceGlobal   Source = "global"
	SourceSystem   Source = "system"
)

// Resolution is the outcome of a successful command lookup
type Resolution struct {
	Path   string
	Source Source
	// Root is the kegs root the command came from. Empty for SourceSystem.
	Root string
}

// Candidate is one location examined by Resolve
type Candidate struct {
	Path   string
	Source Source
	Root   string
}

// Options configures a Paths instance
type Options struct {
	// Root is the global root. Defaults to config.DefaultRoot().
	Root string
	// ManifestFile marks a directory as a project root.
	ManifestFile string
	// LocalDir is the project root directory name inside a project.
	LocalDir string
	// ParentLookup extends project discovery to ancestor directories.
	ParentLookup bool
	// SystemPath is the PATH list searched last. Nil means "use $PATH";
	// an empty slice disables the system layer.
	SystemPath []string
	FS         types.FS
}

// Paths holds the configured roots and resolves commands against them
type Paths struct {
	global       Layout
	manifestFile string
	localDir     string
	parentLookup bool
	systemPath   []string
	fs           types.FS
}

// New creates a Paths instance from explicit options
func New(opts Options) *Paths {
	root := opts.Root
	if root == "" {
		root = config.DefaultRoot()
	}
	manifest := opts.ManifestFile
	if manifest == "" {
		manifest = "kegs.toml"
	}
	local := opts.LocalDir
	if local == "" {
		local = ".kegs"
	}
	systemPath := opts.SystemPath
	if systemPath == nil {
		systemPath = filepath.SplitList(os.Getenv("PATH"))
	}
	return &Paths{
		global:       NewLayout(root),
		manifestFile: manifest,
		localDir:     local,
		parentLookup: opts.ParentLookup,
		systemPath:   systemPath,
		fs:           opts.FS,
	}
}

// FromConfig creates a Paths instance for cfg
func FromConfig(cfg *config.Config, fs types.FS) *Paths {
	return New(Options{
		Root:         cfg.Root,
		ManifestFile: cfg.Project.ManifestFile,
		LocalDir:     cfg.Project.LocalDir,
		ParentLookup: cfg.Project.ParentLookup,
		FS:           fs,
	})
}

// Global is the layout of the global root
func (p *Paths) Global() Layout { return p.global }

// Project is the layout of the project root inside dir
func (p *Paths) Project(dir string) Layout {
	return NewLayout(filepath.Join(dir, p.localDir))
}

// ManifestPath is the manifest location for a project directory
func (p *Paths) ManifestPath(dir string) string {
	return filepath.Join(dir, p.manifestFile)
}

// IsProject reports whether dir holds a manifest
func (p *Paths) IsProject(dir string) bool {
	info, err := p.fs.Stat(p.ManifestPath(dir))
	return err == nil && !info.IsDir()
}

// FindProject returns the nearest directory holding a manifest, starting
// at cwd and, when parent lookup is enabled, walking towards the
// filesystem root.
func (p *Paths) FindProject(cwd string) (string, bool) {
	dirs := []string{filepath.Clean(cwd)}
	if p.parentLookup {
		dirs = append(dirs, Ancestors(cwd)...)
	}
	for _, dir := range dirs {
		if p.IsProject(dir) {
			return dir, true
		}
	}
	return "", false
}

// Active is the layout installs target when run from cwd: the nearest
// project root if there is one, the global root otherwise.
func (p *Paths) Active(cwd string) Layout {
	if dir, ok := p.FindProject(cwd); ok {
		return p.Project(dir)
	}
	return p.global
}

// Candidates lists every location Resolve examines for command, in
// precedence order. Project layers appear only for directories that hold
// a manifest.
func (p *Paths) Candidates(command, cwd string) []Candidate {
	var out []Candidate
	cwd = filepath.Clean(cwd)

	if p.IsProject(cwd) {
		l := p.Project(cwd)
		out = append(out, Candidate{Path: l.DefaultLink(command), Source: SourceProject, Root: l.Root})
	}
	if p.parentLookup {
		for _, dir := range Ancestors(cwd) {
			if p.IsProject(dir) {
				l := p.Project(dir)
				out = append(out, Candidate{Path: l.DefaultLink(command), Source: SourceAncestor, Root: l.Root})
			}
		}
	}
	out = append(out, Candidate{Path: p.global.DefaultLink(command), Source: SourceGlobal, Root: p.global.Root})
	for _, dir := range p.systemPath {
		if dir == "" {
			continue
		}
		out = append(out, Candidate{Path: filepath.Join(dir, command), Source: SourceSystem})
	}
	return out
}

// Resolve finds the binary command refers to. command may be a pinned
// name such as "wget@1.24.5". The first candidate that exists as a
// non-directory wins; dangling links are skipped.
func (p *Paths) Resolve(command, cwd string) (Resolution, error) {
	if command == "" || strings.ContainsRune(command, filepath.Separator) {
		return Resolution{}, errors.Newf(errors.ErrInvalidInput, "invalid command name %q", command).
			WithDetail("command", command)
	}
	for _, c := range p.Candidates(command, cwd) {
		info, err := p.fs.Stat(c.Path)
		if err != nil || info.IsDir() {
			continue
		}
		if c.Source == SourceSystem && info.Mode().Perm()&0111 == 0 {
			continue
		}
		return Resolution{Path: c.Path, Source: c.Source, Root: c.Root}, nil
	}
	return Resolution{}, errors.Newf(errors.ErrNotFound, "command %s not found", command).
		WithDetail("command", command)
}

// Ancestors returns the parent directories of dir, nearest first, up to
// and including the filesystem root.
func Ancestors(dir string) []string {
	var out []string
	dir = filepath.Clean(dir)
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return out
		}
		out = append(out, parent)
		dir = parent
	}
}

// ExpandHome expands a leading ~ to the user's home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// NormalizePath expands home, makes the path absolute and cleans it
func NormalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}
	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot make %s absolute", path)
	}
	return filepath.Clean(abs), nil
}
