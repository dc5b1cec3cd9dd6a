package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/kegs/pkg/cache"
	"github.com/arthur-debert/kegs/pkg/config"
	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/fetch"
	"github.com/arthur-debert/kegs/pkg/filesystem"
	"github.com/arthur-debert/kegs/pkg/formula"
	"github.com/arthur-debert/kegs/pkg/installer"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/project"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/arthur-debert/kegs/pkg/ui"
)

// metadataRevision stamps the formula cache. Bump it when the cached
// record shape changes.
const metadataRevision = "formula-v1"

// env is everything a command needs, built once per invocation from the
// global flags
type env struct {
	cfg     *config.Config
	fs      types.FS
	paths   *paths.Paths
	printer *ui.Printer
	cwd     string
	global  bool
}

func newEnv(cmd *cobra.Command, opts *globalOptions) (*env, error) {
	format, err := ui.ParseFormat(opts.format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid --format").WithDetail("format", opts.format)
	}

	loadOpts := config.LoadOptions{ConfigFile: opts.configFile}
	if opts.root != "" {
		root, err := paths.NormalizePath(opts.root)
		if err != nil {
			return nil, err
		}
		loadOpts.Overrides = map[string]interface{}{"root": root}
	}
	cfg, err := config.Load(loadOpts)
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.FromFS(err, ".")
	}

	fs := filesystem.NewOS()
	p := paths.FromConfig(cfg, fs)
	// a project manifest may override parent lookup for its own tree
	if dir, ok := p.FindProject(cwd); ok {
		m, err := project.LoadManifest(fs, p.ManifestPath(dir))
		if err != nil {
			return nil, err
		}
		if m.Options.ParentLookup != nil && *m.Options.ParentLookup != cfg.Project.ParentLookup {
			cfg.Project.ParentLookup = *m.Options.ParentLookup
			p = paths.FromConfig(cfg, fs)
		}
	}

	return &env{
		cfg:     cfg,
		fs:      fs,
		paths:   p,
		printer: ui.NewPrinter(format, cmd.OutOrStdout()),
		cwd:     cwd,
		global:  opts.global,
	}, nil
}

// layout is the root mutations target
func (e *env) layout() paths.Layout {
	if e.global {
		return e.paths.Global()
	}
	return e.paths.Active(e.cwd)
}

// project returns the enclosing project, or nil outside one or with
// --global
func (e *env) project() (*project.Project, error) {
	if e.global {
		return nil, nil
	}
	pr, err := project.Find(e.paths, e.fs, e.cwd, e.cfg.Project.LockFile)
	if errors.IsErrorCode(err, errors.ErrNotFound) {
		return nil, nil
	}
	return pr, err
}

func (e *env) installer() (*installer.Installer, error) {
	layout := e.layout()
	if err := layout.EnsureDirs(e.fs); err != nil {
		return nil, err
	}
	return installer.FromConfig(e.cfg, e.fs, layout)
}

func (e *env) fetcher() *fetch.Fetcher {
	return fetch.New(fetch.OptionsFromConfig(e.cfg, e.layout().TmpDir()), e.fs)
}

// cache opens the metadata cache of the global root. It returns nil when
// caching is disabled.
func (e *env) cache() (*cache.Cache, error) {
	if !e.cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.Open(e.fs, e.paths.Global().MetadataCacheDir(), metadataRevision)
}

// loadFormula reads a formula record from a file and remembers it in the
// metadata cache so later commands can find it by name
func (e *env) loadFormula(path string) (*types.Formula, error) {
	f, err := formula.Load(e.fs, path)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("cli")
	c, err := e.cache()
	if err != nil {
		logger.Warn().Err(err).Msg("metadata cache unavailable")
		return f, nil
	}
	if c != nil {
		if err := cache.SetFormula(c, f); err != nil {
			logger.Warn().Err(err).Str("formula", f.Name).Msg("failed to cache formula")
		}
	}
	return f, nil
}

// cachedFormula looks a formula up by name in the metadata cache
func (e *env) cachedFormula(name string) (*types.Formula, error) {
	c, err := e.cache()
	if err != nil {
		return nil, err
	}
	if c != nil {
		f, ok, err := cache.GetFormula(c, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return f, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "no formula record for %s; pass its JSON file instead", name).
		WithDetail("name", name)
}

// resolveFormula accepts a formula file or a name. Names are looked up
// in the metadata cache.
func (e *env) resolveFormula(arg string) (*types.Formula, error) {
	if info, err := e.fs.Stat(arg); err == nil && !info.IsDir() {
		return e.loadFormula(arg)
	}
	spec := types.ParseSpecification(arg)
	if !spec.IsValid() {
		return nil, errors.Newf(errors.ErrInvalidInput, "%q is neither a formula file nor a package name", arg).
			WithDetail("argument", arg)
	}
	return e.cachedFormula(spec.Name)
}
