package installer

import (
	"context"
	"time"

	"github.com/arthur-debert/kegs/pkg/config"
	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/repair"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/rs/zerolog"
)

// Repairer relocates the binaries of a freshly extracted keg.
// *repair.Unit satisfies it.
type Repairer interface {
	RepairTree(ctx context.Context, kegDir string, progress repair.ProgressFunc) (repair.Summary, error)
}

// BottleFetcher retrieves the preferred bottle of a formula.
// *fetch.Fetcher satisfies it.
type BottleFetcher interface {
	FetchBottle(ctx context.Context, formula *types.Formula, tags []string, layout paths.Layout, observer types.FetchObserver) (string, types.Bottle, error)
}

// Options configures an Installer
type Options struct {
	Layout paths.Layout
	FS     types.FS
	// Repairer is run over every new keg. Nil skips repair.
	Repairer Repairer
	// Platform is the ordered list of compatible bottle tags
	Platform []string
	// Logger defaults to the "installer" component logger
	Logger *zerolog.Logger
	// Now defaults to time.Now and stamps receipts
	Now func() time.Time
}

// Installer performs every mutation of one root
type Installer struct {
	layout   paths.Layout
	fs       types.FS
	repairer Repairer
	platform []string
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an installer for opts.Layout
func New(opts Options) (*Installer, error) {
	if opts.FS == nil {
		return nil, errors.New(errors.ErrInvalidInput, "installer requires a filesystem")
	}
	if opts.Layout.Root == "" {
		return nil, errors.New(errors.ErrInvalidInput, "installer requires a root")
	}

	i := &Installer{
		layout:   opts.Layout,
		fs:       opts.FS,
		repairer: opts.Repairer,
		platform: opts.Platform,
		logger:   logging.GetLogger("installer"),
		now:      opts.Now,
	}
	if i.repairer == nil {
		i.repairer = nopRepairer{}
	}
	if opts.Logger != nil {
		i.logger = *opts.Logger
	}
	if i.now == nil {
		i.now = time.Now
	}
	return i, nil
}

// FromConfig creates an installer for layout using the repair and
// platform settings of cfg
func FromConfig(cfg *config.Config, fs types.FS, layout paths.Layout) (*Installer, error) {
	return New(Options{
		Layout:   layout,
		FS:       fs,
		Repairer: repair.UnitFromConfig(cfg, fs, layout.Root, layout.CellarDir()),
		Platform: cfg.Platform.Tags,
	})
}

// Layout returns the root this installer writes to
func (i *Installer) Layout() paths.Layout {
	return i.layout
}

type nopRepairer struct{}

func (nopRepairer) RepairTree(context.Context, string, repair.ProgressFunc) (repair.Summary, error) {
	return repair.Summary{}, nil
}
