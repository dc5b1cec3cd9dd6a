package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/kegs/pkg/archive"
	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Install installs the bottle at archivePath as formula's keg and makes
// it the default version. Phase events go to observer in order. On
// failure every change made by the call is undone, a fail event is
// emitted and the error returned. An existing keg fails the call with
// ALREADY_INSTALLED before anything is written.
func (i *Installer) Install(ctx context.Context, formula *types.Formula, archivePath string, observer types.PhaseObserver) (types.InstalledPackage, error) {
	if err := formula.Validate(); err != nil {
		return types.InstalledPackage{}, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula")
	}
	bottle, _ := formula.PreferredBottle(i.platform)
	return i.install(ctx, formula, archivePath, bottle, observer)
}

// InstallFromSource fetches the preferred bottle of formula into the
// download cache and installs it. Fetch failures are returned as they
// are; nothing is retried.
func (i *Installer) InstallFromSource(ctx context.Context, formula *types.Formula, fetcher BottleFetcher, fetchObserver types.FetchObserver, observer types.PhaseObserver) (types.InstalledPackage, error) {
	if err := formula.Validate(); err != nil {
		return types.InstalledPackage{}, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula")
	}
	keg := i.layout.KegDir(formula.Name, formula.PkgVersion())
	if err := i.checkAbsent(keg, formula.Name, formula.PkgVersion()); err != nil {
		em := newEmitter(observer, formula.Name, formula.PkgVersion())
		em.emit(types.PhaseStart, 0, 0, "")
		em.fail(err)
		return types.InstalledPackage{}, err
	}

	archivePath, bottle, err := fetcher.FetchBottle(ctx, formula, i.platform, i.layout, fetchObserver)
	if err != nil {
		em := newEmitter(observer, formula.Name, formula.PkgVersion())
		em.emit(types.PhaseStart, 0, 0, "")
		em.fail(err)
		return types.InstalledPackage{}, err
	}
	return i.install(ctx, formula, archivePath, bottle, observer)
}

func (i *Installer) install(ctx context.Context, formula *types.Formula, archivePath string, bottle types.Bottle, observer types.PhaseObserver) (pkg types.InstalledPackage, err error) {
	name, version := formula.Name, formula.PkgVersion()
	keg := i.layout.KegDir(name, version)
	pkg = types.InstalledPackage{Name: name, Version: version, Path: keg}
	logger := i.logger.With().Str("name", name).Str("version", version).Logger()
	defer logging.LogOperationStart(logger, "install")()

	em := newEmitter(observer, name, version)
	em.emit(types.PhaseStart, 0, 0, archivePath)

	if err := i.checkAbsent(keg, name, version); err != nil {
		em.fail(err)
		return pkg, err
	}
	if err := probeWritable(i.nearestExisting(i.layout.CellarDir())); err != nil {
		em.fail(err)
		return pkg, err
	}

	tx := newTransaction(i.fs, logger)
	defer func() {
		if err != nil {
			logger.Warn().Err(err).Msg("install failed, rolling back")
			tx.rollback()
			em.fail(err)
		}
	}()

	for _, dir := range []string{i.layout.BinDir(), i.layout.OptDir(), i.layout.RackDir(name)} {
		if err = tx.mkdirAll(dir); err != nil {
			return pkg, err
		}
	}
	if err = tx.createKeg(keg, name, version); err != nil {
		return pkg, err
	}

	// Extract
	em.emit(types.PhaseExtractStart, 0, 0, archivePath)
	strip, err := i.stripDepth(archivePath, name)
	if err != nil {
		return pkg, err
	}
	res, err := archive.Extract(ctx, i.fs, archivePath, keg, archive.Options{
		StripComponents: strip,
		Progress: func(entries int, _ int64) {
			em.emit(types.PhaseExtractUpdate, entries, 0, "")
		},
	})
	if err != nil {
		return pkg, err
	}
	em.emit(types.PhaseExtractUpdate, res.Entries, res.Entries, res.Compression.String())

	// Repair
	em.emit(types.PhaseProcessStart, 0, 0, "")
	summary, err := i.repairer.RepairTree(ctx, keg, func(current, total int, path string) {
		em.emit(types.PhaseProcessUpdate, current, total, i.relToRoot(path))
	})
	if err != nil {
		return pkg, err
	}
	if len(summary.Failures) > 0 {
		logger.Warn().Str("summary", summary.String()).Int("failures", len(summary.Failures)).Msg("some binaries could not be repaired")
	}
	if summary.AllFailed() {
		pkg.Warnings = append(pkg.Warnings, fmt.Sprintf("no binary of %s %s could be repaired (%s), it may not run", name, version, summary))
	}
	em.emit(types.PhaseProcessUpdate, summary.Candidates, summary.Candidates, summary.String())

	// Link
	if err = ctx.Err(); err != nil {
		err = errors.Cancelled(err, "install")
		return pkg, err
	}
	cmds, err := i.commands(keg)
	if err != nil {
		return pkg, err
	}
	total := 2*len(cmds) + 1
	done := 0
	progress := func(detail string) {
		done++
		em.emit(types.PhaseLinkUpdate, done, total, detail)
	}
	em.emit(types.PhaseLinkStart, 0, total, "")

	var links []string
	for _, cmd := range cmds {
		link := i.layout.PinnedLink(cmd, version)
		if err = tx.link(filepath.Join(keg, "bin", cmd), link); err != nil {
			return pkg, err
		}
		links = append(links, link)
		progress(filepath.Base(link))
	}
	defaults, err := i.makeDefault(tx, name, keg, cmds, progress)
	if err != nil {
		return pkg, err
	}
	links = append(links, defaults...)
	if done < total {
		em.emit(types.PhaseLinkUpdate, total, total, "")
	}

	receipt := &Receipt{
		Name:                name,
		Version:             formula.Version,
		Revision:            formula.Revision,
		BottleTag:           bottle.PlatformTag,
		BottleDigest:        bottle.Digest,
		InstalledAt:         i.now().UTC(),
		RuntimeDependencies: formula.RuntimeDependencies(),
		Commands:            cmds,
		Repair:              repairReceipt(keg, summary),
	}
	for _, link := range links {
		receipt.Links = append(receipt.Links, i.relToRoot(link))
	}
	if err = writeReceipt(i.fs, keg, receipt); err != nil {
		return pkg, err
	}

	logger.Info().Int("commands", len(cmds)).Msg("installed")
	em.complete()
	return pkg, nil
}

// checkAbsent fails with ALREADY_INSTALLED when keg exists
func (i *Installer) checkAbsent(keg, name, version string) error {
	_, err := i.fs.Lstat(keg)
	switch {
	case err == nil:
		return errors.AlreadyInstalled(name, version)
	case os.IsNotExist(err):
		return nil
	default:
		return errors.FromFS(err, keg)
	}
}

// stripDepth decides how many leading elements to drop from archive
// entries. Bottles nest their content under <name>/<version>/; other
// archives are extracted as they are.
func (i *Installer) stripDepth(archivePath, name string) (int, error) {
	prefix, err := archive.CommonPrefix(i.fs, archivePath, 2)
	if err != nil {
		return 0, err
	}
	if first, _, ok := strings.Cut(prefix, "/"); ok && first == name {
		return 2, nil
	}
	return 0, nil
}

// nearestExisting walks up from dir to the first path that exists
func (i *Installer) nearestExisting(dir string) string {
	for {
		if _, err := i.fs.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
