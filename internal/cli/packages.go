package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/installer"
	"github.com/arthur-debert/kegs/pkg/project"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/arthur-debert/kegs/pkg/ui"
)

func newInstallCmd(opts *globalOptions) *cobra.Command {
	var archive string

	cmd := &cobra.Command{
		Use:     "install [formula.json...]",
		Short:   MsgInstallShort,
		Long:    MsgInstallLong,
		Example: MsgInstallExample,
		GroupID: "packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			if archive != "" && len(args) != 1 {
				return errors.New(errors.ErrInvalidInput, "--archive needs exactly one formula")
			}
			if len(args) == 0 {
				return e.syncProject(cmd.Context())
			}

			pr, err := e.project()
			if err != nil {
				return err
			}
			for _, arg := range args {
				f, err := e.loadFormula(arg)
				if err != nil {
					return err
				}
				if err := e.install(cmd.Context(), f, archive); err != nil {
					return err
				}
				if pr != nil {
					if err := e.record(pr, f, true); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&archive, "archive", "", "Install this bottle file instead of fetching one")
	return cmd
}

// install installs one formula, from archive when given
func (e *env) install(ctx context.Context, f *types.Formula, archive string) error {
	inst, err := e.installer()
	if err != nil {
		return err
	}
	observer := e.printer.PhaseObserver()
	var pkg types.InstalledPackage
	if archive != "" {
		pkg, err = inst.Install(ctx, f, archive, observer)
	} else {
		pkg, err = inst.InstallFromSource(ctx, f, e.fetcher(), e.printer.FetchObserver(f.Name+" "+f.PkgVersion()), observer)
	}
	if err != nil {
		return err
	}
	e.warnAll(pkg)
	return nil
}

func (e *env) warnAll(pkg types.InstalledPackage) {
	for _, w := range pkg.Warnings {
		e.printer.Warning("%s", w)
	}
}

// record notes an installed formula in the project lockfile and, when
// declare is set, in its manifest
func (e *env) record(pr *project.Project, f *types.Formula, declare bool) error {
	bottle, _ := f.PreferredBottle(e.cfg.Platform.Tags)
	if err := pr.Record(e.fs, project.LockedFrom(f, bottle)); err != nil {
		return err
	}
	if !declare {
		return nil
	}
	if current, ok := pr.Manifest.Dependencies[f.Name]; ok && current != "" {
		return nil
	}
	if err := pr.Manifest.Add(types.ParseSpecification(f.Name)); err != nil {
		return err
	}
	return pr.Manifest.Save(e.fs, e.paths.ManifestPath(pr.Dir))
}

// syncProject installs every dependency the project manifest declares
// from cached formula records, skipping what is already installed
func (e *env) syncProject(ctx context.Context) error {
	pr, err := e.project()
	if err != nil {
		return err
	}
	if pr == nil {
		return errors.New(errors.ErrInvalidInput, "install needs a formula outside a project")
	}
	specs := pr.Manifest.Specifications()
	if len(specs) == 0 {
		e.printer.Message(MsgNoDependencies)
		return nil
	}

	inst, err := e.installer()
	if err != nil {
		return err
	}
	for _, spec := range specs {
		f, err := e.cachedFormula(spec.Name)
		if err != nil {
			return err
		}
		if spec.HasVersion() && spec.Version != f.Version && spec.Version != f.PkgVersion() {
			return errors.Newf(errors.ErrNotFound, "cached formula for %s is %s, kegs.toml wants %s",
				spec.Name, f.PkgVersion(), spec.Version).
				WithDetail("name", spec.Name).
				WithDetail("version", spec.Version)
		}
		status, err := inst.Verify(f)
		if err != nil {
			return err
		}
		if status.IsInstalled() {
			e.printer.Message(MsgSkippedFormat, f.Name, f.PkgVersion())
		} else if err := e.install(ctx, f, ""); err != nil {
			return err
		}
		if err := e.record(pr, f, false); err != nil {
			return err
		}
	}
	return nil
}

func newUninstallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <name[@version]>",
		Short:   MsgUninstallShort,
		Long:    MsgUninstallLong,
		GroupID: "packages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			spec := types.ParseSpecification(args[0])
			inst, err := e.installer()
			if err != nil {
				return err
			}

			removed, err := inst.Uninstall(spec.Name, spec.Version)
			if err != nil {
				return err
			}
			for _, pkg := range removed {
				e.printer.Success(MsgRemovedFormat, pkg.Name, pkg.Version)
			}

			remaining, err := inst.List(spec.Name)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				def, _ := inst.Default(spec.Name)
				if !containsVersion(remaining, def) {
					e.printer.Warning(MsgDefaultDangling, spec.Name, spec.Name)
				}
				return nil
			}

			pr, err := e.project()
			if err != nil || pr == nil {
				return err
			}
			if err := pr.Forget(e.fs, spec.Name); err != nil {
				return err
			}
			if pr.Manifest.Remove(spec.Name) {
				return pr.Manifest.Save(e.fs, e.paths.ManifestPath(pr.Dir))
			}
			return nil
		},
	}
}

func containsVersion(pkgs []types.InstalledPackage, version string) bool {
	for _, pkg := range pkgs {
		if pkg.Version == version {
			return true
		}
	}
	return false
}

func newUpgradeCmd(opts *globalOptions) *cobra.Command {
	var archive string

	cmd := &cobra.Command{
		Use:     "upgrade <old.json|name[@version]> <new.json>",
		Short:   MsgUpgradeShort,
		Long:    MsgUpgradeLong,
		GroupID: "packages",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			inst, err := e.installer()
			if err != nil {
				return err
			}
			old, err := e.installedFormula(inst, args[0])
			if err != nil {
				return err
			}
			next, err := e.loadFormula(args[1])
			if err != nil {
				return err
			}

			if archive == "" {
				archive, _, err = e.fetcher().FetchBottle(cmd.Context(), next, e.cfg.Platform.Tags, inst.Layout(),
					e.printer.FetchObserver(next.Name+" "+next.PkgVersion()))
				if err != nil {
					return err
				}
			}
			pkg, err := inst.Upgrade(cmd.Context(), old, next, archive, e.printer.PhaseObserver())
			if err != nil {
				return err
			}
			e.warnAll(pkg)
			e.printer.Success(MsgUpgradedFormat, next.Name, old.PkgVersion(), next.PkgVersion())

			pr, err := e.project()
			if err != nil || pr == nil {
				return err
			}
			return e.record(pr, next, false)
		},
	}

	cmd.Flags().StringVar(&archive, "archive", "", "Install this bottle file instead of fetching one")
	return cmd
}

func newSwitchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "switch <name@version>",
		Short:   MsgSwitchShort,
		GroupID: "packages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			spec := types.ParseSpecification(args[0])
			inst, err := e.installer()
			if err != nil {
				return err
			}
			if err := inst.Switch(spec.Name, spec.Version); err != nil {
				return err
			}
			e.printer.Success(MsgSwitchedFormat, spec.Name, spec.Version)
			return nil
		},
	}
}

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "verify <formula.json|name[@version]>",
		Short:   MsgVerifyShort,
		GroupID: "packages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			inst, err := e.installer()
			if err != nil {
				return err
			}
			f, err := e.installedFormula(inst, args[0])
			if err != nil {
				return err
			}
			status, err := inst.Verify(f)
			if err != nil {
				return err
			}
			return e.printer.Status(f.Name, f.PkgVersion(), status)
		},
	}
}

// installedFormula turns a formula file or name[@version] into the
// formula of an installed keg. A bare name means the default version.
func (e *env) installedFormula(inst *installer.Installer, arg string) (*types.Formula, error) {
	if info, err := e.fs.Stat(arg); err == nil && !info.IsDir() {
		return e.loadFormula(arg)
	}
	spec := types.ParseSpecification(arg)
	if !spec.IsValid() {
		return nil, errors.Newf(errors.ErrInvalidInput, "invalid package name %q", spec.Name).WithDetail("name", spec.Name)
	}
	version := spec.Version
	if version == "" {
		def, ok := inst.Default(spec.Name)
		if !ok {
			return nil, errors.FormulaNotFound(spec.Name)
		}
		version = def
	}
	return &types.Formula{Name: spec.Name, Version: version}, nil
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list [name]",
		Short:   MsgListShort,
		GroupID: "packages",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			inst, err := e.installer()
			if err != nil {
				return err
			}

			var pkgs []types.InstalledPackage
			if len(args) == 1 {
				if !types.IsValidName(args[0]) {
					return errors.Newf(errors.ErrInvalidInput, "invalid package name %q", args[0]).WithDetail("name", args[0])
				}
				pkgs, err = inst.List(args[0])
			} else {
				pkgs, err = inst.ListAll()
			}
			if err != nil {
				return err
			}
			if len(pkgs) == 0 && e.printer.Format() != ui.FormatJSON {
				e.printer.Message(MsgNothingInstalled)
				return nil
			}

			defaults := make(map[string]string)
			for _, pkg := range pkgs {
				if _, seen := defaults[pkg.Name]; seen {
					continue
				}
				def, _ := inst.Default(pkg.Name)
				defaults[pkg.Name] = def
			}
			return e.printer.Packages(pkgs, defaults)
		},
	}
}

func newInfoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "info <formula.json|name>",
		Short:   MsgInfoShort,
		GroupID: "packages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			f, err := e.resolveFormula(args[0])
			if err != nil {
				return err
			}
			if e.printer.Format() == ui.FormatJSON {
				return e.printer.JSON(f)
			}

			inst, err := e.installer()
			if err != nil {
				return err
			}
			pkgs, err := inst.List(f.Name)
			if err != nil {
				return err
			}
			versions := make([]string, 0, len(pkgs))
			for _, pkg := range pkgs {
				versions = append(versions, pkg.Version)
			}
			def, _ := inst.Default(f.Name)
			return e.printer.Markdown(ui.FormulaCard(f, versions, def))
		},
	}
}
