package repair

import (
	"context"
	"fmt"
	"runtime"

	"github.com/arthur-debert/kegs/pkg/config"
	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/rs/zerolog"
)

// Outcome is the result of repairing one file
type Outcome struct {
	Path string
	// Fixed is true when the file holds no placeholders afterwards and,
	// if it was modified, was signed successfully
	Fixed bool
	// Rewritten is true when dependency entries were changed
	Rewritten bool
	Signed    bool
	// Reason explains a failure
	Reason string
}

// Summary aggregates a repair pass over a keg
type Summary struct {
	Candidates     int
	NeedingRepair  int
	Repaired       int
	PathsRewritten int
	SignFailures   int
	Failures       []Outcome
}

// AllFailed reports whether repair was attempted and nothing succeeded
func (s Summary) AllFailed() bool {
	return s.NeedingRepair > 0 && s.Repaired == 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%d of %d files repaired", s.Repaired, s.NeedingRepair)
}

// ProgressFunc reports repair progress over the candidates
type ProgressFunc func(current, total int, path string)

// Unit repairs kegs installed under one root
type Unit struct {
	FS        types.FS
	Editor    Editor
	Signer    Signer
	Relocator Relocator
	logger    zerolog.Logger
}

// NewUnit creates a repair unit substituting prefix and cellar
func NewUnit(fs types.FS, editor Editor, signer Signer, prefix, cellar string) *Unit {
	if signer == nil {
		signer = NopSigner{}
	}
	return &Unit{
		FS:        fs,
		Editor:    editor,
		Signer:    signer,
		Relocator: Relocator{Prefix: prefix, Cellar: cellar},
		logger:    logging.GetLogger("repair"),
	}
}

// UnitFromConfig picks editor and signer from the repair configuration
func UnitFromConfig(cfg *config.Config, fs types.FS, prefix, cellar string) *Unit {
	var editor Editor = NativeEditor{FS: fs}
	useTools := cfg.Repair.Editor == "tools" ||
		(cfg.Repair.Editor == "auto" && runtime.GOOS == "darwin" && toolAvailable(cfg.Repair.InstallNameToolPath))
	if useTools {
		editor = NewToolEditor(cfg.Repair.OtoolPath, cfg.Repair.InstallNameToolPath)
	}
	var signer Signer = NopSigner{}
	if cfg.Repair.Sign && runtime.GOOS == "darwin" {
		signer = NewCodesignSigner(cfg.Repair.CodesignPath)
	}
	return NewUnit(fs, editor, signer, prefix, cellar)
}

// Scan lists repair candidates in a keg
func (u *Unit) Scan(kegDir string) ([]string, error) {
	return Scan(u.FS, kegDir)
}

// NeedsRepair reports whether the dependency table of path names a
// placeholder. Files that are not object files never need repair.
func (u *Unit) NeedsRepair(path string) (bool, error) {
	lc, err := u.Editor.LoadCommands(path)
	if err == ErrNotObject {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(u.Relocator.Replacements(lc)) > 0, nil
}

// Repair relocates path and re-signs it. A file without placeholders is
// left untouched and reported fixed.
func (u *Unit) Repair(path string) Outcome {
	out := Outcome{Path: path}
	lc, err := u.Editor.LoadCommands(path)
	if err == ErrNotObject {
		out.Fixed = true
		return out
	}
	if err != nil {
		out.Reason = err.Error()
		return out
	}

	replacements := u.Relocator.Replacements(lc)
	if len(replacements) == 0 {
		out.Fixed = true
		return out
	}
	if err := u.Editor.Rewrite(path, replacements); err != nil {
		out.Reason = err.Error()
		return out
	}
	out.Rewritten = true

	if lc.Format == FormatMachO {
		if err := u.Signer.Sign(path); err != nil {
			out.Reason = "signing failed: " + err.Error()
			return out
		}
		out.Signed = true
	}
	out.Fixed = true
	return out
}

// RepairTree scans kegDir and repairs every candidate needing it.
// Per-file failures are collected in the summary; only scan failures and
// cancellation are returned as errors.
func (u *Unit) RepairTree(ctx context.Context, kegDir string, progress ProgressFunc) (Summary, error) {
	var sum Summary
	candidates, err := u.Scan(kegDir)
	if err != nil {
		return sum, err
	}
	sum.Candidates = len(candidates)

	for i, path := range candidates {
		if ctx.Err() != nil {
			return sum, errors.Cancelled(ctx.Err(), "repair")
		}
		if progress != nil {
			progress(i+1, len(candidates), path)
		}

		needs, err := u.NeedsRepair(path)
		if err != nil {
			u.logger.Warn().Err(err).Str("path", path).Msg("cannot inspect binary")
			sum.Failures = append(sum.Failures, Outcome{Path: path, Reason: err.Error()})
			continue
		}
		if !needs {
			continue
		}
		sum.NeedingRepair++

		out := u.Repair(path)
		if out.Rewritten {
			sum.PathsRewritten++
		}
		if out.Fixed {
			sum.Repaired++
			continue
		}
		if out.Rewritten {
			sum.SignFailures++
		}
		u.logger.Warn().Str("path", path).Str("reason", out.Reason).Msg("repair failed")
		sum.Failures = append(sum.Failures, out)
	}

	u.logger.Debug().
		Str("keg", kegDir).
		Int("candidates", sum.Candidates).
		Str("summary", sum.String()).
		Msg("repair pass complete")
	return sum, nil
}
