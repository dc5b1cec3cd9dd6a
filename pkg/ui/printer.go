package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Printer writes command output in one format
type Printer struct {
	out    io.Writer
	format Format
}

// NewPrinter creates a printer for out. FormatAuto is resolved against
// out once, here.
func NewPrinter(format Format, out io.Writer) *Printer {
	return &Printer{out: out, format: Resolve(format, out)}
}

// Format returns the concrete output format
func (p *Printer) Format() Format {
	return p.format
}

// Writer returns the destination
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) styled() bool {
	return p.format == FormatTerminal
}

// style renders s with the named style on terminals
func (p *Printer) style(name, s string) string {
	if !p.styled() {
		return s
	}
	return GetStyle(name).Render(s)
}

// JSON writes v as an indented JSON document
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Message writes a plain line. JSON output ignores messages.
func (p *Printer) Message(format string, args ...any) {
	if p.format == FormatJSON {
		return
	}
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Success writes a line in the success style
func (p *Printer) Success(format string, args ...any) {
	if p.format == FormatJSON {
		return
	}
	_, _ = fmt.Fprintln(p.out, p.style("Success", fmt.Sprintf(format, args...)))
}

// Warning writes a line in the warning style
func (p *Printer) Warning(format string, args ...any) {
	if p.format == FormatJSON {
		return
	}
	_, _ = fmt.Fprintln(p.out, p.style("Warning", "warning: "+fmt.Sprintf(format, args...)))
}

type jsonError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error writes err with its code and details
func (p *Printer) Error(err error) {
	code := errors.GetErrorCode(err)
	details := errors.GetErrorDetails(err)
	if p.format == FormatJSON {
		_ = p.JSON(map[string]jsonError{"error": {Code: string(code), Message: err.Error(), Details: details}})
		return
	}

	_, _ = fmt.Fprintln(p.out, p.style("Error", "error: ")+err.Error())
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(p.out, "  %s: %v\n", p.style("Muted", k), details[k])
	}
}

type jsonStatus struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	State   string `json:"state"`
	Reason  string `json:"reason,omitempty"`
}

// Status writes the installation status of name at version
func (p *Printer) Status(name, version string, status types.InstallationStatus) error {
	if p.format == FormatJSON {
		return p.JSON(jsonStatus{Name: name, Version: version, State: string(status.State), Reason: status.Reason})
	}
	line := fmt.Sprintf("%s %s %s", p.style("Name", name), p.style("Version", version),
		p.styledState(status.State))
	if status.Reason != "" {
		line += " " + p.style("Muted", "("+status.Reason+")")
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}

func (p *Printer) styledState(state types.InstallationState) string {
	if !p.styled() {
		return string(state)
	}
	return StatusStyle(state).Render(string(state))
}

type jsonPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
	Default bool   `json:"default"`
}

// Packages writes installed kegs, one per line. defaults maps a name to
// its default version, which is marked.
func (p *Printer) Packages(pkgs []types.InstalledPackage, defaults map[string]string) error {
	if p.format == FormatJSON {
		out := make([]jsonPackage, 0, len(pkgs))
		for _, pkg := range pkgs {
			out = append(out, jsonPackage{Name: pkg.Name, Version: pkg.Version, Path: pkg.Path, Default: defaults[pkg.Name] == pkg.Version})
		}
		return p.JSON(out)
	}

	for _, pkg := range pkgs {
		marker := " "
		if defaults[pkg.Name] == pkg.Version {
			marker = p.style("Success", "*")
		}
		if _, err := fmt.Fprintf(p.out, "%s %s %s\n", marker, p.style("Name", pkg.Name), p.style("Version", pkg.Version)); err != nil {
			return err
		}
	}
	return nil
}

type jsonCandidate struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Root   string `json:"root,omitempty"`
}

// Candidates writes resolution candidates in precedence order
func (p *Printer) Candidates(candidates []paths.Candidate) error {
	if p.format == FormatJSON {
		out := make([]jsonCandidate, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, jsonCandidate{Path: c.Path, Source: string(c.Source), Root: c.Root})
		}
		return p.JSON(out)
	}
	for _, c := range candidates {
		if _, err := fmt.Fprintf(p.out, "%s %s\n", p.style("Path", c.Path), p.style("Muted", "("+string(c.Source)+")")); err != nil {
			return err
		}
	}
	return nil
}

// Resolution writes the path a command resolved to
func (p *Printer) Resolution(r paths.Resolution) error {
	if p.format == FormatJSON {
		return p.JSON(jsonCandidate{Path: r.Path, Source: string(r.Source), Root: r.Root})
	}
	_, err := fmt.Fprintln(p.out, r.Path)
	return err
}
