package repair

import (
	"bufio"
	"bytes"
	"sort"
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
)

// ToolEditor drives the platform's otool and install_name_tool. Unlike
// NativeEditor it can grow entries, using the header padding bottles are
// built with.
type ToolEditor struct {
	Otool           string
	InstallNameTool string
	Run             Runner
}

// NewToolEditor uses the given tool paths and runs them with os/exec
func NewToolEditor(otool, installNameTool string) ToolEditor {
	return ToolEditor{Otool: otool, InstallNameTool: installNameTool, Run: ExecRunner}
}

// LoadCommands parses `otool -l`
func (e ToolEditor) LoadCommands(path string) (*LoadCommands, error) {
	out, err := e.Run(e.Otool, "-l", path)
	if bytes.Contains(out, []byte("is not an object file")) {
		return nil, ErrNotObject
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRepairFailed, "otool failed on %s: %s", path, strings.TrimSpace(string(out))).
			WithDetail("path", path)
	}
	return parseOtool(out), nil
}

func parseOtool(out []byte) *LoadCommands {
	lc := &LoadCommands{Format: FormatMachO}
	var cmd string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "cmd":
			cmd = fields[1]
			continue
		case "name", "path":
		default:
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(scanner.Text()), fields[0]))
		if i := strings.LastIndex(value, " (offset "); i >= 0 {
			value = value[:i]
		}
		switch cmd {
		case "LC_ID_DYLIB":
			lc.ID = value
		case "LC_LOAD_DYLIB", "LC_LOAD_WEAK_DYLIB", "LC_REEXPORT_DYLIB", "LC_LAZY_LOAD_DYLIB", "LC_LOAD_UPWARD_DYLIB":
			lc.Dylibs = append(lc.Dylibs, value)
		case "LC_RPATH":
			lc.Rpaths = append(lc.Rpaths, value)
		}
	}
	return lc
}

// Rewrite runs one install_name_tool invocation covering every entry
func (e ToolEditor) Rewrite(path string, replacements map[string]string) error {
	if len(replacements) == 0 {
		return nil
	}
	lc, err := e.LoadCommands(path)
	if err != nil {
		return err
	}
	rpaths := make(map[string]bool, len(lc.Rpaths))
	for _, r := range lc.Rpaths {
		rpaths[r] = true
	}

	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []string
	for _, old := range keys {
		repl := replacements[old]
		switch {
		case old == lc.ID:
			args = append(args, "-id", repl)
		case rpaths[old]:
			args = append(args, "-rpath", old, repl)
		default:
			args = append(args, "-change", old, repl)
		}
	}
	args = append(args, path)

	if out, err := e.Run(e.InstallNameTool, args...); err != nil {
		return errors.Wrapf(err, errors.ErrRepairFailed, "install_name_tool failed on %s: %s", path, strings.TrimSpace(string(out))).
			WithDetail("path", path)
	}
	return nil
}
