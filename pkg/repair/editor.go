package repair

import (
	"os/exec"

	"github.com/arthur-debert/kegs/pkg/errors"
)

// Object file formats
const (
	FormatMachO = "macho"
	FormatELF   = "elf"
)

// ErrNotObject is returned by editors for files that are not object files
var ErrNotObject = errors.New(errors.ErrRepairFailed, "not an object file")

// LoadCommands is the dynamic linking information of one binary
type LoadCommands struct {
	Format string
	// ID is the install name of a Mach-O dylib or the soname of an ELF
	// shared object
	ID string
	// Dylibs are the libraries the binary links against
	Dylibs []string
	// Rpaths are the runtime search paths
	Rpaths []string
	// Interpreter is the ELF program interpreter
	Interpreter string
}

// All returns every path-like entry
func (lc *LoadCommands) All() []string {
	var out []string
	if lc.ID != "" {
		out = append(out, lc.ID)
	}
	out = append(out, lc.Dylibs...)
	out = append(out, lc.Rpaths...)
	if lc.Interpreter != "" {
		out = append(out, lc.Interpreter)
	}
	return out
}

// Editor reads and rewrites the dynamic linking information of binaries
type Editor interface {
	// LoadCommands returns ErrNotObject for files it cannot parse
	LoadCommands(path string) (*LoadCommands, error)
	// Rewrite replaces every entry equal to a key with its value
	Rewrite(path string, replacements map[string]string) error
}

// Runner runs an external command and returns its combined output
type Runner func(name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec
func ExecRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
