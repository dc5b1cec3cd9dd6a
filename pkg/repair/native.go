package repair

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Mach-O load commands carrying a path. debug/macho only decodes some of
// them, so they are read from raw load command bytes.
const (
	lcLoadDylib       = 0xc
	lcIDDylib         = 0xd
	lcLoadWeakDylib   = 0x80000018
	lcRpath           = 0x8000001c
	lcReexportDylib   = 0x8000001f
	lcLazyLoadDylib   = 0x20
	lcLoadUpwardDylib = 0x80000023
)

// NativeEditor edits binaries without external tools. Strings are
// patched in place and null padded, so a replacement may not be longer
// than the entry it replaces.
type NativeEditor struct {
	FS types.FS
}

// LoadCommands parses Mach-O (thin or universal) and ELF files
func (e NativeEditor) LoadCommands(path string) (*LoadCommands, error) {
	data, err := e.FS.ReadFile(path)
	if err != nil {
		return nil, errors.FromFS(err, path)
	}
	return parseLoadCommands(data)
}

func parseLoadCommands(data []byte) (*LoadCommands, error) {
	r := bytes.NewReader(data)
	if f, err := macho.NewFile(r); err == nil {
		lc := &LoadCommands{Format: FormatMachO}
		machoCommands(f, lc)
		return lc, nil
	}
	if fat, err := macho.NewFatFile(r); err == nil {
		lc := &LoadCommands{Format: FormatMachO}
		for _, arch := range fat.Arches {
			machoCommands(arch.File, lc)
		}
		lc.Dylibs = dedupe(lc.Dylibs)
		lc.Rpaths = dedupe(lc.Rpaths)
		return lc, nil
	}
	if f, err := elf.NewFile(r); err == nil {
		return elfCommands(f)
	}
	return nil, ErrNotObject
}

func machoCommands(f *macho.File, lc *LoadCommands) {
	for _, l := range f.Loads {
		raw := l.Raw()
		if len(raw) < 12 {
			continue
		}
		cmd := f.ByteOrder.Uint32(raw[0:4])
		name := cstring(raw, f.ByteOrder.Uint32(raw[8:12]))
		switch cmd {
		case lcIDDylib:
			lc.ID = name
		case lcLoadDylib, lcLoadWeakDylib, lcReexportDylib, lcLazyLoadDylib, lcLoadUpwardDylib:
			lc.Dylibs = append(lc.Dylibs, name)
		case lcRpath:
			lc.Rpaths = append(lc.Rpaths, name)
		}
	}
}

func elfCommands(f *elf.File) (*LoadCommands, error) {
	lc := &LoadCommands{Format: FormatELF}
	for _, p := range f.Progs {
		if p.Type == elf.PT_INTERP {
			buf := make([]byte, p.Filesz)
			if _, err := p.ReadAt(buf, 0); err == nil {
				lc.Interpreter = cstring(buf, 0)
			}
		}
	}
	if f.Section(".dynamic") == nil {
		// Statically linked
		return lc, nil
	}
	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRepairFailed, "cannot read ELF dynamic section")
	}
	lc.Dylibs = libs
	if soname, err := f.DynString(elf.DT_SONAME); err == nil && len(soname) > 0 {
		lc.ID = soname[0]
	}
	for _, tag := range []elf.DynTag{elf.DT_RPATH, elf.DT_RUNPATH} {
		if vals, err := f.DynString(tag); err == nil {
			lc.Rpaths = append(lc.Rpaths, vals...)
		}
	}
	return lc, nil
}

// Rewrite patches every null-terminated occurrence of each key. The file
// is rewritten through a temporary file and renamed over the original.
func (e NativeEditor) Rewrite(path string, replacements map[string]string) error {
	if len(replacements) == 0 {
		return nil
	}
	info, err := e.FS.Stat(path)
	if err != nil {
		return errors.FromFS(err, path)
	}
	data, err := e.FS.ReadFile(path)
	if err != nil {
		return errors.FromFS(err, path)
	}

	// Longest first so overlapping entries patch deterministically
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, old := range keys {
		n, err := patchString(data, old, replacements[old])
		if err != nil {
			return errors.Wrapf(err, errors.ErrRepairFailed, "cannot rewrite %s", path).WithDetail("path", path)
		}
		if n == 0 {
			return errors.Newf(errors.ErrRepairFailed, "entry %q not found in %s", old, path).WithDetail("path", path)
		}
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".repair")
	if err := e.FS.WriteFile(tmp, data, info.Mode().Perm()); err != nil {
		return errors.FromFS(err, tmp)
	}
	if err := e.FS.Chmod(tmp, info.Mode().Perm()); err != nil {
		_ = e.FS.Remove(tmp)
		return errors.FromFS(err, tmp)
	}
	if err := e.FS.Rename(tmp, path); err != nil {
		_ = e.FS.Remove(tmp)
		return errors.FromFS(err, path)
	}
	return nil
}

// patchString replaces every occurrence of old followed by a NUL byte
// with replacement, padding with NULs to the original length. It returns
// the number of occurrences patched.
func patchString(data []byte, old, replacement string) (int, error) {
	if len(replacement) > len(old) {
		return 0, fmt.Errorf("replacement %q is %d bytes longer than %q; no room to patch in place",
			replacement, len(replacement)-len(old), old)
	}
	needle := append([]byte(old), 0)
	patched := make([]byte, len(old))
	copy(patched, replacement)

	count := 0
	for offset := 0; ; {
		i := bytes.Index(data[offset:], needle)
		if i < 0 {
			break
		}
		at := offset + i
		// Only whole strings: the match must start after a NUL or at 0
		if at == 0 || data[at-1] == 0 {
			copy(data[at:at+len(old)], patched)
			count++
		}
		offset = at + len(needle)
	}
	return count, nil
}

// cstring reads a NUL-terminated string starting at off
func cstring(b []byte, off uint32) string {
	if int(off) >= len(b) {
		return ""
	}
	b = b[off:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
