// pkg/testutil/bottle.go
// DEPENDENCIES: klauspost/compress, pierrec/lz4, ulikunitz/xz
// PURPOSE: Build bottle archives in memory for extraction and install tests

package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compression formats understood by BottleBuilder.Build
const (
	Tar  = "tar"
	Gzip = "gzip"
	Zstd = "zstd"
	XZ   = "xz"
	LZ4  = "lz4"
)

// BottleEntry is one tar entry. Names are used verbatim.
type BottleEntry struct {
	Name     string
	Body     string
	Mode     int64
	Typeflag byte
	Linkname string
}

// BottleBuilder assembles a bottle laid out as Homebrew does, with every
// entry under "<name>/<version>/"
type BottleBuilder struct {
	prefix  string
	entries []BottleEntry
}

// NewBottle starts a bottle for name at version
func NewBottle(name, version string) *BottleBuilder {
	b := &BottleBuilder{prefix: name + "/" + version + "/"}
	b.entries = append(b.entries,
		BottleEntry{Name: name + "/", Typeflag: tar.TypeDir, Mode: 0755},
		BottleEntry{Name: b.prefix, Typeflag: tar.TypeDir, Mode: 0755},
	)
	return b
}

// File adds a regular file under the prefix
func (b *BottleBuilder) File(rel, body string, mode int64) *BottleBuilder {
	b.entries = append(b.entries, BottleEntry{Name: b.prefix + rel, Body: body, Mode: mode, Typeflag: tar.TypeReg})
	return b
}

// Executable adds an executable under bin/
func (b *BottleBuilder) Executable(name, body string) *BottleBuilder {
	return b.File("bin/"+name, body, 0755)
}

// Dir adds a directory entry under the prefix
func (b *BottleBuilder) Dir(rel string) *BottleBuilder {
	b.entries = append(b.entries, BottleEntry{Name: b.prefix + rel + "/", Mode: 0755, Typeflag: tar.TypeDir})
	return b
}

// Symlink adds a symbolic link under the prefix
func (b *BottleBuilder) Symlink(rel, target string) *BottleBuilder {
	b.entries = append(b.entries, BottleEntry{Name: b.prefix + rel, Linkname: target, Mode: 0777, Typeflag: tar.TypeSymlink})
	return b
}

// Hardlink adds a hard link under the prefix to another entry under it
func (b *BottleBuilder) Hardlink(rel, target string) *BottleBuilder {
	b.entries = append(b.entries, BottleEntry{Name: b.prefix + rel, Linkname: b.prefix + target, Mode: 0644, Typeflag: tar.TypeLink})
	return b
}

// Raw adds an entry with an unprefixed name
func (b *BottleBuilder) Raw(e BottleEntry) *BottleBuilder {
	b.entries = append(b.entries, e)
	return b
}

// Build returns the archive bytes in the requested compression
func (b *BottleBuilder) Build(t *testing.T, compression string) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, e := range b.entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: e.Typeflag,
			Linkname: e.Linkname,
		}
		if e.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("Failed to write tar header %s: %v", e.Name, err)
		}
		if e.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, e.Body); err != nil {
				t.Fatalf("Failed to write tar body %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Failed to close tar writer: %v", err)
	}

	var out bytes.Buffer
	var w io.WriteCloser
	switch compression {
	case Tar:
		return tarBuf.Bytes()
	case Gzip:
		w = gzip.NewWriter(&out)
	case Zstd:
		zw, err := zstd.NewWriter(&out)
		if err != nil {
			t.Fatalf("Failed to create zstd writer: %v", err)
		}
		w = zw
	case XZ:
		xw, err := xz.NewWriter(&out)
		if err != nil {
			t.Fatalf("Failed to create xz writer: %v", err)
		}
		w = xw
	case LZ4:
		w = lz4.NewWriter(&out)
	default:
		t.Fatalf("Unknown compression %q", compression)
	}
	if _, err := w.Write(tarBuf.Bytes()); err != nil {
		t.Fatalf("Failed to compress bottle: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finish compressed bottle: %v", err)
	}
	return out.Bytes()
}

// WriteFile builds a gzip bottle and writes it to path
func (b *BottleBuilder) WriteFile(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, b.Build(t, Gzip), 0644); err != nil {
		t.Fatalf("Failed to write bottle %s: %v", path, err)
	}
	return path
}
