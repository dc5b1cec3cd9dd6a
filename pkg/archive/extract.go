package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
)

// ProgressFunc is called after every extracted entry with running totals
type ProgressFunc func(entries int, bytes int64)

// Options controls an extraction
type Options struct {
	// StripComponents drops this many leading path elements from every
	// entry. Entries with fewer elements are skipped.
	StripComponents int
	Progress        ProgressFunc
}

// Result summarizes a completed extraction
type Result struct {
	Compression Compression
	Entries     int
	Bytes       int64
}

// Extract unpacks the archive at archivePath into dest. dest is created if
// needed; on any failure, cancellation included, it is removed.
func Extract(ctx context.Context, fs types.FS, archivePath, dest string, opts Options) (res Result, err error) {
	logger := logging.GetLogger("archive").With().Str("archive", archivePath).Str("dest", dest).Logger()
	dest = filepath.Clean(dest)

	src, err := fs.OpenFile(archivePath, os.O_RDONLY, 0)
	if err != nil {
		return res, errors.FromFS(err, archivePath)
	}
	defer func() {
		_ = src.Close()
	}()

	if err := fs.MkdirAll(dest, 0755); err != nil {
		return res, errors.FromFS(err, dest)
	}
	defer func() {
		if err != nil {
			if rmErr := fs.RemoveAll(dest); rmErr != nil {
				logger.Warn().Err(rmErr).Msg("failed to remove partial extraction")
			}
		}
	}()

	rc, c, err := Decompress(src)
	if err != nil {
		return res, errors.ExtractionFailed(err, "cannot open "+c.String()+" stream")
	}
	defer func() {
		_ = rc.Close()
	}()
	res.Compression = c

	x := &extractor{ctx: ctx, fs: fs, dest: dest, opts: opts}
	tr := tar.NewReader(rc)
	for {
		if ctx.Err() != nil {
			return res, errors.Cancelled(ctx.Err(), "extraction")
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, errors.Cancelled(ctx.Err(), "extraction")
			}
			return res, errors.ExtractionFailed(err, "corrupt archive")
		}
		n, err := x.entry(hdr, tr)
		if err != nil {
			return res, err
		}
		res.Entries++
		res.Bytes += n
		if opts.Progress != nil {
			opts.Progress(res.Entries, res.Bytes)
		}
	}

	logger.Debug().
		Str("compression", c.String()).
		Int("entries", res.Entries).
		Int64("bytes", res.Bytes).
		Msg("archive extracted")
	return res, nil
}

type extractor struct {
	ctx  context.Context
	fs   types.FS
	dest string
	opts Options
}

// entry writes one tar entry and returns the number of content bytes
func (x *extractor) entry(hdr *tar.Header, r io.Reader) (int64, error) {
	name, ok := stripComponents(hdr.Name, x.opts.StripComponents)
	if !ok {
		return 0, nil
	}
	rel, err := x.relName(name)
	if err != nil {
		return 0, err
	}
	mode := hdr.FileInfo().Mode().Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		target, err := x.resolve(rel, true)
		if err != nil {
			return 0, err
		}
		if err := x.fs.MkdirAll(target, 0755); err != nil {
			return 0, errors.FromFS(err, target)
		}
		return 0, nil

	case tar.TypeReg:
		target, err := x.resolve(rel, false)
		if err != nil {
			return 0, err
		}
		return x.writeFile(target, &ctxReader{ctx: x.ctx, r: r}, mode)

	case tar.TypeSymlink:
		target, err := x.resolve(rel, false)
		if err != nil {
			return 0, err
		}
		if err := x.checkLink(target, hdr.Linkname); err != nil {
			return 0, err
		}
		if err := x.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return 0, errors.FromFS(err, target)
		}
		_ = x.fs.Remove(target)
		if err := x.fs.Symlink(hdr.Linkname, target); err != nil {
			return 0, errors.FromFS(err, target)
		}
		return 0, nil

	case tar.TypeLink:
		// Hard links become copies of an entry extracted earlier
		linkName, ok := stripComponents(hdr.Linkname, x.opts.StripComponents)
		if !ok {
			return 0, errors.ExtractionFailed(nil, "hard link to stripped entry "+hdr.Linkname)
		}
		linkRel, err := x.relName(linkName)
		if err != nil {
			return 0, err
		}
		source, err := x.resolve(linkRel, true)
		if err != nil {
			return 0, err
		}
		target, err := x.resolve(rel, false)
		if err != nil {
			return 0, err
		}
		in, err := x.fs.OpenFile(source, os.O_RDONLY, 0)
		if err != nil {
			return 0, errors.ExtractionFailed(err, "hard link target missing: "+hdr.Linkname)
		}
		defer func() {
			_ = in.Close()
		}()
		info, err := x.fs.Stat(source)
		if err != nil {
			return 0, errors.FromFS(err, source)
		}
		return x.writeFile(target, in, info.Mode().Perm())

	default:
		// Device nodes, fifos and pax metadata have no place in a keg
		return 0, nil
	}
}

// relName validates an archive name and returns it as a clean
// slash-separated path relative to dest
func (x *extractor) relName(name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", errors.ExtractionFailed(nil, "absolute path in archive: "+name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.ExtractionFailed(nil, "path escapes destination: "+name)
	}
	return clean, nil
}

// maxLinkHops bounds symlink expansion while resolving one path
const maxLinkHops = 40

// resolve maps rel to its real location under dest, following symlinks
// already extracted. The last element is followed only when followLast is
// set, so a file entry replaces a link instead of writing through it.
// Any path whose real location leaves dest is rejected.
func (x *extractor) resolve(rel string, followLast bool) (string, error) {
	escape := errors.ExtractionFailed(nil, "path escapes destination: "+rel)
	cur := x.dest
	pending := strings.Split(rel, "/")
	hops := 0
	for len(pending) > 0 {
		elem := pending[0]
		pending = pending[1:]
		switch elem {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
			if !paths.ContainsPath(x.dest, cur) {
				return "", escape
			}
			continue
		}

		next := filepath.Join(cur, elem)
		if len(pending) == 0 && !followLast {
			cur = next
			break
		}
		info, err := x.fs.Lstat(next)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			// Missing elements are created as plain directories
			cur = next
			continue
		}
		hops++
		if hops > maxLinkHops {
			return "", errors.ExtractionFailed(nil, "too many levels of symbolic links: "+rel)
		}
		link, err := x.fs.Readlink(next)
		if err != nil {
			return "", errors.FromFS(err, next)
		}
		if filepath.IsAbs(link) {
			return "", escape
		}
		pending = append(strings.Split(filepath.ToSlash(link), "/"), pending...)
	}
	if !paths.ContainsPath(x.dest, cur) {
		return "", escape
	}
	return cur, nil
}

// checkLink rejects symlinks whose target resolves outside dest. target
// is already resolved, so its directory is a real location.
func (x *extractor) checkLink(target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return errors.ExtractionFailed(nil, "absolute symlink in archive: "+linkname)
	}
	dir, err := filepath.Rel(x.dest, filepath.Dir(target))
	if err != nil {
		return errors.ExtractionFailed(err, "symlink escapes destination: "+linkname)
	}
	if _, err := x.resolve(path.Join(filepath.ToSlash(dir), linkname), true); err != nil {
		return errors.ExtractionFailed(nil, "symlink escapes destination: "+linkname)
	}
	return nil
}

func (x *extractor) writeFile(target string, r io.Reader, mode os.FileMode) (int64, error) {
	if err := x.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, errors.FromFS(err, target)
	}
	// Replace rather than write through an existing link
	_ = x.fs.Remove(target)
	out, err := x.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, errors.FromFS(err, target)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if x.ctx.Err() != nil {
			return n, errors.Cancelled(x.ctx.Err(), "extraction")
		}
		return n, errors.ExtractionFailed(err, "cannot write "+target)
	}
	if err := x.fs.Chmod(target, mode); err != nil {
		return n, errors.FromFS(err, target)
	}
	return n, nil
}

// stripComponents drops n leading elements of a slash-separated name.
// It reports false when nothing is left. Absolute and parent-relative
// names are returned untouched for target to reject.
func stripComponents(name string, n int) (string, bool) {
	name = path.Clean(name)
	if name == "." || name == "/" {
		return "", false
	}
	if n <= 0 || path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return name, true
	}
	parts := strings.SplitN(name, "/", n+1)
	if len(parts) <= n {
		return "", false
	}
	return parts[n], true
}

// CommonPrefix returns the first depth path elements shared by every
// entry of the archive, or "" when entries disagree or are too shallow.
// Bottles nest their content under "<name>/<version>/".
func CommonPrefix(fs types.FS, archivePath string, depth int) (string, error) {
	src, err := fs.OpenFile(archivePath, os.O_RDONLY, 0)
	if err != nil {
		return "", errors.FromFS(err, archivePath)
	}
	defer func() {
		_ = src.Close()
	}()
	rc, _, err := Decompress(src)
	if err != nil {
		return "", errors.ExtractionFailed(err, "cannot open archive")
	}
	defer func() {
		_ = rc.Close()
	}()

	prefix := ""
	var shallow []string
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.ExtractionFailed(err, "corrupt archive")
		}
		name := strings.TrimPrefix(path.Clean("/"+hdr.Name), "/")
		parts := strings.Split(name, "/")
		if len(parts) < depth {
			// Directory entries above the prefix, like a bare "<name>/",
			// are checked once the prefix is known
			shallow = append(shallow, name)
			continue
		}
		p := strings.Join(parts[:depth], "/")
		if prefix == "" {
			prefix = p
		} else if p != prefix {
			return "", nil
		}
	}

	for _, name := range shallow {
		if name != "" && !strings.HasPrefix(prefix+"/", name+"/") {
			return "", nil
		}
	}
	return prefix, nil
}

// ctxReader stops reading once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
