package fetch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/internal/hashutil"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/rs/zerolog"
)

// Request describes one retrieval
type Request struct {
	// URL is an http(s) URL, a file:// URL or a local path
	URL         string
	Destination string
	// Expected is checked over the assembled file. Zero skips the check.
	Expected hashutil.Digest
}

// NewRequest builds a request from a digest string in any form
// hashutil.ParseDigest accepts. An empty digest skips verification.
func NewRequest(url, destination, digest string) (Request, error) {
	expected, err := hashutil.ParseDigest(digest)
	if err != nil {
		return Request{}, err
	}
	return Request{URL: url, Destination: destination, Expected: expected}, nil
}

// Fetcher retrieves archives. It is safe for concurrent use.
type Fetcher struct {
	opts   Options
	fs     types.FS
	logger zerolog.Logger
}

// New creates a Fetcher writing through fs
func New(opts Options, fs types.FS) *Fetcher {
	return &Fetcher{
		opts:   opts.withDefaults(),
		fs:     fs,
		logger: logging.GetLogger("fetch"),
	}
}

// Fetch retrieves req.URL into req.Destination
func (f *Fetcher) Fetch(ctx context.Context, req Request, observer types.FetchObserver) (err error) {
	rep := newReporter(req.URL, observer)
	logger := f.logger.With().Str("url", req.URL).Str("dest", req.Destination).Logger()

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	st := &staging{fs: f.fs}
	defer func() {
		if err != nil {
			st.cleanup()
			logger.Debug().Err(err).Msg("fetch failed")
			rep.fail(err)
			return
		}
		rep.complete()
	}()

	if req.URL == "" || req.Destination == "" {
		return errors.New(errors.ErrInvalidInput, "fetch needs a source and a destination")
	}

	tmpDir := f.opts.TmpDir
	if tmpDir == "" {
		tmpDir = filepath.Dir(req.Destination)
	}
	for _, dir := range []string{tmpDir, filepath.Dir(req.Destination)} {
		if err := f.fs.MkdirAll(dir, 0755); err != nil {
			return errors.FromFS(err, dir)
		}
	}
	st.tmp = filepath.Join(tmpDir, filepath.Base(req.Destination)+"."+randomSuffix()+".part")

	if local, ok := localPath(req.URL); ok {
		err = f.copyLocal(ctx, local, st.tmp, rep)
	} else {
		err = f.fetchRemote(ctx, req.URL, st, rep, logger)
	}
	if err != nil {
		return err
	}

	if err := hashutil.Verify(f.fs, st.tmp, req.Expected); err != nil {
		return err
	}
	if err := f.fs.Rename(st.tmp, req.Destination); err != nil {
		return errors.FromFS(err, req.Destination)
	}
	logger.Debug().Msg("fetch complete")
	return nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, rawURL string, st *staging, rep *reporter, logger zerolog.Logger) error {
	size, ranges, err := f.probe(ctx, rawURL)
	if err != nil {
		return err
	}
	rep.start(size)

	plan := planRanges(size, f.opts.MaxStreams, f.opts.ChunkSize)
	if ranges && size >= f.opts.MinRangedSize && len(plan) > 1 {
		logger.Debug().Int("streams", len(plan)).Int64("size", size).Msg("ranged transfer")
		err := f.fetchRanged(ctx, rawURL, plan, st, rep)
		if err != errRangeIgnored {
			return err
		}
		logger.Debug().Msg("server ignored range request, falling back to sequential transfer")
		st.removeSegments()
		rep.restart()
	}
	return f.fetchSequential(ctx, rawURL, st.tmp, rep)
}

// probe reports the content length (-1 when unknown) and whether the
// server accepts byte ranges. A server that rejects HEAD is treated as
// unknown size without ranges; the GET that follows reports real errors.
func (f *Fetcher) probe(ctx context.Context, rawURL string) (int64, bool, error) {
	req, err := f.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return -1, false, err
	}
	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return -1, false, classify(ctx, err, rawURL)
	}
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return -1, false, errors.NotFound(rawURL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return -1, false, nil
	}
	return resp.ContentLength, resp.Header.Get("Accept-Ranges") == "bytes", nil
}

func (f *Fetcher) fetchSequential(ctx context.Context, rawURL, dest string, rep *reporter) error {
	req, err := f.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return classify(ctx, err, rawURL)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := checkStatus(resp, rawURL, http.StatusOK); err != nil {
		return err
	}
	rep.start(resp.ContentLength)

	n, err := f.writeFile(dest, io.TeeReader(resp.Body, progressWriter{rep}))
	if err != nil {
		return classify(ctx, err, rawURL)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return errors.Network(fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength), rawURL)
	}
	return nil
}

func (f *Fetcher) copyLocal(ctx context.Context, path, dest string, rep *reporter) error {
	info, err := f.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound(path)
		}
		return errors.FromFS(err, path)
	}
	if info.IsDir() {
		return errors.Newf(errors.ErrInvalidInput, "%s is a directory", path)
	}
	rep.start(info.Size())

	src, err := f.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return errors.FromFS(err, path)
	}
	defer func() {
		_ = src.Close()
	}()
	if _, err := f.writeFile(dest, io.TeeReader(&ctxReader{ctx: ctx, r: src}, progressWriter{rep})); err != nil {
		if ctx.Err() != nil {
			return errors.Cancelled(ctx.Err(), "fetch")
		}
		return errors.FromFS(err, dest)
	}
	return nil
}

// writeFile streams r into a new file at path
func (f *Fetcher) writeFile(path string, r io.Reader) (int64, error) {
	out, err := f.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (f *Fetcher) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid url %s", rawURL).WithDetail("url", rawURL)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	return req, nil
}

// checkStatus maps unexpected statuses to typed errors
func checkStatus(resp *http.Response, rawURL string, want int) error {
	switch {
	case resp.StatusCode == want:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errors.NotFound(rawURL)
	default:
		return errors.Network(fmt.Errorf("unexpected status %s", resp.Status), rawURL).
			WithDetail("status", resp.StatusCode)
	}
}

// classify turns a transfer error into a Network or Cancelled error
func classify(ctx context.Context, err error, rawURL string) error {
	if ctx.Err() != nil {
		return errors.Cancelled(ctx.Err(), "fetch")
	}
	if errors.IsKegsError(err) {
		return err
	}
	return errors.Network(err, rawURL)
}

// localPath reports whether rawURL names a local file and returns its path
func localPath(rawURL string) (string, bool) {
	if strings.HasPrefix(rawURL, "file://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return strings.TrimPrefix(rawURL, "file://"), true
		}
		return u.Path, true
	}
	if !strings.Contains(rawURL, "://") {
		return rawURL, true
	}
	return "", false
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

// staging tracks the temporary files of one fetch
type staging struct {
	fs       types.FS
	tmp      string
	segments []string
}

func (s *staging) removeSegments() {
	for _, seg := range s.segments {
		_ = s.fs.Remove(seg)
	}
	s.segments = nil
}

func (s *staging) cleanup() {
	s.removeSegments()
	if s.tmp != "" {
		_ = s.fs.Remove(s.tmp)
	}
}

func randomSuffix() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
