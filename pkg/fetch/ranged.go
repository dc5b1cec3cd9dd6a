package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/arthur-debert/kegs/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// errRangeIgnored signals a server that answered a Range request with the
// whole body. The caller falls back to a sequential transfer.
var errRangeIgnored = errors.New(errors.ErrNetwork, "server ignored range request")

// byteRange is an inclusive range of offsets
type byteRange struct {
	Start, End int64
}

func (r byteRange) Len() int64 { return r.End - r.Start + 1 }

func (r byteRange) header() string { return fmt.Sprintf("bytes=%d-%d", r.Start, r.End) }

// planRanges splits size bytes into at most streams contiguous ranges of
// at least chunk bytes each. The last range absorbs the remainder.
func planRanges(size int64, streams int, chunk int64) []byteRange {
	if size <= 0 {
		return nil
	}
	if chunk < 1 {
		chunk = 1
	}
	n := int64(streams)
	if byChunk := size / chunk; byChunk < n {
		n = byChunk
	}
	if n < 1 {
		n = 1
	}
	per := size / n
	ranges := make([]byteRange, 0, n)
	for i := int64(0); i < n; i++ {
		start := i * per
		end := start + per - 1
		if i == n-1 {
			end = size - 1
		}
		ranges = append(ranges, byteRange{Start: start, End: end})
	}
	return ranges
}

// fetchRanged downloads every range into its own segment file through a
// pool bounded by MaxStreams, then concatenates the segments in order.
// The first failure cancels the other streams.
func (f *Fetcher) fetchRanged(ctx context.Context, rawURL string, plan []byteRange, st *staging, rep *reporter) error {
	st.segments = make([]string, len(plan))
	for i := range plan {
		st.segments[i] = fmt.Sprintf("%s.seg%d", st.tmp, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.MaxStreams)
	for i, r := range plan {
		seg := st.segments[i]
		g.Go(func() error {
			return f.fetchRange(gctx, rawURL, r, seg, rep)
		})
	}
	if err := g.Wait(); err != nil {
		if err != errRangeIgnored && ctx.Err() != nil {
			return errors.Cancelled(ctx.Err(), "fetch")
		}
		return err
	}

	out, err := f.fs.OpenFile(st.tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.FromFS(err, st.tmp)
	}
	for _, seg := range st.segments {
		if err := appendFile(f, out, seg); err != nil {
			_ = out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return errors.FromFS(err, st.tmp)
	}
	st.removeSegments()
	return nil
}

func (f *Fetcher) fetchRange(ctx context.Context, rawURL string, r byteRange, seg string, rep *reporter) error {
	req, err := f.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	req.Header.Set("Range", r.header())
	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return classify(ctx, err, rawURL)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusOK {
		return errRangeIgnored
	}
	if err := checkStatus(resp, rawURL, http.StatusPartialContent); err != nil {
		return err
	}

	n, err := f.writeFile(seg, io.TeeReader(io.LimitReader(resp.Body, r.Len()), progressWriter{rep}))
	if err != nil {
		return classify(ctx, err, rawURL)
	}
	if n != r.Len() {
		return errors.Network(fmt.Errorf("short range %s: got %d of %d bytes", r.header(), n, r.Len()), rawURL)
	}
	return nil
}

func appendFile(f *Fetcher, out io.Writer, path string) error {
	in, err := f.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return errors.FromFS(err, path)
	}
	defer func() {
		_ = in.Close()
	}()
	if _, err := io.Copy(out, in); err != nil {
		return errors.FromFS(err, path)
	}
	return nil
}
