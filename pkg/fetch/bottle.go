package fetch

import (
	"context"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/internal/hashutil"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
)

// FetchBottle retrieves the preferred bottle of formula for tags into
// the layout's download cache and returns its path. A cached file that
// still verifies is reused without touching the network. Failures are
// returned as-is; retry policy belongs to the caller.
func (f *Fetcher) FetchBottle(ctx context.Context, formula *types.Formula, tags []string, layout paths.Layout, observer types.FetchObserver) (string, types.Bottle, error) {
	bottle, ok := formula.PreferredBottle(tags)
	if !ok {
		return "", types.Bottle{}, errors.Newf(errors.ErrNotFound, "no bottle of %s for %v", formula.Name, tags).
			WithDetail("name", formula.Name).
			WithDetail("tags", tags)
	}
	expected, err := hashutil.ParseDigest(bottle.Digest)
	if err != nil {
		return "", bottle, err
	}

	dest := layout.BottlePath(formula.Name, formula.PkgVersion(), bottle.PlatformTag)
	if info, statErr := f.fs.Stat(dest); statErr == nil && !expected.IsZero() {
		if hashutil.Verify(f.fs, dest, expected) == nil {
			f.logger.Debug().Str("path", dest).Msg("using cached bottle")
			rep := newReporter(bottle.URL, observer)
			rep.start(info.Size())
			rep.add(info.Size())
			rep.complete()
			return dest, bottle, nil
		}
	}

	req := Request{URL: bottle.URL, Destination: dest, Expected: expected}
	if err := f.Fetch(ctx, req, observer); err != nil {
		return "", bottle, err
	}
	return dest, bottle, nil
}
