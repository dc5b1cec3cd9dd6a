// Package fetch retrieves bottle archives into the local store.
//
// A fetch probes the source with HEAD. When the server advertises byte
// ranges and the file is large enough, the transfer is split into up to
// MaxStreams contiguous ranges fetched concurrently into segment files
// and concatenated in order; otherwise one sequential GET is used. Local
// sources (file:// URLs and plain paths) are copied through the same
// pipeline.
//
// Everything is written under a temporary name in the staging directory.
// The digest is computed over the assembled file and only a verified file
// is renamed onto the destination, so the destination never holds partial
// or wrong bytes. Any failure, including cancellation, removes the
// staging files; retrying a fetch is always safe.
//
// Observers see one start event, non-decreasing progress events, and
// exactly one terminal event.
package fetch
