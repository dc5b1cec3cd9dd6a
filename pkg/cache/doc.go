// Package cache keeps resolved metadata records between runs.
//
// Records are CBOR encoded once, on Set, and kept in two tiers: an
// in-memory map of encoded bytes and one file per key on disk. Reads hit
// memory first and fall back to disk, filling memory on the way.
//
// There is no expiry and no per-entry eviction. The whole disk tier is
// tied to a revision string, normally the revision of the metadata
// source, stored in a REVISION file. Opening the cache with a different
// revision discards every entry at once.
package cache
