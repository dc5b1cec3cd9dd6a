// Package archive unpacks bottle archives into a versioned directory.
//
// The compression format is sniffed from magic bytes, so a bottle can be
// gzip, zstd, xz, lz4 or bzip2 compressed, or a bare tar. Extraction is
// all-or-nothing: entries that would land outside the destination, links
// that escape it, and any read or write error abort the extraction and
// remove the destination.
package archive
