// Package hashutil computes and compares content digests for fetched
// archives and installed files.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/zeebo/blake3"
)

// Algorithm names a supported digest function
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// hexLen is the encoded length of both supported digests
const hexLen = 64

// Digest is an algorithm-qualified content hash
type Digest struct {
	Algorithm Algorithm
	Hex       string
}

// IsZero reports whether no digest is set
func (d Digest) IsZero() bool { return d.Hex == "" }

// String renders the digest as "algorithm:hex"
func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return string(d.Algorithm) + ":" + d.Hex
}

// Equal compares algorithm and value
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && d.Hex == other.Hex
}

// ParseDigest accepts "sha256:<hex>", "blake3:<hex>" or a bare 64
// character hex string, which is taken as sha256. An empty string parses
// to the zero Digest.
func ParseDigest(s string) (Digest, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Digest{}, nil
	}
	alg := SHA256
	value := s
	if prefix, rest, found := strings.Cut(s, ":"); found {
		alg = Algorithm(prefix)
		value = rest
	}
	if alg != SHA256 && alg != BLAKE3 {
		return Digest{}, errors.Newf(errors.ErrInvalidInput, "unsupported digest algorithm %q", alg).
			WithDetail("digest", s)
	}
	if len(value) != hexLen {
		return Digest{}, errors.Newf(errors.ErrInvalidInput, "digest must be %d hex characters, got %d", hexLen, len(value)).
			WithDetail("digest", s)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return Digest{}, errors.Wrap(err, errors.ErrInvalidInput, "digest is not hex").
			WithDetail("digest", s)
	}
	return Digest{Algorithm: alg, Hex: value}, nil
}

// NewHasher returns a fresh hash for alg. Unknown algorithms fall back to
// sha256.
func NewHasher(alg Algorithm) hash.Hash {
	if alg == BLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}

// Sum hashes everything read from r
func Sum(alg Algorithm, r io.Reader) (Digest, error) {
	if alg == "" {
		alg = SHA256
	}
	h := NewHasher(alg)
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return Digest{Algorithm: alg, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// FileDigest hashes the file at path
func FileDigest(fs types.FS, path string, alg Algorithm) (Digest, error) {
	f, err := fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return Digest{}, errors.FromFS(err, path)
	}
	defer func() {
		_ = f.Close()
	}()
	d, err := Sum(alg, f)
	if err != nil {
		return Digest{}, errors.FromFS(err, path)
	}
	return d, nil
}

// Verify checks the file at path against expected. A zero expected
// digest always passes.
func Verify(fs types.FS, path string, expected Digest) error {
	if expected.IsZero() {
		return nil
	}
	actual, err := FileDigest(fs, path, expected.Algorithm)
	if err != nil {
		return err
	}
	if !actual.Equal(expected) {
		return errors.ChecksumMismatch(expected.String(), actual.String()).WithDetail("path", path)
	}
	return nil
}
