package repair

import (
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
)

// Signer applies a signature to a modified binary
type Signer interface {
	Sign(path string) error
}

// CodesignSigner strips the existing signature and applies an ad-hoc one
type CodesignSigner struct {
	Codesign string
	Run      Runner
}

// NewCodesignSigner runs the codesign binary at path
func NewCodesignSigner(path string) CodesignSigner {
	return CodesignSigner{Codesign: path, Run: ExecRunner}
}

// Sign removes any signature then signs ad hoc
func (s CodesignSigner) Sign(path string) error {
	// Unsigned binaries make --remove-signature fail; the forced sign
	// below is what matters
	_, _ = s.Run(s.Codesign, "--remove-signature", path)
	if out, err := s.Run(s.Codesign, "--force", "--sign", "-", path); err != nil {
		return errors.Wrapf(err, errors.ErrRepairFailed, "codesign failed: %s", strings.TrimSpace(string(out))).
			WithDetail("path", path)
	}
	return nil
}

// NopSigner is used where binaries carry no signatures
type NopSigner struct{}

func (NopSigner) Sign(string) error { return nil }
