package filesystem

import (
	"github.com/spf13/afero"

	"github.com/arthur-debert/kegs/pkg/types"
)

// NewOS creates a new OS filesystem implementation
func NewOS() types.FS {
	return New(afero.NewOsFs())
}
