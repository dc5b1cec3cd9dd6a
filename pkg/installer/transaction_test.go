// pkg/installer/transaction_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: real temp directories
// PURPOSE: Test that rollback restores links and removes created directories

package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/filesystem"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRollback(t *testing.T) {
	fs := filesystem.NewOS()
	dir := t.TempDir()
	oldTarget := filepath.Join(dir, "old")
	newTarget := filepath.Join(dir, "new")
	require.NoError(t, os.WriteFile(oldTarget, nil, 0755))
	require.NoError(t, os.WriteFile(newTarget, nil, 0755))

	replaced := filepath.Join(dir, "bin", "replaced")
	removed := filepath.Join(dir, "bin", "removed")
	created := filepath.Join(dir, "bin", "created")
	require.NoError(t, paths.ReplaceSymlink(fs, oldTarget, replaced))
	require.NoError(t, paths.ReplaceSymlink(fs, oldTarget, removed))

	tx := newTransaction(fs, logging.GetLogger("test"))
	rack := filepath.Join(dir, "Cellar", "tool")
	require.NoError(t, tx.mkdirAll(rack))
	require.NoError(t, tx.createKeg(filepath.Join(rack, "1.0"), "tool", "1.0"))
	require.NoError(t, tx.link(newTarget, replaced))
	require.NoError(t, tx.link(newTarget, created))
	require.NoError(t, tx.unlink(removed))

	err := tx.createKeg(filepath.Join(rack, "1.0"), "tool", "1.0")
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyInstalled))

	tx.rollback()

	got, err := paths.LinkTarget(fs, replaced)
	require.NoError(t, err)
	assert.Equal(t, oldTarget, got)
	got, err = paths.LinkTarget(fs, removed)
	require.NoError(t, err)
	assert.Equal(t, oldTarget, got)

	for _, path := range []string{created, rack} {
		_, err := os.Lstat(path)
		assert.True(t, os.IsNotExist(err), "%s should be gone", path)
	}
}

func TestTransactionLinkRefusesRegularFile(t *testing.T) {
	fs := filesystem.NewOS()
	dir := t.TempDir()
	file := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tx := newTransaction(fs, logging.GetLogger("test"))
	err := tx.link(filepath.Join(dir, "target"), file)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSymlinkFailed))
	assert.Empty(t, tx.undo)
}
