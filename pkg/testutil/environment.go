// pkg/testutil/environment.go
// DEPENDENCIES: filesystem, paths
// PURPOSE: Orchestrate isolated kegs roots for tests

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/kegs/pkg/filesystem"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Env is an isolated kegs installation rooted in a temp directory
type Env struct {
	// Base is the temp directory everything lives in
	Base string
	// Root is the global root
	Root   string
	Layout paths.Layout
	Paths  *paths.Paths
	FS     types.FS

	t *testing.T
}

// NewEnv creates an isolated global root with its directory skeleton.
// The system PATH layer is disabled so host binaries never leak into
// resolution.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	base := t.TempDir()
	// macOS temp dirs live behind a /var -> /private/var link
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	root := filepath.Join(base, "root")
	fs := filesystem.NewOS()

	env := &Env{
		Base: base,
		Root: root,
		FS:   fs,
		Paths: paths.New(paths.Options{
			Root:         root,
			ParentLookup: true,
			SystemPath:   []string{},
			FS:           fs,
		}),
		t: t,
	}
	env.Layout = env.Paths.Global()
	if err := env.Layout.EnsureDirs(fs); err != nil {
		t.Fatalf("Failed to create root skeleton: %v", err)
	}
	return env
}

// Path joins elements onto the env's base directory
func (env *Env) Path(elem ...string) string {
	return filepath.Join(append([]string{env.Base}, elem...)...)
}

// WithFileTree creates a complete file tree under base
func (env *Env) WithFileTree(base string, tree FileTree) {
	env.t.Helper()
	createFileTree(env.t, env.FS, base, tree)
}

// WriteExecutable writes an executable file, creating parent directories
func (env *Env) WriteExecutable(path, content string) {
	env.t.Helper()
	if err := env.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
		env.t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := env.FS.WriteFile(path, []byte(content), 0755); err != nil {
		env.t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// MakeProject marks dir as a project by writing a manifest into it
func (env *Env) MakeProject(dir, manifest string) {
	env.t.Helper()
	env.WithFileTree(dir, FileTree{"kegs.toml": manifest})
}

// FileTree represents a directory structure for testing. Values are
// either file contents (string) or nested FileTrees.
type FileTree map[string]interface{}

// createFileTree recursively creates a file tree
func createFileTree(t *testing.T, fs types.FS, basePath string, tree FileTree) {
	t.Helper()

	if err := fs.MkdirAll(basePath, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", basePath, err)
	}
	for name, content := range tree {
		fullPath := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			if err := fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
				t.Fatalf("Failed to create directory for %s: %v", fullPath, err)
			}
			if err := fs.WriteFile(fullPath, []byte(v), 0644); err != nil {
				t.Fatalf("Failed to write file %s: %v", fullPath, err)
			}
		case FileTree:
			createFileTree(t, fs, fullPath, v)
		default:
			t.Fatalf("Invalid file tree content type for %s: %T", name, content)
		}
	}
}
