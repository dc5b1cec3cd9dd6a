package config

import (
	"runtime"
	"time"

	"github.com/arthur-debert/kegs/pkg/errors"
)

// Config is the complete engine configuration. It is loaded once and then
// passed explicitly to every component.
type Config struct {
	Root     string         `koanf:"root"`
	Platform PlatformConfig `koanf:"platform"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Project  ProjectConfig  `koanf:"project"`
	Repair   RepairConfig   `koanf:"repair"`
	Cache    CacheConfig    `koanf:"cache"`
}

// PlatformConfig selects which bottles are compatible
type PlatformConfig struct {
	Tags []string `koanf:"tags"`
}

// FetchConfig tunes the archive fetcher
type FetchConfig struct {
	MaxStreams    int           `koanf:"max_streams"`
	ChunkSize     int64         `koanf:"chunk_size"`
	MinRangedSize int64         `koanf:"min_ranged_size"`
	Timeout       time.Duration `koanf:"timeout"`
	UserAgent     string        `koanf:"user_agent"`
}

// ProjectConfig controls project-local dependency sets
type ProjectConfig struct {
	ManifestFile string `koanf:"manifest_file"`
	LocalDir     string `koanf:"local_dir"`
	LockFile     string `koanf:"lock_file"`
	ParentLookup bool   `koanf:"parent_lookup"`
}

// RepairConfig controls the binary repair pass
type RepairConfig struct {
	Editor              string `koanf:"editor"`
	Sign                bool   `koanf:"sign"`
	CodesignPath        string `koanf:"codesign_path"`
	OtoolPath           string `koanf:"otool_path"`
	InstallNameToolPath string `koanf:"install_name_tool_path"`
}

// CacheConfig controls the metadata cache
type CacheConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if c.Fetch.MaxStreams < 1 {
		return errors.Newf(errors.ErrConfigValid, "fetch.max_streams must be at least 1, got %d", c.Fetch.MaxStreams).
			WithDetail("key", "fetch.max_streams")
	}
	if c.Fetch.ChunkSize < 1 {
		return errors.Newf(errors.ErrConfigValid, "fetch.chunk_size must be positive, got %d", c.Fetch.ChunkSize).
			WithDetail("key", "fetch.chunk_size")
	}
	if c.Fetch.Timeout < 0 {
		return errors.New(errors.ErrConfigValid, "fetch.timeout must not be negative").
			WithDetail("key", "fetch.timeout")
	}
	if len(c.Platform.Tags) == 0 {
		return errors.New(errors.ErrConfigValid, "platform.tags must list at least one bottle tag").
			WithDetail("key", "platform.tags")
	}
	switch c.Repair.Editor {
	case "auto", "native", "tools":
	default:
		return errors.Newf(errors.ErrConfigValid, "repair.editor must be auto, native or tools, got %q", c.Repair.Editor).
			WithDetail("key", "repair.editor")
	}
	if c.Project.ManifestFile == "" || c.Project.LocalDir == "" {
		return errors.New(errors.ErrConfigValid, "project.manifest_file and project.local_dir are required").
			WithDetail("key", "project")
	}
	return nil
}

// DefaultPlatformTags derives a bottle tag list for the running target
// when the configuration does not name one.
func DefaultPlatformTags() []string {
	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "darwin/arm64":
		return []string{"arm64_sequoia", "arm64_sonoma", "arm64_ventura"}
	case "darwin/amd64":
		return []string{"sequoia", "sonoma", "ventura"}
	case "linux/arm64":
		return []string{"arm64_linux"}
	default:
		return []string{"x86_64_linux"}
	}
}
