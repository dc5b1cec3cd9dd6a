package fetch

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/arthur-debert/kegs/pkg/config"
)

// Options tunes a Fetcher
type Options struct {
	// MaxStreams bounds concurrent range transfers
	MaxStreams int
	// ChunkSize is the smallest range worth its own stream
	ChunkSize int64
	// MinRangedSize is the smallest file fetched in ranged mode
	MinRangedSize int64
	// Timeout bounds a whole Fetch call. Zero disables it.
	Timeout   time.Duration
	UserAgent string
	// TmpDir is the staging directory. It must be on the same filesystem
	// as the destinations so the final rename is atomic.
	TmpDir string
	Client *http.Client
}

// DefaultOptions mirrors the embedded configuration defaults
func DefaultOptions() Options {
	return Options{
		MaxStreams:    4,
		ChunkSize:     4 << 20,
		MinRangedSize: 8 << 20,
		Timeout:       10 * time.Minute,
		UserAgent:     "kegs",
	}
}

// OptionsFromConfig builds fetch options from the loaded configuration
func OptionsFromConfig(cfg *config.Config, tmpDir string) Options {
	return Options{
		MaxStreams:    cfg.Fetch.MaxStreams,
		ChunkSize:     cfg.Fetch.ChunkSize,
		MinRangedSize: cfg.Fetch.MinRangedSize,
		Timeout:       cfg.Fetch.Timeout,
		UserAgent:     cfg.Fetch.UserAgent,
		TmpDir:        tmpDir,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxStreams < 1 {
		o.MaxStreams = 1
	}
	if o.ChunkSize < 1 {
		o.ChunkSize = d.ChunkSize
	}
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.Client == nil {
		o.Client = newHTTPClient(o.MaxStreams)
	}
	return o
}

// newHTTPClient has no overall timeout; Fetch applies Options.Timeout
// through the request context instead.
func newHTTPClient(maxStreams int) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			MaxIdleConnsPerHost:   maxStreams,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}
