// Package config loads the YAML run profile for a DST-and-clean pass:
// error budget, realloc policy, the pass-through override and the
// neighborhood-verify range. Everything has a zero-value-safe default so an absent or
// partial file still produces a usable Config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the run profile consumed by package clean and, where the
// fields overlap, package repair's Options.
type Config struct {
	// ErrorLimit bounds how many distinct bad LBAs a single clean.Run
	// pass will accumulate before giving up (spec.md §4.7). Must be >= 1;
	// Load rewrites 0 to 1 rather than rejecting it, since the caller
	// most likely just omitted the key.
	ErrorLimit int `yaml:"error_limit"`

	// AutoReadRealloc and AutoWriteRealloc gate repair.Engine's Step 3/4
	// shortcuts (spec.md §4.6).
	AutoReadRealloc  bool `yaml:"auto_read_realloc"`
	AutoWriteRealloc bool `yaml:"auto_write_realloc"`

	// ForcePassthrough sends repair.Engine straight to its pass-through
	// write-and-verify branch, bypassing the realloc attempts, on devices
	// that support ATA pass-through; other devices take the normal path.
	ForcePassthrough bool `yaml:"force_passthrough"`

	// NeighborhoodRadius and NeighborhoodMaxRange override the
	// ±5000/≤10000 defaults clean.Run uses for post-repair verification
	// (spec.md §4.7 step 6).
	NeighborhoodRadius   uint64 `yaml:"neighborhood_radius"`
	NeighborhoodMaxRange uint64 `yaml:"neighborhood_max_range"`
}

// Default returns the Config a bare-minimum, conservative run would
// use if no file is supplied: a single-LBA error budget and both
// realloc shortcuts enabled, matching spec.md §4.7's "default to
// write-realloc-enabled on query failure" fallback.
func Default() Config {
	return Config{
		ErrorLimit:           1,
		AutoReadRealloc:      true,
		AutoWriteRealloc:     true,
		NeighborhoodRadius:   5000,
		NeighborhoodMaxRange: 10000,
	}
}

// Load reads and decodes the YAML config at path, applying Default's
// values to any field the file leaves unset. A missing file is not an
// error — it returns Default() unchanged, since dstctl is expected to
// run from a bare `setcap`'d binary with no config directory at all.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if cfg.ErrorLimit < 1 {
		cfg.ErrorLimit = 1
	}
	if cfg.NeighborhoodRadius == 0 {
		cfg.NeighborhoodRadius = 5000
	}
	if cfg.NeighborhoodMaxRange == 0 {
		cfg.NeighborhoodMaxRange = 10000
	}

	return cfg, nil
}
