// Copyright 2017, Kerby Shedden and the Muscato contributors.
// Copyright 2026, the ReadChop contributors.

package utils

import (
	"encoding/json"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cherryamme/ReadChop/errs"
)

// MatchMode selects between single-end and dual-end barcode matching.
type MatchMode string

const (
	MatchSingle MatchMode = "single"
	MatchDual   MatchMode = "dual"
)

// WriteType selects how an output key is derived from a classification.
type WriteType string

const (
	WriteNames   WriteType = "names"
	WriteSampleType WriteType = "type"
)

// Config is the enumerated set of run options recognized by the core
// (spec.md §3, RunConfig). Field names are exported and flat, following
// the teacher's utils.Config convention; each field carries matching json
// and toml tags so the same struct round-trips through JSON and TOML.
type Config struct {
	// Required invocation surface.
	Inputs       []string `json:"inputs" toml:"inputs"`
	PatternDB    string   `json:"pattern_db" toml:"pattern_db"`
	PatternIndex string   `json:"pattern_index" toml:"pattern_index"`
	OutDir       string   `json:"outdir" toml:"outdir"`

	// Pipeline sizing.
	Threads int `json:"threads" toml:"threads"`

	// Matching and classification.
	MinLength   int       `json:"min_length" toml:"min_length"`
	WindowLeft  int       `json:"window_left" toml:"window_left"`
	WindowRight int       `json:"window_right" toml:"window_right"`
	ErrorRateL  float64   `json:"error_rate_left" toml:"error_rate_left"`
	ErrorRateR  float64   `json:"error_rate_right" toml:"error_rate_right"`
	MatchMode   MatchMode `json:"match_mode" toml:"match_mode"`
	TrimMode    int       `json:"trim_mode" toml:"trim_mode"`
	WriteType   WriteType `json:"write_type" toml:"write_type"`
	UsePosition bool      `json:"use_position" toml:"use_position"`
	Shift       int       `json:"shift" toml:"shift"`
	MaxDist     int       `json:"maxdist" toml:"maxdist"`
	IDSep       string    `json:"id_sep" toml:"id_sep"`

	// Ambient, not in spec.md's RunConfig table but needed to run:
	// opt-in CPU profiling (teacher's CPUProfile flag) and an optional
	// on-disk catalog cache directory (teacher's snappy-cached
	// intermediates).
	CPUProfile bool   `json:"cpu_profile" toml:"cpu_profile"`
	CacheDir   string `json:"cache_dir" toml:"cache_dir"`
}

// ApplyDefaults fills unset fields with the defaults listed in spec.md §6.
func (c *Config) ApplyDefaults() {
	if c.Threads == 0 {
		c.Threads = 20
	}
	if c.MinLength == 0 {
		c.MinLength = 100
	}
	if c.WindowLeft == 0 && c.WindowRight == 0 {
		c.WindowLeft, c.WindowRight = 400, 400
	}
	if c.ErrorRateL == 0 && c.ErrorRateR == 0 {
		c.ErrorRateL, c.ErrorRateR = 0.2, 0.2
	}
	if c.MatchMode == "" {
		c.MatchMode = MatchSingle
	}
	if c.WriteType == "" {
		c.WriteType = WriteSampleType
	}
	if c.Shift == 0 {
		c.Shift = 3
	}
	if c.MaxDist == 0 {
		c.MaxDist = 4
	}
	if c.IDSep == "" {
		c.IDSep = "%"
	}
}

// Validate checks the option values for internal consistency, returning an
// *errs.ConfigError describing the first problem found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errs.NewConfigError("at least one input file is required")
	}
	if c.PatternDB == "" {
		return errs.NewConfigError("pattern_db is required")
	}
	if c.PatternIndex == "" {
		return errs.NewConfigError("pattern_index is required")
	}
	if c.OutDir == "" {
		return errs.NewConfigError("outdir is required")
	}
	if c.Threads < 1 {
		return errs.NewConfigError("threads must be >= 1, got %d", c.Threads)
	}
	if c.MinLength < 0 {
		return errs.NewConfigError("min_length must be >= 0, got %d", c.MinLength)
	}
	if c.WindowLeft < 0 || c.WindowRight < 0 {
		return errs.NewConfigError("window_size components must be >= 0")
	}
	if c.ErrorRateL < 0 || c.ErrorRateL > 1 || c.ErrorRateR < 0 || c.ErrorRateR > 1 {
		return errs.NewConfigError("error_rate components must be in [0,1]")
	}
	if c.MatchMode != MatchSingle && c.MatchMode != MatchDual {
		return errs.NewConfigError("match_mode must be 'single' or 'dual', got %q", c.MatchMode)
	}
	if c.TrimMode < 0 {
		return errs.NewConfigError("trim_mode must be >= 0, got %d", c.TrimMode)
	}
	if c.WriteType != WriteNames && c.WriteType != WriteSampleType {
		return errs.NewConfigError("write_type must be 'names' or 'type', got %q", c.WriteType)
	}
	if c.Shift < 0 {
		return errs.NewConfigError("shift must be >= 0, got %d", c.Shift)
	}
	if c.MaxDist < 0 {
		return errs.NewConfigError("maxdist must be >= 0, got %d", c.MaxDist)
	}
	if len(c.IDSep) != 1 {
		return errs.NewConfigError("id_sep must be a single character, got %q", c.IDSep)
	}
	return nil
}

// ReadConfig loads a JSON configuration file, following the teacher's
// utils.ReadConfig.
func ReadConfig(path string) (*Config, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, errs.NewIoError(path, err)
	}
	defer fid.Close()

	config := new(Config)
	dec := json.NewDecoder(fid)
	if err := dec.Decode(config); err != nil {
		return nil, errs.NewConfigError("failed to parse JSON config %s: %v", path, err)
	}
	return config, nil
}

// ReadConfigTOML loads a TOML configuration file, using the same library
// the teacher uses for its tests.toml fixtures (tests/test.go).
func ReadConfigTOML(path string) (*Config, error) {
	config := new(Config)
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, errs.NewConfigError("failed to parse TOML config %s: %v", path, err)
	}
	return config, nil
}
