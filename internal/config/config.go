// Package config handles configuration loading for the conversion tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/woozymasta/rotfarm/internal/output"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the root configuration file structure.
type Config struct {
	Input     string `yaml:"input,omitempty"`
	Output    string `yaml:"output,omitempty"`
	Format    string `yaml:"format,omitempty"`
	SourceCRS string `yaml:"source_crs,omitempty"`
	TargetCRS string `yaml:"target_crs,omitempty"`

	Preview Preview `yaml:"preview,omitempty"`

	Workers     int  `yaml:"workers,omitempty"`
	SkipInvalid bool `yaml:"skip_invalid,omitempty"`
}

// Preview configures the optional WebP preview image.
type Preview struct {
	Path   string `yaml:"path,omitempty"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Fill copies every setting of other that is empty in c.
// Values already present in c win.
func (c *Config) Fill(other Config) {
	fillString(&c.Input, other.Input)
	fillString(&c.Output, other.Output)
	fillString(&c.Format, other.Format)
	fillString(&c.SourceCRS, other.SourceCRS)
	fillString(&c.TargetCRS, other.TargetCRS)
	fillString(&c.Preview.Path, other.Preview.Path)

	if c.Workers <= 0 {
		c.Workers = other.Workers
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = other.Preview.Width
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = other.Preview.Height
	}

	c.SkipInvalid = c.SkipInvalid || other.SkipInvalid
}

// Override is a setting whose value in c replaces a different value in other.
type Override struct {
	Key   string // YAML key
	Value string // value that wins
	Lost  string // value that is ignored
}

// Overrides lists settings present in both c and other with different
// values, in the order Fill applies them. Boolean settings never conflict.
func (c *Config) Overrides(other Config) []Override {
	pairs := []struct {
		key         string
		value, lost string
	}{
		{"input", c.Input, other.Input},
		{"output", c.Output, other.Output},
		{"format", c.Format, other.Format},
		{"source_crs", c.SourceCRS, other.SourceCRS},
		{"target_crs", c.TargetCRS, other.TargetCRS},
		{"preview.path", c.Preview.Path, other.Preview.Path},
		{"workers", positive(c.Workers), positive(other.Workers)},
		{"preview.width", positive(c.Preview.Width), positive(other.Preview.Width)},
		{"preview.height", positive(c.Preview.Height), positive(other.Preview.Height)},
	}

	var list []Override
	for _, p := range pairs {
		if p.value != "" && p.lost != "" && p.value != p.lost {
			list = append(list, Override{Key: p.key, Value: p.value, Lost: p.lost})
		}
	}
	return list
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Validate checks settings that can be verified without touching the filesystem.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("%w: input path is empty", ErrInvalid)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalid)
	}
	if _, err := output.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalid)
	}
	if c.Preview.Width < 0 || c.Preview.Height < 0 {
		return fmt.Errorf("%w: preview size must not be negative", ErrInvalid)
	}

	return nil
}

func fillString(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}
