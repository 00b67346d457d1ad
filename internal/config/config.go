// Package config loads the binforge configuration file.
//
// The file is TOML by default; .yaml and .yml files are read as YAML with the
// same keys. Relative paths are resolved against the file's directory. The
// loaded Config is treated as immutable and passed explicitly to the stages.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks fatal setup problems: a missing or malformed file,
// an unknown backend, a missing source root or an empty compiler table.
var ErrConfiguration = errors.New("configuration error")

// DefaultFile is looked up in the working directory when --config is not given.
const DefaultFile = "binforge.toml"

const (
	defaultSourceExt = ".cpp"
	defaultBinaryExt = "exe"
	defaultPacker    = `upx --best -k --le -o "{{.Output}}" "{{.Input}}"`
)

// Config is the whole configuration file.
type Config struct {
	Path string `toml:"-" yaml:"-"`

	Jobs      int    `toml:"jobs" yaml:"jobs"`
	SourceExt string `toml:"source_ext" yaml:"source_ext"`
	BinaryExt string `toml:"binary_ext" yaml:"binary_ext"`
	Seed      uint64 `toml:"seed" yaml:"seed"`

	Paths     Paths                     `toml:"paths" yaml:"paths"`
	Compilers map[string]CompilerConfig `toml:"compilers" yaml:"compilers"`
	Packer    PackerConfig              `toml:"packer" yaml:"packer"`
	Dedup     DedupConfig               `toml:"dedup" yaml:"dedup"`
	Ingest    IngestConfig              `toml:"ingest" yaml:"ingest"`
}

// Paths lists the directory roots of the pipeline.
type Paths struct {
	NormalSrc     string `toml:"normal_src" yaml:"normal_src"`
	ObfuscatedSrc string `toml:"obfuscated_src" yaml:"obfuscated_src"`
	Compiled      string `toml:"compiled" yaml:"compiled"`
	Packed        string `toml:"packed" yaml:"packed"`
	Submissions   string `toml:"submissions" yaml:"submissions"`
}

// CompilerConfig describes one compiler backend.
//
// The catalog is either an ordered toggles list or an options table keyed by
// option name (sampled in name order). With neither, the backend default
// catalog is used; an explicit empty toggles list means no toggles.
type CompilerConfig struct {
	Kind     string                         `toml:"kind" yaml:"kind"`
	Binary   string                         `toml:"binary" yaml:"binary"`
	Fallback []string                       `toml:"fallback" yaml:"fallback"`
	Toggles  []ToggleConfig                 `toml:"toggles" yaml:"toggles"`
	Options  map[string]map[string][]string `toml:"options" yaml:"options"`
}

// ToggleConfig is one catalog entry.
type ToggleConfig struct {
	Name   string        `toml:"name" yaml:"name"`
	Kind   string        `toml:"kind" yaml:"kind"`
	Values []string      `toml:"values" yaml:"values"`
	Params []ParamConfig `toml:"params" yaml:"params"`
}

// ParamConfig is a toggle sub-parameter.
type ParamConfig struct {
	Key    string   `toml:"key" yaml:"key"`
	Values []string `toml:"values" yaml:"values"`
}

// PackerConfig configures the packing stage.
type PackerConfig struct {
	// Command is a text/template over {{.Input}} and {{.Output}}.
	Command  string `toml:"command" yaml:"command"`
	Parallel bool   `toml:"parallel" yaml:"parallel"`
	// Input is the tree to pack; defaults to {compiled}/obfuscated.
	Input  string `toml:"input" yaml:"input"`
	Suffix string `toml:"suffix" yaml:"suffix"`
}

// DedupConfig selects the dedup store.
type DedupConfig struct {
	Backend string `toml:"backend" yaml:"backend"` // sqlite | msgpack | memory
	Path    string `toml:"path" yaml:"path"`
}

// IngestConfig locates the submission dumps.
type IngestConfig struct {
	Archives string `toml:"archives" yaml:"archives"` // gcj<year>.csv[.tar.bz2]
	Names    string `toml:"names" yaml:"names"`       // gcj<year>.txt
	Extract  string `toml:"extract" yaml:"extract"`   // where archives are unpacked
	Years    []int  `toml:"years" yaml:"years"`
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrConfiguration, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.Path = abs
	cfg.resolvePaths(filepath.Dir(abs))
	return cfg, nil
}

// Format is the syntax of a configuration file.
type Format uint8

const (
	// FormatTOML is the default syntax.
	FormatTOML Format = iota
	// FormatYAML is selected by a .yaml or .yml extension.
	FormatYAML
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Parse decodes data, applies defaults and validates the result. Unknown keys
// are rejected.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrConfiguration, err)
		}
	default:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse TOML: %v", ErrConfiguration, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("%w: unknown keys: %s", ErrConfiguration, strings.Join(keys, ", "))
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.SourceExt) == "" {
		c.SourceExt = defaultSourceExt
	}
	if !strings.HasPrefix(c.SourceExt, ".") {
		c.SourceExt = "." + c.SourceExt
	}
	c.BinaryExt = strings.TrimPrefix(strings.TrimSpace(c.BinaryExt), ".")
	if c.BinaryExt == "" {
		c.BinaryExt = defaultBinaryExt
	}
	if strings.TrimSpace(c.Packer.Command) == "" {
		c.Packer.Command = defaultPacker
	}
	if c.Packer.Suffix == "" {
		c.Packer.Suffix = "-packed"
	}
	if c.Packer.Input == "" && c.Paths.Compiled != "" {
		c.Packer.Input = filepath.Join(c.Paths.Compiled, "obfuscated")
	}
	if c.Dedup.Backend == "" {
		c.Dedup.Backend = "sqlite"
	}
	if c.Dedup.Path == "" {
		switch c.Dedup.Backend {
		case "msgpack":
			c.Dedup.Path = "gcj_data.msgpack"
		case "sqlite":
			c.Dedup.Path = "gcj_data.db"
		}
	}
	if c.Ingest.Extract == "" && c.Ingest.Archives != "" {
		c.Ingest.Extract = c.Ingest.Archives
	}
}

// Validate checks what can be checked without touching the filesystem.
func (c *Config) Validate() error {
	if c.Jobs < 0 {
		return fmt.Errorf("%w: jobs must be >= 0 (0 means one per core)", ErrConfiguration)
	}
	if len(c.Compilers) == 0 {
		return fmt.Errorf("%w: no compilers configured", ErrConfiguration)
	}
	if strings.TrimSpace(c.Paths.Compiled) == "" {
		return fmt.Errorf("%w: missing [paths].compiled", ErrConfiguration)
	}
	switch c.Dedup.Backend {
	case "sqlite", "msgpack", "memory":
	default:
		return fmt.Errorf("%w: unknown dedup backend %q (expected sqlite|msgpack|memory)", ErrConfiguration, c.Dedup.Backend)
	}
	if _, err := c.CompilerSet(); err != nil {
		return err
	}
	return nil
}

// resolvePaths makes every relative path relative to dir.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.Paths.NormalSrc, &c.Paths.ObfuscatedSrc, &c.Paths.Compiled,
		&c.Paths.Packed, &c.Paths.Submissions,
		&c.Packer.Input, &c.Dedup.Path,
		&c.Ingest.Archives, &c.Ingest.Names, &c.Ingest.Extract,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
