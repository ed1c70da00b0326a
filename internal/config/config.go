// Package config loads the objscope configuration file.
//
// A file is first validated against an embedded CUE schema, then decoded
// strictly with yaml.v3 on top of the built-in defaults. A missing file
// yields the defaults unchanged.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/build"
)

//go:embed schema.cue
var schemaSource string

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "objscope.yaml"

// Config is the decoded configuration.
type Config struct {
	Toolchain          Toolchain `yaml:"toolchain"`
	Sources            Sources   `yaml:"sources"`
	Levels             Levels    `yaml:"levels"`
	Timeouts           Timeouts  `yaml:"timeouts"`
	Artifacts          Artifacts `yaml:"artifacts"`
	ExpressionCompiler string    `yaml:"expression_compiler"`
	Database           string    `yaml:"database"`

	// Path is the file the config was loaded from; empty for defaults.
	Path string `yaml:"-"`
}

type Toolchain struct {
	Compiler     string   `yaml:"compiler"`
	CompileFlags []string `yaml:"compile_flags"`
	Linker       string   `yaml:"linker"`
	Disassembler string   `yaml:"disassembler"`
	Symbols      string   `yaml:"symbols"`
	Sections     string   `yaml:"sections"`
	Size         string   `yaml:"size"`
}

type Sources struct {
	Extension string `yaml:"extension"`
	EntryUnit string `yaml:"entry_unit"`
}

type Levels struct {
	O0 string `yaml:"O0"`
	O2 string `yaml:"O2"`
}

type Timeouts struct {
	Build      Duration `yaml:"build"`
	Introspect Duration `yaml:"introspect"`
	Expression Duration `yaml:"expression"`
}

type Artifacts struct {
	Dir      string `yaml:"dir"`
	BaseName string `yaml:"base_name"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration: GNU toolchain on PATH,
// artifacts under ./artifacts.
func Default() *Config {
	b := build.DefaultOptions()
	return &Config{
		Toolchain: Toolchain{
			Compiler:     b.Compiler,
			CompileFlags: append([]string(nil), b.CompileFlags...),
			Linker:       b.Linker,
			Disassembler: analysis.DefaultTools.Disassembler,
			Symbols:      analysis.DefaultTools.SymbolDumper,
			Sections:     analysis.DefaultTools.SectionDumper,
			Size:         analysis.DefaultTools.SizeReporter,
		},
		Sources: Sources{Extension: b.Extension, EntryUnit: b.EntryUnit},
		Levels: Levels{
			O0: b.Levels[artifact.Unoptimized],
			O2: b.Levels[artifact.Optimized],
		},
		Timeouts: Timeouts{
			Build:      Duration(b.Timeout),
			Introspect: Duration(analysis.DefaultTimeout),
			Expression: Duration(10 * time.Second),
		},
		Artifacts:          Artifacts{Dir: "artifacts", BaseName: "compiler"},
		ExpressionCompiler: "./compiler/compiler",
		Database:           filepath.Join("artifacts", "history.db"),
	}
}

// Error reports an invalid configuration file.
type Error struct {
	Path   string
	Issues []string
}

func (e *Error) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("invalid config %s: %s", e.Path, e.Issues[0])
	}
	return fmt.Sprintf("invalid config %s: %d problems, first: %s", e.Path, len(e.Issues), e.Issues[0])
}

// IsInvalid reports whether err is a *config.Error.
func IsInvalid(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Load reads path. An empty path tries DefaultFile and falls back to
// Default() if it does not exist; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse validates data against the schema and decodes it over the defaults.
// name is used in error messages only.
func Parse(name string, data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := validate(name, data); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &Error{Path: name, Issues: []string{err.Error()}}
	}
	return cfg, nil
}

func validate(name string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return errors.Wrap(err, "compile config schema")
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return &Error{Path: name, Issues: []string{err.Error()}}
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return &Error{Path: name, Issues: issues(err)}
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &Error{Path: name, Issues: issues(err)}
	}
	return nil
}

func issues(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

// BuildOptions converts the toolchain settings for the build orchestrator.
func (c *Config) BuildOptions() build.Options {
	return build.Options{
		Compiler:     c.Toolchain.Compiler,
		CompileFlags: c.Toolchain.CompileFlags,
		Linker:       c.Toolchain.Linker,
		Levels: map[artifact.Tag]string{
			artifact.Unoptimized: c.Levels.O0,
			artifact.Optimized:   c.Levels.O2,
		},
		Extension: c.Sources.Extension,
		EntryUnit: c.Sources.EntryUnit,
		Timeout:   c.Timeouts.Build.Std(),
	}
}

// AnalysisTools returns the introspection tool names.
func (c *Config) AnalysisTools() analysis.Tools {
	return analysis.Tools{
		Disassembler:  c.Toolchain.Disassembler,
		SymbolDumper:  c.Toolchain.Symbols,
		SectionDumper: c.Toolchain.Sections,
		SizeReporter:  c.Toolchain.Size,
	}
}

// Descriptor places the artifacts according to the config.
func (c *Config) Descriptor() artifact.Descriptor {
	return artifact.NewDescriptor(c.Artifacts.Dir, c.Artifacts.BaseName)
}
