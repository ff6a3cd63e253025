package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource []byte

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &Error{File: path, Message: "unsupported extension (want .yaml, .yml or .cue)"}
	}
}

// Load reads, normalizes and validates the configuration at path.
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes data in the given format. name is used in error messages.
func Parse(data []byte, format Format, name string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch format {
	case FormatYAML:
		cfg, err = parseYAML(data, name)
	case FormatCUE:
		cfg, err = parseCUE(data, name)
	default:
		return nil, &Error{File: name, Message: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		var ce *Error
		if errors.As(err, &ce) && ce.File == "" {
			ce.File = name
		}
		return nil, err
	}
	return cfg, nil
}

func parseYAML(data []byte, name string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{File: name, Message: "empty configuration"}
		}
		return nil, &Error{File: name, Message: "invalid YAML", Err: err}
	}
	return &cfg, nil
}

func parseCUE(data []byte, name string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, cueError(name, "invalid CUE", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(name, "does not match schema", err)
	}

	raw, err := unified.MarshalJSON()
	if err != nil {
		return nil, cueError(name, "cannot export", err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, &Error{File: name, Message: "cannot decode", Err: err}
	}
	return &cfg, nil
}

func cueError(name, msg string, err error) *Error {
	ce := &Error{File: name, Message: msg, Err: err}
	for _, pos := range cueerrors.Positions(err) {
		if pos.Filename() == name {
			ce.Line = pos.Line()
			break
		}
	}
	return ce
}
