package logging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the fully merged logging configuration a scope binds under
// ConfigKey.
type Config struct {
	Name      string
	Level     Level
	Formatter Formatter
	Appenders []Appender
	// Chain forwards every entry to the logger of the nearest ancestor scope.
	Chain bool
}

// DefaultConfig is what Provide starts from before applying caller options.
func DefaultConfig() Config {
	return Config{
		Name:      "app",
		Level:     InfoLevel,
		Formatter: TextFormatter{},
		Appenders: []Appender{WriterAppender(os.Stderr)},
		Chain:     false,
	}
}

// Options is a partial Config. A nil field means "keep the default". A
// non-nil empty Appenders slice explicitly selects no appenders.
type Options struct {
	Name      *string
	Level     *Level
	Formatter Formatter
	Appenders []Appender
	Chain     *bool
}

func (o Options) WithName(name string) Options {
	o.Name = &name
	return o
}

func (o Options) WithLevel(l Level) Options {
	o.Level = &l
	return o
}

func (o Options) WithFormatter(f Formatter) Options {
	o.Formatter = f
	return o
}

func (o Options) WithAppenders(a ...Appender) Options {
	o.Appenders = append([]Appender{}, a...)
	return o
}

func (o Options) WithChain(chain bool) Options {
	o.Chain = &chain
	return o
}

// Overlay returns o with every field set in top replacing o's.
func (o Options) Overlay(top Options) Options {
	if top.Name != nil {
		o.Name = top.Name
	}
	if top.Level != nil {
		o.Level = top.Level
	}
	if top.Formatter != nil {
		o.Formatter = top.Formatter
	}
	if top.Appenders != nil {
		o.Appenders = top.Appenders
	}
	if top.Chain != nil {
		o.Chain = top.Chain
	}
	return o
}

// Merge fills every option the caller left unset from defaults. The result
// always carries every recognized option.
func Merge(defaults Config, o Options) Config {
	out := defaults
	out.Appenders = append([]Appender(nil), defaults.Appenders...)
	if o.Name != nil {
		out.Name = *o.Name
	}
	if o.Level != nil {
		out.Level = *o.Level
	}
	if o.Formatter != nil {
		out.Formatter = o.Formatter
	}
	if o.Appenders != nil {
		out.Appenders = append([]Appender{}, o.Appenders...)
	}
	if o.Chain != nil {
		out.Chain = *o.Chain
	}
	return out
}

// ── Untyped sources ─────────────────────────────────────────────────────────

// ErrUnknownOption is matched by every *UnknownOptionError.
var ErrUnknownOption = errors.New("logging: unknown option")

// UnknownOptionError reports an option name outside the recognized set.
type UnknownOptionError struct {
	Key string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("logging: unknown option %q (recognized: name, level, formatter, appenders, chain)", e.Key)
}

func (e *UnknownOptionError) Is(target error) bool { return target == ErrUnknownOption }

// OptionsFromMap converts loosely typed options, such as those decoded
// from a config file, and rejects unrecognized keys.
func OptionsFromMap(m map[string]any) (Options, error) {
	var o Options
	for key, raw := range m {
		switch key {
		case "name":
			s, ok := raw.(string)
			if !ok {
				return Options{}, optionType(key, raw)
			}
			o = o.WithName(s)
		case "level":
			switch v := raw.(type) {
			case Level:
				o = o.WithLevel(v)
			case string:
				l, err := ParseLevel(v)
				if err != nil {
					return Options{}, err
				}
				o = o.WithLevel(l)
			default:
				return Options{}, optionType(key, raw)
			}
		case "formatter":
			f, err := AsFormatter(raw)
			if err != nil {
				return Options{}, err
			}
			o.Formatter = f
		case "appenders":
			appenders, err := toAppenders(raw)
			if err != nil {
				return Options{}, err
			}
			o.Appenders = appenders
		case "chain":
			b, ok := raw.(bool)
			if !ok {
				return Options{}, optionType(key, raw)
			}
			o = o.WithChain(b)
		default:
			return Options{}, &UnknownOptionError{Key: key}
		}
	}
	return o, nil
}

func toAppenders(raw any) ([]Appender, error) {
	switch v := raw.(type) {
	case []Appender:
		return append([]Appender{}, v...), nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return toAppenders(items)
	case []any:
		out := make([]Appender, 0, len(v))
		for _, item := range v {
			a, err := AsAppender(item)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	default:
		a, err := AsAppender(raw)
		if err != nil {
			return nil, err
		}
		return []Appender{a}, nil
	}
}

func optionType(key string, v any) error {
	return fmt.Errorf("logging: option %q has unsupported type %T", key, v)
}

var knownOptions = map[string]bool{
	"name":      true,
	"level":     true,
	"formatter": true,
	"appenders": true,
	"chain":     true,
}

// fileOptions is the on-disk shape of a logging options file.
type fileOptions struct {
	Name      *string  `yaml:"name"`
	Level     *Level   `yaml:"level"`
	Formatter *string  `yaml:"formatter"`
	Appenders []string `yaml:"appenders"`
	Chain     *bool    `yaml:"chain"`
}

// LoadOptions reads a YAML options file. Unknown keys are rejected with
// *UnknownOptionError.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("logging: read %s: %w", path, err)
	}
	return DecodeOptions(bytes.NewReader(data))
}

// DecodeOptions is LoadOptions for an already open source.
func DecodeOptions(r io.Reader) (Options, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Options{}, nil
		}
		return Options{}, fmt.Errorf("logging: decode options: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return Options{}, fmt.Errorf("logging: options must be a mapping, line %d", root.Line)
	}
	for i := 0; i < len(root.Content); i += 2 {
		if key := root.Content[i].Value; !knownOptions[key] {
			return Options{}, &UnknownOptionError{Key: key}
		}
	}

	var fo fileOptions
	if err := root.Decode(&fo); err != nil {
		return Options{}, fmt.Errorf("logging: decode options: %w", err)
	}

	o := Options{Name: fo.Name, Level: fo.Level, Chain: fo.Chain}
	if fo.Formatter != nil {
		f, err := FormatterByName(*fo.Formatter)
		if err != nil {
			return Options{}, err
		}
		o.Formatter = f
	}
	if fo.Appenders != nil {
		appenders, err := toAppenders(fo.Appenders)
		if err != nil {
			return Options{}, err
		}
		o.Appenders = appenders
	}
	return o, nil
}
