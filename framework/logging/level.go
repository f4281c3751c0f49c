package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Level is the minimum severity a logger lets through.
type Level int8

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	// OffLevel disables a logger entirely.
	OffLevel
)

var levelNames = map[Level]string{
	TraceLevel: "trace",
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
	OffLevel:   "off",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int8(l))
}

// ParseLevel converts a level name (case-insensitive) to a Level.
// "warning" is accepted for WarnLevel.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		return WarnLevel, nil
	}
	for l, n := range levelNames {
		if n == name {
			return l, nil
		}
	}
	return InfoLevel, fmt.Errorf("logging: unknown level %q", s)
}

// UnmarshalYAML accepts level names.
func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// zapLevel maps to the closest zap level. Fatal maps to Error so a bridged
// entry never exits the process.
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case TraceLevel, DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
