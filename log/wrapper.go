// Package log provides the minimal logging interface used by posixmq.
//
// The facility wrapper only ever logs in contexts that have no return path
// to the caller, like a close failure while cleaning up after a failed open,
// so all it needs is a single function type that whatever logging library
// the application uses can be wrapped into.
package log

import (
	"fmt"
	stdlog "log"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// Wrapper is a simple wrapper of a logging function.
//
// A nil Wrapper is valid and logs nothing, same as NopWrapper.
type Wrapper func(msg string)

// Log calls the wrapped function, handling the nil case.
func (w Wrapper) Log(msg string) {
	if w != nil {
		w(msg)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler, so a Wrapper can be
// used directly in yaml configurations.
//
// It supports the following values:
//
// - "", "nop": NopWrapper
// - "std": StdWrapper over the stdlib default logger
// - "zap": ZapWrapper over a zap production logger
func (w *Wrapper) UnmarshalText(text []byte) error {
	switch s := strings.ToLower(string(text)); s {
	default:
		return fmt.Errorf("log: unsupported wrapper %q", s)
	case "", "nop":
		*w = NopWrapper
	case "std":
		*w = StdWrapper(stdlog.Default())
	case "zap":
		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		*w = ZapWrapper(logger)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler (gopkg.in/yaml.v2 does not go
// through encoding.TextUnmarshaler on its own), accepting the same values
// as UnmarshalText.
func (w *Wrapper) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return w.UnmarshalText([]byte(s))
}

// NopWrapper is a Wrapper implementation that does nothing.
func NopWrapper(msg string) {}

// StdWrapper wraps stdlib log package into a Wrapper.
func StdWrapper(logger *stdlog.Logger) Wrapper {
	if logger == nil {
		return NopWrapper
	}
	return func(msg string) {
		logger.Print(msg)
	}
}

// TestWrapper is a wrapper can be used in test codes.
//
// It fails the test when called.
func TestWrapper(tb testing.TB) Wrapper {
	return func(msg string) {
		tb.Errorf("logger called with msg: %q", msg)
	}
}

// ZapWrapper wraps a zap logger into a Wrapper, logging at error level.
func ZapWrapper(logger *zap.Logger) Wrapper {
	if logger == nil {
		return NopWrapper
	}
	sugared := logger.Sugar()
	return func(msg string) {
		sugared.Error(msg)
	}
}
