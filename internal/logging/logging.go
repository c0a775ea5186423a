// Package logging builds the zap logger shared by the CLI and the
// pipelines.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level returns the zap level named by name, or debug when verbose is
// set.  An empty name is info.
func Level(name string, verbose bool) (zapcore.Level, error) {
	if verbose {
		return zapcore.DebugLevel, nil
	}
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return lvl, fmt.Errorf("logging: %w", err)
	}
	return lvl, nil
}

// New returns a development style console logger writing to w at the
// given level.  A nil w means stderr.
func New(w io.Writer, name string, verbose bool) (*zap.Logger, error) {

	lvl, err := Level(name, verbose)
	if err != nil {
		return nil, err
	}

	if w == nil {
		w = os.Stderr
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)

	return zap.New(core, zap.AddCaller()), nil
}
