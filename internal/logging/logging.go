// Package logging builds the zap logger every engine package accepts: a
// production config by default, switched to debug level when verbose
// output is requested.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger. debug=true lowers the level to Debug and
// switches to a human-readable console encoder; otherwise a JSON
// production encoder is used, suitable for piping through log
// aggregation.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return cfg.Build()
}

// Nop returns a logger that discards everything, for callers (tests,
// library embedders) that don't want engine output.
func Nop() *zap.Logger { return zap.NewNop() }
