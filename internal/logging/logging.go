// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger. With debug enabled the level drops
// to Debug and stack traces are attached to warnings.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build(zap.AddStacktrace(zapcore.WarnLevel))
	}
	return cfg.Build()
}
