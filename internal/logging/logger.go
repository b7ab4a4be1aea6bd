// Package logging builds the zap loggers used by the CLI and the sweep harness.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr at the given level. With json unset
// the console encoder is used.
func New(level string, json bool) (*zap.Logger, error) {
	config, err := Config(level, json)
	if err != nil {
		return nil, err
	}
	return config.Build()
}

// Config is the zap configuration behind New. Sampling is on at info and
// above; at debug every entry is kept, since step traces share one message.
func Config(level string, json bool) (zap.Config, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, err
	}

	encoding := "console"
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if json {
		encoding = "json"
		encoderConfig = zap.NewProductionEncoderConfig()
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	if lvl > zapcore.DebugLevel {
		config.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}
	return config, nil
}

func Nop() *zap.Logger {
	return zap.NewNop()
}
