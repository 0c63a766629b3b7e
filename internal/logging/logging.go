// Package logging builds the engine's structured logger, replacing
// vulkan-go-asche's three separate info/warn/error *log.Logger files
// (vulkan-go-asche/core.go) with one zap logger split across a
// human-readable console core and a JSON file core.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the engine logger. debug enables console debug-level output
// and caller annotations; the JSON file sink always runs at Info level
// and above, mirroring vulkan-go-asche's separate info/warn/error files as
// one leveled stream instead of three.
func New(debug bool, logFile string) (*zap.Logger, error) {
	consoleLevel := zapcore.InfoLevel
	if debug {
		consoleLevel = zapcore.DebugLevel
	}

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		consoleLevel,
	)

	cores := []zapcore.Core{consoleCore}
	if logFile != "" {
		sink, _, err := zap.Open(logFile)
		if err != nil {
			return nil, err
		}
		jsonCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			sink,
			zapcore.InfoLevel,
		)
		cores = append(cores, jsonCore)
	}

	core := zapcore.NewTee(cores...)
	opts := []zap.Option{zap.AddCaller()}
	if debug {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...), nil
}
