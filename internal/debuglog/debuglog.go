// ABOUTME: Debug logger writing to a file in the config directory
// ABOUTME: Keeps structured logs off the terminal so the TUI stays clean

package debuglog

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds a zap logger appending to debug.log under configDir.
// An empty configDir disables logging entirely.
//
// Callers must never pass credentials or tokens as log fields.
func Init(configDir string) (*zap.Logger, error) {
	if configDir == "" {
		return zap.NewNop(), nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return zap.NewNop(), err
	}

	logPath := filepath.Join(configDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return zap.NewNop(), err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zap.DebugLevel)
	return zap.New(core), nil
}
