// Package logging builds the zap logger shared by every component.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w. With debug set it logs
// everything with timestamps; otherwise only warnings and errors, without
// timestamps, so failures stay diagnosable.
func New(debug bool, w io.Writer) *zap.Logger {
	if w == nil {
		return zap.NewNop()
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	level := zapcore.WarnLevel
	if debug {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		level = zapcore.DebugLevel
	} else {
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}
