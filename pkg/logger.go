package giga

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the operational logger. With Log.Path set, output goes
// to a rotating file; otherwise to stderr.
func NewLogger(conf Config) *zap.SugaredLogger {
	lvl := zapcore.InfoLevel
	if conf.Log.Debug {
		lvl = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if conf.Log.Path != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.Log.Path,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, lvl)
	return zap.New(core, zap.AddStacktrace(zapcore.FatalLevel)).Sugar()
}
