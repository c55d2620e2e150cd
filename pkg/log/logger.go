package log

import (
	"Formpay/config"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var L *zap.Logger

func init() {
	L = build(zap.InfoLevel, zapcore.AddSync(os.Stdout))
}

func encoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		projectName := "Formpay"

		index := strings.Index(caller.File, projectName)
		if index != -1 {
			enc.AppendString(caller.File[index:] + ":" + strconv.Itoa(caller.Line))
		} else {
			enc.AppendString(caller.TrimmedPath())
		}
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func build(level zapcore.Level, ws zapcore.WriteSyncer) *zap.Logger {
	core := zapcore.NewCore(encoder(), ws, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// Setup 按配置重建全局 logger，配置了 file 时同时写入滚动文件
func Setup(conf *config.Log) {
	if conf == nil {
		return
	}
	level := zap.InfoLevel
	if conf.Level != "" {
		if l, err := zapcore.ParseLevel(conf.Level); err == nil {
			level = l
		}
	}

	ws := zapcore.AddSync(os.Stdout)
	if conf.File != "" {
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    conf.MaxSizeMB,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAgeDays,
			Compress:   true,
		}))
	}
	L = build(level, ws)
}
