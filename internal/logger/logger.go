package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志模式
const (
	ModeDebug   = "debug"
	ModeRelease = "release"
)

// Options 日志文件配置，零值字段使用默认值
type Options struct {
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// withDefaults 补齐文件名与滚动参数，目录默认 ~/.config/paid/logs
func (o Options) withDefaults() Options {
	o.Dir = strings.TrimSpace(o.Dir)
	if o.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			o.Dir = filepath.Join(home, ".config", "paid", "logs")
		} else {
			o.Dir = filepath.Join(os.TempDir(), "paid-logs")
		}
	}
	o.Filename = strings.TrimSpace(o.Filename)
	if o.Filename == "" {
		o.Filename = "paid.log"
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 10
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 3
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = 14
	}
	return o
}

// L 全局结构化日志实例
var L *zap.Logger

var (
	fallbackOnce sync.Once
	fallbackLog  *zap.Logger
)

// Init 初始化全局日志
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

// New 创建日志实例
// stdout 只输出命令结果：debug 模式写 stderr，release 模式写滚动文件，文件不可写时只把告警写到 stderr。
func New(mode string, options Options) *zap.Logger {
	var core zapcore.Core
	if strings.EqualFold(strings.TrimSpace(mode), ModeDebug) {
		core = stderrCore(zapcore.DebugLevel)
	} else if sink, err := openLogFile(options.withDefaults()); err != nil {
		fmt.Fprintf(os.Stderr, "paid: log file unavailable, warnings go to stderr: %v\n", err)
		core = stderrCore(zapcore.WarnLevel)
	} else {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, zapcore.InfoLevel)
	}
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func stderrCore(level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level)
}

// openLogFile 先确认文件可写，再交给 lumberjack 滚动
func openLogFile(options Options) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(options.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}
	path := filepath.Join(options.Dir, options.Filename)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file failed: %w", err)
	}
	_ = file.Close()

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    options.MaxSizeMB,
		MaxBackups: options.MaxBackups,
		MaxAge:     options.MaxAgeDays,
		Compress:   options.Compress,
	}), nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "event"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

// Z 返回全局日志，未初始化时返回只输出告警的 stderr 日志
func Z() *zap.Logger {
	if L != nil {
		return L
	}
	fallbackOnce.Do(func() {
		fallbackLog = zap.New(stderrCore(zapcore.WarnLevel), zap.AddCaller(), zap.AddCallerSkip(1))
	})
	return fallbackLog
}

// S 返回 SugaredLogger
func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// SW 返回带上下文字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return S()
	}
	return S().With(kv...)
}

// Sync 进程退出前刷新缓冲
func Sync() {
	_ = Z().Sync()
}

func Debugw(event string, kv ...interface{}) { S().Debugw(event, kv...) }

func Infow(event string, kv ...interface{}) { S().Infow(event, kv...) }

func Warnw(event string, kv ...interface{}) { S().Warnw(event, kv...) }

func Errorw(event string, kv ...interface{}) { S().Errorw(event, kv...) }
