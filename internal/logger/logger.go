package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局日志实例，Init 之前为 nil，此时所有输出函数都是空操作
var Log *logrus.Logger

// bufferSize 内存中保留的最近日志条数
const bufferSize = 1000

// MemoryHook 把日志同步写入内存缓冲区，供状态接口读取
type MemoryHook struct {
	buffer *LogBuffer
}

// Levels 返回支持的日志级别
func (hook *MemoryHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 当日志触发时调用
func (hook *MemoryHook) Fire(entry *logrus.Entry) error {
	if hook.buffer != nil {
		hook.buffer.AddLog(entry.Level.String(), entry.Message)
	}
	return nil
}

// ParseLevel 解析日志级别
// 除 logrus 的级别名外，也接受配置文件中常见的 WARNING / CRITICAL 写法
func ParseLevel(level string) (logrus.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "WARNING":
		return logrus.WarnLevel, true
	case "CRITICAL":
		return logrus.FatalLevel, true
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel, false
	}
	return lvl, true
}

// Init 初始化日志系统
// file 为空或为 "N/A" 时仅输出到控制台，否则同时写入按天数轮转的日志文件
func Init(level, file string) error {
	Log = logrus.New()

	logLevel, _ := ParseLevel(level)
	Log.SetLevel(logLevel)

	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var out io.Writer = os.Stdout
	if file != "" && file != "N/A" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:  file,
			MaxSize:   50, // MB
			MaxAge:    30, // 天
			LocalTime: true,
		})
	}
	Log.SetOutput(out)

	InitBuffer(bufferSize)
	Log.AddHook(&MemoryHook{buffer: GetBuffer()})

	return nil
}

// Debug 调试日志
func Debug(args ...interface{}) {
	if Log != nil {
		Log.Debug(args...)
	}
}

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) {
	if Log != nil {
		Log.Debugf(format, args...)
	}
}

// Info 信息日志
func Info(args ...interface{}) {
	if Log != nil {
		Log.Info(args...)
	}
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	if Log != nil {
		Log.Infof(format, args...)
	}
}

// Warn 警告日志
func Warn(args ...interface{}) {
	if Log != nil {
		Log.Warn(args...)
	}
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	if Log != nil {
		Log.Warnf(format, args...)
	}
}

// Error 错误日志
func Error(args ...interface{}) {
	if Log != nil {
		Log.Error(args...)
	}
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	if Log != nil {
		Log.Errorf(format, args...)
	}
}

// Fatalf 格式化致命错误日志，输出后进程退出
func Fatalf(format string, args ...interface{}) {
	if Log != nil {
		Log.Fatalf(format, args...)
	}
	os.Exit(1)
}
