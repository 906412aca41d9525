package logging

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

/*
Config 描述日志的输出方式。

	FileLevel 写入文件的最低级别；
	ConsoleLevel 输出到控制台的最低级别；
	FileDir 日志文件目录，为空时不写文件，文件按天切分；
	DisableConsole 关闭控制台输出。
*/
type Config struct {
	FileLevel      logrus.Level
	ConsoleLevel   logrus.Level
	FileDir        string
	DisableConsole bool
}

func GenerateTestConfig(t *testing.T) *Config {
	return &Config{
		FileLevel:      logrus.DebugLevel,
		ConsoleLevel:   logrus.DebugLevel,
		FileDir:        t.TempDir(),
		DisableConsole: false,
	}
}

var (
	configLock    sync.RWMutex
	defaultConfig = Config{
		FileLevel:    logrus.InfoLevel,
		ConsoleLevel: logrus.InfoLevel,
	}

	defaultLoggerLock sync.Mutex
	defaultLogger     *logrus.Logger
)

func SetDefaultConfig(config *Config) {
	configLock.Lock()
	defaultConfig = *config
	configLock.Unlock()

	defaultLoggerLock.Lock()
	defaultLogger = nil
	defaultLoggerLock.Unlock()
}

func getDefaultConfig() Config {
	configLock.RLock()
	defer configLock.RUnlock()
	return defaultConfig
}

// Default 返回进程共享的 logger。
func Default() *logrus.Logger {
	defaultLoggerLock.Lock()
	defer defaultLoggerLock.Unlock()

	if defaultLogger == nil {
		defaultLogger = NewLogger()
	}
	return defaultLogger
}

// NewLogger 按照默认配置构造一个新的 logger。
func NewLogger() *logrus.Logger {
	return NewLoggerWithConfig(getDefaultConfig())
}

func NewLoggerWithConfig(config Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	level := config.FileLevel
	if !config.DisableConsole && config.ConsoleLevel > level {
		level = config.ConsoleLevel
	}
	if len(config.FileDir) == 0 {
		level = config.ConsoleLevel
	}
	logger.SetLevel(level)

	if !config.DisableConsole {
		logger.AddHook(&writerHook{
			writer:    os.Stdout,
			levels:    levelsUpTo(config.ConsoleLevel),
			formatter: &logrus.TextFormatter{FullTimestamp: true},
		})
	}

	if len(config.FileDir) != 0 {
		logger.AddHook(&writerHook{
			writer:    sharedDailyFile(config.FileDir),
			levels:    levelsUpTo(config.FileLevel),
			formatter: &logrus.JSONFormatter{},
		})
	}

	return logger
}

func levelsUpTo(max logrus.Level) []logrus.Level {
	ret := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		if level <= max {
			ret = append(ret, level)
		}
	}
	return ret
}

type writerHook struct {
	lock      sync.Mutex
	writer    io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	_, err = h.writer.Write(line)
	return err
}
