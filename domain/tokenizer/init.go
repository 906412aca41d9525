package tokenizer

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Setting struct {
	Logger *logrus.Logger
	// DictDir 为空时使用 gojieba 自带的词典
	DictDir string
}

var (
	globalSetting Setting

	globalLock      sync.Mutex
	globalTokenizer *Tokenizer
)

func Init(setting *Setting) {
	globalLock.Lock()
	defer globalLock.Unlock()

	globalSetting = *setting
	if globalTokenizer != nil {
		globalTokenizer.Free()
		globalTokenizer = nil
	}
}

// Default 返回进程共享的 Tokenizer，第一次调用时加载词典。
func Default() *Tokenizer {
	globalLock.Lock()
	defer globalLock.Unlock()

	if globalTokenizer == nil {
		if globalSetting.Logger != nil {
			globalSetting.Logger.Infof("loading jieba dict from [%s]", globalSetting.DictDir)
		}
		globalTokenizer = New(globalSetting.DictDir)
	}
	return globalTokenizer
}

func Words(text string) []Span {
	return Default().Words(text)
}

func Snap(text string, start, end int) (int, int) {
	return Default().Snap(text, start, end)
}
