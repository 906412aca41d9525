package project

import (
	"annopedia-backend/domain/eventpub"
	"annopedia-backend/domain/tokenizer"
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

/*
Setting 项目相关操作依赖的外部组件。

	GetTokenizer 只有按词选择高亮的项目用到；
	Publish 为 nil 时不发送标注变更事件。
*/
type Setting struct {
	GetMetadataDatabase func() *gorm.DB
	Logger              *logrus.Logger
	GetTokenizer        func() *tokenizer.Tokenizer
	Publish             func(event *eventpub.EntryEvent)
}

var globalSetting Setting

func Init(setting *Setting) {
	globalSetting = *setting
}

func (s *Setting) db(ctx context.Context) *gorm.DB {
	return s.GetMetadataDatabase().WithContext(ctx)
}

func (s *Setting) publish(event *eventpub.EntryEvent) {
	if s.Publish != nil {
		s.Publish(event)
	}
}

func (s *Setting) snap(text string, start, end int) (int, int) {
	if s.GetTokenizer == nil {
		return start, end
	}
	return s.GetTokenizer().Snap(text, start, end)
}

func (s *Setting) words(text string) []tokenizer.Span {
	if s.GetTokenizer == nil {
		if len(text) == 0 {
			return nil
		}
		return []tokenizer.Span{{Start: 0, End: len([]rune(text))}}
	}
	return s.GetTokenizer().Words(text)
}
