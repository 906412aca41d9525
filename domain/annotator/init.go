package annotator

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils/email"
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultFrontendBaseURL = "https://annopedia.marekmasiak.tech"

/*
Setting 标注员相关操作依赖的外部组件。

	GetSender 为 nil 时使用 email.Default()；
	FrontendBaseURL 邀请邮件中标注链接的前缀，为空时使用 DefaultFrontendBaseURL；
	ResolveKind 为 nil 时使用 project.Resolve。
*/
type Setting struct {
	GetMetadataDatabase func() *gorm.DB
	Logger              *logrus.Logger
	GetSender           func() email.Sender
	FrontendBaseURL     string
	ResolveKind         func(p *metadata.Project) (project.Kind, error)
}

var globalSetting Setting

func Init(setting *Setting) {
	globalSetting = *setting
}

func (s *Setting) db(ctx context.Context) *gorm.DB {
	return s.GetMetadataDatabase().WithContext(ctx)
}

func (s *Setting) sender() email.Sender {
	if s.GetSender == nil {
		return email.Default()
	}
	return s.GetSender()
}

func (s *Setting) frontendBaseURL() string {
	if len(s.FrontendBaseURL) == 0 {
		return DefaultFrontendBaseURL
	}
	return s.FrontendBaseURL
}

func (s *Setting) resolve(p *metadata.Project) (project.Kind, error) {
	if s.ResolveKind == nil {
		return project.Resolve(p)
	}
	return s.ResolveKind(p)
}
