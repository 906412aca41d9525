package annotator

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
)

const AnonymousEmail = "anon@annopedia.local"

/*
ResolveContributor 按用户名查找账号，不存在时用 username 与 email 创建。

身份提供方的账号与按来源地址识别的匿名访问者都通过它取得 Contributor。
*/
func ResolveContributor(ctx context.Context, username, email string) (*metadata.Contributor, error) {
	return resolveContributor(&globalSetting, ctx, username, email)
}

func resolveContributor(setting *Setting, ctx context.Context, username, email string) (*metadata.Contributor, error) {
	if len(username) == 0 {
		return nil, project.Unauthorized("Missing contributor identity")
	}

	contributor, err := findContributor(setting, ctx, username)
	if err != nil {
		return nil, err
	}
	if contributor != nil {
		return contributor, nil
	}

	contributor = &metadata.Contributor{Username: username, Email: email, IsActive: true}
	if err := setting.db(ctx).Create(contributor).Error; err != nil {
		return nil, utils.WrapErrorf(err, "create contributor [%s] fail", username)
	}
	if setting.Logger != nil {
		setting.Logger.Infof("contributor [%s] created", username)
	}
	return contributor, nil
}

func findContributor(setting *Setting, ctx context.Context, username string) (*metadata.Contributor, error) {
	var contributor metadata.Contributor
	err := setting.db(ctx).Where("username = ?", username).Limit(1).Find(&contributor).Error
	if err != nil {
		return nil, utils.WrapErrorf(err, "query contributor [%s] fail", username)
	}
	if contributor.ID == 0 {
		return nil, nil
	}
	return &contributor, nil
}

// EnsurePublicAnnotator 返回账号对应的公开标注员，不存在时创建。
func EnsurePublicAnnotator(ctx context.Context, contributor *metadata.Contributor) (*metadata.Annotator, error) {
	return ensurePublicAnnotator(&globalSetting, ctx, contributor)
}

func ensurePublicAnnotator(setting *Setting, ctx context.Context, contributor *metadata.Contributor) (*metadata.Annotator, error) {
	var annotator metadata.Annotator
	err := setting.db(ctx).
		Where("annotator_type = ? AND contributor_id = ?", metadata.AnnotatorTypePublic, contributor.ID).
		Order("id").
		Limit(1).
		Find(&annotator).Error
	if err != nil {
		return nil, utils.WrapError(err, "query public annotator fail")
	}
	if annotator.ID != 0 {
		return &annotator, nil
	}

	annotator = metadata.Annotator{AnnotatorType: metadata.AnnotatorTypePublic, ContributorID: contributor.ID}
	if err := setting.db(ctx).Create(&annotator).Error; err != nil {
		return nil, utils.WrapError(err, "create public annotator fail")
	}
	return &annotator, nil
}
