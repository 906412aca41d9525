package handler

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"

	"github.com/gin-gonic/gin"
)

// loadProject 按路径参数 :url 查找项目
func loadProject(ctx *gin.Context) (*metadata.Project, error) {
	url := ctx.Param("url")
	if len(url) == 0 {
		return nil, utils.WrapError(common.ErrRequestParamEmpty, "param url is empty")
	}
	return project.Get(ctx.Request.Context(), url)
}

// loadKind 查找项目并按类型取得对应的实现
func loadKind(ctx *gin.Context) (project.Kind, error) {
	p, err := loadProject(ctx)
	if err != nil {
		return nil, err
	}
	return project.Resolve(p)
}

func currentContributor(ctx *gin.Context) (*metadata.Contributor, error) {
	contributor := common.CurrentContributor(ctx)
	if contributor == nil {
		return nil, project.Unauthorized("Missing contributor identity")
	}
	return contributor, nil
}

// requireAdmin 当前账号不是项目管理员时返回 Unauthorized
func requireAdmin(ctx *gin.Context, p *metadata.Project) (*metadata.Contributor, error) {
	contributor, err := currentContributor(ctx)
	if err != nil {
		return nil, err
	}
	if err := project.RequireAdministrator(ctx.Request.Context(), p, contributor.ID); err != nil {
		return nil, err
	}
	return contributor, nil
}

// uintParam 解析路径参数中的 ID，格式错误按找不到处理
func uintParam(ctx *gin.Context, name, what string) (uint, error) {
	raw := ctx.Param(name)
	id, err := utils.ParseUintParam(raw)
	if err != nil || id == 0 {
		return 0, project.NotFound("%s with ID: %s not found", what, raw)
	}
	return id, nil
}

func uintQuery(ctx *gin.Context, name string) (uint, error) {
	raw, ok := ctx.GetQuery(name)
	if !ok || len(raw) == 0 {
		return 0, utils.WrapErrorf(common.ErrRequestParamEmpty, "param %s is empty", name)
	}
	id, err := utils.ParseUintParam(raw)
	if err != nil {
		return 0, utils.WrapErrorf(common.ErrRequestParamInvalid, "param %s=%#v is not an id", name, raw)
	}
	return id, nil
}
