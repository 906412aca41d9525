package handler

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

//////////////////////////////// 创建 ////////////////////////////////////

func CreateProject(ctx *gin.Context) {
	handler := createProjectHandler{
		ctx: ctx,
	}

	if err := handler.checkParam(); err != nil {
		common.RespondParamError(ctx, err)
		return
	}

	view, err := handler.produce()
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

type createProjectHandler struct {
	ctx *gin.Context

	// params
	request     project.CreateRequest
	contributor *metadata.Contributor
}

func (h *createProjectHandler) checkParam() error {
	if err := h.ctx.ShouldBindJSON(&h.request); err != nil {
		return utils.WrapError(err, "bind req fail")
	}

	contributor, err := currentContributor(h.ctx)
	if err != nil {
		return err
	}
	h.contributor = contributor
	return nil
}

func (h *createProjectHandler) produce() (*project.View, error) {
	view, err := project.Create(h.ctx.Request.Context(), &h.request, h.contributor)
	if err != nil {
		return nil, utils.WrapErrorf(err, "create project %#v fail", h.request.Name)
	}
	return view, nil
}

//////////////////////////////// 列表 ////////////////////////////////////

func ListProjects(ctx *gin.Context) {
	views, err := project.List(ctx.Request.Context(), ctx.Query("project_type"))
	if err != nil {
		common.RespondError(ctx, utils.WrapError(err, "list projects fail"))
		return
	}
	ctx.JSON(http.StatusOK, views)
}

//////////////////////////////// 查询、修改、删除 ////////////////////////////////////

func GetProject(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	view, err := project.ViewOf(ctx.Request.Context(), p)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "build view of project [%s] fail", p.URL))
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func UpdateProject(ctx *gin.Context) {
	handler := updateProjectHandler{
		ctx: ctx,
	}

	if err := handler.checkParam(); err != nil {
		common.RespondParamError(ctx, err)
		return
	}

	view, err := handler.produce()
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

type updateProjectHandler struct {
	ctx *gin.Context

	// params
	project *metadata.Project
	request project.UpdateRequest
}

func (h *updateProjectHandler) checkParam() error {
	p, err := loadProject(h.ctx)
	if err != nil {
		return err
	}
	if _, err := requireAdmin(h.ctx, p); err != nil {
		return err
	}
	if err := h.ctx.ShouldBindJSON(&h.request); err != nil {
		return utils.WrapError(err, "bind req fail")
	}
	h.project = p
	return nil
}

func (h *updateProjectHandler) produce() (*project.View, error) {
	view, err := project.Update(h.ctx.Request.Context(), h.project, &h.request)
	if err != nil {
		return nil, utils.WrapErrorf(err, "update project [%s] fail", h.project.URL)
	}
	return view, nil
}

func DeleteProject(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	if _, err := requireAdmin(ctx, p); err != nil {
		common.RespondError(ctx, err)
		return
	}

	if err := project.Delete(ctx.Request.Context(), p); err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "delete project [%s] fail", p.URL))
		return
	}
	ctx.JSON(http.StatusOK, common.MakeDetailResp(fmt.Sprintf("Project %s deleted", p.Name)))
}

//////////////////////////////// 管理员 ////////////////////////////////////

type addAdministratorReqSchema struct {
	Email string `json:"email"`
}

func AddAdministrator(ctx *gin.Context) {
	handler := addAdministratorHandler{
		ctx: ctx,
	}

	if err := handler.checkParam(); err != nil {
		common.RespondParamError(ctx, err)
		return
	}

	username, err := handler.produce()
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, common.MakeDetailResp(
		fmt.Sprintf("Administrator %s added to project %s", username, handler.project.Name)))
}

type addAdministratorHandler struct {
	ctx *gin.Context

	// params
	project *metadata.Project
	email   string
}

func (h *addAdministratorHandler) checkParam() error {
	p, err := loadProject(h.ctx)
	if err != nil {
		return err
	}
	if _, err := requireAdmin(h.ctx, p); err != nil {
		return err
	}

	var req addAdministratorReqSchema
	if err := h.ctx.ShouldBindJSON(&req); err != nil {
		return utils.WrapError(err, "bind req fail")
	}
	if len(req.Email) == 0 {
		return utils.WrapError(common.ErrRequestParamEmpty, "param email is empty")
	}

	h.project = p
	h.email = req.Email
	return nil
}

func (h *addAdministratorHandler) produce() (string, error) {
	username, err := project.AddAdministrator(h.ctx.Request.Context(), h.project, h.email)
	if err != nil {
		return "", utils.WrapErrorf(err, "add administrator %#v to project [%s] fail", h.email, h.project.URL)
	}
	return username, nil
}
