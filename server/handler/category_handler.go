package handler

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

func CreateCategory(ctx *gin.Context) {
	handler := createCategoryHandler{
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

type createCategoryHandler struct {
	ctx *gin.Context

	// params
	project *metadata.Project
	request project.CategoryRequest
}

func (h *createCategoryHandler) checkParam() error {
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

func (h *createCategoryHandler) produce() (*project.CategoryView, error) {
	view, err := project.CreateCategory(h.ctx.Request.Context(), h.project, &h.request)
	if err != nil {
		return nil, utils.WrapErrorf(err, "create category %#v in project [%s] fail", h.request.Name, h.project.URL)
	}
	return view, nil
}

func DeleteCategory(ctx *gin.Context) {
	handler := deleteCategoryHandler{
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

type deleteCategoryHandler struct {
	ctx *gin.Context

	// params
	project    *metadata.Project
	categoryID uint
}

func (h *deleteCategoryHandler) checkParam() error {
	p, err := loadProject(h.ctx)
	if err != nil {
		return err
	}
	if _, err := requireAdmin(h.ctx, p); err != nil {
		return err
	}
	categoryID, err := uintQuery(h.ctx, "category_id")
	if err != nil {
		return err
	}
	h.project = p
	h.categoryID = categoryID
	return nil
}

func (h *deleteCategoryHandler) produce() (*project.CategoryView, error) {
	view, err := project.DeleteCategory(h.ctx.Request.Context(), h.project, h.categoryID)
	if err != nil {
		return nil, utils.WrapErrorf(err, "delete category [%d] in project [%s] fail", h.categoryID, h.project.URL)
	}
	return view, nil
}
