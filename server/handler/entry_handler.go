package handler

import (
	"annopedia-backend/domain/annotator"
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

//////////////////////////////// 创建 ////////////////////////////////////

// CreateEntry 任何账号都可以标注，标注记在该账号的公共标注员名下
func CreateEntry(ctx *gin.Context) {
	handler := createEntryHandler{
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

type createEntryHandler struct {
	ctx *gin.Context

	// params
	kind        project.Kind
	contributor *metadata.Contributor
	request     project.EntryRequest
}

func (h *createEntryHandler) checkParam() error {
	kind, err := loadKind(h.ctx)
	if err != nil {
		return err
	}
	contributor, err := currentContributor(h.ctx)
	if err != nil {
		return err
	}
	if err := h.ctx.ShouldBindJSON(&h.request); err != nil {
		return utils.WrapError(err, "bind req fail")
	}

	h.kind = kind
	h.contributor = contributor
	return nil
}

func (h *createEntryHandler) produce() (*project.EntryView, error) {
	publicAnnotator, err := annotator.EnsurePublicAnnotator(h.ctx.Request.Context(), h.contributor)
	if err != nil {
		return nil, utils.WrapErrorf(err, "ensure public annotator of [%s] fail", h.contributor.Username)
	}

	view, err := h.kind.AddEntry(h.ctx.Request.Context(), publicAnnotator, &h.request)
	if err != nil {
		return nil, utils.WrapErrorf(err, "add entry to project [%s] fail", h.kind.Project().URL)
	}
	return view, nil
}

//////////////////////////////// 查询 ////////////////////////////////////

func ListEntries(ctx *gin.Context) {
	kind, err := loadKind(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	views, err := project.ListEntries(ctx.Request.Context(), kind, 0)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "list entries of project [%s] fail", kind.Project().URL))
		return
	}
	ctx.JSON(http.StatusOK, views)
}

func EntryHistory(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	if _, err := requireAdmin(ctx, p); err != nil {
		common.RespondError(ctx, err)
		return
	}
	entryID, err := uintParam(ctx, "id", "Entry")
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	histories, err := project.EntryHistory(ctx.Request.Context(), p, entryID)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "query history of entry [%d] fail", entryID))
		return
	}
	ctx.JSON(http.StatusOK, histories)
}

func Statistics(ctx *gin.Context) {
	kind, err := loadKind(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	statistics, err := project.Statistics(ctx.Request.Context(), kind)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "statistics of project [%s] fail", kind.Project().URL))
		return
	}
	ctx.JSON(http.StatusOK, statistics)
}

//////////////////////////////// 修改、删除 ////////////////////////////////////

func UpdateEntry(ctx *gin.Context) {
	handler := updateEntryHandler{
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

type updateEntryHandler struct {
	ctx *gin.Context

	// params
	kind        project.Kind
	contributor *metadata.Contributor
	entry       *metadata.ProjectEntry
	patch       project.EntryPatch
}

func (h *updateEntryHandler) checkParam() error {
	kind, err := loadKind(h.ctx)
	if err != nil {
		return err
	}
	contributor, err := requireAdmin(h.ctx, kind.Project())
	if err != nil {
		return err
	}
	entryID, err := uintParam(h.ctx, "id", "Entry")
	if err != nil {
		return err
	}
	entry, err := project.GetEntry(h.ctx.Request.Context(), kind.Project(), entryID)
	if err != nil {
		return err
	}
	if err := h.ctx.ShouldBindJSON(&h.patch); err != nil {
		return utils.WrapError(err, "bind req fail")
	}

	h.kind = kind
	h.contributor = contributor
	h.entry = entry
	return nil
}

func (h *updateEntryHandler) produce() (*project.EntryView, error) {
	view, err := h.kind.UpdateEntry(h.ctx.Request.Context(), h.entry, &h.patch, h.contributor.ID)
	if err != nil {
		return nil, utils.WrapErrorf(err, "update entry [%d] fail", h.entry.ID)
	}
	return view, nil
}

func DeleteEntry(ctx *gin.Context) {
	kind, err := loadKind(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	contributor, err := requireAdmin(ctx, kind.Project())
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	entryID, err := uintParam(ctx, "id", "Entry")
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	entry, err := project.GetEntry(ctx.Request.Context(), kind.Project(), entryID)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	if err := project.DeleteEntry(ctx.Request.Context(), kind, entry, contributor.ID); err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "delete entry [%d] fail", entryID))
		return
	}
	ctx.JSON(http.StatusOK, common.MakeDetailResp(fmt.Sprintf("Successfully deleted entry %d", entryID)))
}
