package handler

import (
	"annopedia-backend/domain/annotator"
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 以下接口都挂在 common.RequirePrivateAnnotator 之后，只服务持 token 的私有标注员

type annotateProjectRespSchema struct {
	Project    *project.View `json:"project"`
	Annotator  string        `json:"annotator"`
	Completion float64       `json:"completion"`
}

func privateSession(ctx *gin.Context) (*metadata.Annotator, project.Kind, error) {
	privateAnnotator, p, ok := common.CurrentPrivateAnnotator(ctx)
	if !ok {
		return nil, nil, project.Unauthorized("Missing annotation token")
	}
	kind, err := project.Resolve(p)
	if err != nil {
		return nil, nil, err
	}
	return privateAnnotator, kind, nil
}

func AnnotateProject(ctx *gin.Context) {
	privateAnnotator, kind, err := privateSession(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	view, err := project.ViewOf(ctx.Request.Context(), kind.Project())
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "build view of project [%s] fail", kind.Project().URL))
		return
	}
	completion, err := annotator.Completion(ctx.Request.Context(), kind.Project(), privateAnnotator.ID)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "completion of annotator [%d] fail", privateAnnotator.ID))
		return
	}

	var username string
	if contributor := common.CurrentContributor(ctx); contributor != nil {
		username = contributor.Username
	}
	ctx.JSON(http.StatusOK, annotateProjectRespSchema{
		Project:    view,
		Annotator:  username,
		Completion: completion,
	})
}

func AnnotateRemaining(ctx *gin.Context) {
	privateAnnotator, kind, err := privateSession(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	sources, err := annotator.Remaining(ctx.Request.Context(), kind.Project(), privateAnnotator.ID)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "remaining sources of annotator [%d] fail", privateAnnotator.ID))
		return
	}
	ctx.JSON(http.StatusOK, project.BuildSourceViews(kind, sources))
}

func AnnotateEntries(ctx *gin.Context) {
	privateAnnotator, kind, err := privateSession(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	views, err := project.ListEntries(ctx.Request.Context(), kind, privateAnnotator.ID)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "list entries of annotator [%d] fail", privateAnnotator.ID))
		return
	}
	ctx.JSON(http.StatusOK, views)
}

func AnnotateCreateEntry(ctx *gin.Context) {
	handler := annotateCreateEntryHandler{
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

type annotateCreateEntryHandler struct {
	ctx *gin.Context

	// params
	annotator *metadata.Annotator
	kind      project.Kind
	request   project.EntryRequest
}

func (h *annotateCreateEntryHandler) checkParam() error {
	privateAnnotator, kind, err := privateSession(h.ctx)
	if err != nil {
		return err
	}
	if err := h.ctx.ShouldBindJSON(&h.request); err != nil {
		return utils.WrapError(err, "bind req fail")
	}
	h.annotator = privateAnnotator
	h.kind = kind
	return nil
}

func (h *annotateCreateEntryHandler) produce() (*project.EntryView, error) {
	view, err := h.kind.AddEntry(h.ctx.Request.Context(), h.annotator, &h.request)
	if err != nil {
		return nil, utils.WrapErrorf(err, "add entry of annotator [%d] fail", h.annotator.ID)
	}
	return view, nil
}

func AnnotateUpdateEntry(ctx *gin.Context) {
	handler := annotateUpdateEntryHandler{
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

type annotateUpdateEntryHandler struct {
	ctx *gin.Context

	// params
	annotator *metadata.Annotator
	kind      project.Kind
	entry     *metadata.ProjectEntry
	patch     project.EntryPatch
}

func (h *annotateUpdateEntryHandler) checkParam() error {
	privateAnnotator, kind, err := privateSession(h.ctx)
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
	// token 只能修改自己名下的标注
	if entry.AnnotatorID != privateAnnotator.ID {
		return project.Unauthorized("Annotation token does not match the annotator of entry %d", entryID)
	}
	if err := h.ctx.ShouldBindJSON(&h.patch); err != nil {
		return utils.WrapError(err, "bind req fail")
	}

	h.annotator = privateAnnotator
	h.kind = kind
	h.entry = entry
	return nil
}

func (h *annotateUpdateEntryHandler) produce() (*project.EntryView, error) {
	view, err := h.kind.UpdateEntry(h.ctx.Request.Context(), h.entry, &h.patch, h.annotator.ContributorID)
	if err != nil {
		return nil, utils.WrapErrorf(err, "update entry [%d] fail", h.entry.ID)
	}
	return view, nil
}
