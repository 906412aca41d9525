package handler

import (
	"annopedia-backend/domain/annotator"
	"annopedia-backend/domain/project"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"

	"github.com/gin-gonic/gin"
)

func Export(ctx *gin.Context) {
	kind, err := loadKind(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	exportType := ctx.Query("export_type")
	file, err := project.Export(ctx.Request.Context(), kind, exportType)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "export project [%s] as %s fail", kind.Project().URL, exportType))
		return
	}
	common.RespondFile(ctx, file)
}

func ExportDisagreements(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	annotator1, annotator2 := ctx.Query("annotator1"), ctx.Query("annotator2")
	if len(annotator1) == 0 || len(annotator2) == 0 {
		common.RespondParamError(ctx, utils.WrapError(common.ErrRequestParamEmpty, "param annotator1 or annotator2 is empty"))
		return
	}

	file, err := annotator.DisagreementsFile(ctx.Request.Context(), p, annotator1, annotator2)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "disagreements of %#v and %#v fail", annotator1, annotator2))
		return
	}
	common.RespondFile(ctx, file)
}
