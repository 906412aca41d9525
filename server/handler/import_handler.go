package handler

import (
	"annopedia-backend/domain/annotator"
	"annopedia-backend/domain/project"
	"annopedia-backend/logging"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const importFileField = "unannotated_data_file"

//////////////////////////////// 导入 ////////////////////////////////////

func ImportSources(ctx *gin.Context) {
	handler := importSourcesHandler{
		ctx: ctx,
	}

	if err := handler.checkParam(); err != nil {
		common.RespondParamError(ctx, err)
		return
	}

	count, err := handler.produce()
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, common.MakeDetailResp(project.ImportedMessage(count)))
}

type importSourcesHandler struct {
	ctx *gin.Context

	// params
	kind            project.Kind
	fields          project.ImportFields
	delimiter       string
	fileName        string
	fileContentType string
	fileData        []byte
}

func (h *importSourcesHandler) checkParam() error {
	kind, err := loadKind(h.ctx)
	if err != nil {
		return err
	}
	if _, err := requireAdmin(h.ctx, kind.Project()); err != nil {
		return err
	}

	textField := h.ctx.Query("text_field")
	if len(textField) == 0 {
		return utils.WrapError(common.ErrRequestParamEmpty, "param text_field is empty")
	}

	contentType := h.ctx.GetHeader("Content-Type")
	if !strings.Contains(contentType, "multipart/form-data") {
		return utils.WrapErrorf(common.ErrContentTypeNotMultipartFormData,
			"actual Content-Type = [%s] not 'multipart/form-data'", contentType)
	}

	header, err := h.ctx.FormFile(importFileField)
	if err != nil {
		return utils.WrapErrorf(common.ErrRequestParamEmpty, "read multipart file %s fail: %s", importFileField, err.Error())
	}

	file, err := header.Open()
	if err != nil {
		return utils.WrapError(err, "open multipart file fail")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return utils.WrapError(err, "read multipart file fail")
	}

	h.kind = kind
	h.fields = project.ImportFields{
		TextField:        textField,
		ContextField:     h.ctx.Query("context_field"),
		ValueField:       h.ctx.Query("value_field"),
		TranslationField: h.ctx.Query("mt_system_translation"),
	}
	h.delimiter = h.ctx.Query("csv_delimiter")
	h.fileName = header.Filename
	h.fileContentType = header.Header.Get("Content-Type")
	h.fileData = data
	return nil
}

func (h *importSourcesHandler) produce() (int, error) {
	rows, err := project.ParseUpload(h.fileContentType, h.fileData, h.delimiter)
	if err != nil {
		return 0, utils.WrapErrorf(err, "parse upload %#v fail", h.fileName)
	}

	count, err := h.kind.AddUnannotatedEntries(h.ctx.Request.Context(), rows, &h.fields)
	if err != nil {
		return 0, utils.WrapErrorf(err, "import %#v to project [%s] fail", h.fileName, h.kind.Project().URL)
	}

	logging.Default().Infof("imported %d rows from %#v to project [%s]", count, h.fileName, h.kind.Project().URL)
	return count, nil
}

//////////////////////////////// 查询 ////////////////////////////////////

func ListSources(ctx *gin.Context) {
	kind, err := loadKind(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	sources, err := project.ListSources(ctx.Request.Context(), kind.Project())
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "list sources of project [%s] fail", kind.Project().URL))
		return
	}
	ctx.JSON(http.StatusOK, project.BuildSourceViews(kind, sources))
}

// ListUnannotated 调用者还没有标注过的待标注文本；持 token 的私有标注员按自己的进度计算
func ListUnannotated(ctx *gin.Context) {
	kind, err := loadKind(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	current, err := callerAnnotator(ctx, kind.Project())
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	sources, err := annotator.Remaining(ctx.Request.Context(), kind.Project(), current.ID)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "remaining sources of project [%s] fail", kind.Project().URL))
		return
	}
	ctx.JSON(http.StatusOK, project.BuildSourceViews(kind, sources))
}

func callerAnnotator(ctx *gin.Context, p *metadata.Project) (*metadata.Annotator, error) {
	if privateAnnotator, owner, ok := common.CurrentPrivateAnnotator(ctx); ok && owner.ID == p.ID {
		return privateAnnotator, nil
	}

	contributor, err := currentContributor(ctx)
	if err != nil {
		return nil, err
	}
	return annotator.EnsurePublicAnnotator(ctx.Request.Context(), contributor)
}

func SourceTokens(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	sourceID, err := uintParam(ctx, "id", "Unannotated entry")
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	tokens, err := project.Tokens(ctx.Request.Context(), p, sourceID)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "tokens of source [%d] fail", sourceID))
		return
	}
	ctx.JSON(http.StatusOK, tokens)
}

//////////////////////////////// 删除 ////////////////////////////////////

func DeleteSource(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	if _, err := requireAdmin(ctx, p); err != nil {
		common.RespondError(ctx, err)
		return
	}
	sourceID, err := uintParam(ctx, "id", "Unannotated entry")
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	if err := project.DeleteSource(ctx.Request.Context(), p, sourceID); err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "delete source [%d] fail", sourceID))
		return
	}
	ctx.JSON(http.StatusOK, common.MakeDetailResp(fmt.Sprintf("Successfully deleted unannotated entry %d", sourceID)))
}
