package common

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/logging"
	"annopedia-backend/utils"
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeBadRequest = "BadRequest"
	CodeUnknown    = "Unknown"
)

type ErrorResp struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type DetailResp struct {
	Detail string `json:"detail"`
}

func MakeErrorResp(code, detail string) ErrorResp {
	return ErrorResp{Code: code, Detail: detail}
}

func MakeUnknownErrorResp() ErrorResp {
	return MakeErrorResp(CodeUnknown, "Internal server error")
}

func MakeDetailResp(detail string) DetailResp {
	return DetailResp{Detail: detail}
}

var kindStatus = map[string]int{
	project.KindNotFound:     http.StatusNotFound,
	project.KindUnauthorized: http.StatusUnauthorized,
	project.KindValidation:   http.StatusBadRequest,
	project.KindIntegrity:    http.StatusInternalServerError,
}

func isRequestParamError(err error) bool {
	return errors.Is(err, ErrRequestParamEmpty) ||
		errors.Is(err, ErrRequestParamInvalid) ||
		errors.Is(err, ErrContentTypeNotMultipartFormData)
}

/*
RespondError 按错误种类写出 {"code", "detail"}：

	NotFound 404，Unauthorized 401，ValidationFailed 400，IntegrityViolation 500；
	checkParam 的参数错误 400；
	其他错误 500，detail 不暴露内部原因，原因写入日志。
*/
func RespondError(ctx *gin.Context, err error) {
	if e := project.AsError(err); e != nil {
		status := kindStatus[e.Kind]
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logging.Default().WithError(err).Errorf("%s %s fail: %s", ctx.Request.Method, ctx.FullPath(), err.Error())
		}
		ctx.AbortWithStatusJSON(status, MakeErrorResp(e.Kind, e.Detail))
		return
	}

	if isRequestParamError(err) {
		logging.Default().WithError(err).Infof("parse req error: %s", err.Error())
		ctx.AbortWithStatusJSON(http.StatusBadRequest, MakeErrorResp(CodeBadRequest, err.Error()))
		return
	}

	logging.Default().WithError(utils.RootCause(err)).Errorf("produce error: %+v", err)
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, MakeUnknownErrorResp())
}

// RespondParamError 用于 checkParam 的错误：没有种类的错误（例如 JSON 解码失败）按 400 处理。
func RespondParamError(ctx *gin.Context, err error) {
	if project.AsError(err) != nil || isRequestParamError(err) {
		RespondError(ctx, err)
		return
	}
	logging.Default().WithError(err).Infof("parse req error: %s", err.Error())
	ctx.AbortWithStatusJSON(http.StatusBadRequest, MakeErrorResp(CodeBadRequest, err.Error()))
}

// RespondFile 以附件形式返回导出的文件。
func RespondFile(ctx *gin.Context, file *project.ExportFile) {
	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	ctx.Data(http.StatusOK, file.ContentType, file.Data)
}
