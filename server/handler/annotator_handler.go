package handler

import (
	"annopedia-backend/domain/annotator"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

//////////////////////////////// 邀请 ////////////////////////////////////

func InviteAnnotator(ctx *gin.Context) {
	handler := inviteAnnotatorHandler{
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

type inviteAnnotatorHandler struct {
	ctx *gin.Context

	// params
	project *metadata.Project
	inviter *metadata.Contributor
	request annotator.InviteRequest
}

func (h *inviteAnnotatorHandler) checkParam() error {
	p, err := loadProject(h.ctx)
	if err != nil {
		return err
	}
	inviter, err := requireAdmin(h.ctx, p)
	if err != nil {
		return err
	}

	sendEmail := true
	if raw, ok := h.ctx.GetQuery("send_email"); ok && len(raw) != 0 {
		sendEmail, err = strconv.ParseBool(raw)
		if err != nil {
			return utils.WrapErrorf(common.ErrRequestParamInvalid, "param send_email=%#v is not a bool", raw)
		}
	}

	h.project = p
	h.inviter = inviter
	h.request = annotator.InviteRequest{
		Username:  h.ctx.Query("username"),
		Email:     h.ctx.Query("email"),
		SendEmail: sendEmail,
	}
	return nil
}

func (h *inviteAnnotatorHandler) produce() (*annotator.View, error) {
	view, err := annotator.Invite(h.ctx.Request.Context(), h.project, h.inviter, &h.request)
	if err != nil {
		return nil, utils.WrapErrorf(err, "invite %#v to project [%s] fail", h.request.Username, h.project.URL)
	}
	return view, nil
}

func ResendInvite(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	inviter, err := requireAdmin(ctx, p)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}

	username, email := ctx.Query("username"), ctx.Query("email")
	if len(username) == 0 || len(email) == 0 {
		common.RespondParamError(ctx, utils.WrapError(common.ErrRequestParamEmpty, "param username or email is empty"))
		return
	}

	msg, err := annotator.ResendInvite(ctx.Request.Context(), p, inviter, username, email)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "resend invitation to %#v fail", email))
		return
	}
	ctx.JSON(http.StatusOK, common.MakeDetailResp(msg))
}

//////////////////////////////// 管理 ////////////////////////////////////

func ListAnnotators(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	if _, err := requireAdmin(ctx, p); err != nil {
		common.RespondError(ctx, err)
		return
	}

	views, err := annotator.List(ctx.Request.Context(), p)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "list private annotators of project [%s] fail", p.URL))
		return
	}
	ctx.JSON(http.StatusOK, views)
}

func ToggleAnnotatorActive(ctx *gin.Context) {
	p, err := loadProject(ctx)
	if err != nil {
		common.RespondError(ctx, err)
		return
	}
	if _, err := requireAdmin(ctx, p); err != nil {
		common.RespondError(ctx, err)
		return
	}

	username := ctx.Param("username")
	view, err := annotator.ToggleActive(ctx.Request.Context(), p, username)
	if err != nil {
		common.RespondError(ctx, utils.WrapErrorf(err, "toggle private annotator %#v fail", username))
		return
	}
	ctx.JSON(http.StatusOK, view)
}
