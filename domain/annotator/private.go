package annotator

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InviteRequest struct {
	Username  string
	Email     string
	SendEmail bool
}

type View struct {
	ID                  uint      `json:"id"`
	Project             uint      `json:"project"`
	Contributor         string    `json:"contributor"`
	Email               string    `json:"email"`
	InvitingContributor string    `json:"inviting_contributor"`
	Token               string    `json:"token"`
	IsActive            bool      `json:"is_active"`
	Completion          float64   `json:"completion"`
	EmailSent           bool      `json:"email_sent"`
	CreatedAt           time.Time `json:"created_at"`
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func invitationSubject(p *metadata.Project) string {
	return fmt.Sprintf("[Annopedia] Invitation to contribute to %s", p.Name)
}

func invitationBody(baseURL string, p *metadata.Project, invitee, inviter, token string) string {
	return fmt.Sprintf(`Hi %s!

You have been invited by %s to contribute to the project %s!
Please click the link to annotate: %s/annotator/annotate?token=%s
Good luck!

Best regards,
Annopedia Team
`, invitee, inviter, p.Name, strings.TrimSuffix(baseURL, "/"), token)
}

func (s *Setting) sendInvitation(p *metadata.Project, annotator *metadata.Annotator, invitee, inviter *metadata.Contributor) error {
	body := invitationBody(s.frontendBaseURL(), p, invitee.Username, inviter.Username, *annotator.Token)
	if err := s.sender().Send(invitee.Email, invitationSubject(p), body, false); err != nil {
		return utils.WrapErrorf(err, "send invitation to [%s] fail", invitee.Email)
	}
	if s.Logger != nil {
		s.Logger.Infof("invitation of project [%s] sent to [%s]", p.URL, invitee.Email)
	}
	return nil
}

// findOrCreateInvitee 按 (username, email) 查找账号，不存在时创建；用户名已被其他邮箱占用时失败。
func findOrCreateInvitee(setting *Setting, ctx context.Context, username, email string) (*metadata.Contributor, error) {
	contributor, err := findContributor(setting, ctx, username)
	if err != nil {
		return nil, err
	}
	if contributor != nil {
		if contributor.Email != email {
			return nil, project.Invalid("Contributor %s is registered with a different email", username)
		}
		return contributor, nil
	}
	return resolveContributor(setting, ctx, username, email)
}

/*
Invite 邀请私有标注员：生成新的 token，SendEmail 为 true 时发送邀请邮件。

标注员记录写入后邮件发送失败只记录日志，View.EmailSent 为 false，可以通过 ResendInvite 重发。
*/
func Invite(ctx context.Context, p *metadata.Project, inviter *metadata.Contributor, request *InviteRequest) (*View, error) {
	return invite(&globalSetting, ctx, p, inviter, request)
}

func invite(setting *Setting, ctx context.Context, p *metadata.Project, inviter *metadata.Contributor, request *InviteRequest) (*View, error) {
	if len(request.Username) == 0 {
		return nil, project.Invalid("Missing data in request (username)")
	}
	if len(request.Email) == 0 {
		return nil, project.Invalid("Missing data in request (email)")
	}

	contributor, err := findOrCreateInvitee(setting, ctx, request.Username, request.Email)
	if err != nil {
		return nil, err
	}

	var count int64
	err = setting.db(ctx).Model(&metadata.Annotator{}).
		Where("annotator_type = ? AND project_id = ? AND contributor_id = ?", metadata.AnnotatorTypePrivate, p.ID, contributor.ID).
		Count(&count).Error
	if err != nil {
		return nil, utils.WrapError(err, "count private annotators fail")
	}
	if count != 0 {
		return nil, project.Invalid("Private Annotator %s is already invited to the project", request.Username)
	}

	annotator := metadata.Annotator{
		AnnotatorType:         metadata.AnnotatorTypePrivate,
		ContributorID:         contributor.ID,
		ProjectID:             utils.UintToPtr(p.ID),
		InvitingContributorID: utils.UintToPtr(inviter.ID),
		Token:                 utils.StringToPtr(newToken()),
	}
	if err := setting.db(ctx).Create(&annotator).Error; err != nil {
		return nil, utils.WrapError(err, "create private annotator fail")
	}

	view, err := buildView(setting, ctx, p, &annotator, contributor, inviter)
	if err != nil {
		return nil, err
	}
	if request.SendEmail {
		if err := setting.sendInvitation(p, &annotator, contributor, inviter); err != nil {
			if setting.Logger != nil {
				setting.Logger.WithError(err).Warnf("invitation of annotator [%d] not sent", annotator.ID)
			}
		} else {
			view.EmailSent = true
		}
	}
	return view, nil
}

func buildView(setting *Setting, ctx context.Context, p *metadata.Project, annotator *metadata.Annotator, contributor, inviter *metadata.Contributor) (*View, error) {
	percent, err := completion(setting, ctx, p, annotator.ID)
	if err != nil {
		return nil, err
	}

	view := &View{
		ID:          annotator.ID,
		Project:     p.ID,
		Contributor: contributor.Username,
		Email:       contributor.Email,
		IsActive:    contributor.IsActive,
		Completion:  percent,
		CreatedAt:   annotator.CreatedAt,
	}
	if inviter != nil {
		view.InvitingContributor = inviter.Username
	}
	if annotator.Token != nil {
		view.Token = *annotator.Token
	}
	return view, nil
}

func contributorsByID(db *gorm.DB, ids []uint) (map[uint]*metadata.Contributor, error) {
	ret := make(map[uint]*metadata.Contributor, len(ids))
	if len(ids) == 0 {
		return ret, nil
	}

	var contributors []metadata.Contributor
	if err := db.Where("id IN ?", ids).Find(&contributors).Error; err != nil {
		return nil, utils.WrapError(err, "query contributors fail")
	}
	for i := range contributors {
		ret[contributors[i].ID] = &contributors[i]
	}
	return ret, nil
}

func privateAnnotators(setting *Setting, ctx context.Context, p *metadata.Project) ([]metadata.Annotator, error) {
	var annotators []metadata.Annotator
	err := setting.db(ctx).
		Where("annotator_type = ? AND project_id = ?", metadata.AnnotatorTypePrivate, p.ID).
		Order("id").
		Find(&annotators).Error
	if err != nil {
		return nil, utils.WrapError(err, "query private annotators fail")
	}
	return annotators, nil
}

// List 列出项目的私有标注员及其完成度，账号已删除的标注员不列出。
func List(ctx context.Context, p *metadata.Project) ([]View, error) {
	return list(&globalSetting, ctx, p)
}

func list(setting *Setting, ctx context.Context, p *metadata.Project) ([]View, error) {
	annotators, err := privateAnnotators(setting, ctx, p)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, 2*len(annotators))
	for _, a := range annotators {
		ids = append(ids, a.ContributorID)
		if a.InvitingContributorID != nil {
			ids = append(ids, *a.InvitingContributorID)
		}
	}
	contributors, err := contributorsByID(setting.db(ctx), ids)
	if err != nil {
		return nil, err
	}

	ret := make([]View, 0, len(annotators))
	for i := range annotators {
		a := &annotators[i]
		contributor, ok := contributors[a.ContributorID]
		if !ok {
			continue
		}
		var inviter *metadata.Contributor
		if a.InvitingContributorID != nil {
			inviter = contributors[*a.InvitingContributorID]
		}

		view, err := buildView(setting, ctx, p, a, contributor, inviter)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *view)
	}
	return ret, nil
}

// findPrivate 按用户名查找项目的私有标注员；同一账号有多个标注员时返回 IntegrityViolation。
func findPrivate(setting *Setting, ctx context.Context, p *metadata.Project, contributor *metadata.Contributor) (*metadata.Annotator, error) {
	var annotators []metadata.Annotator
	err := setting.db(ctx).
		Where("annotator_type = ? AND project_id = ? AND contributor_id = ?", metadata.AnnotatorTypePrivate, p.ID, contributor.ID).
		Find(&annotators).Error
	if err != nil {
		return nil, utils.WrapError(err, "query private annotator fail")
	}
	switch len(annotators) {
	case 0:
		return nil, nil
	case 1:
		return &annotators[0], nil
	default:
		return nil, project.Integrity("Data integrity error")
	}
}

// FindByUsername 返回项目中用户名为 username 的私有标注员。
func FindByUsername(ctx context.Context, p *metadata.Project, username string) (*metadata.Annotator, error) {
	return findByUsername(&globalSetting, ctx, p, username)
}

func findByUsername(setting *Setting, ctx context.Context, p *metadata.Project, username string) (*metadata.Annotator, error) {
	contributor, err := findContributor(setting, ctx, username)
	if err != nil {
		return nil, err
	}

	var annotator *metadata.Annotator
	if contributor != nil {
		annotator, err = findPrivate(setting, ctx, p, contributor)
		if err != nil {
			return nil, err
		}
	}
	if annotator == nil {
		return nil, project.NotFound("Private Annotator with username %s does not exist", username)
	}
	return annotator, nil
}

// ResendInvite 重新发送邀请邮件，返回给调用方的提示。
func ResendInvite(ctx context.Context, p *metadata.Project, inviter *metadata.Contributor, username, email string) (string, error) {
	return resendInvite(&globalSetting, ctx, p, inviter, username, email)
}

func resendInvite(setting *Setting, ctx context.Context, p *metadata.Project, inviter *metadata.Contributor, username, email string) (string, error) {
	notInvited := project.NotFound("Contributor with email %s and username %s has not been invited yet to the project %s",
		email, username, p.Name)

	contributor, err := findContributor(setting, ctx, username)
	if err != nil {
		return "", err
	}
	if contributor == nil || contributor.Email != email {
		return "", notInvited
	}

	annotator, err := findPrivate(setting, ctx, p, contributor)
	if err != nil {
		return "", err
	}
	if annotator == nil {
		return "", notInvited
	}

	if err := setting.sendInvitation(p, annotator, contributor, inviter); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully sent email again to private annotator at email %s", email), nil
}

// ToggleActive 切换私有标注员账号的启用状态，停用后其 token 不能再通过认证。
func ToggleActive(ctx context.Context, p *metadata.Project, username string) (*View, error) {
	return toggleActive(&globalSetting, ctx, p, username)
}

func toggleActive(setting *Setting, ctx context.Context, p *metadata.Project, username string) (*View, error) {
	annotator, err := findByUsername(setting, ctx, p, username)
	if err != nil {
		return nil, err
	}

	contributors, err := contributorsByID(setting.db(ctx), []uint{annotator.ContributorID})
	if err != nil {
		return nil, err
	}
	contributor := contributors[annotator.ContributorID]
	if contributor == nil {
		return nil, project.Integrity("Contributor of private annotator %d does not exist", annotator.ID)
	}

	contributor.IsActive = !contributor.IsActive
	err = setting.db(ctx).Model(contributor).Update("is_active", contributor.IsActive).Error
	if err != nil {
		return nil, utils.WrapError(err, "update contributor fail")
	}
	if setting.Logger != nil {
		setting.Logger.Infof("contributor [%s] active: %v", contributor.Username, contributor.IsActive)
	}

	var inviter *metadata.Contributor
	if annotator.InvitingContributorID != nil {
		inviters, err := contributorsByID(setting.db(ctx), []uint{*annotator.InvitingContributorID})
		if err != nil {
			return nil, err
		}
		inviter = inviters[*annotator.InvitingContributorID]
	}
	return buildView(setting, ctx, p, annotator, contributor, inviter)
}

/*
FindByToken 用私有标注员的 token 认证，返回标注员、账号与所属项目。

token 不存在或账号已停用时返回 Unauthorized。
*/
func FindByToken(ctx context.Context, token string) (*metadata.Annotator, *metadata.Contributor, *metadata.Project, error) {
	return findByToken(&globalSetting, ctx, token)
}

func findByToken(setting *Setting, ctx context.Context, token string) (*metadata.Annotator, *metadata.Contributor, *metadata.Project, error) {
	if len(token) == 0 {
		return nil, nil, nil, project.Unauthorized("Missing annotation token")
	}

	var annotator metadata.Annotator
	err := setting.db(ctx).
		Where("annotator_type = ? AND token = ?", metadata.AnnotatorTypePrivate, token).
		Limit(1).
		Find(&annotator).Error
	if err != nil {
		return nil, nil, nil, utils.WrapError(err, "query annotator by token fail")
	}
	if annotator.ID == 0 || annotator.ProjectID == nil {
		return nil, nil, nil, project.Unauthorized("Invalid annotation token")
	}

	contributors, err := contributorsByID(setting.db(ctx), []uint{annotator.ContributorID})
	if err != nil {
		return nil, nil, nil, err
	}
	contributor := contributors[annotator.ContributorID]
	if contributor == nil || !contributor.IsActive {
		return nil, nil, nil, project.Unauthorized("Private annotator is not active")
	}

	var p metadata.Project
	err = setting.db(ctx).Where("id = ?", *annotator.ProjectID).Limit(1).Find(&p).Error
	if err != nil {
		return nil, nil, nil, utils.WrapError(err, "query project of annotator fail")
	}
	if p.ID == 0 {
		return nil, nil, nil, project.Unauthorized("Invalid annotation token")
	}
	return &annotator, contributor, &p, nil
}
