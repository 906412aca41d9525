package project

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
	"time"

	"gorm.io/gorm"
)

type CreateRequest struct {
	ProjectType             string  `json:"project_type"`
	Name                    string  `json:"name"`
	Description             string  `json:"description"`
	TalkMarkdown            *string `json:"talk_markdown"`
	CharacterLevelSelection *bool   `json:"character_level_selection"`
}

type UpdateRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	TalkMarkdown *string `json:"talk_markdown"`
}

type AdministratorView struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type CategoryView struct {
	ID          uint    `json:"id"`
	Project     uint    `json:"project"`
	ProjectURL  string  `json:"project_url"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	KeyBinding  *string `json:"key_binding"`
}

type View struct {
	ID                      uint                `json:"id"`
	Name                    string              `json:"name"`
	Description             string              `json:"description"`
	Type                    string              `json:"type"`
	URL                     string              `json:"url"`
	TalkMarkdown            *string             `json:"talk_markdown"`
	CharacterLevelSelection *bool               `json:"character_level_selection"`
	Administrators          []AdministratorView `json:"administrators"`
	Categories              []CategoryView      `json:"categories,omitempty"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
}

func buildView(project *metadata.Project, categories []metadata.Category) *View {
	view := &View{
		ID:                      project.ID,
		Name:                    project.Name,
		Description:             project.Description,
		Type:                    project.ProjectType,
		URL:                     project.URL,
		TalkMarkdown:            project.TalkMarkdown,
		CharacterLevelSelection: project.CharacterLevelSelection,
		Administrators:          make([]AdministratorView, 0, len(project.Administrators)),
		CreatedAt:               project.CreatedAt,
		UpdatedAt:               project.UpdatedAt,
	}
	for _, admin := range project.Administrators {
		view.Administrators = append(view.Administrators, AdministratorView{Username: admin.Username, Email: admin.Email})
	}
	if categories != nil {
		view.Categories = make([]CategoryView, 0, len(categories))
		for i := range categories {
			view.Categories = append(view.Categories, *buildCategoryView(project, &categories[i]))
		}
	}
	return view
}

func buildCategoryView(project *metadata.Project, category *metadata.Category) *CategoryView {
	return &CategoryView{
		ID:          category.ID,
		Project:     project.ID,
		ProjectURL:  project.URL,
		Name:        category.Name,
		Description: category.Description,
		KeyBinding:  category.KeyBinding,
	}
}

//////////////////////////////// 项目 ////////////////////////////////////

// Create 创建项目并把 creator 设为管理员。
func Create(ctx context.Context, request *CreateRequest, creator *metadata.Contributor) (*View, error) {
	return create(&globalSetting, ctx, request, creator)
}

func create(setting *Setting, ctx context.Context, request *CreateRequest, creator *metadata.Contributor) (*View, error) {
	projectType, err := ParseType(request.ProjectType)
	if err != nil {
		return nil, err
	}
	if len(request.Name) == 0 {
		return nil, missingData("name")
	}

	project := metadata.Project{
		Name:         request.Name,
		Description:  request.Description,
		ProjectType:  projectType,
		TalkMarkdown: request.TalkMarkdown,
	}
	if projectType != metadata.ProjectTypeTextClassification {
		if request.CharacterLevelSelection == nil {
			return nil, Invalid("Missing request data (character level selection)")
		}
		project.CharacterLevelSelection = request.CharacterLevelSelection
	}
	if creator != nil {
		project.Administrators = []metadata.Contributor{*creator}
	}

	err = setting.db(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Administrators.*").Create(&project).Error
	})
	if err != nil {
		return nil, utils.WrapError(err, "create project fail")
	}

	if setting.Logger != nil {
		setting.Logger.Infof("project [%s] of type [%s] created", project.URL, project.ProjectType)
	}
	return viewOf(setting, ctx, &project)
}

// Get 按 URL 查找项目，同时加载管理员。
func Get(ctx context.Context, url string) (*metadata.Project, error) {
	return get(&globalSetting, ctx, url)
}

func get(setting *Setting, ctx context.Context, url string) (*metadata.Project, error) {
	var project metadata.Project
	err := setting.db(ctx).
		Preload("Administrators", func(db *gorm.DB) *gorm.DB { return db.Order("contributors.id") }).
		Where("url = ?", url).
		Limit(1).
		Find(&project).Error
	if err != nil {
		return nil, utils.WrapErrorf(err, "query project [%s] fail", url)
	}
	if project.ID == 0 {
		return nil, NotFound("Project with url %s does not exist", url)
	}
	return &project, nil
}

func ViewOf(ctx context.Context, project *metadata.Project) (*View, error) {
	return viewOf(&globalSetting, ctx, project)
}

func viewOf(setting *Setting, ctx context.Context, project *metadata.Project) (*View, error) {
	k, err := resolve(setting, project)
	if err != nil {
		return nil, err
	}

	var categories []metadata.Category
	if k.HasCategories() {
		categories, err = listCategories(setting, ctx, project)
		if err != nil {
			return nil, err
		}
	}
	return buildView(project, categories), nil
}

// List 按 ID 顺序列出项目，projectType 非空时只列出该类型（接受别名）的项目。
func List(ctx context.Context, projectType string) ([]View, error) {
	return list(&globalSetting, ctx, projectType)
}

func list(setting *Setting, ctx context.Context, projectType string) ([]View, error) {
	db := setting.db(ctx).Preload("Administrators", func(db *gorm.DB) *gorm.DB { return db.Order("contributors.id") })
	if len(projectType) != 0 {
		canonical, err := ParseType(projectType)
		if err != nil {
			return []View{}, nil
		}
		db = db.Where("project_type = ?", canonical)
	}

	var projects []metadata.Project
	if err := db.Order("id").Find(&projects).Error; err != nil {
		return nil, utils.WrapError(err, "query projects fail")
	}

	ret := make([]View, 0, len(projects))
	for i := range projects {
		ret = append(ret, *buildView(&projects[i], nil))
	}
	return ret, nil
}

func Update(ctx context.Context, project *metadata.Project, request *UpdateRequest) (*View, error) {
	return update(&globalSetting, ctx, project, request)
}

func update(setting *Setting, ctx context.Context, project *metadata.Project, request *UpdateRequest) (*View, error) {
	if request.Name != nil {
		if len(*request.Name) == 0 {
			return nil, Invalid("Project name cannot be empty")
		}
		project.Name = *request.Name
	}
	if request.Description != nil {
		project.Description = *request.Description
	}
	if request.TalkMarkdown != nil {
		project.TalkMarkdown = request.TalkMarkdown
	}

	err := setting.db(ctx).Model(project).
		Select("name", "description", "talk_markdown", "updated_at").
		Updates(map[string]interface{}{
			"name":          project.Name,
			"description":   project.Description,
			"talk_markdown": project.TalkMarkdown,
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		return nil, utils.WrapError(err, "update project fail")
	}
	return viewOf(setting, ctx, project)
}

/*
Delete 在一个事务中删除项目及其拥有的全部数据：
高亮片段、标注、待标注文本、分类、私有标注员、管理员关系。标注历史保留。
*/
func Delete(ctx context.Context, project *metadata.Project) error {
	return deleteProject(&globalSetting, ctx, project)
}

func deleteProject(setting *Setting, ctx context.Context, project *metadata.Project) error {
	err := setting.db(ctx).Transaction(func(tx *gorm.DB) error {
		var entryIDs []uint
		err := tx.Model(&metadata.ProjectEntry{}).Where("project_id = ?", project.ID).Pluck("id", &entryIDs).Error
		if err != nil {
			return utils.WrapError(err, "query entries fail")
		}
		if err := deleteHighlights(tx, entryIDs); err != nil {
			return err
		}

		steps := []struct {
			name  string
			model interface{}
		}{
			{"entries", &metadata.ProjectEntry{}},
			{"unannotated entries", &metadata.UnannotatedEntry{}},
			{"categories", &metadata.Category{}},
			{"private annotators", &metadata.Annotator{}},
		}
		for _, step := range steps {
			if err := tx.Where("project_id = ?", project.ID).Delete(step.model).Error; err != nil {
				return utils.WrapErrorf(err, "delete %s fail", step.name)
			}
		}

		if err := tx.Model(project).Association("Administrators").Clear(); err != nil {
			return utils.WrapError(err, "clear administrators fail")
		}
		if err := tx.Delete(&metadata.Project{}, project.ID).Error; err != nil {
			return utils.WrapError(err, "delete project fail")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if setting.Logger != nil {
		setting.Logger.Infof("project [%s] deleted", project.URL)
	}
	return nil
}

//////////////////////////////// 管理员 ////////////////////////////////////

func IsAdministrator(ctx context.Context, project *metadata.Project, contributorID uint) (bool, error) {
	return isAdministrator(&globalSetting, ctx, project, contributorID)
}

func isAdministrator(setting *Setting, ctx context.Context, project *metadata.Project, contributorID uint) (bool, error) {
	var count int64
	err := setting.db(ctx).
		Table("project_administrators").
		Where("project_id = ? AND contributor_id = ?", project.ID, contributorID).
		Count(&count).Error
	if err != nil {
		return false, utils.WrapError(err, "query administrators fail")
	}
	return count != 0, nil
}

// RequireAdministrator 调用者不是项目管理员时返回 Unauthorized。
func RequireAdministrator(ctx context.Context, project *metadata.Project, contributorID uint) error {
	return requireAdministrator(&globalSetting, ctx, project, contributorID)
}

func requireAdministrator(setting *Setting, ctx context.Context, project *metadata.Project, contributorID uint) error {
	ok, err := isAdministrator(setting, ctx, project, contributorID)
	if err != nil {
		return err
	}
	if !ok {
		return Unauthorized("Contributor is not project adminstrator")
	}
	return nil
}

// AddAdministrator 按邮箱查找账号并加入项目管理员。
func AddAdministrator(ctx context.Context, project *metadata.Project, email string) (string, error) {
	return addAdministrator(&globalSetting, ctx, project, email)
}

func addAdministrator(setting *Setting, ctx context.Context, project *metadata.Project, email string) (string, error) {
	if len(email) == 0 {
		return "", missingData("email")
	}

	var contributor metadata.Contributor
	err := setting.db(ctx).Where("email = ?", email).Order("id").Limit(1).Find(&contributor).Error
	if err != nil {
		return "", utils.WrapError(err, "query contributor fail")
	}
	if contributor.ID == 0 {
		return "", NotFound("Contributor with email %s does not exist", email)
	}

	err = setting.db(ctx).Model(project).Association("Administrators").Append(&contributor)
	if err != nil {
		return "", utils.WrapError(err, "append administrator fail")
	}
	return contributor.Username, nil
}
