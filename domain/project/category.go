package project

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
)

type CategoryRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	KeyBinding  *string `json:"key_binding"`
}

func ListCategories(ctx context.Context, project *metadata.Project) ([]metadata.Category, error) {
	return listCategories(&globalSetting, ctx, project)
}

func listCategories(setting *Setting, ctx context.Context, project *metadata.Project) ([]metadata.Category, error) {
	categories := make([]metadata.Category, 0)
	err := setting.db(ctx).Where("project_id = ?", project.ID).Order("id").Find(&categories).Error
	if err != nil {
		return nil, utils.WrapError(err, "query categories fail")
	}
	return categories, nil
}

func requireCategories(setting *Setting, project *metadata.Project) error {
	k, err := resolve(setting, project)
	if err != nil {
		return err
	}
	if !k.HasCategories() {
		return NotFound("Project does not have a category type")
	}
	return nil
}

/*
CreateCategory 在文本分类或命名实体识别项目中创建分类。

同一项目内名称不能重复，非空的快捷键也不能重复；命名实体识别项目忽略快捷键。
*/
func CreateCategory(ctx context.Context, project *metadata.Project, request *CategoryRequest) (*CategoryView, error) {
	return createCategory(&globalSetting, ctx, project, request)
}

func createCategory(setting *Setting, ctx context.Context, project *metadata.Project, request *CategoryRequest) (*CategoryView, error) {
	if err := requireCategories(setting, project); err != nil {
		return nil, err
	}
	if len(request.Name) == 0 {
		return nil, missingData("name")
	}

	category := metadata.Category{
		ProjectID:   project.ID,
		Name:        request.Name,
		Description: request.Description,
	}
	if project.ProjectType != metadata.ProjectTypeNamedEntityRecognition &&
		request.KeyBinding != nil && len(*request.KeyBinding) != 0 {
		category.KeyBinding = request.KeyBinding
	}

	db := setting.db(ctx)
	var count int64
	err := db.Model(&metadata.Category{}).Where("project_id = ? AND name = ?", project.ID, category.Name).Count(&count).Error
	if err != nil {
		return nil, utils.WrapError(err, "count categories fail")
	}
	if count != 0 {
		return nil, Invalid("Category %s already exists in project %s", category.Name, project.Name)
	}

	if category.KeyBinding != nil {
		err = db.Model(&metadata.Category{}).Where("project_id = ? AND key_binding = ?", project.ID, *category.KeyBinding).Count(&count).Error
		if err != nil {
			return nil, utils.WrapError(err, "count categories fail")
		}
		if count != 0 {
			return nil, Invalid("Key binding %s is already used in project %s", *category.KeyBinding, project.Name)
		}
	}

	if err := db.Create(&category).Error; err != nil {
		return nil, utils.WrapError(err, "create category fail")
	}
	return buildCategoryView(project, &category), nil
}

// DeleteCategory 删除分类；仍被标注、预标注或实体片段引用的分类不能删除。
func DeleteCategory(ctx context.Context, project *metadata.Project, categoryID uint) (*CategoryView, error) {
	return deleteCategory(&globalSetting, ctx, project, categoryID)
}

func deleteCategory(setting *Setting, ctx context.Context, project *metadata.Project, categoryID uint) (*CategoryView, error) {
	if err := requireCategories(setting, project); err != nil {
		return nil, err
	}

	db := setting.db(ctx)
	var category metadata.Category
	err := db.Where("id = ? AND project_id = ?", categoryID, project.ID).Limit(1).Find(&category).Error
	if err != nil {
		return nil, utils.WrapError(err, "query category fail")
	}
	if category.ID == 0 {
		return nil, NotFound("Category with ID %d is not found in the project %s", categoryID, project.Name)
	}

	references := []struct {
		model interface{}
		query string
	}{
		{&metadata.ProjectEntry{}, "classification_id = ?"},
		{&metadata.UnannotatedEntry{}, "pre_annotation_category_id = ?"},
		{&metadata.NERTextHighlight{}, "category_id = ?"},
	}
	for _, ref := range references {
		var count int64
		if err := db.Model(ref.model).Where(ref.query, category.ID).Count(&count).Error; err != nil {
			return nil, utils.WrapError(err, "count category references fail")
		}
		if count != 0 {
			return nil, Invalid("Category %s is still used by %d records and cannot be deleted", category.Name, count)
		}
	}

	if err := db.Delete(&metadata.Category{}, category.ID).Error; err != nil {
		return nil, utils.WrapError(err, "delete category fail")
	}
	return buildCategoryView(project, &category), nil
}
