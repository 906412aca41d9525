package annotator

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
)

// judgedCount 标注员在项目中标注过的不同待标注文本数
func judgedCount(setting *Setting, ctx context.Context, p *metadata.Project, annotatorID uint) (int64, error) {
	var count int64
	err := setting.db(ctx).
		Model(&metadata.ProjectEntry{}).
		Where("project_id = ? AND annotator_id = ?", p.ID, annotatorID).
		Distinct("unannotated_source_id").
		Count(&count).Error
	if err != nil {
		return 0, utils.WrapError(err, "count judged sources fail")
	}
	return count, nil
}

/*
Completion 标注员的完成度百分比，保留两位小数：

	100 * 标注过的不同待标注文本数 / 导入的待标注文本数

项目没有导入任何文本时为 100。
*/
func Completion(ctx context.Context, p *metadata.Project, annotatorID uint) (float64, error) {
	return completion(&globalSetting, ctx, p, annotatorID)
}

func completion(setting *Setting, ctx context.Context, p *metadata.Project, annotatorID uint) (float64, error) {
	var imported int64
	err := setting.db(ctx).Model(&metadata.UnannotatedEntry{}).Where("project_id = ?", p.ID).Count(&imported).Error
	if err != nil {
		return 0, utils.WrapError(err, "count imported texts fail")
	}
	if imported == 0 {
		return 100, nil
	}

	judged, err := judgedCount(setting, ctx, p, annotatorID)
	if err != nil {
		return 0, err
	}
	return utils.Round2(100 * float64(judged) / float64(imported)), nil
}

// Remaining 按 ID 顺序返回标注员还没有标注过的待标注文本。
func Remaining(ctx context.Context, p *metadata.Project, annotatorID uint) ([]metadata.UnannotatedEntry, error) {
	return remaining(&globalSetting, ctx, p, annotatorID)
}

func remaining(setting *Setting, ctx context.Context, p *metadata.Project, annotatorID uint) ([]metadata.UnannotatedEntry, error) {
	judged := setting.db(ctx).
		Model(&metadata.ProjectEntry{}).
		Select("unannotated_source_id").
		Where("project_id = ? AND annotator_id = ?", p.ID, annotatorID)

	sources := make([]metadata.UnannotatedEntry, 0)
	err := setting.db(ctx).
		Preload("PreAnnotationCategory").
		Where("project_id = ? AND id NOT IN (?)", p.ID, judged).
		Order("id").
		Find(&sources).Error
	if err != nil {
		return nil, utils.WrapError(err, "query remaining texts fail")
	}
	return sources, nil
}
