package project

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"

	"gorm.io/gorm"
)

// countByCategory 执行一条返回 (category_id, total) 的分组查询
func countByCategory(query *gorm.DB) (map[uint]int64, error) {
	type row struct {
		CategoryID uint
		Total      int64
	}
	var rows []row
	if err := query.Scan(&rows).Error; err != nil {
		return nil, utils.WrapError(err, "count by category fail")
	}

	ret := make(map[uint]int64, len(rows))
	for _, r := range rows {
		ret[r.CategoryID] = r.Total
	}
	return ret, nil
}

type CategoryCount struct {
	Name         string `json:"name"`
	TotalEntries int64  `json:"total_entries"`
}

// categoryStatistics 按分类的创建顺序列出每个分类的计数，没有计数的分类为 0。
func (k *kindBase) categoryStatistics(ctx context.Context, counts map[uint]int64) (map[string]interface{}, error) {
	var categories []metadata.Category
	err := k.setting.db(ctx).Where("project_id = ?", k.project.ID).Order("id").Find(&categories).Error
	if err != nil {
		return nil, utils.WrapError(err, "query categories fail")
	}

	ret := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		ret = append(ret, CategoryCount{Name: c.Name, TotalEntries: counts[c.ID]})
	}
	return map[string]interface{}{"categories": ret}, nil
}

// average 返回 column 非空值的平均数，没有非空值时返回 nil。
func (k *kindBase) average(ctx context.Context, column string) (*float64, error) {
	var values []float64
	err := k.setting.db(ctx).
		Model(&metadata.ProjectEntry{}).
		Where("project_id = ? AND "+column+" IS NOT NULL", k.project.ID).
		Pluck(column, &values).Error
	if err != nil {
		return nil, utils.WrapErrorf(err, "pluck %s fail", column)
	}
	if len(values) == 0 {
		return nil, nil
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg, nil
}

/*
Statistics 项目的统计信息：标注总数、导入文本总数，以及按项目类型不同的统计：

	文本分类与命名实体识别 categories: [{name, total_entries}]；
	机器翻译 averages: {adequacy 或 fluency}。
*/
func Statistics(ctx context.Context, k Kind) (map[string]interface{}, error) {
	return statistics(&globalSetting, ctx, k)
}

func statistics(setting *Setting, ctx context.Context, k Kind) (map[string]interface{}, error) {
	var totalEntries, totalImported int64
	db := setting.db(ctx)

	err := db.Model(&metadata.ProjectEntry{}).Where("project_id = ?", k.Project().ID).Count(&totalEntries).Error
	if err != nil {
		return nil, utils.WrapError(err, "count entries fail")
	}
	err = db.Model(&metadata.UnannotatedEntry{}).Where("project_id = ?", k.Project().ID).Count(&totalImported).Error
	if err != nil {
		return nil, utils.WrapError(err, "count imported texts fail")
	}

	ret, err := k.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	ret["total_entries"] = totalEntries
	ret["total_imported_texts"] = totalImported
	return ret, nil
}
