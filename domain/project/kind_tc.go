package project

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
	"strings"
)

type textClassification struct {
	kindBase
}

func (k *textClassification) ValueFields() []string {
	return []string{"category"}
}

func (k *textClassification) ParameterFields() []string {
	return []string{"text", "context"}
}

func (k *textClassification) HasCategories() bool {
	return true
}

func (k *textClassification) Values(entry *metadata.ProjectEntry) map[string]interface{} {
	var category interface{}
	if entry.Classification != nil {
		category = entry.Classification.Name
	}
	return map[string]interface{}{"category": category}
}

func (k *textClassification) PreAnnotations(source *metadata.UnannotatedEntry) map[string]interface{} {
	var category interface{}
	if source.PreAnnotationCategory != nil {
		category = source.PreAnnotationCategory.Name
	}
	return map[string]interface{}{"category": category}
}

func (k *textClassification) Parameters(source *metadata.UnannotatedEntry) map[string]interface{} {
	return map[string]interface{}{
		"text":    source.Text,
		"context": stringOrNil(source.Context),
	}
}

func (k *textClassification) AddEntry(ctx context.Context, annotator *metadata.Annotator, request *EntryRequest) (*EntryView, error) {
	source, err := k.findSource(ctx, request.UnannotatedSource)
	if err != nil {
		return nil, err
	}

	var categoryName string
	if err := decodeRequired(request.Payload, "category-name", &categoryName); err != nil {
		return nil, err
	}
	category, err := k.findCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}

	entry := &metadata.ProjectEntry{
		ProjectID:           k.project.ID,
		UnannotatedSourceID: source.ID,
		UnannotatedSource:   source,
		AnnotatorID:         annotator.ID,
		ClassificationID:    utils.UintToPtr(category.ID),
		Classification:      category,
	}
	return k.createEntry(ctx, k, entry, &highlightSet{}, nil, annotator.ContributorID)
}

func (k *textClassification) UpdateEntry(ctx context.Context, entry *metadata.ProjectEntry, patch *EntryPatch, changedByID uint) (*EntryView, error) {
	name := patch.Classification
	if name == nil {
		name = patch.CategoryName
	}
	if name == nil || len(*name) == 0 {
		return nil, Invalid("Missing classification in update data")
	}

	category, err := k.findCategory(ctx, *name)
	if err != nil {
		return nil, err
	}

	entry.ClassificationID = utils.UintToPtr(category.ID)
	entry.Classification = category
	return k.saveEntry(ctx, k, entry, nil, nil, changedByID)
}

func (k *textClassification) AddUnannotatedEntries(ctx context.Context, rows []Row, fields *ImportFields) (int, error) {
	if len(fields.TextField) == 0 {
		return 0, missingData("text_field")
	}

	categories, err := k.categoriesByName(ctx)
	if err != nil {
		return 0, utils.WrapError(err, "query categories fail")
	}

	return k.importRows(ctx, rows, fields, func(index int, row Row) (*metadata.UnannotatedEntry, error) {
		text, ok := row.String(fields.TextField)
		if !ok {
			return nil, Invalid("Text field missing from row with index %d", index)
		}

		entry := &metadata.UnannotatedEntry{Text: text}
		if len(fields.ValueField) != 0 {
			name, _ := row.String(fields.ValueField)
			name = strings.TrimSpace(name)
			if len(name) != 0 {
				category, ok := categories[name]
				if !ok {
					return nil, Invalid("Uploaded data contains category %s, that does not exist in project %s (row with index %d)",
						name, k.project.Name, index)
				}
				entry.PreAnnotationCategoryID = utils.UintToPtr(category.ID)
			}
		}
		return entry, nil
	})
}

func (k *textClassification) Statistics(ctx context.Context) (map[string]interface{}, error) {
	counts, err := countByCategory(k.setting.db(ctx).
		Model(&metadata.ProjectEntry{}).
		Select("classification_id AS category_id, COUNT(*) AS total").
		Where("project_id = ? AND classification_id IS NOT NULL", k.project.ID).
		Group("classification_id"))
	if err != nil {
		return nil, err
	}
	return k.categoryStatistics(ctx, counts)
}
