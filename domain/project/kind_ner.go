package project

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
)

type namedEntityRecognition struct {
	kindBase
}

func (k *namedEntityRecognition) ValueFields() []string {
	return []string{"ner_text_highlights"}
}

func (k *namedEntityRecognition) ParameterFields() []string {
	return []string{"text", "context"}
}

func (k *namedEntityRecognition) HasCategories() bool {
	return true
}

func (k *namedEntityRecognition) Values(entry *metadata.ProjectEntry) map[string]interface{} {
	return map[string]interface{}{"ner_text_highlights": nerValues(entry.NERTextHighlights)}
}

func (k *namedEntityRecognition) PreAnnotations(source *metadata.UnannotatedEntry) map[string]interface{} {
	return map[string]interface{}{"ner_text_highlights": nil}
}

func (k *namedEntityRecognition) Parameters(source *metadata.UnannotatedEntry) map[string]interface{} {
	return map[string]interface{}{
		"text":    source.Text,
		"context": stringOrNil(source.Context),
	}
}

func (k *namedEntityRecognition) parseHighlights(ctx context.Context, text string, payloads []NERHighlightPayload) (*highlightSet, map[uint]*metadata.Category, error) {
	categories, err := k.categoriesByName(ctx)
	if err != nil {
		return nil, nil, utils.WrapError(err, "query categories fail")
	}

	highlights, err := k.parseNERHighlights(payloads, text, categories)
	if err != nil {
		return nil, nil, err
	}
	return &highlightSet{ner: highlights}, categoryIndex(categories), nil
}

func (k *namedEntityRecognition) AddEntry(ctx context.Context, annotator *metadata.Annotator, request *EntryRequest) (*EntryView, error) {
	source, err := k.findSource(ctx, request.UnannotatedSource)
	if err != nil {
		return nil, err
	}

	var payloads []NERHighlightPayload
	if err := decodeRequired(request.Payload, "ner_text_highlights", &payloads); err != nil {
		return nil, err
	}
	set, index, err := k.parseHighlights(ctx, source.Text, payloads)
	if err != nil {
		return nil, err
	}

	entry := &metadata.ProjectEntry{
		ProjectID:           k.project.ID,
		UnannotatedSourceID: source.ID,
		UnannotatedSource:   source,
		AnnotatorID:         annotator.ID,
	}
	return k.createEntry(ctx, k, entry, set, index, annotator.ContributorID)
}

func (k *namedEntityRecognition) UpdateEntry(ctx context.Context, entry *metadata.ProjectEntry, patch *EntryPatch, changedByID uint) (*EntryView, error) {
	var set *highlightSet
	var index map[uint]*metadata.Category
	if patch.NERTextHighlights != nil {
		var err error
		set, index, err = k.parseHighlights(ctx, entry.UnannotatedSource.Text, *patch.NERTextHighlights)
		if err != nil {
			return nil, err
		}
	}
	return k.saveEntry(ctx, k, entry, set, index, changedByID)
}

func (k *namedEntityRecognition) AddUnannotatedEntries(ctx context.Context, rows []Row, fields *ImportFields) (int, error) {
	if len(fields.TextField) == 0 {
		return 0, missingData("text_field")
	}

	return k.importRows(ctx, rows, fields, func(index int, row Row) (*metadata.UnannotatedEntry, error) {
		text, ok := row.String(fields.TextField)
		if !ok {
			return nil, Invalid("Text field missing from row with index %d", index)
		}
		return &metadata.UnannotatedEntry{Text: text}, nil
	})
}

func (k *namedEntityRecognition) Statistics(ctx context.Context) (map[string]interface{}, error) {
	counts, err := countByCategory(k.setting.db(ctx).
		Table("ner_text_highlights").
		Select("ner_text_highlights.category_id AS category_id, COUNT(*) AS total").
		Joins("JOIN project_entries ON project_entries.id = ner_text_highlights.entry_id").
		Where("project_entries.project_id = ?", k.project.ID).
		Group("ner_text_highlights.category_id"))
	if err != nil {
		return nil, err
	}
	return k.categoryStatistics(ctx, counts)
}
