package project

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
)

/*
machineTranslation 充分性与流利度两种项目。

	充分性：Text 为参考译文，MTSystemTranslation 为机器译文，两侧都可以高亮；
	流利度：Text 为机器译文，只有译文一侧可以高亮。
*/
type machineTranslation struct {
	kindBase
	adequacy bool
}

func (k *machineTranslation) valueField() string {
	if k.adequacy {
		return "adequacy"
	}
	return "fluency"
}

func (k *machineTranslation) ValueFields() []string {
	return []string{k.valueField()}
}

func (k *machineTranslation) ParameterFields() []string {
	if k.adequacy {
		return []string{"reference_translation", "mt_system_translation", "context"}
	}
	return []string{"mt_system_translation", "context"}
}

func (k *machineTranslation) HasCategories() bool {
	return false
}

func (k *machineTranslation) Values(entry *metadata.ProjectEntry) map[string]interface{} {
	if k.adequacy {
		return map[string]interface{}{"adequacy": floatOrNil(entry.Adequacy)}
	}
	return map[string]interface{}{"fluency": floatOrNil(entry.Fluency)}
}

func (k *machineTranslation) PreAnnotations(source *metadata.UnannotatedEntry) map[string]interface{} {
	if k.adequacy {
		return map[string]interface{}{"adequacy": floatOrNil(source.PreAnnotationAdequacy)}
	}
	return map[string]interface{}{"fluency": floatOrNil(source.PreAnnotationFluency)}
}

func (k *machineTranslation) Parameters(source *metadata.UnannotatedEntry) map[string]interface{} {
	if k.adequacy {
		translation := ""
		if source.MTSystemTranslation != nil {
			translation = *source.MTSystemTranslation
		}
		return map[string]interface{}{
			"reference_translation": source.Text,
			"mt_system_translation": translation,
			"context":               stringOrNil(source.Context),
		}
	}
	return map[string]interface{}{
		"mt_system_translation": source.Text,
		"context":               stringOrNil(source.Context),
	}
}

// targetText 返回可以高亮的译文
func (k *machineTranslation) targetText(source *metadata.UnannotatedEntry) string {
	if k.adequacy {
		if source.MTSystemTranslation == nil {
			return ""
		}
		return *source.MTSystemTranslation
	}
	return source.Text
}

func (k *machineTranslation) parseHighlights(source *metadata.UnannotatedEntry, sourceSide, targetSide []HighlightPayload) (*highlightSet, error) {
	set := &highlightSet{}

	if len(sourceSide) != 0 {
		if !k.adequacy {
			return nil, Invalid("Source highlights are not supported in %s projects", k.project.ProjectType)
		}
		inputs, err := k.parseTextHighlights(sourceSide, metadata.HighlightSideSource, source.Text, nil)
		if err != nil {
			return nil, err
		}
		set.text = append(set.text, inputs...)
	}

	var referenceText *string
	if k.adequacy {
		referenceText = &source.Text
	}
	inputs, err := k.parseTextHighlights(targetSide, metadata.HighlightSideTarget, k.targetText(source), referenceText)
	if err != nil {
		return nil, err
	}
	set.text = append(set.text, inputs...)

	return set, nil
}

func (k *machineTranslation) AddEntry(ctx context.Context, annotator *metadata.Annotator, request *EntryRequest) (*EntryView, error) {
	source, err := k.findSource(ctx, request.UnannotatedSource)
	if err != nil {
		return nil, err
	}

	var value float64
	if err := decodeRequired(request.Payload, k.valueField(), &value); err != nil {
		return nil, err
	}

	var sourceSide, targetSide []HighlightPayload
	if _, err := decodeOptional(request.Payload, "source_text_highlights", &sourceSide); err != nil {
		return nil, err
	}
	if _, err := decodeOptional(request.Payload, "target_text_highlights", &targetSide); err != nil {
		return nil, err
	}
	set, err := k.parseHighlights(source, sourceSide, targetSide)
	if err != nil {
		return nil, err
	}

	entry := &metadata.ProjectEntry{
		ProjectID:           k.project.ID,
		UnannotatedSourceID: source.ID,
		UnannotatedSource:   source,
		AnnotatorID:         annotator.ID,
	}
	if k.adequacy {
		entry.Adequacy = utils.Float64ToPtr(value)
	} else {
		entry.Fluency = utils.Float64ToPtr(value)
	}
	return k.createEntry(ctx, k, entry, set, nil, annotator.ContributorID)
}

// existingHighlights 把 entry 已有的一侧高亮还原为请求格式，Mistranslation 的来源片段归属于对应的译文片段。
func existingHighlights(entry *metadata.ProjectEntry, side string) []HighlightPayload {
	byID := make(map[uint]*metadata.TextHighlight, len(entry.TextHighlights))
	linked := make(map[uint]bool)
	for i := range entry.TextHighlights {
		h := &entry.TextHighlights[i]
		byID[h.ID] = h
		if h.MistranslationSourceID != nil {
			linked[*h.MistranslationSourceID] = true
		}
	}

	ret := make([]HighlightPayload, 0)
	for i := range entry.TextHighlights {
		h := &entry.TextHighlights[i]
		if h.Side != side || linked[h.ID] {
			continue
		}
		payload := HighlightPayload{
			SpanPayload: SpanPayload{SpanStart: utils.IntToPtr(h.SpanStart), SpanEnd: utils.IntToPtr(h.SpanEnd)},
			Category:    utils.StringToPtr(h.Category),
		}
		if h.MistranslationSourceID != nil {
			if source, ok := byID[*h.MistranslationSourceID]; ok {
				payload.MistranslationSource = &SpanPayload{
					SpanStart: utils.IntToPtr(source.SpanStart),
					SpanEnd:   utils.IntToPtr(source.SpanEnd),
				}
			}
		}
		ret = append(ret, payload)
	}
	return ret
}

/*
UpdateEntry 只修改出现的数值；出现的一侧高亮整体替换，未出现的一侧保持不变。
*/
func (k *machineTranslation) UpdateEntry(ctx context.Context, entry *metadata.ProjectEntry, patch *EntryPatch, changedByID uint) (*EntryView, error) {
	var set *highlightSet
	if patch.SourceTextHighlights != nil || patch.TargetTextHighlights != nil {
		sourceSide := existingHighlights(entry, metadata.HighlightSideSource)
		if patch.SourceTextHighlights != nil {
			sourceSide = *patch.SourceTextHighlights
		}
		targetSide := existingHighlights(entry, metadata.HighlightSideTarget)
		if patch.TargetTextHighlights != nil {
			targetSide = *patch.TargetTextHighlights
		}

		var err error
		set, err = k.parseHighlights(entry.UnannotatedSource, sourceSide, targetSide)
		if err != nil {
			return nil, err
		}
	}

	if k.adequacy && patch.Adequacy != nil {
		entry.Adequacy = utils.Float64ToPtr(*patch.Adequacy)
	}
	if !k.adequacy && patch.Fluency != nil {
		entry.Fluency = utils.Float64ToPtr(*patch.Fluency)
	}
	return k.saveEntry(ctx, k, entry, set, nil, changedByID)
}

func (k *machineTranslation) AddUnannotatedEntries(ctx context.Context, rows []Row, fields *ImportFields) (int, error) {
	if len(fields.TextField) == 0 {
		return 0, missingData("text_field")
	}
	if k.adequacy && len(fields.TranslationField) == 0 {
		return 0, missingData("mt_system_translation")
	}

	return k.importRows(ctx, rows, fields, func(index int, row Row) (*metadata.UnannotatedEntry, error) {
		entry := &metadata.UnannotatedEntry{}

		if k.adequacy {
			reference, ok := row.String(fields.TextField)
			if !ok {
				return nil, Invalid("Reference translation field missing from row with index %d", index)
			}
			translation, ok := row.String(fields.TranslationField)
			if !ok {
				return nil, Invalid("Machine translation field missing from row with index %d", index)
			}
			entry.Text = reference
			entry.MTSystemTranslation = utils.StringToPtr(translation)
		} else {
			translation, ok := row.String(fields.TextField)
			if !ok {
				return nil, Invalid("Machine translation field missing from row with index %d", index)
			}
			entry.Text = translation
		}

		if len(fields.ValueField) != 0 {
			value, err := row.Float(fields.ValueField)
			if err != nil {
				return nil, Invalid("Pre-annotation %s in row with index %d is not a number", fields.ValueField, index)
			}
			if k.adequacy {
				entry.PreAnnotationAdequacy = value
			} else {
				entry.PreAnnotationFluency = value
			}
		}
		return entry, nil
	})
}

func (k *machineTranslation) Statistics(ctx context.Context) (map[string]interface{}, error) {
	avg, err := k.average(ctx, k.valueField())
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"averages": map[string]interface{}{k.valueField(): floatOrNil(avg)},
	}, nil
}
