package project

import (
	"annopedia-backend/repository/metadata"
	"encoding/json"
	"sort"
)

type SpanPayload struct {
	SpanStart *int `json:"span_start"`
	SpanEnd   *int `json:"span_end"`
}

/*
HighlightPayload 机器翻译标注中的一个高亮片段。

	MistranslationSource 只允许出现在充分性项目 Category 为 Mistranslation 的译文片段上，
	区间落在参考译文中。
*/
type HighlightPayload struct {
	SpanPayload
	Category             *string      `json:"category"`
	MistranslationSource *SpanPayload `json:"mistranslation_source"`
}

type NERHighlightPayload struct {
	SpanPayload
	Category *string `json:"category"`
}

type textHighlightInput struct {
	highlight            metadata.TextHighlight
	mistranslationSource *metadata.TextHighlight
}

// decodeOptional 解码 payload 中的一个可选字段，字段不存在或为 null 时返回 false。
func decodeOptional(payload map[string]json.RawMessage, key string, dst interface{}) (bool, error) {
	raw, ok := payload[key]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, Invalid("Malformed data in request (%s)", key)
	}
	return true, nil
}

func decodeRequired(payload map[string]json.RawMessage, key string, dst interface{}) error {
	present, err := decodeOptional(payload, key, dst)
	if err != nil {
		return err
	}
	if !present {
		return missingData(key)
	}
	return nil
}

/*
checkSpan 检查 0 <= start < end <= 文本字符数，按词选择时把区间扩展到词边界。
*/
func (k *kindBase) checkSpan(span *SpanPayload, text string) (int, int, error) {
	if span.SpanStart == nil {
		return 0, 0, missingData("span_start")
	}
	if span.SpanEnd == nil {
		return 0, 0, missingData("span_end")
	}

	start, end := *span.SpanStart, *span.SpanEnd
	length := len([]rune(text))
	if start < 0 || start >= end || end > length {
		return 0, 0, Invalid("Highlight span [%d, %d) is out of text bounds [0, %d)", start, end, length)
	}

	if !k.characterLevel() {
		start, end = k.setting.snap(text, start, end)
	}
	return start, end, nil
}

/*
parseTextHighlights 校验一侧的高亮片段。

	side 片段所在的一侧；text 该侧的文本；
	sourceText 不为空时允许 Mistranslation 片段带来源区间，来源区间落在 sourceText 中。
*/
func (k *kindBase) parseTextHighlights(payloads []HighlightPayload, side, text string, sourceText *string) ([]textHighlightInput, error) {
	ret := make([]textHighlightInput, 0, len(payloads))
	for i := range payloads {
		payload := &payloads[i]

		start, end, err := k.checkSpan(&payload.SpanPayload, text)
		if err != nil {
			return nil, err
		}
		if payload.Category == nil || len(*payload.Category) == 0 {
			return nil, missingData("category")
		}

		input := textHighlightInput{
			highlight: metadata.TextHighlight{
				Side:      side,
				SpanStart: start,
				SpanEnd:   end,
				Category:  *payload.Category,
			},
		}

		if payload.MistranslationSource != nil {
			if *payload.Category != metadata.HighlightCategoryMistranslation || sourceText == nil {
				return nil, Invalid("Mistranslation source is only allowed on %s target highlights of adequacy projects",
					metadata.HighlightCategoryMistranslation)
			}

			sourceStart, sourceEnd, err := k.checkSpan(payload.MistranslationSource, *sourceText)
			if err != nil {
				return nil, err
			}
			input.mistranslationSource = &metadata.TextHighlight{
				Side:      metadata.HighlightSideSource,
				SpanStart: sourceStart,
				SpanEnd:   sourceEnd,
				Category:  metadata.HighlightCategoryMistranslationSource,
			}
		}

		ret = append(ret, input)
	}
	return ret, nil
}

func (k *kindBase) parseNERHighlights(payloads []NERHighlightPayload, text string, categories map[string]*metadata.Category) ([]metadata.NERTextHighlight, error) {
	ret := make([]metadata.NERTextHighlight, 0, len(payloads))
	for i := range payloads {
		payload := &payloads[i]

		start, end, err := k.checkSpan(&payload.SpanPayload, text)
		if err != nil {
			return nil, err
		}
		if payload.Category == nil || len(*payload.Category) == 0 {
			return nil, missingData("category")
		}

		category, ok := categories[*payload.Category]
		if !ok {
			return nil, NotFound("Category %s does not exist in project %s", *payload.Category, k.project.Name)
		}

		ret = append(ret, metadata.NERTextHighlight{
			SpanStart:  start,
			SpanEnd:    end,
			CategoryID: category.ID,
			Category:   category,
		})
	}
	return ret, nil
}

// nerValues 返回按 (start, end, category) 排序的 [start, end, category] 列表
func nerValues(highlights []metadata.NERTextHighlight) []interface{} {
	type triple struct {
		start, end int
		category   string
	}
	triples := make([]triple, 0, len(highlights))
	for _, h := range highlights {
		t := triple{start: h.SpanStart, end: h.SpanEnd}
		if h.Category != nil {
			t.category = h.Category.Name
		}
		triples = append(triples, t)
	}
	sort.Slice(triples, func(i, j int) bool {
		if triples[i].start != triples[j].start {
			return triples[i].start < triples[j].start
		}
		if triples[i].end != triples[j].end {
			return triples[i].end < triples[j].end
		}
		return triples[i].category < triples[j].category
	})

	ret := make([]interface{}, 0, len(triples))
	for _, t := range triples {
		ret = append(ret, []interface{}{t.start, t.end, t.category})
	}
	return ret
}
