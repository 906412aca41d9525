package metadata

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func toJSON(schema interface{}) datatypes.JSON {
	bytes, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return bytes
}

/*
HighlightSnapshot 描述历史记录中的一个高亮片段。

	Side 只有机器翻译项目使用；
	MistranslationSource 指向同一快照中另一个片段的 ID。
*/
type HighlightSnapshot struct {
	ID                   uint   `json:"id"`
	Side                 string `json:"side,omitempty"`
	SpanStart            int    `json:"span_start"`
	SpanEnd              int    `json:"span_end"`
	Category             string `json:"category"`
	MistranslationSource *uint  `json:"mistranslation_source,omitempty"`
}

// EntrySnapshot 是 ProjectEntryHistory.Snapshot 的 schema，记录标注在某一时刻的全部取值。
type EntrySnapshot struct {
	UnannotatedSourceID uint                   `json:"unannotated_source_id"`
	AnnotatorID         uint                   `json:"annotator_id"`
	Values              map[string]interface{} `json:"values"`
	Highlights          []HighlightSnapshot    `json:"highlights,omitempty"`
}

func (s *EntrySnapshot) ToJSON() datatypes.JSON {
	return toJSON(s)
}
