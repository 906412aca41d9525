package eventpub

import "time"

const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
	EventEntryDeleted = "entry.deleted"
)

/*
EntryEvent 标注变更后发往消息队列的消息。

	Values 变更后的取值，删除事件为空。
*/
type EntryEvent struct {
	Event       string                 `json:"event"`
	ProjectURL  string                 `json:"project_url"`
	EntryID     uint                   `json:"entry_id"`
	AnnotatorID uint                   `json:"annotator_id"`
	Values      map[string]interface{} `json:"values,omitempty"`
	At          time.Time              `json:"at"`
}
