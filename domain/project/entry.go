package project

import (
	"annopedia-backend/domain/eventpub"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/*
EntryRequest 创建标注的请求，Payload 的内容随项目类型变化：

	文本分类 {"category-name": "..."}；
	充分性 {"adequacy": 1.0, "source_text_highlights": [...], "target_text_highlights": [...]}；
	流利度 {"fluency": 1.0, "target_text_highlights": [...]}；
	命名实体识别 {"ner_text_highlights": [{"span_start": 0, "span_end": 1, "category": "..."}]}。
*/
type EntryRequest struct {
	UnannotatedSource uint                       `json:"unannotated_source"`
	Payload           map[string]json.RawMessage `json:"payload"`
}

// EntryPatch 修改标注的请求，只修改出现的字段。
type EntryPatch struct {
	Classification       *string                `json:"classification"`
	CategoryName         *string                `json:"category_name"`
	Adequacy             *float64               `json:"adequacy"`
	Fluency              *float64               `json:"fluency"`
	SourceTextHighlights *[]HighlightPayload    `json:"source_text_highlights"`
	TargetTextHighlights *[]HighlightPayload    `json:"target_text_highlights"`
	NERTextHighlights    *[]NERHighlightPayload `json:"ner_text_highlights"`
}

type HighlightView struct {
	ID                   uint   `json:"id"`
	SpanStart            int    `json:"span_start"`
	SpanEnd              int    `json:"span_end"`
	Category             string `json:"category"`
	MistranslationSource *uint  `json:"mistranslation_source,omitempty"`
}

type EntryView struct {
	ID                   uint                   `json:"id"`
	Project              string                 `json:"project"`
	ProjectType          string                 `json:"project_type"`
	ProjectURL           string                 `json:"project_url"`
	UnannotatedSource    *SourceView            `json:"unannotated_source"`
	AnnotatorID          uint                   `json:"annotator_id"`
	Annotator            string                 `json:"annotator"`
	Text                 string                 `json:"text"`
	Context              string                 `json:"context"`
	PreAnnotations       map[string]interface{} `json:"pre_annotations"`
	Value                map[string]interface{} `json:"value"`
	ValueFields          []string               `json:"value_fields"`
	SourceTextHighlights []HighlightView        `json:"source_text_highlights,omitempty"`
	TargetTextHighlights []HighlightView        `json:"target_text_highlights,omitempty"`
	NERTextHighlights    []HighlightView        `json:"ner_text_highlights,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

type HistoryView struct {
	ID          uint                    `json:"id"`
	EntryID     uint                    `json:"entry_id"`
	HistoryType string                  `json:"history_type"`
	ChangedByID *uint                   `json:"changed_by_id"`
	Snapshot    *metadata.EntrySnapshot `json:"snapshot"`
	CreatedAt   time.Time               `json:"created_at"`
}

const noContext = "No context"

func contextOrDefault(context *string) string {
	if context == nil {
		return noContext
	}
	return *context
}

// EntryPreloads 加载 Kind.Values 与视图需要的全部关联
func EntryPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("UnannotatedSource").
		Preload("UnannotatedSource.PreAnnotationCategory").
		Preload("Classification").
		Preload("TextHighlights", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("NERTextHighlights", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("NERTextHighlights.Category")
}

func loadEntries(db *gorm.DB, query interface{}, args ...interface{}) ([]metadata.ProjectEntry, error) {
	var entries []metadata.ProjectEntry
	err := EntryPreloads(db).Where(query, args...).Order("id").Find(&entries).Error
	if err != nil {
		return nil, utils.WrapError(err, "load entries fail")
	}
	return entries, nil
}

// usernames 返回 Annotator.ID 到账号用户名的映射，账号已删除的标注员不在结果中。
func usernames(db *gorm.DB, annotatorIDs []uint) (map[uint]string, error) {
	ret := make(map[uint]string)
	if len(annotatorIDs) == 0 {
		return ret, nil
	}

	type row struct {
		ID       uint
		Username string
	}
	var rows []row
	err := db.Table("annotators").
		Select("annotators.id AS id, contributors.username AS username").
		Joins("JOIN contributors ON contributors.id = annotators.contributor_id").
		Where("annotators.id IN ?", annotatorIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, utils.WrapError(err, "query annotator usernames fail")
	}

	for _, r := range rows {
		ret[r.ID] = r.Username
	}
	return ret, nil
}

func buildEntryView(k Kind, entry *metadata.ProjectEntry, username string) *EntryView {
	project := k.Project()
	view := &EntryView{
		ID:          entry.ID,
		Project:     project.Name,
		ProjectType: project.ProjectType,
		ProjectURL:  project.URL,
		AnnotatorID: entry.AnnotatorID,
		Annotator:   username,
		Value:       k.Values(entry),
		ValueFields: k.ValueFields(),
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}

	if entry.UnannotatedSource != nil {
		view.UnannotatedSource = buildSourceView(k, entry.UnannotatedSource)
		view.Text = entry.UnannotatedSource.Text
		view.Context = contextOrDefault(entry.UnannotatedSource.Context)
		view.PreAnnotations = k.PreAnnotations(entry.UnannotatedSource)
	}

	for _, h := range entry.TextHighlights {
		hv := HighlightView{
			ID:                   h.ID,
			SpanStart:            h.SpanStart,
			SpanEnd:              h.SpanEnd,
			Category:             h.Category,
			MistranslationSource: h.MistranslationSourceID,
		}
		if h.Side == metadata.HighlightSideSource {
			view.SourceTextHighlights = append(view.SourceTextHighlights, hv)
		} else {
			view.TargetTextHighlights = append(view.TargetTextHighlights, hv)
		}
	}
	for _, h := range entry.NERTextHighlights {
		hv := HighlightView{ID: h.ID, SpanStart: h.SpanStart, SpanEnd: h.SpanEnd}
		if h.Category != nil {
			hv.Category = h.Category.Name
		}
		view.NERTextHighlights = append(view.NERTextHighlights, hv)
	}

	return view
}

func buildEntryViews(db *gorm.DB, k Kind, entries []metadata.ProjectEntry) ([]EntryView, error) {
	ids := make([]uint, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.AnnotatorID)
	}
	names, err := usernames(db, ids)
	if err != nil {
		return nil, err
	}

	ret := make([]EntryView, 0, len(entries))
	for i := range entries {
		ret = append(ret, *buildEntryView(k, &entries[i], names[entries[i].AnnotatorID]))
	}
	return ret, nil
}

func snapshotOf(k Kind, entry *metadata.ProjectEntry) *metadata.EntrySnapshot {
	snapshot := &metadata.EntrySnapshot{
		UnannotatedSourceID: entry.UnannotatedSourceID,
		AnnotatorID:         entry.AnnotatorID,
		Values:              k.Values(entry),
	}
	for _, h := range entry.TextHighlights {
		snapshot.Highlights = append(snapshot.Highlights, metadata.HighlightSnapshot{
			ID:                   h.ID,
			Side:                 h.Side,
			SpanStart:            h.SpanStart,
			SpanEnd:              h.SpanEnd,
			Category:             h.Category,
			MistranslationSource: h.MistranslationSourceID,
		})
	}
	for _, h := range entry.NERTextHighlights {
		hs := metadata.HighlightSnapshot{ID: h.ID, SpanStart: h.SpanStart, SpanEnd: h.SpanEnd}
		if h.Category != nil {
			hs.Category = h.Category.Name
		}
		snapshot.Highlights = append(snapshot.Highlights, hs)
	}
	return snapshot
}

func appendHistory(tx *gorm.DB, k Kind, entry *metadata.ProjectEntry, historyType string, changedByID uint) error {
	history := metadata.ProjectEntryHistory{
		EntryID:     entry.ID,
		ProjectID:   entry.ProjectID,
		HistoryType: historyType,
		ChangedByID: utils.UintToPtr(changedByID),
		Snapshot:    snapshotOf(k, entry).ToJSON(),
	}
	err := tx.Create(&history).Error
	if err != nil {
		return utils.WrapError(err, "create history fail")
	}
	return nil
}

// highlightSet 一条标注待写入的全部高亮片段
type highlightSet struct {
	text []textHighlightInput
	ner  []metadata.NERTextHighlight
}

/*
saveHighlights 写入 entry 的高亮片段并回填 entry.TextHighlights 与 entry.NERTextHighlights。

Mistranslation 片段的来源片段先写入，以便取得 ID。
*/
func saveHighlights(tx *gorm.DB, entry *metadata.ProjectEntry, set *highlightSet, categories map[uint]*metadata.Category) error {
	entry.TextHighlights = nil
	entry.NERTextHighlights = nil

	for _, input := range set.text {
		highlight := input.highlight
		highlight.EntryID = entry.ID

		if input.mistranslationSource != nil {
			source := *input.mistranslationSource
			source.EntryID = entry.ID
			if err := tx.Create(&source).Error; err != nil {
				return utils.WrapError(err, "create mistranslation source fail")
			}
			highlight.MistranslationSourceID = utils.UintToPtr(source.ID)
			entry.TextHighlights = append(entry.TextHighlights, source)
		}

		if err := tx.Create(&highlight).Error; err != nil {
			return utils.WrapError(err, "create text highlight fail")
		}
		entry.TextHighlights = append(entry.TextHighlights, highlight)
	}

	for _, input := range set.ner {
		highlight := input
		highlight.EntryID = entry.ID
		highlight.Category = nil
		if err := tx.Create(&highlight).Error; err != nil {
			return utils.WrapError(err, "create ner highlight fail")
		}
		highlight.Category = categories[highlight.CategoryID]
		entry.NERTextHighlights = append(entry.NERTextHighlights, highlight)
	}

	return nil
}

func deleteHighlights(tx *gorm.DB, entryIDs []uint) error {
	if len(entryIDs) == 0 {
		return nil
	}
	if err := tx.Where("entry_id IN ?", entryIDs).Delete(&metadata.TextHighlight{}).Error; err != nil {
		return utils.WrapError(err, "delete text highlights fail")
	}
	if err := tx.Where("entry_id IN ?", entryIDs).Delete(&metadata.NERTextHighlight{}).Error; err != nil {
		return utils.WrapError(err, "delete ner highlights fail")
	}
	return nil
}

func categoryIndex(categories map[string]*metadata.Category) map[uint]*metadata.Category {
	ret := make(map[uint]*metadata.Category, len(categories))
	for _, c := range categories {
		ret[c.ID] = c
	}
	return ret
}

/*
createEntry 在一个事务中写入标注、高亮片段与创建历史，成功后发送 entry.created 事件。

entry.UnannotatedSource 与 entry.Classification 需由调用方填好，用于生成视图与快照。
*/
func (k *kindBase) createEntry(ctx context.Context, kind Kind, entry *metadata.ProjectEntry, set *highlightSet, categories map[uint]*metadata.Category, changedByID uint) (*EntryView, error) {
	err := k.setting.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(entry).Error; err != nil {
			return utils.WrapError(err, "create entry fail")
		}
		if err := saveHighlights(tx, entry, set, categories); err != nil {
			return err
		}
		return appendHistory(tx, kind, entry, metadata.HistoryTypeCreated, changedByID)
	})
	if err != nil {
		return nil, err
	}

	k.setting.publish(&eventpub.EntryEvent{
		Event:       eventpub.EventEntryCreated,
		ProjectURL:  k.project.URL,
		EntryID:     entry.ID,
		AnnotatorID: entry.AnnotatorID,
		Values:      kind.Values(entry),
	})

	names, err := usernames(k.setting.db(ctx), []uint{entry.AnnotatorID})
	if err != nil {
		return nil, err
	}
	return buildEntryView(kind, entry, names[entry.AnnotatorID]), nil
}

/*
saveEntry 在一个事务中更新标注的取值列，set 非空时整体替换高亮片段，并追加修改历史。
*/
func (k *kindBase) saveEntry(ctx context.Context, kind Kind, entry *metadata.ProjectEntry, set *highlightSet, categories map[uint]*metadata.Category, changedByID uint) (*EntryView, error) {
	err := k.setting.db(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(entry).
			Select("classification_id", "adequacy", "fluency", "updated_at").
			Updates(map[string]interface{}{
				"classification_id": entry.ClassificationID,
				"adequacy":          entry.Adequacy,
				"fluency":           entry.Fluency,
				"updated_at":        time.Now(),
			}).Error
		if err != nil {
			return utils.WrapError(err, "update entry fail")
		}

		if set != nil {
			if err := deleteHighlights(tx, []uint{entry.ID}); err != nil {
				return err
			}
			if err := saveHighlights(tx, entry, set, categories); err != nil {
				return err
			}
		}
		return appendHistory(tx, kind, entry, metadata.HistoryTypeUpdated, changedByID)
	})
	if err != nil {
		return nil, err
	}

	k.setting.publish(&eventpub.EntryEvent{
		Event:       eventpub.EventEntryUpdated,
		ProjectURL:  k.project.URL,
		EntryID:     entry.ID,
		AnnotatorID: entry.AnnotatorID,
		Values:      kind.Values(entry),
	})

	names, err := usernames(k.setting.db(ctx), []uint{entry.AnnotatorID})
	if err != nil {
		return nil, err
	}
	return buildEntryView(kind, entry, names[entry.AnnotatorID]), nil
}

//////////////////////////////// 对外操作 ////////////////////////////////////

func GetEntry(ctx context.Context, project *metadata.Project, entryID uint) (*metadata.ProjectEntry, error) {
	return getEntry(&globalSetting, ctx, project, entryID)
}

func getEntry(setting *Setting, ctx context.Context, project *metadata.Project, entryID uint) (*metadata.ProjectEntry, error) {
	entries, err := loadEntries(setting.db(ctx), "id = ? AND project_id = ?", entryID, project.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, NotFound("Entry with ID: %d not found", entryID)
	}
	return &entries[0], nil
}

// ListEntries 返回项目的全部标注，annotatorID 非 0 时只返回该标注员的标注。
func ListEntries(ctx context.Context, k Kind, annotatorID uint) ([]EntryView, error) {
	return listEntries(&globalSetting, ctx, k, annotatorID)
}

func listEntries(setting *Setting, ctx context.Context, k Kind, annotatorID uint) ([]EntryView, error) {
	db := setting.db(ctx)
	if annotatorID != 0 {
		db = db.Where("annotator_id = ?", annotatorID)
	}
	entries, err := loadEntries(db, "project_id = ?", k.Project().ID)
	if err != nil {
		return nil, err
	}
	return buildEntryViews(setting.db(ctx), k, entries)
}

func DeleteEntry(ctx context.Context, k Kind, entry *metadata.ProjectEntry, changedByID uint) error {
	return deleteEntry(&globalSetting, ctx, k, entry, changedByID)
}

func deleteEntry(setting *Setting, ctx context.Context, k Kind, entry *metadata.ProjectEntry, changedByID uint) error {
	err := setting.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteHighlights(tx, []uint{entry.ID}); err != nil {
			return err
		}
		if err := tx.Delete(&metadata.ProjectEntry{}, entry.ID).Error; err != nil {
			return utils.WrapError(err, "delete entry fail")
		}
		return appendHistory(tx, k, entry, metadata.HistoryTypeDeleted, changedByID)
	})
	if err != nil {
		return err
	}

	setting.publish(&eventpub.EntryEvent{
		Event:       eventpub.EventEntryDeleted,
		ProjectURL:  k.Project().URL,
		EntryID:     entry.ID,
		AnnotatorID: entry.AnnotatorID,
	})
	return nil
}

func EntryHistory(ctx context.Context, project *metadata.Project, entryID uint) ([]HistoryView, error) {
	return entryHistory(&globalSetting, ctx, project, entryID)
}

func entryHistory(setting *Setting, ctx context.Context, project *metadata.Project, entryID uint) ([]HistoryView, error) {
	var histories []metadata.ProjectEntryHistory
	err := setting.db(ctx).
		Where("entry_id = ? AND project_id = ?", entryID, project.ID).
		Order("id").
		Find(&histories).Error
	if err != nil {
		return nil, utils.WrapError(err, "query history fail")
	}
	if len(histories) == 0 {
		return nil, NotFound("Entry with ID: %d not found", entryID)
	}

	ret := make([]HistoryView, 0, len(histories))
	for _, h := range histories {
		var snapshot metadata.EntrySnapshot
		if err := json.Unmarshal(h.Snapshot, &snapshot); err != nil {
			return nil, utils.WrapErrorf(err, "decode snapshot of history [%d] fail", h.ID)
		}
		ret = append(ret, HistoryView{
			ID:          h.ID,
			EntryID:     h.EntryID,
			HistoryType: h.HistoryType,
			ChangedByID: h.ChangedByID,
			Snapshot:    &snapshot,
			CreatedAt:   h.CreatedAt,
		})
	}
	return ret, nil
}
