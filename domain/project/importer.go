package project

import (
	"annopedia-backend/domain/tokenizer"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

const importBatchSize = 500

// Row 上传文件中的一行，CSV 的值总是字符串，JSON 的值保留原始类型。
type Row map[string]interface{}

// String 返回 key 对应的文本，key 不存在或为 null 时返回 false。
func (r Row) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch value := v.(type) {
	case string:
		return value, true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(value), true
	default:
		return fmt.Sprint(value), true
	}
}

// Float 返回 key 对应的数值，key 不存在、为 null 或空字符串时返回 nil。
func (r Row) Float(key string) (*float64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch value := v.(type) {
	case float64:
		return &value, nil
	case string:
		value = strings.TrimSpace(value)
		if len(value) == 0 {
			return nil, nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("value %#v is not a number", v)
	}
}

/*
ImportFields 导入时各个字段所在的列。

	TextField 必填：文本分类与命名实体识别为原文，充分性为参考译文，流利度为机器译文；
	TranslationField 只有充分性项目使用，机器译文所在的列；
	ValueField 预标注所在的列，可选；
	ContextField 上下文所在的列，可选，给出时每一行都必须有该列。
*/
type ImportFields struct {
	TextField        string
	ContextField     string
	ValueField       string
	TranslationField string
}

type rowConverter func(index int, row Row) (*metadata.UnannotatedEntry, error)

// importRows 先校验全部行，任意一行失败时什么也不写入；全部通过后在一个事务中批量写入。
func (k *kindBase) importRows(ctx context.Context, rows []Row, fields *ImportFields, convert rowConverter) (int, error) {
	entries := make([]metadata.UnannotatedEntry, 0, len(rows))
	for index, row := range rows {
		if row == nil {
			return 0, Invalid("Uploaded data is not in a list of records format")
		}

		var rowContext *string
		if len(fields.ContextField) != 0 {
			if _, ok := row[fields.ContextField]; !ok {
				return 0, Invalid("Context field provided, but row with index %d is missing context value", index)
			}
			// null 表示没有上下文
			if value, ok := row.String(fields.ContextField); ok {
				rowContext = utils.StringToPtr(value)
			}
		}

		entry, err := convert(index, row)
		if err != nil {
			return 0, err
		}
		entry.ProjectID = k.project.ID
		entry.Context = rowContext
		entries = append(entries, *entry)
	}

	if len(entries) == 0 {
		return 0, nil
	}

	err := k.setting.db(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("PreAnnotationCategory").CreateInBatches(&entries, importBatchSize).Error
	})
	if err != nil {
		return 0, utils.WrapError(err, "create unannotated entries fail")
	}

	return len(entries), nil
}

type SourceView struct {
	ID                  uint                   `json:"id"`
	Project             string                 `json:"project"`
	ProjectURL          string                 `json:"project_url"`
	Text                string                 `json:"text"`
	MTSystemTranslation *string                `json:"mt_system_translation,omitempty"`
	Context             string                 `json:"context"`
	Parameters          map[string]interface{} `json:"parameters"`
	PreAnnotations      map[string]interface{} `json:"pre_annotations"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

func stringOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func buildSourceView(k Kind, source *metadata.UnannotatedEntry) *SourceView {
	return &SourceView{
		ID:                  source.ID,
		Project:             k.Project().Name,
		ProjectURL:          k.Project().URL,
		Text:                source.Text,
		MTSystemTranslation: source.MTSystemTranslation,
		Context:             contextOrDefault(source.Context),
		Parameters:          k.Parameters(source),
		PreAnnotations:      k.PreAnnotations(source),
		CreatedAt:           source.CreatedAt,
		UpdatedAt:           source.UpdatedAt,
	}
}

func BuildSourceViews(k Kind, sources []metadata.UnannotatedEntry) []SourceView {
	ret := make([]SourceView, 0, len(sources))
	for i := range sources {
		ret = append(ret, *buildSourceView(k, &sources[i]))
	}
	return ret
}

//////////////////////////////// 对外操作 ////////////////////////////////////

func ImportedMessage(count int) string {
	return fmt.Sprintf("Succesfully created %d unannotated entries", count)
}

func ListSources(ctx context.Context, project *metadata.Project) ([]metadata.UnannotatedEntry, error) {
	return listSources(&globalSetting, ctx, project)
}

func listSources(setting *Setting, ctx context.Context, project *metadata.Project) ([]metadata.UnannotatedEntry, error) {
	var sources []metadata.UnannotatedEntry
	err := setting.db(ctx).
		Preload("PreAnnotationCategory").
		Where("project_id = ?", project.ID).
		Order("id").
		Find(&sources).Error
	if err != nil {
		return nil, utils.WrapError(err, "query unannotated entries fail")
	}
	return sources, nil
}

func GetSource(ctx context.Context, project *metadata.Project, sourceID uint) (*metadata.UnannotatedEntry, error) {
	return getSource(&globalSetting, ctx, project, sourceID)
}

func getSource(setting *Setting, ctx context.Context, project *metadata.Project, sourceID uint) (*metadata.UnannotatedEntry, error) {
	base := kindBase{setting: setting, project: project}
	source, err := base.findSource(ctx, sourceID)
	if err != nil {
		if e := AsError(err); e != nil {
			return nil, NotFound("Unannotated entry with ID: %d not found", sourceID)
		}
		return nil, utils.WrapError(err, "query unannotated entry fail")
	}
	return source, nil
}

// DeleteSource 删除一条待标注文本以及针对它的全部标注，历史记录保留。
func DeleteSource(ctx context.Context, project *metadata.Project, sourceID uint) error {
	return deleteSource(&globalSetting, ctx, project, sourceID)
}

func deleteSource(setting *Setting, ctx context.Context, project *metadata.Project, sourceID uint) error {
	source, err := getSource(setting, ctx, project, sourceID)
	if err != nil {
		return err
	}

	return setting.db(ctx).Transaction(func(tx *gorm.DB) error {
		var entryIDs []uint
		err := tx.Model(&metadata.ProjectEntry{}).Where("unannotated_source_id = ?", source.ID).Pluck("id", &entryIDs).Error
		if err != nil {
			return utils.WrapError(err, "query entries fail")
		}
		if err := deleteHighlights(tx, entryIDs); err != nil {
			return err
		}
		if len(entryIDs) != 0 {
			if err := tx.Where("id IN ?", entryIDs).Delete(&metadata.ProjectEntry{}).Error; err != nil {
				return utils.WrapError(err, "delete entries fail")
			}
		}
		if err := tx.Delete(&metadata.UnannotatedEntry{}, source.ID).Error; err != nil {
			return utils.WrapError(err, "delete unannotated entry fail")
		}
		return nil
	})
}

type SourceTokens struct {
	SourceID uint             `json:"id"`
	Text     []tokenizer.Span `json:"text"`
	// 只有充分性项目有机器译文
	MTSystemTranslation []tokenizer.Span `json:"mt_system_translation,omitempty"`
}

// Tokens 返回待标注文本的词边界，前端据此按词选择高亮。
func Tokens(ctx context.Context, project *metadata.Project, sourceID uint) (*SourceTokens, error) {
	return tokens(&globalSetting, ctx, project, sourceID)
}

func tokens(setting *Setting, ctx context.Context, project *metadata.Project, sourceID uint) (*SourceTokens, error) {
	source, err := getSource(setting, ctx, project, sourceID)
	if err != nil {
		return nil, err
	}

	ret := &SourceTokens{
		SourceID: source.ID,
		Text:     setting.words(source.Text),
	}
	if source.MTSystemTranslation != nil {
		ret.MTSystemTranslation = setting.words(*source.MTSystemTranslation)
	}
	return ret, nil
}
