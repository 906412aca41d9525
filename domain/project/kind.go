package project

import (
	"annopedia-backend/repository/metadata"
	"context"
	"strings"

	"golang.org/x/text/cases"
)

var typeAliases = map[string]string{
	"textclassification":         metadata.ProjectTypeTextClassification,
	"tc":                         metadata.ProjectTypeTextClassification,
	"machinetranslationadequacy": metadata.ProjectTypeMachineTranslationAdequacy,
	"mta":                        metadata.ProjectTypeMachineTranslationAdequacy,
	"machinetranslationfluency":  metadata.ProjectTypeMachineTranslationFluency,
	"mtf":                        metadata.ProjectTypeMachineTranslationFluency,
	"namedentityrecognition":     metadata.ProjectTypeNamedEntityRecognition,
	"ner":                        metadata.ProjectTypeNamedEntityRecognition,
}

var typeFolder = cases.Fold()

func normalizeType(raw string) string {
	folded := typeFolder.String(raw)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, folded)
}

// ParseType 把项目类型或其别名转换为规范名称，忽略大小写与空格、连字符、下划线。
func ParseType(raw string) (string, error) {
	canonical, ok := typeAliases[normalizeType(raw)]
	if !ok {
		return "", Invalid("Project type %s is not supported", raw)
	}
	return canonical, nil
}

/*
Kind 按项目类型区分的行为，通过 Resolve 获得，调用方不关心具体类型。

	Values 标注的取值，键为 ValueFields；
	PreAnnotations 预标注，键与 Values 相同，没有预标注时为 nil；
	Parameters 待标注文本展示给标注员的字段，键为 ParameterFields。

Values 要求 entry 已经加载了 Classification 与高亮片段，见 loadEntries。
*/
type Kind interface {
	Project() *metadata.Project
	Type() string
	ValueFields() []string
	ParameterFields() []string
	HasCategories() bool

	AddEntry(ctx context.Context, annotator *metadata.Annotator, request *EntryRequest) (*EntryView, error)
	UpdateEntry(ctx context.Context, entry *metadata.ProjectEntry, patch *EntryPatch, changedByID uint) (*EntryView, error)
	AddUnannotatedEntries(ctx context.Context, rows []Row, fields *ImportFields) (int, error)
	Statistics(ctx context.Context) (map[string]interface{}, error)

	Values(entry *metadata.ProjectEntry) map[string]interface{}
	PreAnnotations(source *metadata.UnannotatedEntry) map[string]interface{}
	Parameters(source *metadata.UnannotatedEntry) map[string]interface{}
}

func Resolve(project *metadata.Project) (Kind, error) {
	return resolve(&globalSetting, project)
}

func resolve(setting *Setting, project *metadata.Project) (Kind, error) {
	base := kindBase{setting: setting, project: project}
	switch project.ProjectType {
	case metadata.ProjectTypeTextClassification:
		return &textClassification{kindBase: base}, nil
	case metadata.ProjectTypeMachineTranslationAdequacy:
		return &machineTranslation{kindBase: base, adequacy: true}, nil
	case metadata.ProjectTypeMachineTranslationFluency:
		return &machineTranslation{kindBase: base, adequacy: false}, nil
	case metadata.ProjectTypeNamedEntityRecognition:
		return &namedEntityRecognition{kindBase: base}, nil
	default:
		return nil, Integrity("Project %s has unknown type %s", project.URL, project.ProjectType)
	}
}

type kindBase struct {
	setting *Setting
	project *metadata.Project
}

func (k *kindBase) Project() *metadata.Project {
	return k.project
}

func (k *kindBase) Type() string {
	return k.project.ProjectType
}

func (k *kindBase) characterLevel() bool {
	return k.project.CharacterLevelSelection == nil || *k.project.CharacterLevelSelection
}

func (k *kindBase) findSource(ctx context.Context, sourceID uint) (*metadata.UnannotatedEntry, error) {
	var source metadata.UnannotatedEntry
	err := k.setting.db(ctx).
		Preload("PreAnnotationCategory").
		Where("id = ? AND project_id = ?", sourceID, k.project.ID).
		Limit(1).
		Find(&source).Error
	if err != nil {
		return nil, err
	}
	if source.ID == 0 {
		return nil, NotFound("Unannotated source with ID: %d does not exist in project %s", sourceID, k.project.Name)
	}
	return &source, nil
}

func (k *kindBase) findCategory(ctx context.Context, name string) (*metadata.Category, error) {
	var category metadata.Category
	err := k.setting.db(ctx).
		Where("project_id = ? AND name = ?", k.project.ID, name).
		Limit(1).
		Find(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, NotFound("Category %s does not exist in project %s", name, k.project.Name)
	}
	return &category, nil
}

func (k *kindBase) categoriesByName(ctx context.Context) (map[string]*metadata.Category, error) {
	var categories []metadata.Category
	err := k.setting.db(ctx).Where("project_id = ?", k.project.ID).Order("id").Find(&categories).Error
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*metadata.Category, len(categories))
	for i := range categories {
		ret[categories[i].Name] = &categories[i]
	}
	return ret, nil
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
