package project

import (
	"annopedia-backend/domain/tokenizer"
	"annopedia-backend/logging"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	db      *gorm.DB
	setting *Setting
	admin   *metadata.Contributor
}

func newFixture(t *testing.T) *fixture {
	logging.SetDefaultConfig(logging.GenerateTestConfig(t))

	database, err := metadata.CreateDatabase(metadata.GenerateTestConfig(t))
	require.Nil(t, err)

	f := &fixture{
		t:   t,
		ctx: context.TODO(),
		db:  database,
		setting: &Setting{
			GetMetadataDatabase: func() *gorm.DB { return database },
			Logger:              logging.NewLogger(),
		},
	}
	f.admin = f.contributor("admin", "admin@example.com")
	return f
}

func (f *fixture) contributor(username, email string) *metadata.Contributor {
	c := metadata.Contributor{Username: username, Email: email, IsActive: true}
	require.Nil(f.t, f.db.Create(&c).Error)
	return &c
}

func (f *fixture) annotator(c *metadata.Contributor) *metadata.Annotator {
	a := metadata.Annotator{AnnotatorType: metadata.AnnotatorTypePublic, ContributorID: c.ID}
	require.Nil(f.t, f.db.Create(&a).Error)
	return &a
}

func (f *fixture) project(projectType string, characterLevel *bool) (*metadata.Project, Kind) {
	view, err := create(f.setting, f.ctx, &CreateRequest{
		ProjectType:             projectType,
		Name:                    "TCProject",
		Description:             "desc",
		CharacterLevelSelection: characterLevel,
	}, f.admin)
	require.Nil(f.t, err)

	p, err := get(f.setting, f.ctx, view.URL)
	require.Nil(f.t, err)
	k, err := resolve(f.setting, p)
	require.Nil(f.t, err)
	return p, k
}

func (f *fixture) category(p *metadata.Project, name string) {
	_, err := createCategory(f.setting, f.ctx, p, &CategoryRequest{Name: name})
	require.Nil(f.t, err)
}

func (f *fixture) sources(p *metadata.Project) []metadata.UnannotatedEntry {
	sources, err := listSources(f.setting, f.ctx, p)
	require.Nil(f.t, err)
	return sources
}

func payload(t *testing.T, sourceID uint, body map[string]interface{}) *EntryRequest {
	data, err := json.Marshal(map[string]interface{}{"unannotated_source": sourceID, "payload": body})
	require.Nil(t, err)

	var request EntryRequest
	require.Nil(t, json.Unmarshal(data, &request))
	return &request
}

func boolPtr(b bool) *bool {
	return &b
}

func assertKind(t *testing.T, kind string, err error) {
	require.NotNil(t, err)
	e := AsError(err)
	require.NotNil(t, e, "unexpected error %v", err)
	assert.Equal(t, kind, e.Kind, e.Detail)
}

func TestParseType(t *testing.T) {
	cases := map[string]string{
		"Text Classification":         metadata.ProjectTypeTextClassification,
		"text-classification":         metadata.ProjectTypeTextClassification,
		"TC":                          metadata.ProjectTypeTextClassification,
		"MachineTranslationAdequacy":  metadata.ProjectTypeMachineTranslationAdequacy,
		"mta":                         metadata.ProjectTypeMachineTranslationAdequacy,
		"machine_translation_fluency": metadata.ProjectTypeMachineTranslationFluency,
		"Named Entity Recognition":    metadata.ProjectTypeNamedEntityRecognition,
		"NER":                         metadata.ProjectTypeNamedEntityRecognition,
	}
	for raw, expect := range cases {
		actual, err := ParseType(raw)
		assert.Nil(t, err, raw)
		assert.Equal(t, expect, actual, raw)
	}

	_, err := ParseType("Sentiment")
	assertKind(t, KindValidation, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)

	_, err := create(f.setting, f.ctx, &CreateRequest{ProjectType: "mta", Name: "p"}, f.admin)
	assertKind(t, KindValidation, err)

	view, err := create(f.setting, f.ctx, &CreateRequest{ProjectType: "tc", Name: "p"}, f.admin)
	require.Nil(t, err)
	assert.Equal(t, metadata.ProjectTypeTextClassification, view.Type)
	assert.Len(t, view.URL, 36)
	require.Len(t, view.Administrators, 1)
	assert.Equal(t, "admin", view.Administrators[0].Username)
	assert.NotNil(t, view.Categories)

	ok, err := isAdministrator(f.setting, f.ctx, &metadata.Project{Model: metadata.Model{ID: view.ID}}, f.admin.ID)
	require.Nil(t, err)
	assert.True(t, ok)

	other := f.contributor("other", "other@example.com")
	err = requireAdministrator(f.setting, f.ctx, &metadata.Project{Model: metadata.Model{ID: view.ID}}, other.ID)
	assertKind(t, KindUnauthorized, err)
}

func TestListAndUpdateProject(t *testing.T) {
	f := newFixture(t)
	tc, _ := f.project("tc", nil)
	f.project("ner", boolPtr(true))

	all, err := list(f.setting, f.ctx, "")
	require.Nil(t, err)
	require.Len(t, all, 2)
	assert.Less(t, all[0].ID, all[1].ID)

	ners, err := list(f.setting, f.ctx, "named-entity-recognition")
	require.Nil(t, err)
	require.Len(t, ners, 1)
	assert.Equal(t, metadata.ProjectTypeNamedEntityRecognition, ners[0].Type)

	unknown, err := list(f.setting, f.ctx, "unknown")
	require.Nil(t, err)
	assert.Empty(t, unknown)

	name := "renamed"
	view, err := update(f.setting, f.ctx, tc, &UpdateRequest{Name: &name})
	require.Nil(t, err)
	assert.Equal(t, "renamed", view.Name)
	assert.Equal(t, "desc", view.Description)

	reloaded, err := get(f.setting, f.ctx, tc.URL)
	require.Nil(t, err)
	assert.Equal(t, "renamed", reloaded.Name)
}

func TestAddAdministrator(t *testing.T) {
	f := newFixture(t)
	p, _ := f.project("tc", nil)
	f.contributor("second", "second@example.com")

	_, err := addAdministrator(f.setting, f.ctx, p, "nobody@example.com")
	assertKind(t, KindNotFound, err)

	username, err := addAdministrator(f.setting, f.ctx, p, "second@example.com")
	require.Nil(t, err)
	assert.Equal(t, "second", username)

	reloaded, err := get(f.setting, f.ctx, p.URL)
	require.Nil(t, err)
	assert.Len(t, reloaded.Administrators, 2)
}

func TestGetProjectNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := get(f.setting, f.ctx, "not-a-url")
	assertKind(t, KindNotFound, err)
}

func TestTextClassificationExample(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("Text Classification", nil)
	f.category(p, "category1")

	rows, err := ParseUpload("text/csv", []byte("text\nfoo\nbar\n"), "")
	require.Nil(t, err)
	count, err := k.AddUnannotatedEntries(f.ctx, rows, &ImportFields{TextField: "text"})
	require.Nil(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "Succesfully created 2 unannotated entries", ImportedMessage(count))

	sources := f.sources(p)
	require.Len(t, sources, 2)
	assert.Equal(t, "foo", sources[0].Text)

	annotator := f.annotator(f.admin)
	view, err := k.AddEntry(f.ctx, annotator, payload(t, sources[0].ID, map[string]interface{}{"category-name": "category1"}))
	require.Nil(t, err)
	assert.Equal(t, "category1", view.Value["category"])
	assert.Equal(t, "foo", view.Text)
	assert.Equal(t, "No context", view.Context)
	assert.Equal(t, "admin", view.Annotator)
	assert.Equal(t, p.URL, view.ProjectURL)

	stats, err := statistics(f.setting, f.ctx, k)
	require.Nil(t, err)
	assert.Equal(t, []CategoryCount{{Name: "category1", TotalEntries: 1}}, stats["categories"])
	assert.Equal(t, int64(1), stats["total_entries"])
	assert.Equal(t, int64(2), stats["total_imported_texts"])
}

func TestAddEntryValidation(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("tc", nil)
	f.category(p, "category1")
	other, otherKind := f.project("tc", nil)
	f.category(other, "category1")

	_, err := otherKind.AddUnannotatedEntries(f.ctx, []Row{{"text": "elsewhere"}}, &ImportFields{TextField: "text"})
	require.Nil(t, err)
	foreign := f.sources(other)[0]

	_, err = k.AddUnannotatedEntries(f.ctx, []Row{{"text": "here"}}, &ImportFields{TextField: "text"})
	require.Nil(t, err)
	local := f.sources(p)[0]

	annotator := f.annotator(f.admin)

	_, err = k.AddEntry(f.ctx, annotator, payload(t, foreign.ID, map[string]interface{}{"category-name": "category1"}))
	assertKind(t, KindNotFound, err)

	_, err = k.AddEntry(f.ctx, annotator, payload(t, local.ID, map[string]interface{}{}))
	assertKind(t, KindValidation, err)
	assert.Contains(t, err.Error(), "category-name")

	_, err = k.AddEntry(f.ctx, annotator, payload(t, local.ID, map[string]interface{}{"category-name": "missing"}))
	assertKind(t, KindNotFound, err)

	var count int64
	require.Nil(t, f.db.Model(&metadata.ProjectEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestImportRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("tc", nil)
	f.category(p, "good")

	rows := []Row{
		{"text": "a", "label": "good"},
		{"text": "b", "label": ""},
		{"text": "c", "label": "bad"},
	}
	_, err := k.AddUnannotatedEntries(f.ctx, rows, &ImportFields{TextField: "text", ValueField: "label"})
	assertKind(t, KindValidation, err)
	assert.Contains(t, err.Error(), "index 2")
	assert.Empty(t, f.sources(p))

	_, err = k.AddUnannotatedEntries(f.ctx, []Row{{"text": "a"}, {"body": "b"}}, &ImportFields{TextField: "text"})
	assertKind(t, KindValidation, err)
	assert.Contains(t, err.Error(), "index 1")

	_, err = k.AddUnannotatedEntries(f.ctx, []Row{{"text": "a", "ctx": "x"}, {"text": "b"}}, &ImportFields{TextField: "text", ContextField: "ctx"})
	assertKind(t, KindValidation, err)
	assert.Empty(t, f.sources(p))

	_, err = k.AddUnannotatedEntries(f.ctx, []Row{{"text": "a"}, {"text": "b"}, {"text": nil}}, &ImportFields{TextField: "text"})
	assertKind(t, KindValidation, err)
	assert.Contains(t, err.Error(), "index 2")
	assert.Empty(t, f.sources(p))

	count, err := k.AddUnannotatedEntries(f.ctx, rows[:2], &ImportFields{TextField: "text", ValueField: "label"})
	require.Nil(t, err)
	assert.Equal(t, 2, count)

	sources := f.sources(p)
	require.Len(t, sources, 2)
	require.NotNil(t, sources[0].PreAnnotationCategory)
	assert.Equal(t, "good", sources[0].PreAnnotationCategory.Name)
	assert.Nil(t, sources[1].PreAnnotationCategoryID)
}

func TestMachineTranslationAdequacy(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("mta", boolPtr(true))
	assert.Equal(t, []string{"adequacy"}, k.ValueFields())

	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"ref": "a b", "mt": "x y"}}, &ImportFields{TextField: "ref"})
	assertKind(t, KindValidation, err)

	_, err = k.AddUnannotatedEntries(f.ctx, []Row{{"ref": "a b", "mt": "x y", "score": "abc"}},
		&ImportFields{TextField: "ref", TranslationField: "mt", ValueField: "score"})
	assertKind(t, KindValidation, err)

	count, err := k.AddUnannotatedEntries(f.ctx, []Row{{"ref": "the cat", "mt": "le chat", "score": 70.0}},
		&ImportFields{TextField: "ref", TranslationField: "mt", ValueField: "score"})
	require.Nil(t, err)
	assert.Equal(t, 1, count)
	source := f.sources(p)[0]
	assert.Equal(t, "le chat", *source.MTSystemTranslation)
	assert.Equal(t, 70.0, *source.PreAnnotationAdequacy)

	annotator := f.annotator(f.admin)
	_, err = k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{}))
	assertKind(t, KindValidation, err)
	assert.Contains(t, err.Error(), "adequacy")

	_, err = k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"adequacy":               50,
		"target_text_highlights": []interface{}{map[string]interface{}{"span_start": 3, "span_end": 99, "category": "Omission"}},
	}))
	assertKind(t, KindValidation, err)

	view, err := k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"adequacy": 50,
		"source_text_highlights": []interface{}{
			map[string]interface{}{"span_start": 0, "span_end": 3, "category": "Omission"},
		},
		"target_text_highlights": []interface{}{
			map[string]interface{}{
				"span_start": 3, "span_end": 7, "category": metadata.HighlightCategoryMistranslation,
				"mistranslation_source": map[string]interface{}{"span_start": 4, "span_end": 7},
			},
		},
	}))
	require.Nil(t, err)
	assert.Equal(t, 50.0, view.Value["adequacy"])
	assert.Equal(t, 70.0, view.PreAnnotations["adequacy"])
	require.Len(t, view.SourceTextHighlights, 2)
	require.Len(t, view.TargetTextHighlights, 1)

	mistranslation := view.TargetTextHighlights[0]
	require.NotNil(t, mistranslation.MistranslationSource)
	linked := view.SourceTextHighlights[1]
	assert.Equal(t, linked.ID, *mistranslation.MistranslationSource)
	assert.Equal(t, metadata.HighlightCategoryMistranslationSource, linked.Category)
	assert.Equal(t, 4, linked.SpanStart)

	stats, err := statistics(f.setting, f.ctx, k)
	require.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"adequacy": 50.0}, stats["averages"])
}

func TestMachineTranslationFluency(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("mtf", boolPtr(true))
	assert.Equal(t, []string{"mt_system_translation", "context"}, k.ParameterFields())

	stats, err := statistics(f.setting, f.ctx, k)
	require.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"fluency": nil}, stats["averages"])

	_, err = k.AddUnannotatedEntries(f.ctx, []Row{{"mt": "le chat"}}, &ImportFields{TextField: "mt"})
	require.Nil(t, err)
	source := f.sources(p)[0]
	annotator := f.annotator(f.admin)

	_, err = k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"fluency": 3,
		"target_text_highlights": []interface{}{
			map[string]interface{}{
				"span_start": 0, "span_end": 2, "category": metadata.HighlightCategoryMistranslation,
				"mistranslation_source": map[string]interface{}{"span_start": 0, "span_end": 1},
			},
		},
	}))
	assertKind(t, KindValidation, err)

	_, err = k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"fluency":                3,
		"source_text_highlights": []interface{}{map[string]interface{}{"span_start": 0, "span_end": 2, "category": "x"}},
	}))
	assertKind(t, KindValidation, err)

	view, err := k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"fluency":                3,
		"target_text_highlights": []interface{}{map[string]interface{}{"span_start": 0, "span_end": 2, "category": "Grammar"}},
	}))
	require.Nil(t, err)
	assert.Equal(t, 3.0, view.Value["fluency"])
	assert.Nil(t, view.PreAnnotations["fluency"])
	require.Len(t, view.TargetTextHighlights, 1)

	_, err = k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{"fluency": 4}))
	require.Nil(t, err)

	stats, err = statistics(f.setting, f.ctx, k)
	require.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"fluency": 3.5}, stats["averages"])
}

func TestNamedEntityRecognition(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("ner", boolPtr(true))
	f.category(p, "PER")
	f.category(p, "LOC")

	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"text": "Alice lives in Paris"}}, &ImportFields{TextField: "text"})
	require.Nil(t, err)
	source := f.sources(p)[0]
	annotator := f.annotator(f.admin)

	_, err = k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{}))
	assertKind(t, KindValidation, err)

	_, err = k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"ner_text_highlights": []interface{}{map[string]interface{}{"span_start": 0, "span_end": 5, "category": "ORG"}},
	}))
	assertKind(t, KindNotFound, err)

	empty, err := k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"ner_text_highlights": []interface{}{},
	}))
	require.Nil(t, err)
	assert.Equal(t, []interface{}{}, empty.Value["ner_text_highlights"])

	view, err := k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{
		"ner_text_highlights": []interface{}{
			map[string]interface{}{"span_start": 15, "span_end": 20, "category": "LOC"},
			map[string]interface{}{"span_start": 0, "span_end": 5, "category": "PER"},
		},
	}))
	require.Nil(t, err)
	assert.Equal(t, []interface{}{
		[]interface{}{0, 5, "PER"},
		[]interface{}{15, 20, "LOC"},
	}, view.Value["ner_text_highlights"])

	stats, err := statistics(f.setting, f.ctx, k)
	require.Nil(t, err)
	assert.Equal(t, []CategoryCount{{Name: "PER", TotalEntries: 1}, {Name: "LOC", TotalEntries: 1}}, stats["categories"])

	key := "n"
	_, err = createCategory(f.setting, f.ctx, p, &CategoryRequest{Name: "ORG", KeyBinding: &key})
	require.Nil(t, err)
	categories, err := listCategories(f.setting, f.ctx, p)
	require.Nil(t, err)
	assert.Nil(t, categories[2].KeyBinding)
}

func TestUpdateAndDeleteEntryHistory(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("tc", nil)
	f.category(p, "a")
	f.category(p, "b")
	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"text": "t"}}, &ImportFields{TextField: "text"})
	require.Nil(t, err)
	annotator := f.annotator(f.admin)

	created, err := k.AddEntry(f.ctx, annotator, payload(t, f.sources(p)[0].ID, map[string]interface{}{"category-name": "a"}))
	require.Nil(t, err)

	entry, err := getEntry(f.setting, f.ctx, p, created.ID)
	require.Nil(t, err)

	_, err = k.UpdateEntry(f.ctx, entry, &EntryPatch{}, f.admin.ID)
	assertKind(t, KindValidation, err)

	missing := "missing"
	_, err = k.UpdateEntry(f.ctx, entry, &EntryPatch{Classification: &missing}, f.admin.ID)
	assertKind(t, KindNotFound, err)

	b := "b"
	updated, err := k.UpdateEntry(f.ctx, entry, &EntryPatch{Classification: &b}, f.admin.ID)
	require.Nil(t, err)
	assert.Equal(t, "b", updated.Value["category"])

	entry, err = getEntry(f.setting, f.ctx, p, created.ID)
	require.Nil(t, err)
	assert.Equal(t, "b", entry.Classification.Name)

	require.Nil(t, deleteEntry(f.setting, f.ctx, k, entry, f.admin.ID))
	_, err = getEntry(f.setting, f.ctx, p, created.ID)
	assertKind(t, KindNotFound, err)

	histories, err := entryHistory(f.setting, f.ctx, p, created.ID)
	require.Nil(t, err)
	require.Len(t, histories, 3)
	assert.Equal(t, metadata.HistoryTypeCreated, histories[0].HistoryType)
	assert.Equal(t, "a", histories[0].Snapshot.Values["category"])
	assert.Equal(t, metadata.HistoryTypeUpdated, histories[1].HistoryType)
	assert.Equal(t, "b", histories[1].Snapshot.Values["category"])
	assert.Equal(t, metadata.HistoryTypeDeleted, histories[2].HistoryType)

	_, err = entryHistory(f.setting, f.ctx, p, 12345)
	assertKind(t, KindNotFound, err)
}

func TestUpdateMachineTranslationEntry(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("mta", boolPtr(true))
	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"ref": "the cat", "mt": "le chat"}}, &ImportFields{TextField: "ref", TranslationField: "mt"})
	require.Nil(t, err)
	annotator := f.annotator(f.admin)

	created, err := k.AddEntry(f.ctx, annotator, payload(t, f.sources(p)[0].ID, map[string]interface{}{
		"adequacy":               10,
		"target_text_highlights": []interface{}{map[string]interface{}{"span_start": 0, "span_end": 2, "category": "Omission"}},
	}))
	require.Nil(t, err)

	entry, err := getEntry(f.setting, f.ctx, p, created.ID)
	require.Nil(t, err)
	adequacy := 90.0
	updated, err := k.UpdateEntry(f.ctx, entry, &EntryPatch{Adequacy: &adequacy}, f.admin.ID)
	require.Nil(t, err)
	assert.Equal(t, 90.0, updated.Value["adequacy"])
	assert.Len(t, updated.TargetTextHighlights, 1)

	entry, err = getEntry(f.setting, f.ctx, p, created.ID)
	require.Nil(t, err)
	none := []HighlightPayload{}
	updated, err = k.UpdateEntry(f.ctx, entry, &EntryPatch{TargetTextHighlights: &none}, f.admin.ID)
	require.Nil(t, err)
	assert.Empty(t, updated.TargetTextHighlights)

	var count int64
	require.Nil(t, f.db.Model(&metadata.TextHighlight{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUpdateMachineTranslationKeepsUnsentSide(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("mta", boolPtr(true))
	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"ref": "the black cat", "mt": "le chat noir"}}, &ImportFields{TextField: "ref", TranslationField: "mt"})
	require.Nil(t, err)

	created, err := k.AddEntry(f.ctx, f.annotator(f.admin), payload(t, f.sources(p)[0].ID, map[string]interface{}{
		"adequacy":               50,
		"source_text_highlights": []interface{}{map[string]interface{}{"span_start": 0, "span_end": 3, "category": "Omission"}},
		"target_text_highlights": []interface{}{map[string]interface{}{
			"span_start":            3,
			"span_end":              7,
			"category":              metadata.HighlightCategoryMistranslation,
			"mistranslation_source": map[string]interface{}{"span_start": 4, "span_end": 9},
		}},
	}))
	require.Nil(t, err)
	require.Len(t, created.SourceTextHighlights, 2)

	entry, err := getEntry(f.setting, f.ctx, p, created.ID)
	require.Nil(t, err)
	sourceSide := []HighlightPayload{{
		SpanPayload: SpanPayload{SpanStart: utils.IntToPtr(10), SpanEnd: utils.IntToPtr(13)},
		Category:    utils.StringToPtr("Addition"),
	}}
	updated, err := k.UpdateEntry(f.ctx, entry, &EntryPatch{SourceTextHighlights: &sourceSide}, f.admin.ID)
	require.Nil(t, err)

	require.Len(t, updated.TargetTextHighlights, 1)
	target := updated.TargetTextHighlights[0]
	assert.Equal(t, metadata.HighlightCategoryMistranslation, target.Category)
	assert.Equal(t, 3, target.SpanStart)
	require.NotNil(t, target.MistranslationSource)

	spans := map[string][2]int{}
	for _, h := range updated.SourceTextHighlights {
		spans[h.Category] = [2]int{h.SpanStart, h.SpanEnd}
	}
	assert.Len(t, spans, 2)
	assert.Equal(t, [2]int{4, 9}, spans[metadata.HighlightCategoryMistranslationSource])
	assert.Equal(t, [2]int{10, 13}, spans["Addition"])

	entry, err = getEntry(f.setting, f.ctx, p, created.ID)
	require.Nil(t, err)
	none := []HighlightPayload{}
	updated, err = k.UpdateEntry(f.ctx, entry, &EntryPatch{TargetTextHighlights: &none}, f.admin.ID)
	require.Nil(t, err)
	assert.Empty(t, updated.TargetTextHighlights)
	require.Len(t, updated.SourceTextHighlights, 1)
	assert.Equal(t, "Addition", updated.SourceTextHighlights[0].Category)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("tc", nil)
	mt, _ := f.project("mtf", boolPtr(false))

	_, err := createCategory(f.setting, f.ctx, mt, &CategoryRequest{Name: "x"})
	assertKind(t, KindNotFound, err)

	key := "a"
	first, err := createCategory(f.setting, f.ctx, p, &CategoryRequest{Name: "one", KeyBinding: &key})
	require.Nil(t, err)
	assert.Equal(t, "a", *first.KeyBinding)

	_, err = createCategory(f.setting, f.ctx, p, &CategoryRequest{Name: "one"})
	assertKind(t, KindValidation, err)
	_, err = createCategory(f.setting, f.ctx, p, &CategoryRequest{Name: "two", KeyBinding: &key})
	assertKind(t, KindValidation, err)

	second, err := createCategory(f.setting, f.ctx, p, &CategoryRequest{Name: "two"})
	require.Nil(t, err)

	_, err = k.AddUnannotatedEntries(f.ctx, []Row{{"text": "t"}}, &ImportFields{TextField: "text"})
	require.Nil(t, err)
	_, err = k.AddEntry(f.ctx, f.annotator(f.admin), payload(t, f.sources(p)[0].ID, map[string]interface{}{"category-name": "one"}))
	require.Nil(t, err)

	_, err = deleteCategory(f.setting, f.ctx, p, first.ID)
	assertKind(t, KindValidation, err)

	_, err = deleteCategory(f.setting, f.ctx, p, 9999)
	assertKind(t, KindNotFound, err)

	deleted, err := deleteCategory(f.setting, f.ctx, p, second.ID)
	require.Nil(t, err)
	assert.Equal(t, "two", deleted.Name)
}

func TestDeleteSourceAndProject(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("tc", nil)
	f.category(p, "c")
	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"text": "a"}, {"text": "b"}}, &ImportFields{TextField: "text"})
	require.Nil(t, err)
	sources := f.sources(p)
	annotator := f.annotator(f.admin)
	for _, source := range sources {
		_, err := k.AddEntry(f.ctx, annotator, payload(t, source.ID, map[string]interface{}{"category-name": "c"}))
		require.Nil(t, err)
	}

	require.Nil(t, deleteSource(f.setting, f.ctx, p, sources[0].ID))
	assertKind(t, KindNotFound, deleteSource(f.setting, f.ctx, p, sources[0].ID))

	entries, err := listEntries(f.setting, f.ctx, k, 0)
	require.Nil(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sources[1].ID, entries[0].UnannotatedSource.ID)

	require.Nil(t, deleteProject(f.setting, f.ctx, p))
	_, err = get(f.setting, f.ctx, p.URL)
	assertKind(t, KindNotFound, err)

	for _, model := range []interface{}{&metadata.ProjectEntry{}, &metadata.UnannotatedEntry{}, &metadata.Category{}} {
		var count int64
		require.Nil(t, f.db.Model(model).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	}

	var contributors int64
	require.Nil(t, f.db.Model(&metadata.Contributor{}).Count(&contributors).Error)
	assert.Equal(t, int64(1), contributors)

	var histories int64
	require.Nil(t, f.db.Model(&metadata.ProjectEntryHistory{}).Count(&histories).Error)
	assert.Equal(t, int64(2), histories)
}

func TestTokens(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("mta", boolPtr(false))
	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"ref": "ab", "mt": "xyz"}}, &ImportFields{TextField: "ref", TranslationField: "mt"})
	require.Nil(t, err)
	source := f.sources(p)[0]

	result, err := tokens(f.setting, f.ctx, p, source.ID)
	require.Nil(t, err)
	assert.Equal(t, source.ID, result.SourceID)
	require.Len(t, result.Text, 1)
	assert.Equal(t, 2, result.Text[0].End)
	require.Len(t, result.MTSystemTranslation, 1)
	assert.Equal(t, 3, result.MTSystemTranslation[0].End)

	_, err = tokens(f.setting, f.ctx, p, source.ID+100)
	assertKind(t, KindNotFound, err)
}

func TestWordLevelSelection(t *testing.T) {
	f := newFixture(t)
	jieba := tokenizer.New("")
	defer jieba.Free()
	f.setting.GetTokenizer = func() *tokenizer.Tokenizer { return jieba }

	p, k := f.project("mtf", boolPtr(false))
	_, err := k.AddUnannotatedEntries(f.ctx, []Row{{"mt": "hello world"}}, &ImportFields{TextField: "mt"})
	require.Nil(t, err)

	view, err := k.AddEntry(f.ctx, f.annotator(f.admin), payload(t, f.sources(p)[0].ID, map[string]interface{}{
		"fluency":                2,
		"target_text_highlights": []interface{}{map[string]interface{}{"span_start": 1, "span_end": 3, "category": "Grammar"}},
	}))
	require.Nil(t, err)
	require.Len(t, view.TargetTextHighlights, 1)
	assert.Equal(t, 0, view.TargetTextHighlights[0].SpanStart)
	assert.Equal(t, 5, view.TargetTextHighlights[0].SpanEnd)
}
