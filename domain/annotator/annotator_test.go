package annotator

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/logging"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"annopedia-backend/utils/email"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	setting  *Setting
	recorder *email.Recorder
	admin    *metadata.Contributor
}

func newFixture(t *testing.T) *fixture {
	logging.SetDefaultConfig(logging.GenerateTestConfig(t))

	database, err := metadata.CreateDatabase(metadata.GenerateTestConfig(t))
	require.Nil(t, err)

	getDatabase := func() *gorm.DB { return database }
	project.Init(&project.Setting{GetMetadataDatabase: getDatabase, Logger: logging.NewLogger()})

	recorder := &email.Recorder{}
	f := &fixture{
		t:        t,
		ctx:      context.TODO(),
		db:       database,
		recorder: recorder,
		setting: &Setting{
			GetMetadataDatabase: getDatabase,
			Logger:              logging.NewLogger(),
			GetSender:           func() email.Sender { return recorder },
			FrontendBaseURL:     "https://annotate.example.com/",
		},
	}

	f.admin, err = resolveContributor(f.setting, f.ctx, "admin", "admin@example.com")
	require.Nil(t, err)
	return f
}

func (f *fixture) project(categories ...string) (*metadata.Project, project.Kind) {
	return f.typedProject("tc", categories...)
}

func (f *fixture) typedProject(projectType string, categories ...string) (*metadata.Project, project.Kind) {
	view, err := project.Create(f.ctx, &project.CreateRequest{ProjectType: projectType, Name: "Reviews"}, f.admin)
	require.Nil(f.t, err)
	p, err := project.Get(f.ctx, view.URL)
	require.Nil(f.t, err)
	for _, name := range categories {
		_, err := project.CreateCategory(f.ctx, p, &project.CategoryRequest{Name: name})
		require.Nil(f.t, err)
	}
	k, err := project.Resolve(p)
	require.Nil(f.t, err)
	return p, k
}

func (f *fixture) importTexts(p *metadata.Project, k project.Kind, texts ...string) []metadata.UnannotatedEntry {
	rows := make([]project.Row, 0, len(texts))
	for _, text := range texts {
		rows = append(rows, project.Row{"text": text})
	}
	_, err := k.AddUnannotatedEntries(f.ctx, rows, &project.ImportFields{TextField: "text"})
	require.Nil(f.t, err)

	sources, err := project.ListSources(f.ctx, p)
	require.Nil(f.t, err)
	return sources
}

func (f *fixture) invite(p *metadata.Project, username string) *metadata.Annotator {
	_, err := invite(f.setting, f.ctx, p, f.admin, &InviteRequest{Username: username, Email: username + "@example.com"})
	require.Nil(f.t, err)
	annotator, err := findByUsername(f.setting, f.ctx, p, username)
	require.Nil(f.t, err)
	return annotator
}

func (f *fixture) judge(k project.Kind, annotator *metadata.Annotator, sourceID uint, category string) {
	data, err := json.Marshal(category)
	require.Nil(f.t, err)
	_, err = k.AddEntry(f.ctx, annotator, &project.EntryRequest{
		UnannotatedSource: sourceID,
		Payload:           map[string]json.RawMessage{"category-name": data},
	})
	require.Nil(f.t, err)
}

func (f *fixture) annotate(k project.Kind, annotator *metadata.Annotator, sourceID uint, body map[string]interface{}) {
	payload := make(map[string]json.RawMessage, len(body))
	for key, value := range body {
		data, err := json.Marshal(value)
		require.Nil(f.t, err)
		payload[key] = data
	}
	_, err := k.AddEntry(f.ctx, annotator, &project.EntryRequest{UnannotatedSource: sourceID, Payload: payload})
	require.Nil(f.t, err)
}

func assertKind(t *testing.T, kind string, err error) {
	require.NotNil(t, err)
	e := project.AsError(err)
	require.NotNil(t, e, "unexpected error %v", err)
	assert.Equal(t, kind, e.Kind, e.Detail)
}

func TestResolveContributor(t *testing.T) {
	f := newFixture(t)

	again, err := resolveContributor(f.setting, f.ctx, "admin", "other@example.com")
	require.Nil(t, err)
	assert.Equal(t, f.admin.ID, again.ID)
	assert.Equal(t, "admin@example.com", again.Email)
	assert.True(t, again.IsActive)

	_, err = resolveContributor(f.setting, f.ctx, "", AnonymousEmail)
	assertKind(t, project.KindUnauthorized, err)
}

func TestEnsurePublicAnnotator(t *testing.T) {
	f := newFixture(t)

	first, err := ensurePublicAnnotator(f.setting, f.ctx, f.admin)
	require.Nil(t, err)
	second, err := ensurePublicAnnotator(f.setting, f.ctx, f.admin)
	require.Nil(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, metadata.AnnotatorTypePublic, second.AnnotatorType)
	assert.Nil(t, second.Token)
}

func TestInvite(t *testing.T) {
	f := newFixture(t)
	p, _ := f.project("c1")

	view, err := invite(f.setting, f.ctx, p, f.admin, &InviteRequest{Username: "alice", Email: "alice@example.com", SendEmail: true})
	require.Nil(t, err)
	assert.Equal(t, "alice", view.Contributor)
	assert.Equal(t, "admin", view.InvitingContributor)
	assert.Len(t, view.Token, 32)
	assert.True(t, view.IsActive)
	assert.True(t, view.EmailSent)
	assert.Equal(t, 100.0, view.Completion)

	messages := f.recorder.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "alice@example.com", messages[0].To)
	assert.Equal(t, "[Annopedia] Invitation to contribute to Reviews", messages[0].Subject)
	assert.Contains(t, messages[0].Body, "https://annotate.example.com/annotator/annotate?token="+view.Token)
	assert.Contains(t, messages[0].Body, "invited by admin")
	assert.False(t, messages[0].HTML)

	_, err = invite(f.setting, f.ctx, p, f.admin, &InviteRequest{Username: "alice", Email: "alice@example.com"})
	assertKind(t, project.KindValidation, err)
	assert.Contains(t, err.Error(), "already invited")

	_, err = invite(f.setting, f.ctx, p, f.admin, &InviteRequest{Username: "alice", Email: "mallory@example.com"})
	assertKind(t, project.KindValidation, err)

	_, err = invite(f.setting, f.ctx, p, f.admin, &InviteRequest{Email: "bob@example.com"})
	assertKind(t, project.KindValidation, err)

	f.recorder.Err = errors.New("smtp down")
	view, err = invite(f.setting, f.ctx, p, f.admin, &InviteRequest{Username: "bob", Email: "bob@example.com", SendEmail: true})
	require.Nil(t, err)
	assert.False(t, view.EmailSent)

	views, err := list(f.setting, f.ctx, p)
	require.Nil(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "alice", views[0].Contributor)
	assert.Equal(t, "bob", views[1].Contributor)
	assert.NotEqual(t, views[0].Token, views[1].Token)
}

func TestResendInvite(t *testing.T) {
	f := newFixture(t)
	p, _ := f.project()
	annotator := f.invite(p, "alice")

	_, err := resendInvite(f.setting, f.ctx, p, f.admin, "alice", "wrong@example.com")
	assertKind(t, project.KindNotFound, err)
	_, err = resendInvite(f.setting, f.ctx, p, f.admin, "nobody", "nobody@example.com")
	assertKind(t, project.KindNotFound, err)

	message, err := resendInvite(f.setting, f.ctx, p, f.admin, "alice", "alice@example.com")
	require.Nil(t, err)
	assert.Equal(t, "Successfully sent email again to private annotator at email alice@example.com", message)
	messages := f.recorder.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Body, "token="+*annotator.Token)

	duplicate := metadata.Annotator{
		AnnotatorType: metadata.AnnotatorTypePrivate,
		ContributorID: annotator.ContributorID,
		ProjectID:     annotator.ProjectID,
		Token:         utils.StringToPtr("duplicate-token"),
	}
	require.Nil(t, f.db.Create(&duplicate).Error)
	_, err = resendInvite(f.setting, f.ctx, p, f.admin, "alice", "alice@example.com")
	assertKind(t, project.KindIntegrity, err)
	assert.ErrorIs(t, err, project.ErrIntegrity)
}

func TestToggleActiveAndToken(t *testing.T) {
	f := newFixture(t)
	p, _ := f.project()
	annotator := f.invite(p, "alice")

	found, contributor, owner, err := findByToken(f.setting, f.ctx, *annotator.Token)
	require.Nil(t, err)
	assert.Equal(t, annotator.ID, found.ID)
	assert.Equal(t, "alice", contributor.Username)
	assert.Equal(t, p.URL, owner.URL)

	view, err := toggleActive(f.setting, f.ctx, p, "alice")
	require.Nil(t, err)
	assert.False(t, view.IsActive)

	_, _, _, err = findByToken(f.setting, f.ctx, *annotator.Token)
	assertKind(t, project.KindUnauthorized, err)

	view, err = toggleActive(f.setting, f.ctx, p, "alice")
	require.Nil(t, err)
	assert.True(t, view.IsActive)
	_, _, _, err = findByToken(f.setting, f.ctx, *annotator.Token)
	require.Nil(t, err)

	_, _, _, err = findByToken(f.setting, f.ctx, "unknown")
	assertKind(t, project.KindUnauthorized, err)
	_, _, _, err = findByToken(f.setting, f.ctx, "")
	assertKind(t, project.KindUnauthorized, err)

	_, err = toggleActive(f.setting, f.ctx, p, "admin")
	assertKind(t, project.KindNotFound, err)
}

func TestCompletionAndRemaining(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("c1")
	alice := f.invite(p, "alice")

	percent, err := completion(f.setting, f.ctx, p, alice.ID)
	require.Nil(t, err)
	assert.Equal(t, 100.0, percent)

	sources := f.importTexts(p, k, "one", "two", "three")
	f.judge(k, alice, sources[0].ID, "c1")
	f.judge(k, alice, sources[0].ID, "c1")

	percent, err = completion(f.setting, f.ctx, p, alice.ID)
	require.Nil(t, err)
	assert.Equal(t, 33.33, percent)

	left, err := remaining(f.setting, f.ctx, p, alice.ID)
	require.Nil(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, sources[1].ID, left[0].ID)
	assert.Equal(t, sources[2].ID, left[1].ID)

	f.judge(k, alice, sources[1].ID, "c1")
	f.judge(k, alice, sources[2].ID, "c1")
	percent, err = completion(f.setting, f.ctx, p, alice.ID)
	require.Nil(t, err)
	assert.Equal(t, 100.0, percent)
	left, err = remaining(f.setting, f.ctx, p, alice.ID)
	require.Nil(t, err)
	assert.Empty(t, left)

	views, err := list(f.setting, f.ctx, p)
	require.Nil(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 100.0, views[0].Completion)
}

func TestDisagreements(t *testing.T) {
	f := newFixture(t)
	p, k := f.project("c1", "c2")
	alice := f.invite(p, "alice")
	bob := f.invite(p, "bob")
	sources := f.importTexts(p, k, "one", "two", "three")

	f.judge(k, alice, sources[0].ID, "c1")
	f.judge(k, bob, sources[0].ID, "c1")
	f.judge(k, alice, sources[2].ID, "c1")

	result, err := disagreements(f.setting, f.ctx, p, "alice", "bob")
	require.Nil(t, err)
	assert.Empty(t, result)

	f.judge(k, alice, sources[1].ID, "c1")
	f.judge(k, bob, sources[1].ID, "c2")

	result, err = disagreements(f.setting, f.ctx, p, "alice", "bob")
	require.Nil(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, Disagreement{
		"alice": map[string]interface{}{"category": "c1"},
		"bob":   map[string]interface{}{"category": "c2"},
		"text":  "two",
	}, result[0])

	// 以最新一条标注为准
	f.judge(k, bob, sources[1].ID, "c1")
	result, err = disagreements(f.setting, f.ctx, p, "alice", "bob")
	require.Nil(t, err)
	assert.Empty(t, result)

	_, err = disagreements(f.setting, f.ctx, p, "alice", "carol")
	assertKind(t, project.KindNotFound, err)

	_, err = disagreements(f.setting, f.ctx, p, "alice", "alice")
	assertKind(t, project.KindValidation, err)

	file, err := disagreementsFile(f.setting, f.ctx, p, "alice", "bob")
	require.Nil(t, err)
	assert.Equal(t, "disagreements-alice-bob.json", file.Filename)
	assert.Equal(t, "[]", string(file.Data))
}

func TestDisagreementsMachineTranslationExactScores(t *testing.T) {
	f := newFixture(t)
	p, k := f.typedProject("mtf")
	alice := f.invite(p, "alice")
	bob := f.invite(p, "bob")
	sources := f.importTexts(p, k, "le chat", "le chien")

	f.annotate(k, alice, sources[0].ID, map[string]interface{}{"fluency": 0.1 + 0.2})
	f.annotate(k, bob, sources[0].ID, map[string]interface{}{"fluency": 0.3})
	f.annotate(k, alice, sources[1].ID, map[string]interface{}{"fluency": 0.5})
	f.annotate(k, bob, sources[1].ID, map[string]interface{}{"fluency": 0.5})

	result, err := disagreements(f.setting, f.ctx, p, "alice", "bob")
	require.Nil(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "le chat", result[0]["text"])
	assert.Equal(t, map[string]interface{}{"fluency": 0.1 + 0.2}, result[0]["alice"])
	assert.Equal(t, map[string]interface{}{"fluency": 0.3}, result[0]["bob"])
}

func TestDisagreementsNamedEntityRecognition(t *testing.T) {
	f := newFixture(t)
	p, k := f.typedProject("ner", "PER", "LOC")
	alice := f.invite(p, "alice")
	bob := f.invite(p, "bob")
	sources := f.importTexts(p, k, "Paris Hilton", "Bob in Oslo")

	span := func(start, end int, category string) map[string]interface{} {
		return map[string]interface{}{"span_start": start, "span_end": end, "category": category}
	}

	f.annotate(k, alice, sources[0].ID, map[string]interface{}{
		"ner_text_highlights": []interface{}{span(0, 5, "LOC")},
	})
	f.annotate(k, bob, sources[0].ID, map[string]interface{}{
		"ner_text_highlights": []interface{}{span(0, 5, "PER")},
	})
	// 同样的片段集合，顺序不同
	f.annotate(k, alice, sources[1].ID, map[string]interface{}{
		"ner_text_highlights": []interface{}{span(0, 3, "PER"), span(7, 11, "LOC")},
	})
	f.annotate(k, bob, sources[1].ID, map[string]interface{}{
		"ner_text_highlights": []interface{}{span(7, 11, "LOC"), span(0, 3, "PER")},
	})

	result, err := disagreements(f.setting, f.ctx, p, "alice", "bob")
	require.Nil(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Paris Hilton", result[0]["text"])
	assert.Equal(t, map[string]interface{}{
		"ner_text_highlights": []interface{}{[]interface{}{0, 5, "LOC"}},
	}, result[0]["alice"])
	assert.Equal(t, map[string]interface{}{
		"ner_text_highlights": []interface{}{[]interface{}{0, 5, "PER"}},
	}, result[0]["bob"])
}
