package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigration(t *testing.T) {
	cfg := GenerateTestConfig(t)
	cfg.CheckMigration = true
	_, err := CreateDatabase(cfg)
	assert.Nil(t, err)
}

func TestUnsupportedDialect(t *testing.T) {
	_, err := CreateDatabase(&Config{Dialect: "oracle"})
	assert.NotNil(t, err)
}

func TestProjectURLGenerated(t *testing.T) {
	database, err := CreateDatabase(GenerateTestConfig(t))
	require.Nil(t, err)

	p1 := Project{Name: "p1", ProjectType: ProjectTypeTextClassification}
	p2 := Project{Name: "p2", ProjectType: ProjectTypeTextClassification}
	require.Nil(t, database.Create(&p1).Error)
	require.Nil(t, database.Create(&p2).Error)

	assert.Len(t, p1.URL, 36)
	assert.NotEqual(t, p1.URL, p2.URL)

	fixed := Project{Name: "p3", URL: "fixed-url", ProjectType: ProjectTypeNamedEntityRecognition}
	require.Nil(t, database.Create(&fixed).Error)
	assert.Equal(t, "fixed-url", fixed.URL)
}

func TestCategoryNameUnique(t *testing.T) {
	database, err := CreateDatabase(GenerateTestConfig(t))
	require.Nil(t, err)

	p := Project{Name: "p", ProjectType: ProjectTypeTextClassification}
	require.Nil(t, database.Create(&p).Error)

	require.Nil(t, database.Create(&Category{ProjectID: p.ID, Name: "c"}).Error)
	assert.NotNil(t, database.Create(&Category{ProjectID: p.ID, Name: "c"}).Error)

	other := Project{Name: "other", ProjectType: ProjectTypeTextClassification}
	require.Nil(t, database.Create(&other).Error)
	assert.Nil(t, database.Create(&Category{ProjectID: other.ID, Name: "c"}).Error)
}

func TestHistorySnapshot(t *testing.T) {
	database, err := CreateDatabase(GenerateTestConfig(t))
	require.Nil(t, err)

	snapshot := EntrySnapshot{
		UnannotatedSourceID: 3,
		AnnotatorID:         4,
		Values:              map[string]interface{}{"adequacy": 55.5},
		Highlights: []HighlightSnapshot{
			{ID: 1, Side: HighlightSideTarget, SpanStart: 0, SpanEnd: 2, Category: "Omission"},
		},
	}
	history := ProjectEntryHistory{
		EntryID:     7,
		ProjectID:   1,
		HistoryType: HistoryTypeCreated,
		Snapshot:    snapshot.ToJSON(),
	}
	require.Nil(t, database.Create(&history).Error)

	var loaded ProjectEntryHistory
	require.Nil(t, database.First(&loaded, history.ID).Error)
	assert.JSONEq(t, string(snapshot.ToJSON()), string(loaded.Snapshot))
}
