package annotator

import (
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Disagreement 一条分歧：两个用户名各自的取值，以及待标注文本 text。
type Disagreement map[string]interface{}

// latestBySource 每个待标注文本只保留 ID 最大的一条标注
func latestBySource(setting *Setting, ctx context.Context, p *metadata.Project, annotatorID uint) (map[uint]*metadata.ProjectEntry, error) {
	var entries []metadata.ProjectEntry
	err := project.EntryPreloads(setting.db(ctx)).
		Where("project_id = ? AND annotator_id = ?", p.ID, annotatorID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, utils.WrapError(err, "load entries of annotator fail")
	}

	ret := make(map[uint]*metadata.ProjectEntry, len(entries))
	for i := range entries {
		ret[entries[i].UnannotatedSourceID] = &entries[i]
	}
	return ret, nil
}

/*
Disagreements 比较两个私有标注员在共同标注过的文本上的取值，按待标注文本 ID 顺序返回取值不同的记录。

取值用 Kind.Values 精确比较，浮点数没有容差。
*/
func Disagreements(ctx context.Context, p *metadata.Project, usernameA, usernameB string) ([]Disagreement, error) {
	return disagreements(&globalSetting, ctx, p, usernameA, usernameB)
}

func disagreements(setting *Setting, ctx context.Context, p *metadata.Project, usernameA, usernameB string) ([]Disagreement, error) {
	if usernameA == usernameB {
		return nil, project.Invalid("Cannot compare annotator %s with themselves", usernameA)
	}

	k, err := setting.resolve(p)
	if err != nil {
		return nil, err
	}

	a, err := findByUsername(setting, ctx, p, usernameA)
	if err != nil {
		return nil, err
	}
	b, err := findByUsername(setting, ctx, p, usernameB)
	if err != nil {
		return nil, err
	}

	entriesA, err := latestBySource(setting, ctx, p, a.ID)
	if err != nil {
		return nil, err
	}
	entriesB, err := latestBySource(setting, ctx, p, b.ID)
	if err != nil {
		return nil, err
	}

	shared := make([]uint, 0)
	for sourceID := range entriesA {
		if _, ok := entriesB[sourceID]; ok {
			shared = append(shared, sourceID)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i] < shared[j] })

	ret := make([]Disagreement, 0)
	for _, sourceID := range shared {
		entryA, entryB := entriesA[sourceID], entriesB[sourceID]
		valuesA, valuesB := k.Values(entryA), k.Values(entryB)
		if reflect.DeepEqual(valuesA, valuesB) {
			continue
		}

		text := ""
		if entryA.UnannotatedSource != nil {
			text = entryA.UnannotatedSource.Text
		}
		ret = append(ret, Disagreement{
			usernameA: valuesA,
			usernameB: valuesB,
			"text":    text,
		})
	}
	return ret, nil
}

// DisagreementsFile 以 JSON 附件的形式返回 Disagreements 的结果。
func DisagreementsFile(ctx context.Context, p *metadata.Project, usernameA, usernameB string) (*project.ExportFile, error) {
	return disagreementsFile(&globalSetting, ctx, p, usernameA, usernameB)
}

func disagreementsFile(setting *Setting, ctx context.Context, p *metadata.Project, usernameA, usernameB string) (*project.ExportFile, error) {
	result, err := disagreements(setting, ctx, p, usernameA, usernameB)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, utils.WrapError(err, "encode disagreements fail")
	}
	if setting.Logger != nil {
		setting.Logger.Debugf("%d disagreements between [%s] and [%s] in project [%s]", len(result), usernameA, usernameB, p.URL)
	}
	return &project.ExportFile{
		Filename:    fmt.Sprintf("disagreements-%s-%s.json", usernameA, usernameB),
		ContentType: "application/json",
		Data:        data,
	}, nil
}
