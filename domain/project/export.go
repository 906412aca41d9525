package project

import (
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

const (
	ExportTypeCSV  = "csv"
	ExportTypeJSON = "json"
)

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

/*
ExportColumns 导出文件的列，只由项目类型决定：

	id, imported_text_source_id, 参数列, 取值列, preannotation_<取值列>, created_at, updated_at
*/
func ExportColumns(k Kind) []string {
	columns := []string{"id", "imported_text_source_id"}
	columns = append(columns, k.ParameterFields()...)
	columns = append(columns, k.ValueFields()...)
	for _, field := range k.ValueFields() {
		columns = append(columns, "preannotation_"+field)
	}
	return append(columns, "created_at", "updated_at")
}

func exportFilename(project *metadata.Project, extension string) string {
	name := slug.Make(project.Name)
	if len(name) == 0 {
		name = "project"
	}
	return name + "." + extension
}

func Export(ctx context.Context, k Kind, exportType string) (*ExportFile, error) {
	return export(&globalSetting, ctx, k, exportType)
}

func export(setting *Setting, ctx context.Context, k Kind, exportType string) (*ExportFile, error) {
	if exportType != ExportTypeCSV && exportType != ExportTypeJSON {
		return nil, Invalid("Requested export type %s is not supported", exportType)
	}

	entries, err := loadEntries(setting.db(ctx), "project_id = ?", k.Project().ID)
	if err != nil {
		return nil, err
	}

	builder := &exportBuilder{kind: k, columns: ExportColumns(k), logger: setting.Logger}
	for i := range entries {
		builder.records = append(builder.records, builder.record(&entries[i]))
	}

	if exportType == ExportTypeCSV {
		data, err := builder.buildCSV()
		if err != nil {
			return nil, utils.WrapError(err, "build csv fail")
		}
		return &ExportFile{
			Filename:    exportFilename(k.Project(), ExportTypeCSV),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	}

	data, err := builder.buildJSON()
	if err != nil {
		return nil, utils.WrapError(err, "build json fail")
	}
	return &ExportFile{
		Filename:    exportFilename(k.Project(), ExportTypeJSON),
		ContentType: "application/json",
		Data:        data,
	}, nil
}

type exportBuilder struct {
	// input
	kind    Kind
	columns []string
	logger  *logrus.Logger

	// output
	records []map[string]interface{}
}

func (b *exportBuilder) record(entry *metadata.ProjectEntry) map[string]interface{} {
	record := map[string]interface{}{
		"id":                      entry.ID,
		"imported_text_source_id": entry.UnannotatedSourceID,
		"created_at":              entry.CreatedAt.Format(time.RFC3339),
		"updated_at":              entry.UpdatedAt.Format(time.RFC3339),
	}

	if entry.UnannotatedSource != nil {
		for key, value := range b.kind.Parameters(entry.UnannotatedSource) {
			record[key] = value
		}
		for key, value := range b.kind.PreAnnotations(entry.UnannotatedSource) {
			record["preannotation_"+key] = value
		}
	}
	for key, value := range b.kind.Values(entry) {
		record[key] = value
	}

	// 保证每条记录的键集合相同
	for _, column := range b.columns {
		if _, ok := record[column]; !ok {
			record[column] = nil
		}
	}
	return record
}

func (b *exportBuilder) buildJSON() ([]byte, error) {
	records := b.records
	if records == nil {
		records = []map[string]interface{}{}
	}
	return json.Marshal(records)
}

func (b *exportBuilder) buildCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	// 写文件头，没有标注时也写
	if err := writer.Write(b.columns); err != nil {
		return nil, utils.WrapError(err, "write header fail")
	}

	for _, record := range b.records {
		row := make([]string, 0, len(b.columns))
		for _, column := range b.columns {
			cell, err := csvCell(record[column])
			if err != nil {
				return nil, utils.WrapErrorf(err, "format column [%s] of entry [%v] fail", column, record["id"])
			}
			row = append(row, cell)
		}
		if err := writer.Write(row); err != nil {
			return nil, utils.WrapErrorf(err, "write entry [%v] fail", record["id"])
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, utils.WrapError(err, "flush csv fail")
	}
	if b.logger != nil {
		b.logger.Debugf("exported %d entries of project [%s] as csv", len(b.records), b.kind.Project().URL)
	}
	return buf.Bytes(), nil
}

func csvCell(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return fmt.Sprint(v), nil
	}
}
