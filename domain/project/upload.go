package project

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime"
	"unicode/utf8"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

/*
ParseUpload 把上传的文件解析为行。

	application/json 必须是对象数组；
	text/csv 第一行为表头，delimiter 为空时使用逗号，字面量 \t 表示制表符。
*/
func ParseUpload(contentType string, data []byte, delimiter string) ([]Row, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	switch mediaType {
	case ContentTypeJSON:
		return parseJSONRows(data)
	case ContentTypeCSV:
		return parseCSVRows(data, delimiter)
	default:
		return nil, Invalid("Uploaded data type %s is not supported", contentType)
	}
}

func parseJSONRows(data []byte) ([]Row, error) {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, Invalid("Uploaded data is not valid JSON: %s", err.Error())
	}

	list, ok := decoded.([]interface{})
	if !ok {
		return nil, Invalid("Uploaded data is not in a list of records format")
	}

	rows := make([]Row, 0, len(list))
	for _, item := range list {
		record, ok := item.(map[string]interface{})
		if !ok {
			return nil, Invalid("Uploaded data is not in a list of records format")
		}
		rows = append(rows, Row(record))
	}
	return rows, nil
}

func parseDelimiter(delimiter string) (rune, error) {
	switch delimiter {
	case "":
		return ',', nil
	case `\t`:
		return '\t', nil
	}

	r, size := utf8.DecodeRuneInString(delimiter)
	if size != len(delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, Invalid("CSV delimiter %s is not supported", delimiter)
	}
	return r, nil
}

func parseCSVRows(data []byte, delimiter string) ([]Row, error) {
	comma, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma

	header, err := reader.Read()
	if err == io.EOF {
		return []Row{}, nil
	}
	if err != nil {
		return nil, Invalid("Uploaded CSV is malformed: %s", err.Error())
	}

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Invalid("Uploaded CSV is malformed: %s", err.Error())
		}

		row := make(Row, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
