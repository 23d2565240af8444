package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// GenerateCSV serializes rows in explicit column order into CSV text with
// RFC-4180 escaping. Cells absent from a row render as empty.
func GenerateCSV(columns []string, rows []map[string]any, includeHeaders bool) (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if includeHeaders {
		if err := writer.Write(columns); err != nil {
			return "", fmt.Errorf("failed to write csv header: %w", err)
		}
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, column := range columns {
			record[i] = formatValue(row[column])
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.String(), nil
}

// GenerateExcel serializes rows into a single-sheet xlsx workbook buffer.
func GenerateExcel(columns []string, rows []map[string]any, includeHeaders bool, sheetName string) ([]byte, error) {
	if sheetName == "" {
		sheetName = "Export"
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	if defaultSheet != sheetName {
		f.SetSheetName(defaultSheet, sheetName)
	}

	rowIndex := 1
	if includeHeaders {
		header := make([]any, len(columns))
		for i, column := range columns {
			header[i] = column
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIndex)
		if err := f.SetSheetRow(sheetName, cell, &header); err != nil {
			return nil, fmt.Errorf("failed to write xlsx header: %w", err)
		}
		rowIndex++
	}

	for _, row := range rows {
		record := make([]any, len(columns))
		for i, column := range columns {
			record[i] = formatValue(row[column])
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIndex)
		if err := f.SetSheetRow(sheetName, cell, &record); err != nil {
			return nil, fmt.Errorf("failed to write xlsx row: %w", err)
		}
		rowIndex++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateJSON serializes rows as a pretty-printed array of objects keyed by
// the requested columns.
func GenerateJSON(columns []string, rows []map[string]any) (string, error) {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		object := make(map[string]any, len(columns))
		for _, column := range columns {
			object[column] = row[column]
		}
		out[i] = object
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize json: %w", err)
	}
	return string(encoded), nil
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	case float32, float64, int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%v", v)
	case []byte:
		return string(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
