package ingestion

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	headerSeparators = regexp.MustCompile(`[^a-z0-9]+`)
)

// RowError reports a parse failure for one source row. Row numbers are
// 1-based and count data rows, not file lines.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParsedData is the uniform output of every parser, so validation and
// transformation stay format-agnostic. Row keys are normalized headers.
type ParsedData struct {
	Headers   []string            `json:"headers"`
	Rows      []map[string]string `json:"rows"`
	TotalRows int                 `json:"total_rows"`
	Errors    []RowError          `json:"errors,omitempty"`
}

// ParseFile dispatches on the file extension. Unsupported extensions fail
// fast.
func ParseFile(fileName string, payload []byte) (ParsedData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return ParseCSV(payload)
	case ".xlsx", ".xls":
		return ParseExcel(payload)
	case ".json":
		return ParseJSON(payload)
	default:
		return ParsedData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ParseBase64File decodes a base64 payload (tolerating a data-URL prefix)
// and parses it per the file extension.
func ParseBase64File(fileName string, encoded string) (ParsedData, error) {
	payload, err := decodeBase64Envelope(encoded)
	if err != nil {
		return ParsedData{}, err
	}
	return ParseFile(fileName, payload)
}

func decodeBase64Envelope(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return payload, nil
}

// ParseCSV reads a CSV payload. Unlike the Excel and JSON parsers, it
// surfaces per-row parse errors and keeps the well-formed rows.
func ParseCSV(payload []byte) (ParsedData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	headerRow, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParsedData{}, errors.New("csv file is empty")
		}
		return ParsedData{}, fmt.Errorf("failed to read csv header: %w", err)
	}
	headers := normalizeHeaders(headerRow)

	data := ParsedData{Headers: headers}
	rowNumber := 0
	for {
		record, readErr := csvReader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		rowNumber++
		if readErr != nil {
			data.Errors = append(data.Errors, RowError{
				Row:     rowNumber,
				Message: readErr.Error(),
			})
			continue
		}
		if isEmptyRecord(record) {
			continue
		}
		data.Rows = append(data.Rows, recordToRow(headers, record))
	}
	data.TotalRows = len(data.Rows)
	return data, nil
}

// ParseExcel reads the first sheet of an xlsx payload. Structural problems
// fail the whole parse.
func ParseExcel(payload []byte) (ParsedData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return ParsedData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ParsedData{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ParsedData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	if len(rows) == 0 {
		return ParsedData{}, errors.New("excel sheet is empty")
	}

	headers := normalizeHeaders(rows[0])
	data := ParsedData{Headers: headers}
	for _, record := range rows[1:] {
		if isEmptyRecord(record) {
			continue
		}
		data.Rows = append(data.Rows, recordToRow(headers, record))
	}
	data.TotalRows = len(data.Rows)
	return data, nil
}

// ParseJSON reads a payload shaped as a JSON array of flat objects.
// Malformed JSON fails the whole parse.
func ParseJSON(payload []byte) (ParsedData, error) {
	var raw []map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ParsedData{}, fmt.Errorf("failed to parse json: %w", err)
	}

	headerSet := map[string]bool{}
	var headers []string
	rows := make([]map[string]string, 0, len(raw))
	for _, object := range raw {
		row := make(map[string]string, len(object))
		for key, value := range object {
			header := normalizeHeader(key)
			if header == "" {
				continue
			}
			if !headerSet[header] {
				headerSet[header] = true
				headers = append(headers, header)
			}
			row[header] = jsonValueString(value)
		}
		rows = append(rows, row)
	}

	return ParsedData{
		Headers:   headers,
		Rows:      rows,
		TotalRows: len(rows),
	}, nil
}

// normalizeHeader lowercases and snake_cases a source column name so every
// format yields the same row keys.
func normalizeHeader(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	normalized := headerSeparators.ReplaceAllString(lowered, "_")
	return strings.Trim(normalized, "_")
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)
	for i, value := range raw {
		header := normalizeHeader(value)
		if header == "" {
			header = fmt.Sprintf("column_%d", i+1)
		}

		// Duplicate headers get a numeric suffix so no column shadows
		// another.
		base := header
		count := seen[base]
		if count > 0 {
			header = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[i] = header
	}
	return headers
}

func recordToRow(headers []string, record []string) map[string]string {
	row := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(record) {
			row[header] = strings.TrimSpace(record[i])
		} else {
			row[header] = ""
		}
	}
	return row
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func jsonValueString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		// JSON numbers decode as float64; keep integers free of ".0".
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%v", typed)
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(encoded)
	}
}
