package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func sampleRows() ([]string, []map[string]any) {
	columns := []string{"name", "industry", "employee_count"}
	rows := []map[string]any{
		{"name": "Acme", "industry": "software", "employee_count": 250},
		{"name": `Globex, "Inc"`, "industry": "energy\nutilities", "employee_count": nil},
	}
	return columns, rows
}

func TestGenerateCSVEscapesAndOrders(t *testing.T) {
	columns, rows := sampleRows()

	out, err := GenerateCSV(columns, rows, true)
	if err != nil {
		t.Fatalf("GenerateCSV returned error: %v", err)
	}

	lines := strings.SplitN(out, "\n", 2)
	if lines[0] != "name,industry,employee_count" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(out, `"Globex, ""Inc"""`) {
		t.Fatalf("comma/quote cell not escaped: %q", out)
	}
	if !strings.Contains(out, "\"energy\nutilities\"") {
		t.Fatalf("newline cell not quoted: %q", out)
	}
	// nil renders as empty cell
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), ",") {
		t.Fatalf("expected trailing empty cell for nil value: %q", out)
	}
}

func TestGenerateCSVWithoutHeaders(t *testing.T) {
	columns, rows := sampleRows()
	out, err := GenerateCSV(columns, rows, false)
	if err != nil {
		t.Fatalf("GenerateCSV returned error: %v", err)
	}
	if strings.HasPrefix(out, "name,") {
		t.Fatalf("headers present despite includeHeaders=false: %q", out)
	}
	if got := len(strings.Split(strings.TrimRight(out, "\n"), "\n")); got != 2 {
		t.Fatalf("expected 2 lines, got %d", got)
	}
}

func TestGenerateExcelRoundTrips(t *testing.T) {
	columns, rows := sampleRows()

	data, err := GenerateExcel(columns, rows, true, "Accounts")
	if err != nil {
		t.Fatalf("GenerateExcel returned error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("generated buffer is not a valid workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Accounts" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	read, err := f.GetRows("Accounts")
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if len(read) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(read))
	}
	if read[0][0] != "name" || read[1][0] != "Acme" {
		t.Fatalf("unexpected cell values: %v", read[:2])
	}
}

func TestGenerateJSONPrettyPrints(t *testing.T) {
	columns, rows := sampleRows()

	out, err := GenerateJSON(columns, rows)
	if err != nil {
		t.Fatalf("GenerateJSON returned error: %v", err)
	}
	if !strings.Contains(out, "\n  {") {
		t.Fatalf("expected two-space indentation: %q", out)
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(decoded))
	}
	if decoded[0]["name"] != "Acme" {
		t.Fatalf("unexpected object: %v", decoded[0])
	}
	// Only requested columns appear.
	if len(decoded[0]) != 3 {
		t.Fatalf("expected 3 keys, got %v", decoded[0])
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"float", 42.5, "42.5"},
		{"time", ts, "2026-02-01T09:30:00Z"},
		{"bytes", []byte("raw"), "raw"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatValue(tc.in); got != tc.want {
				t.Fatalf("formatValue(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
