package ingestion

import (
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
)

func TestParseCSVNormalizesHeaders(t *testing.T) {
	data := []byte("First Name,Last Name,E-Mail Address\nAda,Lovelace,ada@example.com\n")

	parsed, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}

	want := []string{"first_name", "last_name", "e_mail_address"}
	if len(parsed.Headers) != len(want) {
		t.Fatalf("expected %d headers, got %v", len(want), parsed.Headers)
	}
	for i, header := range want {
		if parsed.Headers[i] != header {
			t.Fatalf("header %d: expected %q, got %q", i, header, parsed.Headers[i])
		}
	}
	if parsed.TotalRows != 1 {
		t.Fatalf("expected 1 row, got %d", parsed.TotalRows)
	}
	if parsed.Rows[0]["first_name"] != "Ada" {
		t.Fatalf("unexpected row: %v", parsed.Rows[0])
	}
}

func TestParseCSVStripsByteOrderMark(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name\nAcme\n")...)

	parsed, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if parsed.Headers[0] != "name" {
		t.Fatalf("BOM leaked into header: %q", parsed.Headers[0])
	}
}

func TestParseCSVSurfacesRowErrorsAndKeepsGoodRows(t *testing.T) {
	// Row 2 has a field-count mismatch; rows 1 and 3 are fine.
	data := []byte("name,industry\nAcme,software\nBroken\nGlobex,energy\n")

	parsed, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(parsed.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %v", parsed.Errors)
	}
	if parsed.Errors[0].Row != 2 {
		t.Fatalf("expected error on row 2, got row %d", parsed.Errors[0].Row)
	}
	if parsed.TotalRows != 2 {
		t.Fatalf("expected 2 good rows, got %d", parsed.TotalRows)
	}
}

func TestParseCSVSkipsBlankRows(t *testing.T) {
	data := []byte("name\nAcme\n\nGlobex\n")

	parsed, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if parsed.TotalRows != 2 {
		t.Fatalf("expected 2 rows, got %d", parsed.TotalRows)
	}
}

func TestParseCSVSuffixesDuplicateHeaders(t *testing.T) {
	data := []byte("Name,name,Industry\nAcme,Acme Corp,software\n")

	parsed, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}

	want := []string{"name", "name_2", "industry"}
	for i, header := range want {
		if parsed.Headers[i] != header {
			t.Fatalf("header %d: expected %q, got %q", i, header, parsed.Headers[i])
		}
	}
	row := parsed.Rows[0]
	if row["name"] != "Acme" || row["name_2"] != "Acme Corp" {
		t.Fatalf("duplicate column lost data: %v", row)
	}
}

func TestParseCSVIsIdempotent(t *testing.T) {
	data := []byte("Name,name,Industry\nAcme,Acme Corp,software\nGlobex,Globex Inc,energy\n")

	first, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	second, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV returned error on second parse: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same payload parsed differently:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`[
		{"Company Name": "Acme", "Employees": 250, "Active": true},
		{"Company Name": "Globex", "Employees": 1200.5, "Active": false}
	]`)

	parsed, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}
	if parsed.TotalRows != 2 {
		t.Fatalf("expected 2 rows, got %d", parsed.TotalRows)
	}
	row := parsed.Rows[0]
	if row["company_name"] != "Acme" {
		t.Fatalf("unexpected name: %q", row["company_name"])
	}
	if row["employees"] != "250" {
		t.Fatalf("expected integer rendering without decimal, got %q", row["employees"])
	}
	if row["active"] != "true" {
		t.Fatalf("unexpected boolean rendering: %q", row["active"])
	}
	if parsed.Rows[1]["employees"] != "1200.5" {
		t.Fatalf("unexpected float rendering: %q", parsed.Rows[1]["employees"])
	}
}

func TestParseJSONMalformedFailsFast(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"not": "an array"}`)); err == nil {
		t.Fatalf("expected error for non-array payload")
	}
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	_, err := ParseFile("data.parquet", []byte("x"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseBase64File(t *testing.T) {
	raw := "name\nAcme\n"
	encoded := "data:text/csv;base64," + base64.StdEncoding.EncodeToString([]byte(raw))

	parsed, err := ParseBase64File("accounts.csv", encoded)
	if err != nil {
		t.Fatalf("ParseBase64File returned error: %v", err)
	}
	if parsed.TotalRows != 1 || parsed.Rows[0]["name"] != "Acme" {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
}

func TestParseBase64FileInvalidEncoding(t *testing.T) {
	if _, err := ParseBase64File("accounts.csv", "%%%not-base64%%%"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"First Name", "first_name"},
		{"  E-Mail  ", "e_mail"},
		{"LinkedIn URL", "linkedin_url"},
		{"employee_count", "employee_count"},
		{"Phone #", "phone"},
	}
	for _, tc := range cases {
		if got := normalizeHeader(tc.in); got != tc.want {
			t.Fatalf("normalizeHeader(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
