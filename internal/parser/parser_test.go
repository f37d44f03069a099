package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCSV_QuotedDelimiterStaysString(t *testing.T) {
	tb, err := Parse([]byte("x,y\n\"1,000\",2\n3,4\n"), Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tb.Headers) != 2 || tb.Headers[0] != "x" || tb.Headers[1] != "y" {
		t.Fatalf("unexpected headers: %v", tb.Headers)
	}
	if len(tb.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tb.Rows))
	}
	x := tb.Rows[0]["x"]
	if x.IsNum || x.Str != "1,000" {
		t.Fatalf("expected string 1,000, got %+v", x)
	}
	if y := tb.Rows[0]["y"]; !y.IsNum || y.Num != 2 {
		t.Fatalf("expected number 2, got %+v", y)
	}
	if x := tb.Rows[1]["x"]; !x.IsNum || x.Num != 3 {
		t.Fatalf("expected number 3, got %+v", x)
	}
}

func TestCSV_ShortAndLongLines(t *testing.T) {
	tb, err := Parse([]byte("\n a , b ,c\r\n1,2\r\n\r\n4,5,6,7\n"), Options{Kind: KindTabular})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(tb.Headers, "|") != "a|b|c" {
		t.Fatalf("headers not trimmed: %q", tb.Headers)
	}
	if len(tb.Rows) != 2 {
		t.Fatalf("blank lines should be skipped, got %d rows", len(tb.Rows))
	}
	if _, ok := tb.Rows[0]["c"]; ok {
		t.Fatalf("short line should leave c absent: %+v", tb.Rows[0])
	}
	if len(tb.Rows[1]) != 3 {
		t.Fatalf("extra fields should be dropped: %+v", tb.Rows[1])
	}
}

func TestCSV_UnbalancedQuoteNeverFails(t *testing.T) {
	tb, err := Parse([]byte("a,b\n\"1,2\n3,4\n"), Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tb.Rows[0]["a"]; got.IsNum || got.Str != "1,2" {
		t.Fatalf("expected quoted remainder as one field, got %+v", got)
	}
	if _, ok := tb.Rows[0]["b"]; ok {
		t.Fatalf("b should be absent")
	}
}

func TestParseFile_TSVAndUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	tsv := filepath.Join(dir, "m.tsv")
	if err := os.WriteFile(tsv, []byte("a\tb\n1,5\t2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tb, err := ParseFile(tsv, Options{})
	if err != nil {
		t.Fatalf("parse tsv: %v", err)
	}
	if v := tb.Rows[0]["a"]; v.IsNum || v.Str != "1,5" {
		t.Fatalf("tab delimiter not applied: %+v", v)
	}

	log := filepath.Join(dir, "notes.log")
	if err := os.WriteFile(log, []byte("first\n\n42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tb, err = ParseFile(log, Options{})
	if err != nil {
		t.Fatalf("parse log: %v", err)
	}
	if len(tb.Headers) != 1 || tb.Headers[0] != TextColumn || len(tb.Rows) != 2 {
		t.Fatalf("expected text table, got %+v", tb)
	}
	if v := tb.Rows[1][TextColumn]; !v.IsNum || v.Num != 42 {
		t.Fatalf("numeric line should coerce: %+v", v)
	}
}

func TestParseFile_MissingFile(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.csv"), Options{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestJSON_ArrayOfObjects(t *testing.T) {
	tb, err := Parse([]byte(`[{"b":1,"a":"x","c":null,"d":{"k":1}},{"a":"2","b":true}]`), Options{Kind: KindJSON})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(tb.Headers, ",") != "b,a,c,d" {
		t.Fatalf("headers should follow document order: %v", tb.Headers)
	}
	r0, r1 := tb.Rows[0], tb.Rows[1]
	if v := r0["b"]; !v.IsNum || v.Num != 1 {
		t.Fatalf("b: %+v", v)
	}
	if _, ok := r0["c"]; ok {
		t.Fatalf("null should be absent")
	}
	if v := r0["d"]; v.IsNum || v.Str != `{"k":1}` {
		t.Fatalf("nested object should be kept as JSON text: %+v", v)
	}
	if v := r1["a"]; !v.IsNum || v.Num != 2 {
		t.Fatalf("numeric string should coerce: %+v", v)
	}
	if v := r1["b"]; v.IsNum || v.Str != "true" {
		t.Fatalf("bool should become text: %+v", v)
	}
}

func TestJSON_Errors(t *testing.T) {
	cases := map[string]string{
		"not an array":   `{"a":1}`,
		"invalid":        `[{"a":1}`,
		"scalar element": `[1]`,
		"null element":   `[{"a":1},null]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body), Options{Kind: KindJSON})
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Kind != KindJSON {
				t.Fatalf("expected json ParseError, got %v", err)
			}
		})
	}

	p := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(p, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ParseFile(p, Options{})
	if err == nil || !strings.Contains(err.Error(), "parse bad.json as json") {
		t.Fatalf("expected file name in error, got %v", err)
	}
}

func TestJSON_EmptyArray(t *testing.T) {
	tb, err := Parse([]byte(`[]`), Options{Kind: KindJSON})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tb.Headers) != 0 || len(tb.Rows) != 0 {
		t.Fatalf("expected empty table, got %+v", tb)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": "", "CSV": KindTabular, "xlsx": KindTabular, "json": KindJSON, "txt": KindText} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("parquet"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestCoerce(t *testing.T) {
	for _, s := range []string{"", "  ", "NaN", "Inf", "1,000", "abc"} {
		if Coerce(s).IsNum {
			t.Fatalf("%q should stay a string", s)
		}
	}
	if v := Coerce(" -2.5e1 "); !v.IsNum || v.Num != -25 {
		t.Fatalf("expected -25, got %+v", v)
	}
}

// zipFixture builds an in-memory OOXML package from name/body pairs.
func zipFixture(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func workbookFixture(t *testing.T) []byte {
	return zipFixture(t, map[string]string{
		"xl/workbook.xml": `<workbook xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>` +
			`<sheet name="Notes" sheetId="1" r:id="rId1"/><sheet name="Data" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships><Relationship Id="rId1" Target="worksheets/sheet1.xml"/>` +
			`<Relationship Id="rId2" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml":     `<sst><si><t>qty</t></si><si><t>price</t></si><si><r><t>n/</t></r><r><t>a</t></r></si></sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>memo</t></is></c></row></sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<worksheet><sheetData>` +
			`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
			`<row r="2"><c r="A2"><v>3</v></c><c r="B2"><v>9.5</v></c></row>` +
			`<row r="3"></row>` +
			`<row r="4"><c r="B4"><v>7</v></c></row>` +
			`<row r="5"><c r="A5" t="s"><v>2</v></c><c r="B5"><v>1</v></c></row>` +
			`</sheetData></worksheet>`,
	})
}

func TestXLSX_SheetByName(t *testing.T) {
	tb, err := xlsxParser{}.Parse(workbookFixture(t), Options{SheetName: "data"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(tb.Headers, ",") != "qty,price" {
		t.Fatalf("unexpected headers: %v", tb.Headers)
	}
	if len(tb.Rows) != 3 {
		t.Fatalf("expected 3 rows (blank row skipped), got %d", len(tb.Rows))
	}
	if v := tb.Rows[0]["price"]; !v.IsNum || v.Num != 9.5 {
		t.Fatalf("price: %+v", v)
	}
	if v := tb.Rows[1]["qty"]; v.IsNum || v.Str != "" {
		t.Fatalf("missing A4 should pad to blank text: %+v", v)
	}
	if v := tb.Rows[2]["qty"]; v.IsNum || v.Str != "n/a" {
		t.Fatalf("rich shared string should join runs: %+v", v)
	}
}

func TestXLSX_SheetSelectionErrors(t *testing.T) {
	data := workbookFixture(t)
	tb, err := xlsxParser{}.Parse(data, Options{SheetIndex: 1})
	if err != nil {
		t.Fatalf("parse sheet 1: %v", err)
	}
	if len(tb.Headers) != 1 || tb.Headers[0] != "memo" {
		t.Fatalf("inline string header not read: %v", tb.Headers)
	}
	if _, err := (xlsxParser{}).Parse(data, Options{SheetName: "Missing"}); err == nil || !strings.Contains(err.Error(), "Notes, Data") {
		t.Fatalf("expected available sheets in error, got %v", err)
	}
	if _, err := (xlsxParser{}).Parse(data, Options{SheetIndex: 9}); err == nil {
		t.Fatalf("expected error for missing worksheet")
	}
	if _, err := (xlsxParser{}).Parse([]byte("not a zip"), Options{}); err == nil {
		t.Fatalf("expected error for invalid archive")
	}
}

func TestXLSX_ParseFileByExtension(t *testing.T) {
	p := filepath.Join(t.TempDir(), "book.xlsx")
	if err := os.WriteFile(p, workbookFixture(t), 0o644); err != nil {
		t.Fatal(err)
	}
	tb, err := ParseFile(p, Options{SheetIndex: 2})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tb.Rows) != 3 {
		t.Fatalf("expected the Data sheet, got %+v", tb)
	}
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.in); got != tt.want {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDOCX_ParagraphsBecomeRows(t *testing.T) {
	data := zipFixture(t, map[string]string{
		"word/document.xml": `<w:document><w:body><w:p><w:r><w:t>12</w:t></w:r></w:p>` +
			`<w:p></w:p><w:p><w:r><w:t>hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p></w:body></w:document>`,
	})
	p := filepath.Join(t.TempDir(), "memo.docx")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	tb, err := ParseFile(p, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tb.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", tb.Rows)
	}
	if v := tb.Rows[0][TextColumn]; !v.IsNum || v.Num != 12 {
		t.Fatalf("first paragraph: %+v", v)
	}
	if v := tb.Rows[1][TextColumn]; v.Str != "hello world" {
		t.Fatalf("second paragraph: %+v", v)
	}

	if _, err := (docxParser{}).Parse(zipFixture(t, map[string]string{"other.xml": "<x/>"}), Options{}); err == nil {
		t.Fatalf("expected error without document.xml")
	}
}
