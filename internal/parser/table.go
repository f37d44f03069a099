package parser

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Table is the loosely typed result of parsing a file: ordered headers plus
// one map per row keyed by header name.
type Table struct {
	Headers []string `json:"headers" yaml:"headers"`
	Rows    []Row    `json:"data" yaml:"data"`
}

// Row maps a header to its cell. Headers missing from a short line are absent.
type Row map[string]Value

// Value is a cell that is either a number or a string.
type Value struct {
	Num   float64
	Str   string
	IsNum bool
}

// Number wraps f as a numeric cell.
func Number(f float64) Value { return Value{Num: f, IsNum: true} }

// String wraps s as a text cell.
func String(s string) Value { return Value{Str: s} }

// Coerce turns raw text into a number when it parses as a finite float,
// otherwise keeps it as a string. Blank text stays a string.
func Coerce(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return String(raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return String(raw)
	}
	return Number(f)
}

func (v Value) String() string {
	if v.IsNum {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Str
}

// MarshalJSON emits numbers as JSON numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNum {
		return json.Marshal(v.Num)
	}
	return json.Marshal(v.Str)
}

// MarshalYAML mirrors MarshalJSON for yaml.v3.
func (v Value) MarshalYAML() (any, error) {
	if v.IsNum {
		return v.Num, nil
	}
	return v.Str, nil
}

// rowFromFields keys fields by header. Extra fields are dropped.
func rowFromFields(headers, fields []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		if i >= len(fields) {
			break
		}
		row[h] = Coerce(strings.TrimSpace(fields[i]))
	}
	return row
}
