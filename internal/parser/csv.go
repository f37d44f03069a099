package parser

import (
	"strings"
)

type csvParser struct{}

func (csvParser) Kind() Kind { return KindTabular }

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Parse never fails: malformed lines yield short or truncated rows.
func (csvParser) Parse(content []byte, opt Options) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}
	lines := strings.Split(string(content), "\n")
	t := &Table{}
	headerSeen := false
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if !headerSeen {
			if strings.TrimSpace(line) == "" {
				continue
			}
			for _, h := range splitDelimited(line, delim) {
				t.Headers = append(t.Headers, strings.TrimSpace(h))
			}
			headerSeen = true
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		t.Rows = append(t.Rows, rowFromFields(t.Headers, splitDelimited(line, delim)))
	}
	return t, nil
}

// splitDelimited scans one line; a double quote toggles the in-quotes state
// and is not kept in the field.
func splitDelimited(line string, delim rune) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}
