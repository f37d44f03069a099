package parser

import "strings"

// TextColumn is the single header produced for plain text input.
const TextColumn = "text"

type txtParser struct{}

func (txtParser) Kind() Kind { return KindText }

func (txtParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

func (txtParser) Parse(content []byte, _ Options) (*Table, error) {
	return linesTable(string(content)), nil
}

// linesTable turns each non-blank line into a row of the text column.
func linesTable(text string) *Table {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	t := &Table{Headers: []string{TextColumn}}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		t.Rows = append(t.Rows, Row{TextColumn: Coerce(strings.TrimSpace(line))})
	}
	return t
}
