package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type jsonParser struct{}

func (jsonParser) Kind() Kind { return KindJSON }

func (jsonParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

// Parse expects an array of flat objects. Headers are the keys of the first
// element in document order.
func (jsonParser) Parse(content []byte, _ Options) (*Table, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, &ParseError{Kind: KindJSON, Err: err}
	}
	t := &Table{}
	if len(items) == 0 {
		return t, nil
	}
	headers, err := objectKeys(items[0])
	if err != nil {
		return nil, &ParseError{Kind: KindJSON, Err: fmt.Errorf("element 0: %w", err)}
	}
	t.Headers = headers
	for i, raw := range items {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, &ParseError{Kind: KindJSON, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		if obj == nil {
			return nil, &ParseError{Kind: KindJSON, Err: fmt.Errorf("element %d: expected object, got null", i)}
		}
		row := make(Row, len(obj))
		for k, v := range obj {
			if cell, ok := jsonCell(v); ok {
				row[k] = cell
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		// skip the value
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// jsonCell maps a decoded JSON value to a cell; null is treated as absent.
func jsonCell(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return Value{}, false
	case json.Number:
		return Coerce(x.String()), true
	case string:
		return Coerce(x), true
	case bool:
		if x {
			return String("true"), true
		}
		return String("false"), true
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return String(fmt.Sprint(x)), true
		}
		return String(string(b)), true
	}
}
