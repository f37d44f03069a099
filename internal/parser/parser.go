package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the declared type of an input file.
type Kind string

const (
	KindTabular Kind = "tabular"
	KindJSON    Kind = "json"
	KindText    Kind = "text"
)

// ParseKind validates a user-supplied kind. Empty means auto-detect.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "tabular", "csv", "tsv", "xlsx":
		return KindTabular, nil
	case "json":
		return KindJSON, nil
	case "text", "txt":
		return KindText, nil
	default:
		return "", fmt.Errorf("unsupported file type %q (use tabular|json|text)", s)
	}
}

// Options tunes parsing of a single file.
type Options struct {
	// Kind forces a parser family; empty selects by extension.
	Kind Kind
	// Delimiter for delimited text. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// Parser defines a file parser implementation.
type Parser interface {
	Kind() Kind
	CanParse(filename string) bool
	Parse(content []byte, opt Options) (*Table, error)
}

// ParseError reports content that could not be decoded.
type ParseError struct {
	File string
	Kind Kind
	Err  error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse %s as %s: %v", e.File, e.Kind, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported file format")

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ParseFile reads the whole file and parses it into a Table.
func ParseFile(path string, opt Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if opt.Delimiter == 0 && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opt.Delimiter = '\t'
	}
	p, err := selectParser(path, opt.Kind)
	if err != nil {
		return nil, err
	}
	t, err := p.Parse(data, opt)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && pe.File == "" {
			pe.File = filepath.Base(path)
		}
		return nil, err
	}
	return t, nil
}

// Parse parses in-memory content of the given kind.
func Parse(content []byte, opt Options) (*Table, error) {
	p, err := selectParser("", opt.Kind)
	if err != nil {
		return nil, err
	}
	return p.Parse(content, opt)
}

func selectParser(path string, kind Kind) (Parser, error) {
	var fallback Parser
	for _, p := range registry {
		if kind != "" && p.Kind() != kind {
			continue
		}
		if path != "" && p.CanParse(path) {
			return p, nil
		}
		if fallback == nil {
			fallback = p
		}
	}
	if kind == "" {
		if path == "" {
			return csvParser{}, nil
		}
		// Unknown extensions are read as plain text.
		return txtParser{}, nil
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
	return fallback, nil
}

func init() {
	// Registration order decides the default parser per kind.
	Register(csvParser{})
	Register(xlsxParser{})
	Register(jsonParser{})
	Register(txtParser{})
	Register(docxParser{})
}
