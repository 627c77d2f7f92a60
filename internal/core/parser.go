package core

// parser.go turns uploaded CSV text into header-keyed rows.
//
// The format is naive: lines are split on "\n" and fields on ",".
// Quoted fields are not supported. Rows whose field count differs from the
// header's are skipped without being reported.

import "strings"

// Row is one structurally well-formed data line.
type Row struct {
	Line   int               // 1-based physical line number in the input
	Fields map[string]string // lower-cased header name -> trimmed value
}

// RowParser yields the data rows of a CSV text one at a time.
// It cannot be restarted; once Next returns false it keeps returning false.
type RowParser struct {
	lines  []string
	pos    int
	header []string
	ready  bool
	row    Row
}

// NewRowParser creates a parser over text. No work is done until the first
// call to Next or Header.
func NewRowParser(text string) *RowParser {
	return &RowParser{lines: strings.Split(text, "\n")}
}

// Header returns the lower-cased, trimmed header tokens, or nil when the
// input has no non-blank line.
func (p *RowParser) Header() []string {
	p.readHeader()
	return p.header
}

// Next advances to the next well-formed data row.
func (p *RowParser) Next() bool {
	p.readHeader()
	if p.header == nil {
		return false
	}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := splitTrim(line)
		if len(values) != len(p.header) {
			continue
		}

		fields := make(map[string]string, len(p.header))
		for i, name := range p.header {
			fields[name] = values[i]
		}
		p.row = Row{Line: p.pos, Fields: fields}
		return true
	}

	p.row = Row{}
	return false
}

// Row returns the row produced by the last successful call to Next.
func (p *RowParser) Row() Row {
	return p.row
}

func (p *RowParser) readHeader() {
	if p.ready {
		return
	}
	p.ready = true

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++
		if strings.TrimSpace(line) == "" {
			continue
		}
		header := splitTrim(line)
		for i := range header {
			header[i] = strings.ToLower(header[i])
		}
		p.header = header
		return
	}
}

func splitTrim(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseRows drains a parser over text into a slice.
func ParseRows(text string) []Row {
	p := NewRowParser(text)
	var rows []Row
	for p.Next() {
		rows = append(rows, p.Row())
	}
	return rows
}
