package types

// MatchRecord is one reported occurrence (or, in inverted mode, non-occurrence)
// of a pattern in a line. A field is set only when its show flag is enabled.
type MatchRecord struct {
	LineNumber *int    `json:"line_number,omitempty" yaml:"line_number,omitempty"`
	Text       *string `json:"text,omitempty" yaml:"text,omitempty"`
	File       *string `json:"file,omitempty" yaml:"file,omitempty"`
	Pattern    *string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// RecordBuilder projects match data onto the fields selected by Options.
type RecordBuilder struct {
	opts Options
}

// NewRecordBuilder returns a builder for opts.
func NewRecordBuilder(opts Options) RecordBuilder {
	return RecordBuilder{opts: opts}
}

// Build returns a record carrying only the enabled fields.
func (b RecordBuilder) Build(lineNumber int, text, file, pattern string) MatchRecord {
	var r MatchRecord
	if b.opts.ShowLineNumber {
		r.LineNumber = &lineNumber
	}
	if b.opts.ShowLineText {
		r.Text = &text
	}
	if b.opts.ShowFileName {
		r.File = &file
	}
	if b.opts.ShowPattern {
		r.Pattern = &pattern
	}
	return r
}

// WithLineNumber returns a copy of r whose line number is n.
// Records built without ShowLineNumber are returned unchanged.
func (r MatchRecord) WithLineNumber(n int) MatchRecord {
	if r.LineNumber == nil {
		return r
	}
	r.LineNumber = &n
	return r
}

// Key returns a comparable form of the record, used for multiset comparison.
func (r MatchRecord) Key() RecordKey {
	var k RecordKey
	if r.LineNumber != nil {
		k.HasLine, k.LineNumber = true, *r.LineNumber
	}
	if r.Text != nil {
		k.HasText, k.Text = true, *r.Text
	}
	if r.File != nil {
		k.HasFile, k.File = true, *r.File
	}
	if r.Pattern != nil {
		k.HasPattern, k.Pattern = true, *r.Pattern
	}
	return k
}

// RecordKey is the value form of a MatchRecord.
type RecordKey struct {
	HasLine    bool
	LineNumber int
	HasText    bool
	Text       string
	HasFile    bool
	File       string
	HasPattern bool
	Pattern    string
}
