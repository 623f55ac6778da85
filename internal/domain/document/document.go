package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Recognized field names.
const (
	FieldID       = "id"
	FieldTitle    = "title"
	FieldPageURL  = "page_url"
	FieldContent  = "content"
	FieldImageURL = "image_url"
	FieldScore    = "score"
)

// Document is a free-form retriever hit (immutable value object).
// Recognized fields are decoded on access; every other field is passed through verbatim.
type Document struct {
	fields map[string]json.RawMessage
}

// New builds a Document from arbitrary field values.
func New(fields map[string]any) (Document, error) {
	raw := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return Document{}, fmt.Errorf("field %q: %w", k, err)
		}
		raw[k] = b
	}
	return Document{fields: raw}, nil
}

// MustNew is New that panics on unencodable values (fixtures and examples).
func MustNew(fields map[string]any) Document {
	d, err := New(fields)
	if err != nil {
		panic(err)
	}
	return d
}

// ID returns the document identifier. Numeric ids are rendered as text.
func (d Document) ID() string {
	raw, ok := d.fields[FieldID]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// Title returns the display title.
func (d Document) Title() string { return d.str(FieldTitle) }

// PageURL returns the navigation target.
func (d Document) PageURL() string { return d.str(FieldPageURL) }

// Content returns the snippet or description.
func (d Document) Content() string { return d.str(FieldContent) }

// ImageURL returns the thumbnail URL.
func (d Document) ImageURL() string { return d.str(FieldImageURL) }

// Score returns the relevance score and whether the server sent one.
func (d Document) Score() (float64, bool) {
	raw, ok := d.fields[FieldScore]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// Field returns the raw JSON of any field, recognized or not.
func (d Document) Field(name string) (json.RawMessage, bool) {
	raw, ok := d.fields[name]
	return raw, ok
}

// Fields returns a copy of all raw fields.
func (d Document) Fields() map[string]json.RawMessage {
	return maps.Clone(d.fields)
}

// WithField returns a copy of d with name set to value.
func (d Document) WithField(name string, value any) (Document, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return Document{}, fmt.Errorf("field %q: %w", name, err)
	}
	fields := maps.Clone(d.fields)
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	fields[name] = b
	return Document{fields: fields}, nil
}

// IsZero reports whether the document carries no fields.
func (d Document) IsZero() bool { return len(d.fields) == 0 }

// MarshalJSON writes the fields back unchanged.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.fields)
}

// UnmarshalJSON accepts any JSON object.
func (d *Document) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.fields = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	d.fields = raw
	return nil
}

func (d Document) str(name string) string {
	raw, ok := d.fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Clone returns a copy of docs; nil stays nil.
func Clone(docs []Document) []Document {
	if docs == nil {
		return nil
	}
	out := make([]Document, len(docs))
	copy(out, docs)
	return out
}
