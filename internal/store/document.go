// Package store persists the persona document: the profile and the post type catalog.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// DefaultLanguage is used for generation when the profile has no language.
const DefaultLanguage = "Spanish"

// Profile is the persona used to frame generated posts.
type Profile struct {
	Name        string   `json:"nombre"`
	Tag         string   `json:"etiqueta"`
	Personality string   `json:"personalidad"`
	Services    []string `json:"servicios"`
	Language    string   `json:"idioma"`
}

// LanguageOrDefault returns Language, or DefaultLanguage when it is blank.
func (p Profile) LanguageOrDefault() string {
	if p.Language == "" {
		return DefaultLanguage
	}
	return p.Language
}

// PostType holds the example texts of one category.
type PostType struct {
	Examples []string `json:"ejemplos"`
}

// PostTypes is an insertion-ordered map of post type name to PostType.
// The zero value is empty and ready to use.
type PostTypes struct {
	names []string
	items map[string]*PostType
}

// Len returns the number of post types.
func (t *PostTypes) Len() int {
	return len(t.names)
}

// Names returns the post type names in insertion order.
func (t *PostTypes) Names() []string {
	return slices.Clone(t.names)
}

// Get returns the post type stored under name.
func (t *PostTypes) Get(name string) (*PostType, bool) {
	pt, ok := t.items[name]
	return pt, ok
}

// Set stores pt under name, appending the name when it is new.
func (t *PostTypes) Set(name string, pt *PostType) {
	if t.items == nil {
		t.items = make(map[string]*PostType)
	}
	if _, ok := t.items[name]; !ok {
		t.names = append(t.names, name)
	}
	if pt.Examples == nil {
		pt.Examples = []string{}
	}
	t.items[name] = pt
}

// Rename moves the entry under old to new, keeping its position.
// It reports false when old is absent or new is taken.
func (t *PostTypes) Rename(old, new string) bool {
	pt, ok := t.items[old]
	if !ok {
		return false
	}
	if old == new {
		return true
	}
	if _, taken := t.items[new]; taken {
		return false
	}
	t.names[slices.Index(t.names, old)] = new
	delete(t.items, old)
	t.items[new] = pt
	return true
}

// Delete removes name and reports whether it existed.
func (t *PostTypes) Delete(name string) bool {
	if _, ok := t.items[name]; !ok {
		return false
	}
	delete(t.items, name)
	t.names = slices.DeleteFunc(t.names, func(n string) bool { return n == name })
	return true
}

// Clone returns a deep copy.
func (t *PostTypes) Clone() PostTypes {
	out := PostTypes{
		names: slices.Clone(t.names),
		items: make(map[string]*PostType, len(t.items)),
	}
	for name, pt := range t.items {
		out.items[name] = &PostType{Examples: slices.Clone(pt.Examples)}
	}
	return out
}

// MarshalJSON writes the post types as an object in insertion order.
func (t PostTypes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, name := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := enc.Encode(t.items[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping the key order of the input.
func (t *PostTypes) UnmarshalJSON(data []byte) error {
	*t = PostTypes{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("post types: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("post types: expected key, got %v", tok)
		}
		var pt PostType
		if err := dec.Decode(&pt); err != nil {
			return fmt.Errorf("post type %q: %w", name, err)
		}
		t.Set(name, &pt)
	}
	_, err = dec.Token()
	return err
}

// Document is the whole persisted state.
type Document struct {
	Profile   Profile   `json:"configuracion"`
	PostTypes PostTypes `json:"tipos_de_post"`
}

// DefaultDocument returns an empty profile and no post types.
func DefaultDocument() *Document {
	doc := &Document{}
	doc.normalize()
	return doc
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Profile:   d.Profile,
		PostTypes: d.PostTypes.Clone(),
	}
	out.Profile.Services = slices.Clone(d.Profile.Services)
	out.normalize()
	return out
}

func (d *Document) normalize() {
	if d.Profile.Services == nil {
		d.Profile.Services = []string{}
	}
}

// Encode renders the document with four-space indentation, HTML and non-ASCII kept literal.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document; missing fields default to empty.
func Decode(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	doc.normalize()
	return doc, nil
}
