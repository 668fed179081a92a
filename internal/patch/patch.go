// Package patch derives tri-state patch records from raw update payloads.
// A field is present when the raw object literally contains its wire name,
// whatever the value is, including null.
package patch

import (
	"bytes"

	json "github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"

	"github.com/griffnb/core-typegen/internal/domain"
)

// Field is one tri-state field of a patch record.
type Field struct {
	Name     string
	WireName string
	Present  bool
	Value    any
}

// Record is a derived patch record.
type Record struct {
	Type   string
	fields []Field
	byName map[string]int
}

// Fields returns every field in declaration order.
func (r *Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Present reports whether the field named name was present in the source.
func (r *Record) Present(name string) bool {
	i, ok := r.byName[name]
	return ok && r.fields[i].Present
}

// Get returns the value of a present field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.byName[name]
	if !ok || !r.fields[i].Present {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Derive builds the patch record of def, which is either a patch definition or
// a class whose own properties are patched. current holds property values keyed
// by identifier and source is the raw object the update was decoded from.
func Derive(def *domain.TypeDef, current map[string]any, source map[string]any) (*Record, error) {
	if def == nil {
		return nil, errors.New("patch definition is nil")
	}
	if def.Kind == domain.DefEnum {
		return nil, errors.Errorf("%s is an enum and cannot be patched", def.Name)
	}

	r := &Record{
		Type:   def.Name.String(),
		fields: make([]Field, 0, len(def.Properties)),
		byName: make(map[string]int, len(def.Properties)),
	}
	for _, prop := range def.Properties {
		field := Field{Name: prop.Name, WireName: prop.WireName}
		if _, ok := source[prop.WireName]; ok {
			field.Present = true
			field.Value = current[prop.Name]
		}
		r.byName[prop.Name] = len(r.fields)
		r.fields = append(r.fields, field)
	}
	return r, nil
}

// DeriveJSON decodes raw as the source object and derives the patch record.
// Numbers are kept as json.Number.
func DeriveJSON(def *domain.TypeDef, current map[string]any, raw []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, errors.Errorf("failed to decode patch source: %w", err)
	}

	source, ok := decoded.(map[string]any)
	if !ok {
		return nil, errors.Errorf("patch source must be an object, got %T", decoded)
	}
	return Derive(def, current, source)
}
