package domain

import "strings"

// GenerationMode selects client or server flavoured generation.
type GenerationMode string

const (
	ModeClient GenerationMode = "client"
	ModeServer GenerationMode = "server"
)

// Valid reports whether the mode is known.
func (m GenerationMode) Valid() bool {
	return m == ModeClient || m == ModeServer
}

// Recognized annotation names.
const (
	AnnotationGoType                  = "goType"
	AnnotationGoModelPackage          = "goModelPackage"
	AnnotationNested                  = "nested"
	AnnotationPatchable               = "patchable"
	AnnotationExternallyDiscriminated = "externallyDiscriminated"
	AnnotationExternalDiscriminator   = "externalDiscriminator"
	AnnotationServiceGroup            = "serviceGroup"
)

// Annotation is one piece of metadata attached to a shape, document or operation.
type Annotation struct {
	Name  string
	Value any
}

// Annotations is an ordered annotation list.
type Annotations []Annotation

// Lookup finds an annotation by name for mode.
// Mode specific spellings ("name:mode", "x-name-mode") win over the plain ones ("name", "x-name").
func (a Annotations) Lookup(name string, mode GenerationMode) (any, bool) {
	var candidates []string
	if mode != "" {
		candidates = append(candidates, name+":"+string(mode), "x-"+name+"-"+string(mode))
	}
	candidates = append(candidates, name, "x-"+name)

	for _, candidate := range candidates {
		for _, ann := range a {
			if strings.EqualFold(ann.Name, candidate) {
				return ann.Value, true
			}
		}
	}
	return nil, false
}

// String returns the annotation value as a string.
func (a Annotations) String(name string, mode GenerationMode) (string, bool) {
	v, ok := a.Lookup(name, mode)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns true when the annotation is present and truthy.
// A present annotation without a value counts as true.
func (a Annotations) Bool(name string, mode GenerationMode) bool {
	v, ok := a.Lookup(name, mode)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case nil:
		return true
	case bool:
		return b
	case string:
		return b == "" || strings.EqualFold(b, "true")
	}
	return false
}

// Map returns the annotation value as a string keyed map.
func (a Annotations) Map(name string, mode GenerationMode) (map[string]any, bool) {
	v, ok := a.Lookup(name, mode)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
