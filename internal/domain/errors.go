package domain

import "fmt"

// ReferenceError reports a named reference that resolves to nothing.
type ReferenceError struct {
	Ref      string
	Location Location
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: unresolved reference '%s'", e.Location, e.Ref)
}

// CollisionError reports two distinct shapes that were given the same qualified name.
type CollisionError struct {
	Name   string
	First  Location
	Second Location
	Hint   string
}

func (e *CollisionError) Error() string {
	msg := fmt.Sprintf("%s: type name '%s' collides with the type declared at %s", e.Second, e.Name, e.First)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// ShapeKindError reports a shape that fits no known classification or is malformed.
type ShapeKindError struct {
	ShapeID  ShapeID
	Kind     Kind
	Location Location
	Reason   string
}

func (e *ShapeKindError) Error() string {
	return fmt.Sprintf("%s: unsupported %s shape #%d: %s", e.Location, e.Kind, e.ShapeID, e.Reason)
}

// AnnotationError reports a feature annotation that refers to something that does not exist.
type AnnotationError struct {
	Annotation string
	Value      any
	Location   Location
	Reason     string
}

func (e *AnnotationError) Error() string {
	return fmt.Sprintf("%s: invalid annotation '%s' = %v: %s", e.Location, e.Annotation, e.Value, e.Reason)
}
