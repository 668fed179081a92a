package domain

import "fmt"

// Location points at a source position. Line and Column are 1-based; zero means unknown.
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String renders the location as file:line:col.
func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<unknown>"
	}
	if l.Line == 0 {
		return file
	}
	if l.Column == 0 {
		return fmt.Sprintf("%s:%d", file, l.Line)
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// LibraryUse binds an alias to a library document.
type LibraryUse struct {
	Alias    string
	Document *Document
}

// Document is one parsed API description or library fragment.
type Document struct {
	Location     string
	Declarations []*Shape
	Uses         []LibraryUse
	References   []*Document
	Annotations  Annotations
	Endpoints    []*Endpoint
}

// Declaration finds a declared shape by name.
func (d *Document) Declaration(name string) *Shape {
	for _, s := range d.Declarations {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Library returns the document bound to alias.
func (d *Document) Library(alias string) *Document {
	for _, use := range d.Uses {
		if use.Alias == alias {
			return use.Document
		}
	}
	return nil
}

// ParamKind is where a parameter travels on the wire.
type ParamKind string

const (
	ParamQuery  ParamKind = "query"
	ParamHeader ParamKind = "header"
	ParamPath   ParamKind = "path"
	ParamCookie ParamKind = "cookie"
	ParamForm   ParamKind = "formData"
	ParamBody   ParamKind = "body"
)

// Endpoint groups the operations of one path.
type Endpoint struct {
	Path       string
	Operations []*Operation
}

// Operation is a single method on an endpoint.
type Operation struct {
	Name        string
	Method      string
	Path        string
	Parameters  []*Parameter
	Responses   []*Response
	Annotations Annotations
	Location    Location
}

// Body returns the body parameter, if any.
func (o *Operation) Body() *Parameter {
	for _, p := range o.Parameters {
		if p.Kind == ParamBody {
			return p
		}
	}
	return nil
}

// Parameter is an operation input.
type Parameter struct {
	Name     string
	Kind     ParamKind
	Schema   *Shape
	Required bool
}

// Response is an operation output for one status code.
type Response struct {
	Status int
	Schema *Shape
}
