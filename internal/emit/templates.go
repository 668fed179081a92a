package emit

import (
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

var fileTemplate = template.Must(template.New("file").Funcs(funcs).Parse(`// Code generated by core-typegen. DO NOT EDIT.

package {{ .Name }}
{{ if .Imports }}
import (
{{- range .Imports }}
	{{ printf "%q" . }}
{{- end }}
)
{{ end }}
{{- range .Blocks }}
{{ . }}
{{ end -}}
`))

var structTemplate = template.Must(template.New("struct").Parse(`{{ if .Doc }}// {{ .Name }} {{ .Doc }}
{{ end -}}
type {{ .Name }} struct {
{{- range .Fields }}
{{- if .Comment }}
	// {{ .Comment }}
{{- end }}
	{{ .Name }} {{ .Type }} ` + "`{{ .Tag }}`" + `
{{- end }}
}
{{- range .Getters }}

func (m *{{ $.Name }}) Get{{ .Name }}() {{ .Type }} {
	return m.{{ .Name }}
}
{{- end }}
{{- if .Value }}

// DiscriminatorValue returns the {{ .Property }} value selecting {{ .Name }}.
func ({{ .Name }}) DiscriminatorValue() string {
	return {{ printf "%q" .Value }}
}
{{- end }}
{{- if .Subtypes }}

// {{ .Name }}Subtypes maps {{ .Property }} values to the types they select.
var {{ .Name }}Subtypes = map[string]string{
{{- range .Subtypes }}
	{{ printf "%q" .Value }}: {{ printf "%q" .Type }},
{{- end }}
}
{{- end }}`))

var interfaceTemplate = template.Must(template.New("interface").Parse(`{{ if .Doc }}// {{ .Name }} {{ .Doc }}
{{ end -}}
type {{ .Name }} interface {
{{- range .Embeds }}
	{{ . }}
{{- end }}
{{- range .Getters }}
	Get{{ .Name }}() {{ .Type }}
{{- end }}
}`))

var enumTemplate = template.Must(template.New("enum").Parse(`{{ if .Doc }}// {{ .Name }} {{ .Doc }}
{{ end -}}
type {{ .Name }} string

const (
{{- range .Cases }}
	{{ $.Name }}{{ .Name }} {{ $.Name }} = {{ printf "%q" .Value }}
{{- end }}
)`))

var patchFieldTemplate = `// PatchField is one field of a patch. Set reports whether the field was
// present in the source, even when its value was null.
type PatchField[T any] struct {
	Set   bool
	Value T
}

func (f *PatchField[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}`

var serviceTemplate = template.Must(template.New("service").Funcs(funcs).Parse(`// {{ .Name }} {{ .Doc }}
type {{ .Name }} interface {
{{- range .Methods }}
	// {{ .Name }} serves {{ .HTTPMethod }} {{ .Path }}.
	{{ .Name }}({{ join .Params ", " }}) {{ .Returns }}
{{- end }}
}`))
