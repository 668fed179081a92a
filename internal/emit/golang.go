package emit

import (
	"bytes"
	"fmt"
	"go/token"
	"path"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/orchestrator"
)

// GoTarget renders Go source, one file per package.
type GoTarget struct {
	// Module prefixes the import path of every generated package.
	Module string

	mode    domain.GenerationMode
	types   *domain.TypeTable
	graph   *domain.Graph
	files   map[string]*goFile
	current *goFile
	service *goService
	method  *goMethod
}

const identCollisionHint = "rename one of the declarations or move it with a goModelPackage annotation"

type goFile struct {
	pkg     string
	name    string
	imports map[string]bool
	decls   map[string]domain.Location
	blocks  []string
	patch   bool
}

func (f *goFile) use(importPath string) {
	if importPath != "" {
		f.imports[importPath] = true
	}
}

// declare reserves a package level identifier. Nested names are flattened, so
// distinct qualified names can still meet here.
func (f *goFile) declare(ident string, loc domain.Location) error {
	if first, ok := f.decls[ident]; ok {
		return &domain.CollisionError{
			Name:   f.pkg + "." + ident,
			First:  first,
			Second: loc,
			Hint:   identCollisionHint,
		}
	}
	f.decls[ident] = loc
	return nil
}

// fieldSet rejects two properties that map to one struct field.
type fieldSet struct {
	owner  string
	loc    domain.Location
	fields map[string]string
}

func newFieldSet(owner string, loc domain.Location) *fieldSet {
	return &fieldSet{owner: owner, loc: loc, fields: make(map[string]string)}
}

func (s *fieldSet) add(field, wireName string) error {
	if first, ok := s.fields[field]; ok {
		return fmt.Errorf("%s: properties '%s' and '%s' both map to field %s of %s", s.loc, first, wireName, field, s.owner)
	}
	s.fields[field] = wireName
	return nil
}

type goField struct {
	Name    string
	Type    string
	Tag     string
	Comment string
}

type goSubtype struct {
	Value string
	Type  string
}

type goStruct struct {
	Doc      string
	Name     string
	Fields   []goField
	Getters  []goField
	Property string
	Value    string
	Subtypes []goSubtype
}

type goInterface struct {
	Doc     string
	Name    string
	Embeds  []string
	Getters []goField
}

type goEnum struct {
	Doc   string
	Name  string
	Cases []domain.EnumCase
}

type goMethod struct {
	Name       string
	HTTPMethod string
	Path       string
	Params     []string
	Returns    string
}

type goService struct {
	Name    string
	Doc     string
	Methods []*goMethod

	methods map[string]domain.Location
}

// NewGoTarget creates a Go target for result.
func NewGoTarget(result *orchestrator.Result, module string) *GoTarget {
	return &GoTarget{
		Module: module,
		mode:   result.Mode,
		types:  result.Types(),
		graph:  result.Graph,
		files:  make(map[string]*goFile),
	}
}

func (t *GoTarget) Begin(pkg string) error {
	f, ok := t.files[pkg]
	if !ok {
		f = &goFile{
			pkg:     pkg,
			name:    packageName(pkg),
			imports: make(map[string]bool),
			decls:   make(map[string]domain.Location),
		}
		t.files[pkg] = f
	}
	t.current = f
	return nil
}

func (t *GoTarget) Definition(def *domain.TypeDef) error {
	if t.current == nil {
		return fmt.Errorf("definition %s emitted outside a package", def.Name)
	}

	var err error
	switch def.Kind {
	case domain.DefEnum:
		err = t.enum(def)
	case domain.DefPatch:
		err = t.patch(def)
	case domain.DefInterface:
		err = t.iface(def)
	default:
		err = t.class(def, typeIdent(def.Name), false)
	}
	if err != nil {
		return err
	}

	for _, nested := range def.Nested {
		if err := t.Definition(nested); err != nil {
			return err
		}
	}
	return nil
}

func (t *GoTarget) enum(def *domain.TypeDef) error {
	name := typeIdent(def.Name)
	if err := t.current.declare(name, def.Location); err != nil {
		return err
	}
	for _, c := range def.Cases {
		if err := t.current.declare(name+c.Name, def.Location); err != nil {
			return err
		}
	}
	return t.render(enumTemplate, goEnum{Doc: doc(def), Name: name, Cases: def.Cases})
}

func (t *GoTarget) patch(def *domain.TypeDef) error {
	f := t.current
	if !f.patch {
		if err := f.declare("PatchField", domain.Location{}); err != nil {
			return err
		}
		f.patch = true
		f.use("encoding/json")
		f.blocks = append(f.blocks, patchFieldTemplate)
	}

	s := goStruct{Doc: "holds the fields of a partial update.", Name: typeIdent(def.Name)}
	if err := f.declare(s.Name, def.Location); err != nil {
		return err
	}
	fields := newFieldSet(s.Name, def.Location)
	for _, prop := range def.Properties {
		if err := fields.add(exported(prop.Name), prop.WireName); err != nil {
			return err
		}
		s.Fields = append(s.Fields, goField{
			Name: exported(prop.Name),
			Type: "PatchField[" + t.goType(prop.Type) + "]",
			Tag:  fmt.Sprintf(`json:"%s"`, prop.WireName),
		})
	}
	return t.render(structTemplate, s)
}

func (t *GoTarget) iface(def *domain.TypeDef) error {
	name := typeIdent(def.Name)
	if err := t.current.declare(name, def.Location); err != nil {
		return err
	}
	i := goInterface{Doc: doc(def), Name: name}
	if super, ok := t.graph.Definition(def.Super); ok && super.Kind == domain.DefInterface {
		i.Embeds = append(i.Embeds, t.qualify(super.Name, true))
	}
	for _, prop := range def.Properties {
		i.Getters = append(i.Getters, goField{Name: exported(prop.Name), Type: t.goType(prop.Type)})
	}
	if err := t.render(interfaceTemplate, i); err != nil {
		return err
	}
	return t.class(def, name+"Model", true)
}

// class renders a struct with every inherited and own property flattened in.
func (t *GoTarget) class(def *domain.TypeDef, name string, getters bool) error {
	s := goStruct{Name: name}
	if !getters {
		s.Doc = doc(def)
	} else {
		s.Doc = "implements " + typeIdent(def.Name) + "."
	}
	if err := t.current.declare(name, def.Location); err != nil {
		return err
	}
	fields := newFieldSet(name, def.Location)

	if d := def.Discriminator; d != nil {
		s.Property = d.Property
		if t.discriminatorField(def) {
			field := goField{
				Name: exported(d.Identifier),
				Type: t.goType(d.Type),
				Tag:  fmt.Sprintf(`json:"%s"`, d.Property),
			}
			if err := fields.add(field.Name, d.Property); err != nil {
				return err
			}
			s.Fields = append(s.Fields, field)
		}
		if d.Role == domain.RoleLeaf {
			s.Value = d.Value
		}
		for _, st := range d.Subtypes {
			s.Subtypes = append(s.Subtypes, goSubtype{Value: st.Value, Type: t.types.String(st.Type)})
		}
		if len(s.Subtypes) > 0 {
			if err := t.current.declare(name+"Subtypes", def.Location); err != nil {
				return err
			}
		}
	}

	for _, prop := range append(append([]domain.PropertyDef(nil), def.Inherited...), def.Properties...) {
		field := t.field(prop)
		if err := fields.add(field.Name, prop.WireName); err != nil {
			return err
		}
		s.Fields = append(s.Fields, field)
		if getters {
			s.Getters = append(s.Getters, field)
		}
	}
	return t.render(structTemplate, s)
}

// discriminatorField reports whether def carries its discriminator as a field.
// Only the root of a hierarchy says whether the property is external.
func (t *GoTarget) discriminatorField(def *domain.TypeDef) bool {
	seen := make(map[domain.TypeRef]bool)
	for current := def; current != nil && current.Discriminator != nil && !seen[current.Ref]; {
		seen[current.Ref] = true
		if current.Discriminator.Role == domain.RoleRoot {
			return !current.Discriminator.External
		}
		super, ok := t.graph.Definition(current.Super)
		if !ok {
			break
		}
		current = super
	}
	return !def.Discriminator.External
}

func (t *GoTarget) field(prop domain.PropertyDef) goField {
	tag := prop.WireName
	if prop.Optional {
		tag += ",omitempty"
	}
	field := goField{
		Name: exported(prop.Name),
		Type: t.goType(prop.Type),
		Tag:  fmt.Sprintf(`json:"%s"`, tag),
	}
	if rules := validateRules(prop.Constraints); rules != "" {
		field.Tag += fmt.Sprintf(` validate:"%s"`, rules)
	}
	if prop.ExternalDiscriminator != "" {
		field.Comment = fmt.Sprintf("%s is selected by %s.", field.Name, prop.ExternalDiscriminator)
	}
	return field
}

func (t *GoTarget) ServiceBegin(svc *orchestrator.ServiceDef) error {
	if t.current == nil {
		return fmt.Errorf("service %s emitted outside a package", svc.Name)
	}
	name := exported(svc.Name) + "Service"
	description := "is the client of the " + svc.Name + " operations."
	if t.mode == domain.ModeServer {
		name = exported(svc.Name) + "Handler"
		description = "serves the " + svc.Name + " operations."
	}
	var loc domain.Location
	if len(svc.Methods) > 0 {
		loc = svc.Methods[0].Location
	}
	if err := t.current.declare(name, loc); err != nil {
		return err
	}
	t.service = &goService{Name: name, Doc: description, methods: make(map[string]domain.Location)}
	t.current.use("context")
	return nil
}

func (t *GoTarget) MethodBegin(method *orchestrator.MethodDef) error {
	if t.service == nil {
		return fmt.Errorf("method %s emitted outside a service", method.Name)
	}
	t.method = &goMethod{
		Name:       exported(method.Name),
		HTTPMethod: method.HTTPMethod,
		Path:       method.Path,
		Params:     []string{"ctx context.Context"},
	}
	return nil
}

func (t *GoTarget) Parameter(kind domain.ParamKind, param orchestrator.ParamDef) error {
	if t.method == nil {
		return fmt.Errorf("parameter %s emitted outside a method", param.Name)
	}
	typ := t.goType(param.Type)
	if param.Optional && kind != domain.ParamBody {
		typ = optional(typ)
	}
	t.method.Params = append(t.method.Params, paramIdent(param.Name)+" "+typ)
	return nil
}

func (t *GoTarget) ReturnType(ref domain.TypeRef) error {
	if t.method == nil {
		return fmt.Errorf("return type emitted outside a method")
	}
	if t.types.Info(ref).Kind == domain.RefUnit || ref == domain.NoType {
		t.method.Returns = "error"
		return nil
	}
	t.method.Returns = "(" + t.goType(ref) + ", error)"
	return nil
}

func (t *GoTarget) MethodEnd(method *orchestrator.MethodDef) error {
	if first, ok := t.service.methods[t.method.Name]; ok {
		return &domain.CollisionError{
			Name:   t.current.pkg + "." + t.service.Name + "." + t.method.Name,
			First:  first,
			Second: method.Location,
			Hint:   "give the operations distinct operationIds",
		}
	}
	t.service.methods[t.method.Name] = method.Location
	t.service.Methods = append(t.service.Methods, t.method)
	t.method = nil
	return nil
}

func (t *GoTarget) ServiceEnd(*orchestrator.ServiceDef) error {
	err := t.render(serviceTemplate, t.service)
	t.service = nil
	return err
}

func (t *GoTarget) Finish() (map[string][]byte, error) {
	out := make(map[string][]byte, len(t.files))
	for _, f := range t.files {
		importPaths := make([]string, 0, len(f.imports))
		for p := range f.imports {
			importPaths = append(importPaths, p)
		}
		sort.Strings(importPaths)

		var buf bytes.Buffer
		err := fileTemplate.Execute(&buf, struct {
			Name    string
			Imports []string
			Blocks  []string
		}{f.name, importPaths, f.blocks})
		if err != nil {
			return nil, err
		}

		filename := path.Join(f.pkg, f.name+".go")
		src, err := imports.Process(filename, buf.Bytes(), &imports.Options{
			Comments:   true,
			TabIndent:  true,
			TabWidth:   8,
			FormatOnly: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to format %s: %w", filename, err)
		}
		out[filename] = src
	}
	return out, nil
}

func (t *GoTarget) render(tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	t.current.blocks = append(t.current.blocks, buf.String())
	return nil
}

// goType spells ref in the current file, recording the imports it needs.
func (t *GoTarget) goType(ref domain.TypeRef) string {
	info := t.types.Info(ref)
	switch info.Kind {
	case domain.RefPrimitive:
		name, importPath := primitive(info.Primitive)
		t.current.use(importPath)
		return name
	case domain.RefList, domain.RefSet:
		return "[]" + t.goType(info.Elem)
	case domain.RefMap:
		return "map[" + t.goType(info.Key) + "]" + t.goType(info.Elem)
	case domain.RefOptional:
		if def, ok := t.graph.Definition(info.Elem); ok && def.Kind == domain.DefInterface {
			return t.goType(info.Elem)
		}
		return optional(t.goType(info.Elem))
	case domain.RefNamed:
		return t.qualify(info.Name, true)
	case domain.RefExternal:
		return t.qualify(info.Name, false)
	case domain.RefUnit:
		return "struct{}"
	}
	return "any"
}

func (t *GoTarget) qualify(name domain.QualifiedName, generated bool) string {
	ident := typeIdent(name)
	if name.Package == "" {
		return ident
	}
	if generated {
		if name.Package == t.current.pkg {
			return ident
		}
		importPath := name.Package
		if t.Module != "" {
			importPath = path.Join(t.Module, name.Package)
		}
		t.current.use(importPath)
		return packageName(name.Package) + "." + ident
	}
	t.current.use(name.Package)
	return packageName(name.Package) + "." + ident
}

func optional(typ string) string {
	if typ == "any" || strings.HasPrefix(typ, "[]") || strings.HasPrefix(typ, "map[") || strings.HasPrefix(typ, "*") {
		return typ
	}
	return "*" + typ
}

func primitive(p domain.Primitive) (string, string) {
	switch p {
	case domain.PrimBool:
		return "bool", ""
	case domain.PrimInt8:
		return "int8", ""
	case domain.PrimInt16:
		return "int16", ""
	case domain.PrimInt32:
		return "int32", ""
	case domain.PrimInt64:
		return "int64", ""
	case domain.PrimInt:
		return "int", ""
	case domain.PrimFloat32:
		return "float32", ""
	case domain.PrimFloat64, domain.PrimDecimal:
		return "float64", ""
	case domain.PrimDate, domain.PrimTime, domain.PrimDateTimeLocal, domain.PrimDateTime:
		return "time.Time", "time"
	case domain.PrimDuration:
		return "time.Duration", "time"
	case domain.PrimBytes:
		return "[]byte", ""
	}
	return "string", ""
}

func validateRules(c *domain.Constraints) string {
	if c == nil {
		return ""
	}
	var rules []string
	if c.MinLength != nil {
		rules = append(rules, fmt.Sprintf("min=%d", *c.MinLength))
	}
	if c.MaxLength != nil {
		rules = append(rules, fmt.Sprintf("max=%d", *c.MaxLength))
	}
	if c.MinItems != nil {
		rules = append(rules, fmt.Sprintf("min=%d", *c.MinItems))
	}
	if c.MaxItems != nil {
		rules = append(rules, fmt.Sprintf("max=%d", *c.MaxItems))
	}
	if c.Minimum != nil {
		rules = append(rules, fmt.Sprintf("gte=%v", *c.Minimum))
	}
	if c.Maximum != nil {
		rules = append(rules, fmt.Sprintf("lte=%v", *c.Maximum))
	}
	return strings.Join(rules, ",")
}

func doc(def *domain.TypeDef) string {
	if def.Location.File == "" {
		return ""
	}
	return "is generated from " + def.Location.String() + "."
}

// typeIdent flattens a nested name: Order.Address becomes OrderAddress.
func typeIdent(name domain.QualifiedName) string {
	return exported(strings.Join(name.Names, ""))
}

// exported turns name into an exported Go identifier.
func exported(name string) string {
	ident := identifier(name)
	if ident == "" {
		return "Value"
	}
	runes := []rune(ident)
	runes[0] = unicode.ToUpper(runes[0])
	if !unicode.IsLetter(runes[0]) {
		return "X" + string(runes)
	}
	return string(runes)
}

func paramIdent(name string) string {
	ident := identifier(name)
	switch {
	case ident == "":
		return "value"
	case ident == "ctx" || token.IsKeyword(ident):
		return ident + "Param"
	case !unicode.IsLetter([]rune(ident)[0]):
		return "p" + ident
	}
	return ident
}

func identifier(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, name)
}

// packageName derives the package clause from a package path.
func packageName(pkg string) string {
	name := strings.ToLower(identifier(path.Base(pkg)))
	name = strings.ReplaceAll(name, "_", "")
	if name == "" {
		return "model"
	}
	if !unicode.IsLetter([]rune(name)[0]) {
		return "p" + name
	}
	return name
}
