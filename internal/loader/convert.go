package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-openapi/spec"
	"github.com/hashicorp/go-multierror"
	slogctx "github.com/veqryn/slog-context"

	"github.com/griffnb/core-typegen/internal/domain"
)

const (
	extUses                 = "x-uses"
	extNullable             = "x-nullable"
	extDiscriminatorValue   = "x-discriminator-value"
	extDiscriminatorMapping = "x-discriminator-mapping"

	definitionsPrefix = "/definitions/"
	parametersPrefix  = "/parameters/"
	responsesPrefix   = "/responses/"
)

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch"}

// contextDebugger is implemented by debuggers that read attributes from a context.
type contextDebugger interface {
	DebugContext(ctx context.Context, format string, args ...interface{})
}

// converter turns parsed files into documents. It is single threaded and
// allocates every shape of one Load in one arena.
type converter struct {
	ctx   context.Context
	svc   *Service
	arena *domain.Arena
	units map[string]*unit
	links []*domain.Shape
	errs  *multierror.Error
}

// unit is the conversion state of one file.
type unit struct {
	file     *parsedFile
	doc      *domain.Document
	defs     map[string]*domain.Shape
	importer *unit
	ctx      context.Context
}

func newConverter(ctx context.Context, svc *Service) *converter {
	return &converter{
		ctx:   ctx,
		svc:   svc,
		arena: domain.NewArena(),
		units: make(map[string]*unit),
	}
}

func (c *converter) fail(err error) {
	c.errs = multierror.Append(c.errs, err)
}

func (c *converter) debugf(u *unit, format string, args ...interface{}) {
	if d, ok := c.svc.debug.(contextDebugger); ok {
		d.DebugContext(u.ctx, format, args...)
		return
	}
	c.svc.debug.Printf(format, args...)
}

// unit converts f once. Declarations are allocated in source order before any
// of them is filled, so references between them (and cycles) resolve to stable shapes.
func (c *converter) unit(f *parsedFile, importer *unit) *unit {
	if u, ok := c.units[f.Abs]; ok {
		return u
	}

	u := &unit{
		file:     f,
		doc:      &domain.Document{Location: f.Path},
		defs:     make(map[string]*domain.Shape),
		importer: importer,
		ctx:      slogctx.Append(c.ctx, "document", f.Path),
	}
	c.units[f.Abs] = u

	sw := f.Swagger
	pos := f.Positions
	u.doc.Annotations = c.annotations(pos, "", sw.Extensions, extUses)
	c.uses(u)

	names := ordered(pos, "/definitions", sw.Definitions)
	for _, name := range names {
		pointer := join("/definitions", name)
		shape := c.arena.Add(&domain.Shape{
			Name:     name,
			Declared: true,
			Document: u.doc,
			Location: pos.Location(pointer),
		})
		u.defs[name] = shape
		u.doc.Declarations = append(u.doc.Declarations, shape)
	}
	for _, name := range names {
		schema := sw.Definitions[name]
		c.fill(u, u.defs[name], &schema, join("/definitions", name))
	}

	c.paths(u)

	c.debugf(u, "converted %d declarations, %d endpoints", len(u.doc.Declarations), len(u.doc.Endpoints))
	return u
}

// uses binds the x-uses aliases of the document root.
func (c *converter) uses(u *unit) {
	key, value, ok := extension(u.file.Swagger.Extensions, extUses)
	if !ok {
		return
	}
	pos := u.file.Positions
	aliases, ok := value.(map[string]interface{})
	if !ok {
		c.fail(&domain.AnnotationError{
			Annotation: key,
			Value:      value,
			Location:   pos.Location("/" + key),
			Reason:     "library uses must map aliases to files",
		})
		return
	}

	for _, alias := range ordered(pos, join("", key), aliases) {
		file, ok := aliases[alias].(string)
		if !ok || file == "" {
			c.fail(&domain.AnnotationError{
				Annotation: key,
				Value:      aliases[alias],
				Location:   pos.Location(join("", key, alias)),
				Reason:     fmt.Sprintf("library '%s' must name a file", alias),
			})
			continue
		}
		lib, err := c.load(u, file, nil)
		if err != nil {
			c.fail(err)
			continue
		}
		u.doc.Uses = append(u.doc.Uses, domain.LibraryUse{Alias: alias, Document: lib.doc})
	}
}

// load converts the file named relative to u.
func (c *converter) load(u *unit, file string, importer *unit) (*unit, error) {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(u.file.Path), file)
	}
	f, err := c.svc.readFile(c.ctx, path)
	if err != nil {
		return nil, err
	}
	return c.unit(f, importer), nil
}

// resolve finds the declaration named by ref as seen from u.
func (c *converter) resolve(u *unit, ref string, loc domain.Location) *domain.Shape {
	file, fragment, _ := strings.Cut(ref, "#")

	target := u
	if file != "" {
		loaded, err := c.load(u, file, u)
		if err != nil {
			c.fail(err)
			return nil
		}
		if loaded != u {
			c.reference(u, loaded)
		}
		target = loaded
	}

	name, ok := strings.CutPrefix(fragment, definitionsPrefix)
	if !ok || name == "" {
		c.fail(&domain.ReferenceError{Ref: ref, Location: loc})
		return nil
	}
	name = unescapePointer(name)

	if shape := target.defs[name]; shape != nil {
		return shape
	}
	if file == "" {
		for imp := u.importer; imp != nil && imp != u; imp = imp.importer {
			if shape := imp.defs[name]; shape != nil {
				return shape
			}
		}
	}

	c.fail(&domain.ReferenceError{Ref: ref, Location: loc})
	return nil
}

func (c *converter) reference(u, fragment *unit) {
	for _, known := range u.doc.References {
		if known == fragment.doc {
			return
		}
	}
	u.doc.References = append(u.doc.References, fragment.doc)
}

// settleLinks copies the final kind of every link target onto the link.
func (c *converter) settleLinks() {
	for _, link := range c.links {
		target := link
		for i := 0; target.Link != nil && i <= c.arena.Len(); i++ {
			target = target.Link
		}
		link.Kind = target.Kind
	}
}

// schema converts an inline schema into a new shape.
func (c *converter) schema(u *unit, schema *spec.Schema, pointer string) *domain.Shape {
	if schema == nil {
		return nil
	}

	loc := u.file.Positions.Location(pointer)
	shape := c.arena.Add(&domain.Shape{Document: u.doc, Location: loc})
	c.fill(u, shape, schema, pointer)

	if nullable(schema) && shape.Kind != domain.KindNil {
		return c.arena.Add(&domain.Shape{
			Kind:     domain.KindUnion,
			Document: u.doc,
			Location: loc,
			AnyOf: []*domain.Shape{
				shape,
				c.arena.Add(&domain.Shape{Kind: domain.KindNil, DataType: domain.NULL, Document: u.doc, Location: loc}),
			},
		})
	}
	return shape
}

// fill converts schema into shape in place.
func (c *converter) fill(u *unit, shape *domain.Shape, schema *spec.Schema, pointer string) {
	pos := u.file.Positions
	shape.Annotations = c.annotations(pos, pointer, schema.Extensions,
		extNullable, extDiscriminatorValue, extDiscriminatorMapping)
	c.discriminator(u, shape, schema, pointer)

	if ref := schema.Ref.String(); ref != "" {
		target := c.resolve(u, ref, shape.Location)
		if target == nil {
			shape.Kind = domain.KindAny
			return
		}
		shape.Link = target
		c.links = append(c.links, shape)
		return
	}

	switch {
	case len(schema.AllOf) > 0:
		c.allOf(u, shape, schema, pointer)
		return
	case len(schema.AnyOf) > 0 || len(schema.OneOf) > 0:
		shape.Kind = domain.KindUnion
		for i := range schema.AnyOf {
			shape.AnyOf = append(shape.AnyOf, c.schema(u, &schema.AnyOf[i], join(pointer, "anyOf", strconv.Itoa(i))))
		}
		for i := range schema.OneOf {
			shape.AnyOf = append(shape.AnyOf, c.schema(u, &schema.OneOf[i], join(pointer, "oneOf", strconv.Itoa(i))))
		}
		return
	}

	switch dataType := schemaType(schema); dataType {
	case domain.NULL:
		shape.Kind = domain.KindNil
		shape.DataType = domain.NULL
	case domain.OBJECT:
		shape.Kind = domain.KindNode
		shape.DataType = domain.OBJECT
		c.properties(u, shape, schema, pointer)
	case domain.ARRAY:
		shape.Kind = domain.KindArray
		shape.DataType = domain.ARRAY
		shape.UniqueItems = schema.UniqueItems
		shape.Constraints = constraints(nil, nil, "", nil, nil, schema.MinItems, schema.MaxItems)
		if items := schema.Items; items != nil {
			switch {
			case items.Schema != nil:
				shape.Items = c.schema(u, items.Schema, join(pointer, "items"))
			case len(items.Schemas) > 0:
				shape.Items = c.schema(u, &items.Schemas[0], join(pointer, "items", "0"))
			}
		}
	case domain.FILE:
		shape.Kind = domain.KindFile
		shape.DataType = domain.FILE
	case "":
		shape.Kind = domain.KindAny
	default:
		shape.Kind = domain.KindScalar
		shape.DataType = dataType
		shape.Format = schema.Format
		shape.Values = enumValues(schema.Enum)
		shape.Constraints = constraints(schema.MinLength, schema.MaxLength, schema.Pattern,
			schema.Minimum, schema.Maximum, nil, nil)
	}
}

// allOf handles inheritance (one reference) and aggregation (a reference and an
// inline object). Any other combination is kept as is for the index to reject.
func (c *converter) allOf(u *unit, shape *domain.Shape, schema *spec.Schema, pointer string) {
	parts := schema.AllOf
	refAt := -1
	refs := 0
	for i := range parts {
		if parts[i].Ref.String() != "" {
			refAt = i
			refs++
		}
	}

	switch {
	case len(parts) == 1 && refs == 1:
		shape.Kind = domain.KindNode
		shape.DataType = domain.OBJECT
		shape.Inherits = []*domain.Shape{c.schema(u, &parts[0], join(pointer, "allOf", "0"))}
		c.properties(u, shape, schema, pointer)
	case len(parts) == 2 && refs == 1:
		other := 1 - refAt
		node := c.schema(u, &parts[other], join(pointer, "allOf", strconv.Itoa(other)))
		if node.Kind == domain.KindAny && node.Link == nil && len(node.AllOf) == 0 {
			node.Kind = domain.KindNode
			node.DataType = domain.OBJECT
		}
		shape.Kind = domain.KindAny
		shape.AllOf = []*domain.Shape{c.schema(u, &parts[refAt], join(pointer, "allOf", strconv.Itoa(refAt))), node}
	default:
		shape.Kind = domain.KindAny
		for i := range parts {
			shape.AllOf = append(shape.AllOf, c.schema(u, &parts[i], join(pointer, "allOf", strconv.Itoa(i))))
		}
	}
}

func (c *converter) properties(u *unit, shape *domain.Shape, schema *spec.Schema, pointer string) {
	pos := u.file.Positions
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for _, name := range ordered(pos, join(pointer, "properties"), schema.Properties) {
		prop := schema.Properties[name]
		propPointer := join(pointer, "properties", name)
		shape.Properties = append(shape.Properties, &domain.Property{
			Name:     name,
			Range:    c.schema(u, &prop, propPointer),
			Required: required[name],
			Default:  prop.Default,
			Location: pos.Location(propPointer),
		})
	}

	if ap := schema.AdditionalProperties; ap != nil {
		switch {
		case ap.Schema != nil:
			shape.AdditionalProperties = c.schema(u, ap.Schema, join(pointer, "additionalProperties"))
		case !ap.Allows:
			shape.Closed = true
		}
	}
}

func (c *converter) discriminator(u *unit, shape *domain.Shape, schema *spec.Schema, pointer string) {
	shape.Discriminator = schema.Discriminator

	if key, value, ok := extension(schema.Extensions, extDiscriminatorValue); ok {
		s, isString := value.(string)
		if !isString {
			c.fail(&domain.AnnotationError{
				Annotation: key,
				Value:      value,
				Location:   u.file.Positions.Location(join(pointer, key)),
				Reason:     "discriminator value must be a string",
			})
		}
		shape.DiscriminatorValue = s
	}

	key, value, ok := extension(schema.Extensions, extDiscriminatorMapping)
	if !ok {
		return
	}
	mapping, isMap := value.(map[string]interface{})
	if !isMap {
		c.fail(&domain.AnnotationError{
			Annotation: key,
			Value:      value,
			Location:   u.file.Positions.Location(join(pointer, key)),
			Reason:     "discriminator mapping must map values to references",
		})
		return
	}
	for _, v := range ordered(u.file.Positions, join(pointer, key), mapping) {
		ref, _ := mapping[v].(string)
		shape.DiscriminatorMapping = append(shape.DiscriminatorMapping, domain.MappingEntry{Value: v, Ref: ref})
	}
}

// paths converts the endpoints of the document.
func (c *converter) paths(u *unit) {
	sw := u.file.Swagger
	if sw.Paths == nil {
		return
	}
	pos := u.file.Positions

	for _, path := range ordered(pos, "/paths", sw.Paths.Paths) {
		item := sw.Paths.Paths[path]
		pointer := join("/paths", path)

		ops := make(map[string]*spec.Operation, len(methods))
		for _, method := range methods {
			if op := operationFor(&item, method); op != nil {
				ops[method] = op
			}
		}

		endpoint := &domain.Endpoint{Path: path}
		for _, method := range ordered(pos, pointer, ops) {
			endpoint.Operations = append(endpoint.Operations,
				c.operation(u, path, method, ops[method], item.Parameters, join(pointer, method)))
		}
		if len(endpoint.Operations) > 0 {
			u.doc.Endpoints = append(u.doc.Endpoints, endpoint)
		}
	}
}

func operationFor(item *spec.PathItem, method string) *spec.Operation {
	switch method {
	case "get":
		return item.Get
	case "put":
		return item.Put
	case "post":
		return item.Post
	case "delete":
		return item.Delete
	case "options":
		return item.Options
	case "head":
		return item.Head
	case "patch":
		return item.Patch
	}
	return nil
}

func (c *converter) operation(u *unit, path, method string, op *spec.Operation, shared []spec.Parameter, pointer string) *domain.Operation {
	pos := u.file.Positions
	out := &domain.Operation{
		Name:        op.ID,
		Method:      strings.ToUpper(method),
		Path:        path,
		Annotations: c.annotations(pos, pointer, op.Extensions),
		Location:    pos.Location(pointer),
	}

	// operation level parameters replace path level ones with the same name and location
	own := make([]*spec.Parameter, len(op.Parameters))
	overridden := make(map[string]bool, len(op.Parameters))
	for i := range op.Parameters {
		own[i] = c.parameterRef(u, &op.Parameters[i], join(pointer, "parameters", strconv.Itoa(i)))
		if own[i] != nil {
			overridden[own[i].In+":"+own[i].Name] = true
		}
	}
	for i := range shared {
		ptr := join("/paths", path, "parameters", strconv.Itoa(i))
		p := c.parameterRef(u, &shared[i], ptr)
		if p == nil || overridden[p.In+":"+p.Name] {
			continue
		}
		out.Parameters = append(out.Parameters, c.parameter(u, p, ptr))
	}
	for i, p := range own {
		if p != nil {
			out.Parameters = append(out.Parameters, c.parameter(u, p, join(pointer, "parameters", strconv.Itoa(i))))
		}
	}

	if op.Responses != nil {
		codes := make([]int, 0, len(op.Responses.StatusCodeResponses))
		for code := range op.Responses.StatusCodeResponses {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			resp := op.Responses.StatusCodeResponses[code]
			ptr := join(pointer, "responses", strconv.Itoa(code))
			schema := c.responseSchema(u, &resp, ptr)
			out.Responses = append(out.Responses, &domain.Response{
				Status: code,
				Schema: c.schema(u, schema, join(ptr, "schema")),
			})
		}
	}

	return out
}

// parameterRef follows a reference into the document's shared parameters.
func (c *converter) parameterRef(u *unit, p *spec.Parameter, pointer string) *spec.Parameter {
	ref := p.Ref.String()
	if ref == "" {
		return p
	}
	name, ok := strings.CutPrefix(ref, "#"+parametersPrefix)
	if ok {
		if shared, found := u.file.Swagger.Parameters[unescapePointer(name)]; found {
			return &shared
		}
	}
	c.fail(&domain.ReferenceError{Ref: ref, Location: u.file.Positions.Location(pointer)})
	return nil
}

func (c *converter) responseSchema(u *unit, resp *spec.Response, pointer string) *spec.Schema {
	ref := resp.Ref.String()
	if ref == "" {
		return resp.Schema
	}
	name, ok := strings.CutPrefix(ref, "#"+responsesPrefix)
	if ok {
		if shared, found := u.file.Swagger.Responses[unescapePointer(name)]; found {
			return shared.Schema
		}
	}
	c.fail(&domain.ReferenceError{Ref: ref, Location: u.file.Positions.Location(pointer)})
	return nil
}

func (c *converter) parameter(u *unit, p *spec.Parameter, pointer string) *domain.Parameter {
	out := &domain.Parameter{
		Name:     p.Name,
		Kind:     domain.ParamKind(p.In),
		Required: p.Required,
	}
	if out.Kind == domain.ParamBody {
		out.Schema = c.schema(u, p.Schema, join(pointer, "schema"))
		return out
	}

	out.Schema = c.simple(u, p.Type, p.Format, p.Items, &p.CommonValidations, pointer)
	if p.Default != nil {
		out.Schema.Annotations = append(out.Schema.Annotations, domain.Annotation{Name: "default", Value: p.Default})
	}
	return out
}

// simple converts the non-body parameter type model.
func (c *converter) simple(u *unit, dataType, format string, items *spec.Items, v *spec.CommonValidations, pointer string) *domain.Shape {
	shape := c.arena.Add(&domain.Shape{Document: u.doc, Location: u.file.Positions.Location(pointer)})

	switch dataType {
	case domain.ARRAY:
		shape.Kind = domain.KindArray
		shape.DataType = domain.ARRAY
		shape.UniqueItems = v.UniqueItems
		shape.Constraints = constraints(nil, nil, "", nil, nil, v.MinItems, v.MaxItems)
		if items != nil {
			shape.Items = c.simple(u, items.Type, items.Format, items.Items, &items.CommonValidations, join(pointer, "items"))
		} else {
			shape.Items = c.arena.Add(&domain.Shape{Kind: domain.KindAny, Document: u.doc, Location: shape.Location})
		}
	case domain.FILE:
		shape.Kind = domain.KindFile
		shape.DataType = domain.FILE
	case "":
		shape.Kind = domain.KindAny
	default:
		shape.Kind = domain.KindScalar
		shape.DataType = dataType
		shape.Format = format
		shape.Values = enumValues(v.Enum)
		shape.Constraints = constraints(v.MinLength, v.MaxLength, v.Pattern, v.Minimum, v.Maximum, nil, nil)
	}
	return shape
}

// annotations converts the x-* extensions found at pointer, in source order.
func (c *converter) annotations(pos *positions, pointer string, ext spec.Extensions, skip ...string) domain.Annotations {
	if len(ext) == 0 {
		return nil
	}

	byLower := make(map[string]string, len(ext))
	for key := range ext {
		byLower[strings.ToLower(key)] = key
	}

	var out domain.Annotations
	emitted := make(map[string]bool, len(ext))
	add := func(lower string) {
		key, ok := byLower[lower]
		if !ok || emitted[lower] {
			return
		}
		for _, s := range skip {
			if strings.EqualFold(s, key) {
				return
			}
		}
		emitted[lower] = true
		out = append(out, domain.Annotation{Name: key, Value: ext[key]})
	}

	for _, key := range pos.Keys(pointer) {
		add(strings.ToLower(key))
	}
	rest := make([]string, 0, len(byLower))
	for lower := range byLower {
		if !emitted[lower] {
			rest = append(rest, lower)
		}
	}
	sort.Strings(rest)
	for _, lower := range rest {
		add(lower)
	}
	return out
}

// extension finds an extension by name regardless of key casing.
func extension(ext spec.Extensions, name string) (string, interface{}, bool) {
	for key, value := range ext {
		if strings.EqualFold(key, name) {
			return key, value, true
		}
	}
	return "", nil, false
}

func nullable(schema *spec.Schema) bool {
	if _, value, ok := extension(schema.Extensions, extNullable); ok {
		if b, isBool := value.(bool); isBool && b {
			return true
		}
	}
	return len(schema.Type) > 1 && schema.Type.Contains(domain.NULL)
}

// schemaType returns the single non-null type of schema, inferring object and
// array from the keywords present.
func schemaType(schema *spec.Schema) string {
	for _, t := range schema.Type {
		if t != domain.NULL {
			return t
		}
	}
	if len(schema.Type) > 0 {
		return domain.NULL
	}

	switch {
	case len(schema.Properties) > 0 || schema.AdditionalProperties != nil || schema.Discriminator != "":
		return domain.OBJECT
	case schema.Items != nil:
		return domain.ARRAY
	case len(schema.Enum) > 0:
		return domain.STRING
	}
	return ""
}

func enumValues(values []interface{}) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func constraints(minLength, maxLength *int64, pattern string, minimum, maximum *float64, minItems, maxItems *int64) domain.Constraints {
	return domain.Constraints{
		MinLength: toInt(minLength),
		MaxLength: toInt(maxLength),
		Pattern:   pattern,
		Minimum:   minimum,
		Maximum:   maximum,
		MinItems:  toInt(minItems),
		MaxItems:  toInt(maxItems),
	}
}

func toInt(v *int64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func unescapePointer(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}
