package domain

import (
	"fmt"
	"strings"
)

// Primitive is a target primitive type.
type Primitive int

const (
	PrimBool Primitive = iota + 1
	PrimString
	PrimInt8
	PrimInt16
	PrimInt32
	PrimInt64
	PrimInt
	PrimFloat32
	PrimFloat64
	PrimDecimal
	PrimDate
	PrimTime
	PrimDateTimeLocal
	PrimDateTime
	PrimDuration
	PrimBytes
)

var primitiveNames = map[Primitive]string{
	PrimBool:          "Bool",
	PrimString:        "String",
	PrimInt8:          "Int8",
	PrimInt16:         "Int16",
	PrimInt32:         "Int32",
	PrimInt64:         "Int64",
	PrimInt:           "Int",
	PrimFloat32:       "Float32",
	PrimFloat64:       "Float64",
	PrimDecimal:       "Decimal",
	PrimDate:          "Date",
	PrimTime:          "Time",
	PrimDateTimeLocal: "DateTimeLocal",
	PrimDateTime:      "DateTime",
	PrimDuration:      "Duration",
	PrimBytes:         "Bytes",
}

func (p Primitive) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Primitive(%d)", int(p))
}

// RefKind is the shape of a type reference.
type RefKind int

const (
	RefPrimitive RefKind = iota + 1
	RefList
	RefSet
	RefMap
	RefOptional
	RefNamed
	RefExternal
	RefAny
	RefUnit
)

// TypeRef is an interned handle into a TypeTable. Equal handles denote the same generated type.
type TypeRef uint32

// NoType is the zero TypeRef.
const NoType TypeRef = 0

// TypeInfo describes what a TypeRef stands for.
type TypeInfo struct {
	Kind      RefKind
	Primitive Primitive
	// Elem is the element of a list, set or optional, and the value of a map.
	Elem TypeRef
	Key  TypeRef
	Name QualifiedName
}

// TypeTable interns type references. Structural references are interned by
// their structure, named references by qualified name.
type TypeTable struct {
	infos []TypeInfo
	index map[string]TypeRef
}

// NewTypeTable creates an empty table.
func NewTypeTable() *TypeTable {
	return &TypeTable{
		infos: []TypeInfo{{}},
		index: make(map[string]TypeRef),
	}
}

func (t *TypeTable) intern(key string, info TypeInfo) TypeRef {
	if ref, ok := t.index[key]; ok {
		return ref
	}
	ref := TypeRef(len(t.infos))
	t.infos = append(t.infos, info)
	t.index[key] = ref
	return ref
}

// Primitive returns the reference for p.
func (t *TypeTable) Primitive(p Primitive) TypeRef {
	return t.intern(fmt.Sprintf("prim:%d", p), TypeInfo{Kind: RefPrimitive, Primitive: p})
}

// List returns List<elem>.
func (t *TypeTable) List(elem TypeRef) TypeRef {
	return t.intern(fmt.Sprintf("list:%d", elem), TypeInfo{Kind: RefList, Elem: elem})
}

// Set returns Set<elem>.
func (t *TypeTable) Set(elem TypeRef) TypeRef {
	return t.intern(fmt.Sprintf("set:%d", elem), TypeInfo{Kind: RefSet, Elem: elem})
}

// Map returns Map<key, value>.
func (t *TypeTable) Map(key, value TypeRef) TypeRef {
	return t.intern(fmt.Sprintf("map:%d:%d", key, value), TypeInfo{Kind: RefMap, Key: key, Elem: value})
}

// Optional returns Optional<elem>. Optional is idempotent.
func (t *TypeTable) Optional(elem TypeRef) TypeRef {
	if t.Info(elem).Kind == RefOptional {
		return elem
	}
	return t.intern(fmt.Sprintf("opt:%d", elem), TypeInfo{Kind: RefOptional, Elem: elem})
}

// Named returns the reference of a generated definition.
func (t *TypeTable) Named(name QualifiedName) TypeRef {
	return t.intern("named:"+name.String(), TypeInfo{Kind: RefNamed, Name: name})
}

// External returns the reference of a type that is not generated.
func (t *TypeTable) External(name QualifiedName) TypeRef {
	return t.intern("ext:"+name.String(), TypeInfo{Kind: RefExternal, Name: name})
}

// Any returns the universal top type.
func (t *TypeTable) Any() TypeRef {
	return t.intern("any", TypeInfo{Kind: RefAny})
}

// Unit returns the unit type.
func (t *TypeTable) Unit() TypeRef {
	return t.intern("unit", TypeInfo{Kind: RefUnit})
}

// Info returns the description of ref. Unknown refs yield a zero TypeInfo.
func (t *TypeTable) Info(ref TypeRef) TypeInfo {
	if int(ref) >= len(t.infos) {
		return TypeInfo{}
	}
	return t.infos[ref]
}

// Len returns the number of interned references.
func (t *TypeTable) Len() int {
	return len(t.infos) - 1
}

// String renders ref, e.g. List<String> or Optional<pkg.User>.
func (t *TypeTable) String(ref TypeRef) string {
	if ref == NoType {
		return ""
	}
	info := t.Info(ref)
	switch info.Kind {
	case RefPrimitive:
		return info.Primitive.String()
	case RefList:
		return "List<" + t.String(info.Elem) + ">"
	case RefSet:
		return "Set<" + t.String(info.Elem) + ">"
	case RefMap:
		return "Map<" + t.String(info.Key) + ", " + t.String(info.Elem) + ">"
	case RefOptional:
		return "Optional<" + t.String(info.Elem) + ">"
	case RefNamed, RefExternal:
		return info.Name.String()
	case RefAny:
		return "Any"
	case RefUnit:
		return "Unit"
	}
	return fmt.Sprintf("TypeRef(%d)", ref)
}

// QualifiedName is a package plus an enclosing chain of simple names.
type QualifiedName struct {
	Package string
	Names   []string
}

// NewQualifiedName builds a qualified name.
func NewQualifiedName(pkg string, names ...string) QualifiedName {
	return QualifiedName{Package: pkg, Names: append([]string(nil), names...)}
}

// Simple returns the innermost name.
func (q QualifiedName) Simple() string {
	if len(q.Names) == 0 {
		return ""
	}
	return q.Names[len(q.Names)-1]
}

// Nested returns the name of a type nested in q.
func (q QualifiedName) Nested(name string) QualifiedName {
	names := make([]string, 0, len(q.Names)+1)
	names = append(names, q.Names...)
	return QualifiedName{Package: q.Package, Names: append(names, name)}
}

// Enclosing returns the enclosing type name, if q is nested.
func (q QualifiedName) Enclosing() (QualifiedName, bool) {
	if len(q.Names) < 2 {
		return QualifiedName{}, false
	}
	return NewQualifiedName(q.Package, q.Names[:len(q.Names)-1]...), true
}

// Depth is the length of the enclosing chain.
func (q QualifiedName) Depth() int {
	return len(q.Names)
}

// IsZero reports whether q is empty.
func (q QualifiedName) IsZero() bool {
	return q.Package == "" && len(q.Names) == 0
}

func (q QualifiedName) String() string {
	local := strings.Join(q.Names, ".")
	if q.Package == "" {
		return local
	}
	return q.Package + "." + local
}
