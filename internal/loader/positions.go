package loader

import (
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/griffnb/core-typegen/internal/domain"
)

// positions maps JSON pointers of a parsed file to source locations and to
// the key order of the mapping found there.
type positions struct {
	file      string
	locations map[string]domain.Location
	keys      map[string][]string
}

// walkPositions indexes the yaml (or json) source of file.
func walkPositions(file string, data []byte) (*positions, error) {
	p := &positions{
		file:      file,
		locations: make(map[string]domain.Location),
		keys:      make(map[string][]string),
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		p.walk("", root.Content[0])
	}
	return p, nil
}

func (p *positions) walk(pointer string, node *yaml.Node) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	p.locations[pointer] = domain.Location{File: p.file, Line: node.Line, Column: node.Column}

	switch node.Kind {
	case yaml.MappingNode:
		keys := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			keys = append(keys, key)
			p.walk(pointer+"/"+escapePointer(key), node.Content[i+1])
		}
		p.keys[pointer] = keys
	case yaml.SequenceNode:
		for i, item := range node.Content {
			p.walk(pointer+"/"+strconv.Itoa(i), item)
		}
	}
}

// Location returns the position of pointer, falling back to its closest known parent.
func (p *positions) Location(pointer string) domain.Location {
	for {
		if loc, ok := p.locations[pointer]; ok {
			return loc
		}
		slash := strings.LastIndex(pointer, "/")
		if slash < 0 {
			return domain.Location{File: p.file}
		}
		pointer = pointer[:slash]
	}
}

// Keys returns the mapping keys at pointer in source order.
func (p *positions) Keys(pointer string) []string {
	return p.keys[pointer]
}

// ordered returns the keys of m following the source order found at pointer.
// Keys missing from the source are appended sorted.
func ordered[V any](p *positions, pointer string, m map[string]V) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, key := range p.Keys(pointer) {
		if _, ok := m[key]; ok && !seen[key] {
			out = append(out, key)
			seen[key] = true
		}
	}
	var rest []string
	for key := range m {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func escapePointer(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	return strings.ReplaceAll(key, "/", "~1")
}

func join(pointer string, parts ...string) string {
	for _, part := range parts {
		pointer += "/" + escapePointer(part)
	}
	return pointer
}
