package gen

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/k0kubun/pp/v3"
	"gitlab.com/tozd/go/errors"
	"sigs.k8s.io/yaml"

	"github.com/griffnb/core-typegen/internal/console"
	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/emit"
	"github.com/griffnb/core-typegen/internal/loader"
	"github.com/griffnb/core-typegen/internal/orchestrator"
)

var open = os.Open

// DefaultOverridesFile is the location typegen will look for type overrides.
const DefaultOverridesFile = ".typegen"

// Version of core-typegen.
const Version = "v0.1.0"

type genTypeWriter func(*Config, *orchestrator.Result) error

// Gen presents a generate tool for typegen.
type Gen struct {
	json          func(data interface{}) ([]byte, error)
	jsonIndent    func(data interface{}) ([]byte, error)
	jsonToYAML    func(data []byte) ([]byte, error)
	outputTypeMap map[string]genTypeWriter
	debug         Debugger
}

// Debugger is the interface that wraps the basic Printf method.
type Debugger interface {
	Printf(format string, v ...interface{})
}

// New creates a new Gen.
func New() *Gen {
	gen := Gen{
		json: json.Marshal,
		jsonIndent: func(data interface{}) ([]byte, error) {
			return json.MarshalIndent(data, "", "    ")
		},
		jsonToYAML: yaml.JSONToYAML,
		debug:      console.Logger,
	}

	gen.outputTypeMap = map[string]genTypeWriter{
		"go":   gen.writeGo,
		"json": gen.writeJSONTypes,
		"yaml": gen.writeYAMLTypes,
		"yml":  gen.writeYAMLTypes,
	}

	return &gen
}

// Config presents Gen configurations.
type Config struct {
	Debugger Debugger

	// Inputs are the API documents to generate from, in order
	Inputs []string

	// OutputDir represents the output directory for all the generated files
	OutputDir string

	// OutputTypes define types of files which should be generated
	OutputTypes []string

	// Mode selects client or server generation
	Mode domain.GenerationMode

	// ImplementModel generates classes instead of interfaces for objects
	ImplementModel bool

	// ValidationConstraints carries validation metadata onto properties
	ValidationConstraints bool

	// ModelPackage overrides the default package of generated types
	ModelPackage string

	// ServicePackage overrides the default package of generated services
	ServicePackage string

	// IncludeDeclarations generates every declared type, not only those operations reach
	IncludeDeclarations bool

	// OverridesFile defines global type overrides.
	OverridesFile string

	// Module is the import path prefix of generated Go packages
	Module string

	// Concurrency bounds how many documents are read at once
	Concurrency int

	// DumpGraph logs the resolved definitions
	DumpGraph bool
}

// Build loads the inputs, resolves them and writes every requested output type.
func (g *Gen) Build(ctx context.Context, config *Config) error {
	if config.Debugger != nil {
		g.debug = config.Debugger
	}

	if len(config.Inputs) == 0 {
		return errors.New("no input documents")
	}
	for _, input := range config.Inputs {
		if _, err := os.Stat(input); os.IsNotExist(err) {
			return errors.Errorf("file: %s does not exist", input)
		}
	}

	var overrides map[string]string

	if config.OverridesFile != "" {
		overridesFile, err := open(config.OverridesFile)
		if err != nil {
			// Don't bother reporting if the default file is missing; assume there are no overrides
			if !(config.OverridesFile == DefaultOverridesFile && os.IsNotExist(err)) {
				return fmt.Errorf("could not open overrides file: %w", err)
			}
		} else {
			console.Logger.Debug("Using overrides from %s", config.OverridesFile)

			overrides, err = parseOverrides(overridesFile)
			_ = overridesFile.Close()
			if err != nil {
				return err
			}
		}
	}

	console.Logger.Debug("Generate types....")

	options := []loader.Option{loader.WithDebugger(g.debug)}
	if config.Concurrency > 0 {
		options = append(options, loader.WithConcurrency(config.Concurrency))
	}
	docs, _, err := loader.NewService(options...).Load(ctx, config.Inputs)
	if err != nil {
		return err
	}

	orc := orchestrator.New(&orchestrator.Config{
		Mode:                  config.Mode,
		ImplementModel:        config.ImplementModel,
		ValidationConstraints: config.ValidationConstraints,
		ModelPackage:          config.ModelPackage,
		ServicePackage:        config.ServicePackage,
		Overrides:             overrides,
		IncludeDeclarations:   config.IncludeDeclarations,
		Debug:                 g.debug,
	})

	result, err := orc.Resolve(docs)
	if err != nil {
		return err
	}

	if config.DumpGraph {
		p := pp.New()
		p.SetColoringEnabled(false)
		p.SetExportedOnly(true)
		g.debug.Printf("resolved definitions: %s", p.Sprint(result.Graph.Export()))
	}

	if err := os.MkdirAll(config.OutputDir, os.ModePerm); err != nil {
		return errors.WithStack(err)
	}

	for _, outputType := range config.OutputTypes {
		outputType = strings.ToLower(strings.TrimSpace(outputType))
		if typeWriter, ok := g.outputTypeMap[outputType]; ok {
			if err := typeWriter(config, result); err != nil {
				return err
			}
		} else {
			console.Logger.Warn("output type '%s' not supported", outputType)
		}
	}

	return nil
}

func (g *Gen) writeGo(config *Config, result *orchestrator.Result) error {
	files, err := emit.NewDriver(g.debug).Run(result, emit.NewGoTarget(result, config.Module))
	if err != nil {
		return err
	}

	for name, src := range files {
		fileName := filepath.Join(config.OutputDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(fileName), os.ModePerm); err != nil {
			return errors.WithStack(err)
		}
		if err := g.writeFile(src, fileName); err != nil {
			return err
		}
		console.Logger.Debug("create %s at %+v", filepath.Base(fileName), fileName)
	}

	return nil
}

func (g *Gen) writeJSONTypes(config *Config, result *orchestrator.Result) error {
	jsonFileName := filepath.Join(config.OutputDir, "types.json")

	b, err := g.jsonIndent(exportResult(result))
	if err != nil {
		return err
	}

	err = g.writeFile(b, jsonFileName)
	if err != nil {
		return err
	}

	console.Logger.Debug("create types.json at %+v", jsonFileName)

	return nil
}

func (g *Gen) writeYAMLTypes(config *Config, result *orchestrator.Result) error {
	yamlFileName := filepath.Join(config.OutputDir, "types.yaml")

	b, err := g.json(exportResult(result))
	if err != nil {
		return err
	}

	y, err := g.jsonToYAML(b)
	if err != nil {
		return fmt.Errorf("cannot covert json to yaml error: %s", err)
	}

	err = g.writeFile(y, yamlFileName)
	if err != nil {
		return err
	}

	console.Logger.Debug("create types.yaml at %+v", yamlFileName)

	return nil
}

func (g *Gen) writeFile(b []byte, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}

	defer f.Close()

	_, err = f.Write(b)

	return err
}

// Read and parse the overrides file.
func parseOverrides(r io.Reader) (map[string]string, error) {
	overrides := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()

		// Skip comments
		if len(line) > 1 && line[0:2] == "//" {
			continue
		}

		parts := strings.Fields(line)

		switch len(parts) {
		case 0:
			// only whitespace
			continue
		case 2:
			// either a skip or malformed
			if parts[0] != "skip" {
				return nil, fmt.Errorf("could not parse override: '%s'", line)
			}

			overrides[parts[1]] = ""
		case 3:
			// either a replace or malformed
			if parts[0] != "replace" {
				return nil, fmt.Errorf("could not parse override: '%s'", line)
			}

			overrides[parts[1]] = parts[2]
		default:
			return nil, fmt.Errorf("could not parse override: '%s'", line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading overrides file: %w", err)
	}

	return overrides, nil
}

// exportedResult is the serializable form of a resolution result.
type exportedResult struct {
	Mode        domain.GenerationMode       `json:"mode"`
	Definitions []domain.ExportedDefinition `json:"definitions"`
	Services    []exportedService           `json:"services,omitempty"`
	Referenced  map[string]string           `json:"referenced,omitempty"`
}

type exportedService struct {
	Name    string           `json:"name"`
	Package string           `json:"package"`
	Methods []exportedMethod `json:"methods"`
}

type exportedMethod struct {
	Name       string          `json:"name"`
	HTTPMethod string          `json:"httpMethod"`
	Path       string          `json:"path"`
	Params     []exportedParam `json:"params,omitempty"`
	Body       *exportedParam  `json:"body,omitempty"`
	Result     string          `json:"result"`
	Location   string          `json:"location,omitempty"`
}

type exportedParam struct {
	Name     string `json:"name"`
	WireName string `json:"wireName"`
	Kind     string `json:"kind"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

func exportResult(result *orchestrator.Result) exportedResult {
	types := result.Types()
	param := func(p orchestrator.ParamDef) exportedParam {
		return exportedParam{
			Name:     p.Name,
			WireName: p.WireName,
			Kind:     string(p.Kind),
			Type:     types.String(p.Type),
			Optional: p.Optional,
		}
	}

	out := exportedResult{
		Mode:        result.Mode,
		Definitions: sanitizeDefinitions(result.Graph.Export()),
		Referenced:  result.Referenced,
	}
	for _, svc := range result.Services {
		es := exportedService{Name: svc.Name, Package: svc.Package}
		for _, m := range svc.Methods {
			em := exportedMethod{
				Name:       m.Name,
				HTTPMethod: m.HTTPMethod,
				Path:       m.Path,
				Result:     types.String(m.Result),
			}
			if m.Location.File != "" {
				em.Location = m.Location.String()
			}
			for _, p := range m.Params {
				em.Params = append(em.Params, param(p))
			}
			if m.Body != nil {
				body := param(*m.Body)
				em.Body = &body
			}
			es.Methods = append(es.Methods, em)
		}
		out.Services = append(out.Services, es)
	}
	return out
}

// sanitizeDefinitions removes infinity and NaN values from exported definitions
// to prevent JSON marshaling errors. These values are not valid in JSON.
func sanitizeDefinitions(defs []domain.ExportedDefinition) []domain.ExportedDefinition {
	for i := range defs {
		sanitizeProperties(defs[i].Properties)
		sanitizeProperties(defs[i].Inherited)
		defs[i].Nested = sanitizeDefinitions(defs[i].Nested)
	}
	return defs
}

// sanitizeProperties clears invalid defaults and bounds. Constraints are shared
// with the graph, so they are copied before they change.
func sanitizeProperties(props []domain.ExportedProperty) {
	for i := range props {
		prop := &props[i]
		prop.Default = sanitizeValue(prop.Default)

		c := prop.Constraints
		if c == nil || (!invalid(c.Minimum) && !invalid(c.Maximum)) {
			continue
		}
		clean := *c
		if invalid(clean.Minimum) {
			clean.Minimum = nil
		}
		if invalid(clean.Maximum) {
			clean.Maximum = nil
		}
		prop.Constraints = &clean
	}
}

// sanitizeValue returns v with infinity/NaN numbers dropped, recursing into
// lists and objects without touching the original.
func sanitizeValue(v any) any {
	switch value := v.(type) {
	case float64:
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return nil
		}
	case []any:
		clean := make([]any, 0, len(value))
		for _, item := range value {
			if f, ok := item.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
				continue // Skip infinity/NaN items
			}
			clean = append(clean, sanitizeValue(item))
		}
		return clean
	case map[string]any:
		clean := make(map[string]any, len(value))
		for k, item := range value {
			clean[k] = sanitizeValue(item)
		}
		return clean
	}
	return v
}

func invalid(f *float64) bool {
	return f != nil && (math.IsInf(*f, 0) || math.IsNaN(*f))
}
