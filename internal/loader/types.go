package loader

import (
	"github.com/go-openapi/spec"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Service loads OpenAPI 2.0 documents into a shape graph
type Service struct {
	cacheSize   int
	concurrency int
	cache       *lru.Cache[string, *parsedFile]
	debug       Debugger
}

// Debugger interface for logging
type Debugger interface {
	Printf(format string, v ...interface{})
}

// parsedFile is one read and decoded input file
type parsedFile struct {
	Path      string
	Abs       string
	Swagger   *spec.Swagger
	Positions *positions
}

// Option is a functional option for configuring Service
type Option func(*Service)

// noOpDebugger is a no-op debugger
type noOpDebugger struct{}

func (n *noOpDebugger) Printf(format string, v ...interface{}) {}
