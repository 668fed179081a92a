package loader

import (
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed files kept between loads
const DefaultCacheSize = 128

// NewService creates a new loader service with optional configuration
func NewService(options ...Option) *Service {
	s := &Service{
		cacheSize:   DefaultCacheSize,
		concurrency: runtime.NumCPU(),
		debug:       &noOpDebugger{},
	}

	for _, opt := range options {
		opt(s)
	}

	if s.concurrency < 1 {
		s.concurrency = 1
	}
	if s.cacheSize > 0 {
		// only fails on a non-positive size
		s.cache, _ = lru.New[string, *parsedFile](s.cacheSize)
	}

	return s
}

// WithCacheSize sets how many parsed files are kept. Zero disables the cache.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		s.cacheSize = size
	}
}

// WithConcurrency sets how many files are read at once
func WithConcurrency(n int) Option {
	return func(s *Service) {
		s.concurrency = n
	}
}

// WithDebugger sets the debugger for logging
func WithDebugger(debugger Debugger) Option {
	return func(s *Service) {
		s.debug = debugger
	}
}
