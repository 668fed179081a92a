package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-openapi/spec"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"

	"github.com/griffnb/core-typegen/internal/domain"
)

// Load reads the files at paths and converts them into documents sharing one
// arena. Documents are returned in the order of paths; files pulled in through
// references or library uses are reachable from the documents that name them.
func (s *Service) Load(ctx context.Context, paths []string) ([]*domain.Document, *domain.Arena, error) {
	files := make([]*parsedFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			f, err := s.readFile(gctx, path)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	c := newConverter(ctx, s)
	docs := make([]*domain.Document, 0, len(files))
	seen := make(map[*domain.Document]bool, len(files))
	for _, f := range files {
		u := c.unit(f, nil)
		if seen[u.doc] {
			continue
		}
		seen[u.doc] = true
		docs = append(docs, u.doc)
	}
	c.settleLinks()

	if err := c.errs.ErrorOrNil(); err != nil {
		return nil, nil, errors.Errorf("failed to convert documents: %w", err)
	}

	s.debug.Printf("loaded %d documents, %d shapes", len(c.units), c.arena.Len())
	return docs, c.arena, nil
}

// readFile reads and decodes one file, serving repeated paths from the cache.
func (s *Service) readFile(ctx context.Context, path string) (*parsedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("failed to resolve path %s: %w", path, err)
	}

	if s.cache != nil {
		if f, ok := s.cache.Get(abs); ok {
			return f, nil
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Errorf("failed to read %s: %w", path, err)
	}

	f, err := parseFile(filepath.Clean(path), data)
	if err != nil {
		return nil, err
	}
	f.Abs = abs

	if s.cache != nil {
		s.cache.Add(abs, f)
	}
	s.debug.Printf("parsed %s", path)
	return f, nil
}

// parseFile decodes a yaml or json OpenAPI 2.0 document.
func parseFile(path string, data []byte) (*parsedFile, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Errorf("failed to parse %s: %w", path, err)
	}

	swagger := &spec.Swagger{}
	if err := swagger.UnmarshalJSON(raw); err != nil {
		return nil, errors.Errorf("failed to decode %s: %w", path, err)
	}

	pos, err := walkPositions(path, data)
	if err != nil {
		return nil, errors.Errorf("failed to index %s: %w", path, err)
	}

	return &parsedFile{Path: path, Swagger: swagger, Positions: pos}, nil
}
