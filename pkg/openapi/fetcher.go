package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// FetcherOption customises a DefinitionFetcher.
type FetcherOption func(*DefinitionFetcher)

// WithLoader sets the loader used to read the document source.
func WithLoader(loader *schema.Loader) FetcherOption {
	return func(f *DefinitionFetcher) {
		if loader != nil {
			f.loader = loader
		}
	}
}

// WithLogger routes skipped-property warnings to logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *DefinitionFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// DefinitionFetcher implements wizard.SchemaFetcher by resolving form keys
// against the definitions of an API document. The document is loaded on the
// first fetch; a failed load is retried on the next call.
type DefinitionFetcher struct {
	source schema.Source
	loader *schema.Loader
	logger *slog.Logger

	mu  sync.Mutex
	doc *Document
}

var _ wizard.SchemaFetcher = (*DefinitionFetcher)(nil)

// NewDefinitionFetcher reads the document from src.
func NewDefinitionFetcher(src schema.Source, options ...FetcherOption) *DefinitionFetcher {
	f := &DefinitionFetcher{
		source: src,
		loader: schema.NewLoader(),
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// FetchSchema returns the definition named formKey.
func (f *DefinitionFetcher) FetchSchema(ctx context.Context, formKey string) (schema.Schema, error) {
	doc, err := f.document(ctx)
	if err != nil {
		return schema.Schema{}, err
	}
	s, err := doc.Schema(formKey, f.logger)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("%w: %v", wizard.ErrNotFound, err)
	}
	return s, nil
}

// Definitions lists the definition names available in the document.
func (f *DefinitionFetcher) Definitions(ctx context.Context) ([]string, error) {
	doc, err := f.document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Definitions(), nil
}

func (f *DefinitionFetcher) document(ctx context.Context) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc != nil {
		return f.doc, nil
	}
	raw, err := f.loader.Load(ctx, f.source)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", locationOf(f.source), err)
	}
	doc, err := ParseDocument(ctx, raw)
	if err != nil {
		return nil, err
	}
	f.doc = doc
	return doc, nil
}

func locationOf(src schema.Source) string {
	if src == nil {
		return "<nil>"
	}
	return src.Location()
}
