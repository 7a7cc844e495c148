package definition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/openapi"
	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ErrNoFetcher is returned when a form names only a definition and the
// resolver has no schema fetcher to ask.
var ErrNoFetcher = errors.New("definition: no schema fetcher configured")

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithFileSystem resolves relative schema sources inside fsys instead of the
// working directory.
func WithFileSystem(fsys fs.FS) ResolverOption {
	return func(r *Resolver) {
		r.fsys = fsys
	}
}

// WithHTTPClient sets the client used for http(s) schema sources.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		if client != nil {
			r.http = client
		}
	}
}

// WithFetcher sets the fetcher used for forms that only name a definition,
// typically a cached client.Client.
func WithFetcher(fetcher wizard.SchemaFetcher) ResolverOption {
	return func(r *Resolver) {
		r.fetcher = fetcher
	}
}

// WithLogger routes schema parse warnings to logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver turns a form's SchemaRef into a Schema. API documents are parsed
// once per source and shared between forms.
type Resolver struct {
	fsys    fs.FS
	http    *http.Client
	fetcher wizard.SchemaFetcher
	logger  *slog.Logger
	loader  *schema.Loader

	mu   sync.Mutex
	docs map[string]*openapi.DefinitionFetcher
}

// NewResolver constructs a Resolver.
func NewResolver(options ...ResolverOption) *Resolver {
	r := &Resolver{
		http:   http.DefaultClient,
		logger: slog.Default(),
		docs:   make(map[string]*openapi.DefinitionFetcher),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	loaderOpts := []schema.LoaderOption{schema.WithHTTPClient(r.http)}
	if r.fsys != nil {
		loaderOpts = append(loaderOpts, schema.WithFileSystem(r.fsys))
	}
	r.loader = schema.NewLoader(loaderOpts...)
	return r
}

// Schema resolves the schema of form.
func (r *Resolver) Schema(ctx context.Context, form Form) (schema.Schema, error) {
	ref := form.Schema
	switch {
	case len(ref.Inline) > 0:
		s, err := schema.Parse(ref.Inline, schema.WithLogger(r.logger))
		if err != nil {
			return schema.Schema{}, fmt.Errorf("definition: form %q inline schema: %w", form.Key, err)
		}
		return s, nil
	case ref.Source != "" && ref.Definition != "":
		fetcher, err := r.document(ref.Source)
		if err != nil {
			return schema.Schema{}, err
		}
		return fetcher.FetchSchema(ctx, ref.Definition)
	case ref.Source != "":
		src, err := r.source(ref.Source)
		if err != nil {
			return schema.Schema{}, err
		}
		raw, err := r.loader.Load(ctx, src)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("definition: form %q schema %s: %w", form.Key, ref.Source, err)
		}
		return schema.Parse(raw, schema.WithLogger(r.logger))
	case ref.Definition != "":
		if r.fetcher == nil {
			return schema.Schema{}, fmt.Errorf("%w for form %q", ErrNoFetcher, form.Key)
		}
		return r.fetcher.FetchSchema(ctx, ref.Definition)
	default:
		return schema.Schema{}, fmt.Errorf("definition: form %q has no schema", form.Key)
	}
}

func (r *Resolver) document(location string) (*openapi.DefinitionFetcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fetcher, ok := r.docs[location]; ok {
		return fetcher, nil
	}
	src, err := r.source(location)
	if err != nil {
		return nil, err
	}
	fetcher := openapi.NewDefinitionFetcher(src, openapi.WithLoader(r.loader), openapi.WithLogger(r.logger))
	r.docs[location] = fetcher
	return fetcher, nil
}

func (r *Resolver) source(location string) (schema.Source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return schema.SourceFromURL(location)
	}
	if r.fsys != nil {
		return schema.SourceFromFS(strings.TrimPrefix(location, "./")), nil
	}
	return schema.SourceFromFile(location), nil
}
