// Package formwizard wires definition catalogs, schema resolution, the record
// service client, session storage and metrics into a ready to serve wizard
// host. The building blocks live under pkg/ and can be used on their own.
package formwizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/client"
	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/definition"
	"github.com/goliatone/go-formwizard/pkg/httpwizard"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/store"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Record is the accumulated answer set of a wizard.
type Record = wizard.Record

// PageDescriptor configures one wizard page.
type PageDescriptor = wizard.PageDescriptor

// Form is a wizard definition loaded from a catalog file.
type Form = definition.Form

// ErrUnknownForm is returned when a form key is not in the catalog.
var ErrUnknownForm = errors.New("formwizard: unknown form")

// App holds the shared services of a wizard host.
type App struct {
	Config   config.Config
	Catalog  *definition.Catalog
	Resolver *definition.Resolver
	// Client is nil when no api.base_url is configured.
	Client *client.Client
	Store  store.Store
	// Metrics is nil when metrics are disabled.
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Open loads the configured definitions and connects the session store.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog, err := definition.LoadFiles(cfg.Definitions...)
	if err != nil {
		return nil, fmt.Errorf("formwizard: %w", err)
	}

	app := &App{Config: cfg, Catalog: catalog, Logger: logger}
	app.Resolver, app.Client, err = NewResolver(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		app.Metrics = metrics.New(cfg.Metrics.Config)
	}

	app.Store, err = store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("formwizard: %w", err)
	}

	logger.Info("formwizard: opened",
		"forms", catalog.Keys(),
		"store", cfg.StoreOptions().Driver,
		"api", cfg.API.BaseURL,
	)
	return app, nil
}

// NewResolver builds the schema resolver described by cfg. When an API base
// URL is configured the returned client also serves definition-only schemas
// through a SchemaCache; otherwise the client is nil.
func NewResolver(cfg config.Config, logger *slog.Logger) (*definition.Resolver, *client.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	resolverOpts := []definition.ResolverOption{
		definition.WithLogger(logger),
		definition.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
	}
	if cfg.SchemaRoot != "" {
		resolverOpts = append(resolverOpts, definition.WithFileSystem(os.DirFS(cfg.SchemaRoot)))
	}

	var records *client.Client
	if base := strings.TrimSpace(cfg.API.BaseURL); base != "" {
		opts := []client.Option{
			client.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
			client.WithLogger(logger),
		}
		if cfg.API.SchemaPath != "" {
			opts = append(opts, client.WithSchemaPath(cfg.API.SchemaPath))
		}
		for key, value := range cfg.API.Headers {
			opts = append(opts, client.WithHeader(key, value))
		}
		var err error
		records, err = client.New(base, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("formwizard: %w", err)
		}
		resolverOpts = append(resolverOpts, definition.WithFetcher(client.NewSchemaCache(records, cfg.API.SchemaTTL)))
	}
	return definition.NewResolver(resolverOpts...), records, nil
}

// Close releases the session store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Observer returns the transition observer shared by HTTP and terminal runs.
func (a *App) Observer() wizard.Observer {
	observers := []wizard.Observer{wizard.LogObserver(a.Logger)}
	if a.Metrics != nil {
		observers = append(observers, a.Metrics)
	}
	return wizard.Observers(observers...)
}

// Searcher returns the reference searcher, or nil when no client or search
// mapping is configured.
func (a *App) Searcher() *client.Searcher {
	if a.Client == nil || len(a.Config.API.Search) == 0 {
		return nil
	}
	return a.Client.Searcher(a.Config.API.Search)
}

// Handler builds the HTTP host for the catalog.
func (a *App) Handler(options ...httpwizard.Option) (*httpwizard.Handler, error) {
	opts := []httpwizard.Option{
		httpwizard.WithBasePath(a.Config.Server.BasePath),
		httpwizard.WithFallback(a.Config.Server.Fallback),
		httpwizard.WithSecureCookies(a.Config.Server.SecureCookies),
		httpwizard.WithStore(a.Store),
		httpwizard.WithObserver(a.Observer()),
		httpwizard.WithLogger(a.Logger),
	}
	if a.Client != nil {
		opts = append(opts, httpwizard.WithClient(a.Client))
	}
	if searcher := a.Searcher(); searcher != nil {
		opts = append(opts, httpwizard.WithSearcher(searcher))
	}
	if a.Metrics != nil {
		opts = append(opts, httpwizard.WithMetrics(a.Metrics))
	}
	return httpwizard.New(a.Catalog, a.Resolver, append(opts, options...)...)
}

// Start builds a controller for a form outside of HTTP, as the terminal
// runner does. existingID seeds the wizard from the record service.
func (a *App) Start(ctx context.Context, key string, params map[string]string, existingID string) (*wizard.Controller, Form, error) {
	form, ok := a.Catalog.Lookup(key)
	if !ok {
		return nil, Form{}, fmt.Errorf("%w: %q", ErrUnknownForm, key)
	}
	s, err := a.Resolver.Schema(ctx, form)
	if err != nil {
		return nil, form, fmt.Errorf("formwizard: schema %q: %w", key, err)
	}

	opts := []wizard.Option{
		wizard.WithName(form.Key),
		wizard.WithLogger(a.Logger),
		wizard.WithObserver(a.Observer()),
		wizard.WithParams(params),
	}
	if transform := form.Transform(params); transform != nil {
		opts = append(opts, wizard.WithSubmitTransform(transform))
	}

	var initial wizard.Record
	if existingID != "" {
		if a.Client == nil {
			return nil, form, errors.New("formwizard: loading an existing record requires api.base_url")
		}
		endpoint := form.Load
		if endpoint.URL == "" {
			endpoint = form.Submit
		}
		path, err := endpoint.Expand(params)
		if err != nil {
			return nil, form, err
		}
		initial, err = a.Client.Records(path).LoadExisting(ctx, existingID)
		if err != nil {
			return nil, form, err
		}
		opts = append(opts, wizard.WithExistingID(existingID))
	}

	c, err := wizard.New(form.Descriptors(), s, initial, opts...)
	if err != nil {
		return nil, form, err
	}
	return c, form, nil
}

// Submitter returns the record service submitter for a form.
func (a *App) Submitter(form Form, params map[string]string, existingID string) (wizard.Submitter, error) {
	if a.Client == nil {
		return nil, errors.New("formwizard: submitting requires api.base_url")
	}
	if form.Submit.URL == "" {
		return nil, fmt.Errorf("formwizard: form %q has no submit endpoint", form.Key)
	}
	path, err := form.Submit.Expand(params)
	if err != nil {
		return nil, err
	}
	return a.Client.Records(path).Submitter(existingID), nil
}
