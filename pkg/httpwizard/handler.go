// Package httpwizard serves wizards over HTTP. Each form from a definition
// catalog is exposed as a sequence of server-rendered pages; the session is
// kept in a wizard.SessionStore and referenced by a cookie.
package httpwizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-formwizard/pkg/client"
	"github.com/goliatone/go-formwizard/pkg/definition"
	"github.com/goliatone/go-formwizard/pkg/fields"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/renderers/html"
	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/store"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// DefaultBasePath is where wizards are mounted unless overridden.
const DefaultBasePath = "/wizards"

// SchemaResolver returns the schema of a form definition.
type SchemaResolver interface {
	Schema(ctx context.Context, form definition.Form) (schema.Schema, error)
}

// Searcher finds reference candidates for a field.
type Searcher interface {
	Search(ctx context.Context, field, query string) ([]wizard.Record, error)
}

// Option customises a Handler.
type Option func(*Handler)

// WithBasePath mounts the wizard routes under path.
func WithBasePath(path string) Option {
	return func(h *Handler) {
		path = "/" + strings.Trim(strings.TrimSpace(path), "/")
		if path == "/" {
			path = ""
		}
		h.basePath = path
	}
}

// WithStore sets the session store. Defaults to an in-memory store.
func WithStore(s wizard.SessionStore) Option {
	return func(h *Handler) {
		if s != nil {
			h.store = s
		}
	}
}

// WithLocker sets how sessions are claimed for the duration of a request.
// Defaults to the store when it implements store.Locker, otherwise to an
// in-process locker.
func WithLocker(l store.Locker, ttl time.Duration) Option {
	return func(h *Handler) {
		if l != nil {
			h.locker = l
		}
		if ttl > 0 {
			h.lockTTL = ttl
		}
	}
}

// WithRenderer replaces the default HTML renderer.
func WithRenderer(r *html.Renderer) Option {
	return func(h *Handler) {
		if r != nil {
			h.renderer = r
		}
	}
}

// WithClient sets the record service client used to load and submit records.
func WithClient(c *client.Client) Option {
	return func(h *Handler) {
		h.client = c
	}
}

// WithSearcher enables the reference search endpoint.
func WithSearcher(s Searcher) Option {
	return func(h *Handler) {
		h.searcher = s
	}
}

// WithObserver receives every wizard transition.
func WithObserver(observer wizard.Observer) Option {
	return func(h *Handler) {
		h.observer = observer
	}
}

// WithMetrics records HTTP metrics and serves the collector on its path.
func WithMetrics(collector *metrics.Collector) Option {
	return func(h *Handler) {
		h.metrics = collector
	}
}

// WithFieldRegistry overrides the field kind registry used by controllers.
func WithFieldRegistry(reg *fields.Registry) Option {
	return func(h *Handler) {
		h.registry = reg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithFallback sets the route used when a form declares no fallback.
func WithFallback(path string) Option {
	return func(h *Handler) {
		if path = strings.TrimSpace(path); path != "" {
			h.fallback = path
		}
	}
}

// WithSecureCookies marks session cookies as Secure.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secure = secure
	}
}

// Handler serves the forms of a catalog.
type Handler struct {
	catalog  *definition.Catalog
	resolver SchemaResolver
	store    wizard.SessionStore
	locker   store.Locker
	lockTTL  time.Duration
	renderer *html.Renderer
	client   *client.Client
	searcher Searcher
	observer wizard.Observer
	metrics  *metrics.Collector
	registry *fields.Registry
	logger   *slog.Logger
	basePath string
	fallback string
	secure   bool

	mu      sync.Mutex
	schemas map[string]schema.Schema
	router  chi.Router
}

// New builds a Handler. catalog and resolver are required.
func New(catalog *definition.Catalog, resolver SchemaResolver, options ...Option) (*Handler, error) {
	if catalog == nil {
		return nil, errors.New("httpwizard: catalog is nil")
	}
	if resolver == nil {
		return nil, errors.New("httpwizard: schema resolver is nil")
	}
	h := &Handler{
		catalog:  catalog,
		resolver: resolver,
		logger:   slog.Default(),
		basePath: DefaultBasePath,
		fallback: "/",
		lockTTL:  store.DefaultLockTTL,
		schemas:  make(map[string]schema.Schema),
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	if h.store == nil {
		h.store = store.NewMemory()
	}
	if h.locker == nil {
		if l, ok := h.store.(store.Locker); ok {
			h.locker = l
		} else {
			h.locker = store.NewLocalLocker()
		}
	}
	if h.renderer == nil {
		renderer, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("httpwizard: %w", err)
		}
		h.renderer = renderer
	}
	h.router = h.routes()
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// BasePath reports where wizard routes are mounted.
func (h *Handler) BasePath() string { return h.basePath }

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(h.requestLogger)

	if h.metrics != nil {
		r.Method(http.MethodGet, h.metrics.Path(), h.metrics.Handler())
	}

	route := func(r chi.Router) {
		r.Get("/{wizard}", h.start)
		r.Get("/{wizard}/search/{field}", h.search)
		r.Get("/{wizard}/{page}", h.show)
		r.Post("/{wizard}/{page}", h.submit)
		r.Post("/{wizard}/{page}/cancel", h.cancel)
	}
	if h.basePath == "" {
		route(r)
	} else {
		r.Route(h.basePath, route)
	}
	return r
}

// InvalidateSchema drops the cached schema of a form.
func (h *Handler) InvalidateSchema(key string) {
	h.mu.Lock()
	delete(h.schemas, key)
	h.mu.Unlock()
}

func (h *Handler) schema(ctx context.Context, form definition.Form) (schema.Schema, error) {
	h.mu.Lock()
	cached, ok := h.schemas[form.Key]
	h.mu.Unlock()
	if ok {
		return cached, nil
	}
	s, err := h.resolver.Schema(ctx, form)
	if err != nil {
		return schema.Schema{}, err
	}
	h.mu.Lock()
	h.schemas[form.Key] = s
	h.mu.Unlock()
	return s, nil
}

func (h *Handler) controllerOptions(form definition.Form, params map[string]string) []wizard.Option {
	opts := []wizard.Option{
		wizard.WithName(form.Key),
		wizard.WithLogger(h.logger),
		wizard.WithParams(params),
	}
	if h.observer != nil {
		opts = append(opts, wizard.WithObserver(h.observer))
	}
	if h.registry != nil {
		opts = append(opts, wizard.WithFieldRegistry(h.registry))
	}
	if transform := form.Transform(params); transform != nil {
		opts = append(opts, wizard.WithSubmitTransform(transform))
	}
	return opts
}

func (h *Handler) wizardPath(form definition.Form) string {
	return h.basePath + "/" + form.Key
}

func (h *Handler) pagePath(form definition.Form, key string) string {
	return h.wizardPath(form) + "/" + key
}

func (h *Handler) fallbackFor(form definition.Form) string {
	if form.Fallback != "" {
		return form.Fallback
	}
	return h.fallback
}
