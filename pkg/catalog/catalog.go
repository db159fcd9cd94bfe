package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/gsconfig-go/gsconfig/internal/httpx"
	"github.com/gsconfig-go/gsconfig/pkg/resource"
	"github.com/gsconfig-go/gsconfig/pkg/store"
)

// HTTPError is returned for non-2xx responses from GeoServer.
type HTTPError = httpx.HTTPError

// ErrNotFound is returned when a requested workspace does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Backend moves raw XML documents to and from GeoServer. Hrefs are absolute.
type Backend interface {
	GetRaw(ctx context.Context, href string) ([]byte, error)
	SendRaw(ctx context.Context, method, href string, body []byte) error
}

// Option configures a Catalog.
type Option func(*options)

type options struct {
	logger *slog.Logger
	http   []httpx.Option
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.http = append(o.http, httpx.WithHTTPClient(h)) }
}

// WithHeaders adds headers to every request.
func WithHeaders(h http.Header) Option {
	return func(o *options) { o.http = append(o.http, httpx.WithHeaders(h)) }
}

// WithBasicAuth sends static basic credentials with every request.
func WithBasicAuth(user, password string) Option {
	return func(o *options) { o.http = append(o.http, httpx.WithBasicAuth(user, password)) }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.http = append(o.http, httpx.WithTimeout(d)) }
}

func buildOptions(opts []Option) *options {
	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Catalog is the entry point to a GeoServer REST service.
type Catalog struct {
	serviceURL string
	backend    Backend
	logger     *slog.Logger
}

// New constructs a Catalog talking HTTP to serviceURL, e.g.
// http://localhost:8080/geoserver/rest.
func New(serviceURL string, opts ...Option) (*Catalog, error) {
	o := buildOptions(opts)
	cl, err := httpx.NewClient(serviceURL, o.http...)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		backend:    &httpBackend{client: cl},
		logger:     o.logger,
	}, nil
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
// HTTP options are ignored.
func NewWithBackend(serviceURL string, b Backend, opts ...Option) (*Catalog, error) {
	if strings.TrimSpace(serviceURL) == "" {
		return nil, fmt.Errorf("catalog: service URL is required")
	}
	if b == nil {
		return nil, fmt.Errorf("catalog: backend is nil")
	}
	o := buildOptions(opts)
	return &Catalog{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		backend:    b,
		logger:     o.logger,
	}, nil
}

// ServiceURL returns the REST base URL without a trailing slash.
func (c *Catalog) ServiceURL() string {
	return c.serviceURL
}

// GetXML fetches href and parses the body.
func (c *Catalog) GetXML(ctx context.Context, href string) (*etree.Document, error) {
	c.logger.Debug("catalog fetch", "href", href)
	data, err := c.backend.GetRaw(ctx, href)
	if err != nil {
		c.logger.Debug("catalog fetch failed", "href", href, "status", httpx.StatusCode(err))
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", href, err)
	}
	return doc, nil
}

// Send serializes doc and issues method against href.
func (c *Catalog) Send(ctx context.Context, method, href string, doc *etree.Document) error {
	if doc == nil {
		return fmt.Errorf("catalog: %s %s: document is nil", method, href)
	}
	body, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("catalog: encode %s: %w", href, err)
	}
	c.logger.Debug("catalog send", "method", method, "href", href, "bytes", len(body))
	if err := c.backend.SendRaw(ctx, method, href, body); err != nil {
		c.logger.Debug("catalog send failed", "method", method, "href", href, "status", httpx.StatusCode(err))
		return err
	}
	return nil
}

// Saver is anything with pending changes to persist.
type Saver interface {
	Href() string
	SaveMethod() string
	Save(ctx context.Context) error
}

// Save persists s, logging the outcome.
func (c *Catalog) Save(ctx context.Context, s Saver) error {
	method, href := s.SaveMethod(), s.Href()
	if err := s.Save(ctx); err != nil {
		c.logger.Warn("catalog save failed", "method", method, "href", href, "err", err)
		return err
	}
	c.logger.Info("catalog saved", "method", method, "href", href)
	return nil
}

func (c *Catalog) href(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.serviceURL + "/" + strings.Join(escaped, "/") + ".xml"
}

// GetWorkspaces lists all workspaces.
func (c *Catalog) GetWorkspaces(ctx context.Context) ([]*resource.Workspace, error) {
	nodes, err := resource.Children(ctx, c, c.href("workspaces"), "workspace")
	if err != nil {
		return nil, err
	}
	out := make([]*resource.Workspace, 0, len(nodes))
	for _, node := range nodes {
		name, err := resource.IndexName(node)
		if err != nil {
			return nil, err
		}
		out = append(out, &resource.Workspace{Name: name})
	}
	return out, nil
}

// GetWorkspace returns the named workspace or ErrNotFound.
func (c *Catalog) GetWorkspace(ctx context.Context, name string) (*resource.Workspace, error) {
	ws, err := resource.NewWorkspace(name)
	if err != nil {
		return nil, err
	}
	doc, err := c.GetXML(ctx, c.href("workspaces", name))
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.NotFound() {
			return nil, fmt.Errorf("%w: workspace %q", ErrNotFound, name)
		}
		return nil, err
	}
	if root := doc.Root(); root != nil {
		if n, err := resource.IndexName(root); err == nil {
			ws.Name = n
		}
	}
	return ws, nil
}

// CreateWorkspace creates a workspace.
func (c *Catalog) CreateWorkspace(ctx context.Context, name string) (*resource.Workspace, error) {
	ws, err := resource.NewWorkspace(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.CreateElement("workspace").CreateElement("name").SetText(name)
	if err := c.Send(ctx, http.MethodPost, c.serviceURL+"/workspaces", doc); err != nil {
		return nil, err
	}
	return ws, nil
}

// GetDataStores lists the data stores of ws.
func (c *Catalog) GetDataStores(ctx context.Context, ws *resource.Workspace) ([]*store.DataStore, error) {
	return listStores(ctx, c, ws, store.DataStoreKind(), store.DataStoreFromIndex)
}

// GetCoverageStores lists the coverage stores of ws.
func (c *Catalog) GetCoverageStores(ctx context.Context, ws *resource.Workspace) ([]*store.CoverageStore, error) {
	return listStores(ctx, c, ws, store.CoverageStoreKind(), store.CoverageStoreFromIndex)
}

// GetWmsStores lists the WMS stores of ws. Credentials are not part of the
// listing and come back empty.
func (c *Catalog) GetWmsStores(ctx context.Context, ws *resource.Workspace) ([]*store.WmsStore, error) {
	return listStores(ctx, c, ws, store.WmsStoreKind(), store.WmsStoreFromIndex)
}

func listStores[T any](ctx context.Context, c *Catalog, ws *resource.Workspace, kind *resource.Kind,
	fromIndex func(resource.Catalog, *resource.Workspace, *etree.Element) (T, error)) ([]T, error) {
	if ws == nil {
		return nil, fmt.Errorf("%w: workspace is nil", resource.ErrInvalidArgument)
	}
	nodes, err := resource.Children(ctx, c, c.href("workspaces", ws.Name, kind.Collection), kind.RootTag)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(nodes))
	for _, node := range nodes {
		s, err := fromIndex(c, ws, node)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CreateDataStore returns an unsaved data store; call Save to create it.
func (c *Catalog) CreateDataStore(ws *resource.Workspace, name string) (*store.DataStore, error) {
	return store.NewUnsavedDataStore(c, ws, name)
}

// CreateCoverageStore returns an unsaved coverage store; call Save to create it.
func (c *Catalog) CreateCoverageStore(ws *resource.Workspace, name string) (*store.CoverageStore, error) {
	return store.NewUnsavedCoverageStore(c, ws, name)
}

// CreateWmsStore returns an unsaved WMS store; call Save to create it.
func (c *Catalog) CreateWmsStore(ws *resource.Workspace, name, user, password string) (*store.WmsStore, error) {
	return store.NewUnsavedWmsStore(c, ws, name, user, password)
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) GetRaw(ctx context.Context, href string) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("catalog: http backend not configured")
	}
	return b.client.Get(ctx, href)
}

func (b *httpBackend) SendRaw(ctx context.Context, method, href string, body []byte) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("catalog: http backend not configured")
	}
	return b.client.Send(ctx, method, href, body)
}
