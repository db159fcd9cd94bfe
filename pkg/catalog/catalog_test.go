package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/gsconfig-go/gsconfig/pkg/catalog"
	"github.com/gsconfig-go/gsconfig/pkg/catalog/mock"
	"github.com/gsconfig-go/gsconfig/pkg/resource"
)

type seenRequest struct {
	method      string
	path        string
	user        string
	password    string
	contentType string
}

type recorder struct {
	mu   sync.Mutex
	seen []seenRequest
}

func (rec *recorder) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, _ := r.BasicAuth()
		rec.mu.Lock()
		rec.seen = append(rec.seen, seenRequest{
			method:      r.Method,
			path:        r.URL.Path,
			user:        user,
			password:    password,
			contentType: r.Header.Get("Content-Type"),
		})
		rec.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (rec *recorder) requests() []seenRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]seenRequest(nil), rec.seen...)
}

func TestCatalogOverHTTP(t *testing.T) {
	m := mock.New()
	rec := &recorder{}
	srv := newLocalHTTPServer(t, mock.Handler(m, rec.middleware))
	defer srv.Close()

	cat, err := catalog.New(srv.URL+m.BasePath(), catalog.WithBasicAuth("admin", "geoserver"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := cat.CreateWorkspace(ctx, "topp"); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	ws, err := cat.GetWorkspace(ctx, "topp")
	if err != nil {
		t.Fatalf("GetWorkspace: %v", err)
	}
	if _, err := cat.GetWorkspace(ctx, "nope"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ds, err := cat.CreateDataStore(ws, "x")
	if err != nil {
		t.Fatalf("CreateDataStore: %v", err)
	}
	if err := ds.SetConnectionParameters(resource.NewKeyValues("dbtype", "postgis", "Loose bbox", "true")); err != nil {
		t.Fatalf("SetConnectionParameters: %v", err)
	}
	if err := cat.Save(ctx, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stores, err := cat.GetDataStores(ctx, ws)
	if err != nil {
		t.Fatalf("GetDataStores: %v", err)
	}
	if len(stores) != 1 || stores[0].Name() != "x" {
		t.Fatalf("unexpected stores %v", stores)
	}
	params, ok, err := stores[0].ConnectionParameters(ctx)
	if err != nil || !ok {
		t.Fatalf("ConnectionParameters: ok=%v err=%v", ok, err)
	}
	if !params.Equal(resource.NewKeyValues("dbtype", "postgis", "Loose bbox", "true")) {
		t.Fatalf("unexpected parameters %v", params.Entries())
	}

	seen := rec.requests()
	if len(seen) == 0 {
		t.Fatalf("no requests reached the server")
	}
	var posts int
	for _, req := range seen {
		if req.user != "admin" || req.password != "geoserver" {
			t.Fatalf("request %s %s without credentials", req.method, req.path)
		}
		if req.method == http.MethodPost {
			posts++
			if req.contentType != "application/xml" {
				t.Fatalf("unexpected content type %q", req.contentType)
			}
		}
	}
	if posts != 2 {
		t.Fatalf("expected 2 POSTs, got %d", posts)
	}
}

func TestCatalogSaveErrorOverHTTP(t *testing.T) {
	m := mock.New()
	if err := m.AddWorkspace("topp"); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	srv := newLocalHTTPServer(t, mock.Handler(m))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	cat, err := catalog.New(srv.URL+m.BasePath(), catalog.WithLogger(logger))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	ws := &resource.Workspace{Name: "topp"}

	first, _ := cat.CreateCoverageStore(ws, "dem")
	if err := cat.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	dup, _ := cat.CreateCoverageStore(ws, "dem")
	err = cat.Save(ctx, dup)

	var saveErr *resource.SaveError
	if !errors.As(err, &saveErr) || saveErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 SaveError, got %v", err)
	}
	var httpErr *catalog.HTTPError
	if !errors.As(err, &httpErr) || !strings.Contains(string(httpErr.Body), "already exists") {
		t.Fatalf("expected HTTPError with server message, got %v", err)
	}
	if !strings.Contains(logs.String(), "catalog save failed") {
		t.Fatalf("expected failure to be logged, got %q", logs.String())
	}
}

type staticBackend struct {
	body []byte
}

func (b staticBackend) GetRaw(context.Context, string) ([]byte, error) { return b.body, nil }

func (b staticBackend) SendRaw(context.Context, string, string, []byte) error { return nil }

func TestGetXMLParseError(t *testing.T) {
	cat, err := catalog.NewWithBackend("http://gs.test/rest", staticBackend{body: []byte("<broken")})
	if err != nil {
		t.Fatalf("NewWithBackend: %v", err)
	}
	if _, err := cat.GetXML(context.Background(), "http://gs.test/rest/workspaces.xml"); err == nil || !strings.Contains(err.Error(), "catalog: parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestConstructorsValidate(t *testing.T) {
	if _, err := catalog.New("localhost:8080/geoserver/rest"); err == nil {
		t.Fatalf("expected error for relative URL")
	}
	if _, err := catalog.New(""); err == nil {
		t.Fatalf("expected error for empty URL")
	}
	if _, err := catalog.NewWithBackend("", staticBackend{}); err == nil {
		t.Fatalf("expected error for empty service URL")
	}
	if _, err := catalog.NewWithBackend("http://gs.test/rest", nil); err == nil {
		t.Fatalf("expected error for nil backend")
	}
}

func TestListingNeedsWorkspace(t *testing.T) {
	m := mock.New()
	cat, err := catalog.NewWithBackend(m.ServiceURL(), m)
	if err != nil {
		t.Fatalf("NewWithBackend: %v", err)
	}
	if _, err := cat.GetWmsStores(context.Background(), nil); !errors.Is(err, resource.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetWorkspacesInOrder(t *testing.T) {
	m := mock.New()
	for _, name := range []string{"topp", "sf", "nurc"} {
		if err := m.AddWorkspace(name); err != nil {
			t.Fatalf("AddWorkspace: %v", err)
		}
	}
	cat, err := catalog.NewWithBackend(m.ServiceURL(), m)
	if err != nil {
		t.Fatalf("NewWithBackend: %v", err)
	}
	list, err := cat.GetWorkspaces(context.Background())
	if err != nil {
		t.Fatalf("GetWorkspaces: %v", err)
	}
	if len(list) != 3 || list[0].Name != "topp" || list[1].Name != "sf" || list[2].Name != "nurc" {
		t.Fatalf("unexpected workspaces %v", list)
	}
}

type testServer struct {
	URL      string
	listener net.Listener
	server   *http.Server
}

func (s *testServer) Close() {
	_ = s.server.Shutdown(context.Background())
	_ = s.listener.Close()
}

func newLocalHTTPServer(t *testing.T, handler http.Handler) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("network disabled for tests: %v", err)
	}
	srv := &http.Server{Handler: handler}
	ts := &testServer{
		URL:      "http://" + ln.Addr().String(),
		listener: ln,
		server:   srv,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.Logf("test server serve error: %v", err)
		}
	}()
	return ts
}
