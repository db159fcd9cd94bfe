// Package mock provides an in-memory emulation of the subset of the
// GeoServer REST API used by the catalog: workspaces, data stores, coverage
// stores and WMS stores with their published resources.
package mock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/gsconfig-go/gsconfig/internal/devseed"
	"github.com/gsconfig-go/gsconfig/internal/httpx"
)

// DefaultServiceURL is the service URL a Mock answers on unless overridden.
const DefaultServiceURL = "http://geoserver.mock/geoserver/rest"

// Collection names understood by the mock.
const (
	DataStores     = "datastores"
	CoverageStores = "coveragestores"
	WmsStores      = "wmsstores"
)

type collection struct {
	root      string
	list      string
	child     string
	childTag  string
	childList string
}

var collections = map[string]collection{
	DataStores:     {root: "dataStore", list: "dataStores", child: "featuretypes", childTag: "featureType", childList: "featureTypes"},
	CoverageStores: {root: "coverageStore", list: "coverageStores", child: "coverages", childTag: "coverage", childList: "coverages"},
	WmsStores:      {root: "wmsStore", list: "wmsStores", child: "wmslayers", childTag: "wmsLayer", childList: "wmsLayers"},
}

// Request is a recorded call against the mock.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

type storeEntry struct {
	name      string
	doc       *etree.Element
	resources []*etree.Element
	available []string
}

type workspace struct {
	name   string
	stores map[string][]*storeEntry
}

func (w *workspace) find(coll, name string) *storeEntry {
	for _, e := range w.stores[coll] {
		if e.name == name {
			return e
		}
	}
	return nil
}

// Mock is a thread-safe in-memory GeoServer catalog.
type Mock struct {
	mu         sync.RWMutex
	serviceURL string
	basePath   string
	workspaces []*workspace
	requests   []Request
}

// Option configures the mock instance.
type Option func(*Mock)

// WithServiceURL sets the URL the mock claims to live at. Only its path is
// used to route incoming hrefs.
func WithServiceURL(u string) Option {
	return func(m *Mock) {
		if strings.TrimSpace(u) != "" {
			m.serviceURL = strings.TrimRight(u, "/")
		}
	}
}

// New creates an empty mock catalog.
func New(opts ...Option) *Mock {
	m := &Mock{serviceURL: DefaultServiceURL}
	for _, opt := range opts {
		opt(m)
	}
	if u, err := url.Parse(m.serviceURL); err == nil {
		m.basePath = strings.TrimRight(u.Path, "/")
	}
	return m
}

// ServiceURL returns the base URL hrefs are expected to start with.
func (m *Mock) ServiceURL() string {
	return m.serviceURL
}

// BasePath returns the path component of ServiceURL.
func (m *Mock) BasePath() string {
	return m.basePath
}

// Requests returns a copy of every request seen so far.
func (m *Mock) Requests() []Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// AddWorkspace registers an empty workspace.
func (m *Mock) AddWorkspace(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addWorkspace(name)
}

func (m *Mock) addWorkspace(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("mock geoserver: workspace name is required")
	}
	if m.workspace(name) != nil {
		return fmt.Errorf("mock geoserver: workspace %q already exists", name)
	}
	m.workspaces = append(m.workspaces, &workspace{name: name, stores: make(map[string][]*storeEntry)})
	return nil
}

func (m *Mock) workspace(name string) *workspace {
	for _, w := range m.workspaces {
		if w.name == name {
			return w
		}
	}
	return nil
}

// AddStore registers a store document under ws/coll. The document must
// carry a <name> child.
func (m *Mock) AddStore(ws, coll string, doc *etree.Element) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.workspace(ws)
	if w == nil {
		return fmt.Errorf("mock geoserver: no workspace %q", ws)
	}
	info, ok := collections[coll]
	if !ok {
		return fmt.Errorf("mock geoserver: unknown collection %q", coll)
	}
	if doc == nil || doc.Tag != info.root {
		return fmt.Errorf("mock geoserver: %s documents need a <%s> root", coll, info.root)
	}
	name := childText(doc, "name")
	if name == "" {
		return fmt.Errorf("mock geoserver: store document has no name")
	}
	if w.find(coll, name) != nil {
		return fmt.Errorf("mock geoserver: %s %q already exists in %q", info.root, name, ws)
	}
	w.stores[coll] = append(w.stores[coll], &storeEntry{name: name, doc: doc.Copy()})
	return nil
}

// AddResource publishes a resource element under a store.
func (m *Mock) AddResource(ws, coll, store string, el *etree.Element) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, info, err := m.lookupStore(ws, coll, store)
	if err != nil {
		return err
	}
	if el == nil || el.Tag != info.childTag || childText(el, "name") == "" {
		return fmt.Errorf("mock geoserver: resources of %s need a named <%s>", coll, info.childTag)
	}
	entry.resources = append(entry.resources, el.Copy())
	return nil
}

// SetAvailable sets the remote layer names a WMS store reports with
// ?list=available.
func (m *Mock) SetAvailable(ws, store string, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, _, err := m.lookupStore(ws, WmsStores, store)
	if err != nil {
		return err
	}
	entry.available = append([]string(nil), names...)
	return nil
}

func (m *Mock) lookupStore(ws, coll, store string) (*storeEntry, collection, error) {
	w := m.workspace(ws)
	if w == nil {
		return nil, collection{}, fmt.Errorf("mock geoserver: no workspace %q", ws)
	}
	info, ok := collections[coll]
	if !ok {
		return nil, collection{}, fmt.Errorf("mock geoserver: unknown collection %q", coll)
	}
	entry := w.find(coll, store)
	if entry == nil {
		return nil, collection{}, fmt.Errorf("mock geoserver: no %s %q in %q", info.root, store, ws)
	}
	return entry, info, nil
}

// Seed loads a fixture (typically decoded via devseed.Load).
func (m *Mock) Seed(seed *devseed.Seed) error {
	if seed == nil {
		return nil
	}
	for _, ws := range seed.Workspaces {
		if err := m.AddWorkspace(ws.Name); err != nil {
			return err
		}
		groups := []struct {
			coll   string
			stores []devseed.StoreSeed
		}{
			{DataStores, ws.DataStores},
			{CoverageStores, ws.CoverageStores},
			{WmsStores, ws.WmsStores},
		}
		for _, g := range groups {
			info := collections[g.coll]
			for _, st := range g.stores {
				if err := m.AddStore(ws.Name, g.coll, seedStoreElement(info.root, st)); err != nil {
					return err
				}
				for _, res := range st.Resources {
					if err := m.AddResource(ws.Name, g.coll, st.Name, seedResourceElement(info.childTag, res)); err != nil {
						return err
					}
				}
				if len(st.Available) > 0 {
					if g.coll != WmsStores {
						return fmt.Errorf("mock geoserver: available layers only apply to WMS stores (%q)", st.Name)
					}
					if err := m.SetAvailable(ws.Name, st.Name, st.Available...); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func seedStoreElement(root string, st devseed.StoreSeed) *etree.Element {
	el := etree.NewElement(root)
	el.CreateElement("name").SetText(st.Name)
	enabled := true
	if st.Enabled != nil {
		enabled = *st.Enabled
	}
	el.CreateElement("enabled").SetText(fmt.Sprintf("%t", enabled))
	if st.Type != "" {
		el.CreateElement("type").SetText(st.Type)
	}
	if st.URL != "" {
		el.CreateElement("url").SetText(st.URL)
	}
	if st.CapabilitiesURL != "" {
		el.CreateElement("capabilitiesURL").SetText(st.CapabilitiesURL)
	}
	writeEntries(el, "connectionParameters", st.ConnectionParameters)
	writeEntries(el, "metadata", st.Metadata)
	return el
}

func writeEntries(parent *etree.Element, tag string, params devseed.Params) {
	if len(params) == 0 {
		return
	}
	el := parent.CreateElement(tag)
	for _, p := range params {
		entry := el.CreateElement("entry")
		entry.CreateAttr("key", p.Key)
		entry.SetText(p.Value)
	}
}

func seedResourceElement(tag, name string) *etree.Element {
	el := etree.NewElement(tag)
	el.CreateElement("name").SetText(name)
	el.CreateElement("nativeName").SetText(name)
	el.CreateElement("title").SetText(name)
	el.CreateElement("enabled").SetText("true")
	return el
}

// GetRaw answers a GET for href.
func (m *Mock) GetRaw(ctx context.Context, href string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, query, err := m.route(http.MethodGet, href, nil)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	doc := etree.NewDocument()
	switch {
	case len(segs) == 1 && segs[0] == "workspaces":
		list := doc.CreateElement("workspaces")
		for _, w := range m.workspaces {
			list.CreateElement("workspace").CreateElement("name").SetText(w.name)
		}
	case len(segs) == 2 && segs[0] == "workspaces":
		w := m.workspace(segs[1])
		if w == nil {
			return nil, statusError(http.MethodGet, href, http.StatusNotFound, "No such workspace: %s", segs[1])
		}
		doc.CreateElement("workspace").CreateElement("name").SetText(w.name)
	case len(segs) == 3 && segs[0] == "workspaces":
		w, info, err := m.collection(href, segs[1], segs[2])
		if err != nil {
			return nil, err
		}
		list := doc.CreateElement(info.list)
		for _, e := range w.stores[segs[2]] {
			list.CreateElement(info.root).CreateElement("name").SetText(e.name)
		}
	case len(segs) == 4 && segs[0] == "workspaces":
		entry, _, err := m.store(http.MethodGet, href, segs)
		if err != nil {
			return nil, err
		}
		doc.SetRoot(entry.doc.Copy())
	case len(segs) == 5 && segs[0] == "workspaces":
		entry, info, err := m.store(http.MethodGet, href, segs)
		if err != nil {
			return nil, err
		}
		if segs[4] != info.child {
			return nil, statusError(http.MethodGet, href, http.StatusNotFound, "No such collection: %s", segs[4])
		}
		if query.Get("list") == "available" {
			list := doc.CreateElement("list")
			for _, name := range entry.available {
				list.CreateElement("wmsLayerName").SetText(name)
			}
			break
		}
		list := doc.CreateElement(info.childList)
		for _, res := range entry.resources {
			list.CreateElement(info.childTag).CreateElement("name").SetText(childText(res, "name"))
		}
	case len(segs) == 6 && segs[0] == "workspaces":
		res, err := m.resource(http.MethodGet, href, segs)
		if err != nil {
			return nil, err
		}
		doc.SetRoot(res.Copy())
	default:
		return nil, statusError(http.MethodGet, href, http.StatusNotFound, "No such resource: %s", strings.Join(segs, "/"))
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// SendRaw answers a POST or PUT of an XML body to href.
func (m *Mock) SendRaw(ctx context.Context, method, href string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	segs, query, err := m.route(method, href, body)
	if err != nil {
		return err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil || doc.Root() == nil {
		return statusError(method, href, http.StatusBadRequest, "Malformed XML body")
	}
	root := doc.Root()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch method {
	case http.MethodPost:
		switch {
		case len(segs) == 1 && segs[0] == "workspaces":
			if root.Tag != "workspace" {
				return statusError(method, href, http.StatusBadRequest, "Expected <workspace>, got <%s>", root.Tag)
			}
			if err := m.addWorkspace(childText(root, "name")); err != nil {
				return statusError(method, href, http.StatusConflict, "%v", err)
			}
			return nil
		case len(segs) == 3 && segs[0] == "workspaces":
			return m.createStore(href, segs, query, root)
		}
	case http.MethodPut:
		switch {
		case len(segs) == 4 && segs[0] == "workspaces":
			entry, info, err := m.store(method, href, segs)
			if err != nil {
				return err
			}
			if root.Tag != info.root {
				return statusError(method, href, http.StatusBadRequest, "Expected <%s>, got <%s>", info.root, root.Tag)
			}
			merge(entry.doc, root)
			entry.name = childText(entry.doc, "name")
			return nil
		case len(segs) == 6 && segs[0] == "workspaces":
			res, err := m.resource(method, href, segs)
			if err != nil {
				return err
			}
			if root.Tag != res.Tag {
				return statusError(method, href, http.StatusBadRequest, "Expected <%s>, got <%s>", res.Tag, root.Tag)
			}
			merge(res, root)
			return nil
		}
	default:
		return statusError(method, href, http.StatusMethodNotAllowed, "Method %s not supported", method)
	}
	return statusError(method, href, http.StatusMethodNotAllowed, "Method %s not allowed on %s", method, strings.Join(segs, "/"))
}

func (m *Mock) createStore(href string, segs []string, query url.Values, root *etree.Element) error {
	w, info, err := m.collection(href, segs[1], segs[2])
	if err != nil {
		return err
	}
	name := query.Get("name")
	if name == "" {
		name = childText(root, "name")
	}
	if name == "" {
		return statusError(http.MethodPost, href, http.StatusBadRequest, "Store name is required")
	}
	if root.Tag != info.root {
		return statusError(http.MethodPost, href, http.StatusBadRequest, "Expected <%s>, got <%s>", info.root, root.Tag)
	}
	if w.find(segs[2], name) != nil {
		return statusError(http.MethodPost, href, http.StatusConflict, "Store '%s' already exists in workspace '%s'", name, w.name)
	}
	stored := root.Copy()
	if stored.SelectElement("name") == nil {
		stored.CreateElement("name").SetText(name)
	}
	if stored.SelectElement("workspace") == nil {
		stored.CreateElement("workspace").CreateElement("name").SetText(w.name)
	}
	w.stores[segs[2]] = append(w.stores[segs[2]], &storeEntry{name: name, doc: stored})
	return nil
}

// route records the request and splits href into path segments relative to
// the service URL, with any .xml suffix removed.
func (m *Mock) route(method, href string, body []byte) ([]string, url.Values, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, nil, statusError(method, href, http.StatusBadRequest, "Malformed URL")
	}
	rel := u.Path
	if m.basePath != "" {
		if !strings.HasPrefix(rel, m.basePath) {
			return nil, nil, statusError(method, href, http.StatusNotFound, "Not under %s", m.basePath)
		}
		rel = rel[len(m.basePath):]
	}
	rel = strings.TrimSuffix(strings.Trim(rel, "/"), ".xml")

	m.mu.Lock()
	m.requests = append(m.requests, Request{
		Method: method,
		Path:   rel,
		Query:  u.Query(),
		Body:   append([]byte(nil), body...),
	})
	m.mu.Unlock()

	if rel == "" {
		return nil, nil, statusError(method, href, http.StatusNotFound, "No resource at service root")
	}
	return strings.Split(rel, "/"), u.Query(), nil
}

func (m *Mock) collection(href, ws, coll string) (*workspace, collection, error) {
	w := m.workspace(ws)
	if w == nil {
		return nil, collection{}, statusError("", href, http.StatusNotFound, "No such workspace: %s", ws)
	}
	info, ok := collections[coll]
	if !ok {
		return nil, collection{}, statusError("", href, http.StatusNotFound, "No such collection: %s", coll)
	}
	return w, info, nil
}

func (m *Mock) store(method, href string, segs []string) (*storeEntry, collection, error) {
	w, info, err := m.collection(href, segs[1], segs[2])
	if err != nil {
		return nil, collection{}, err
	}
	entry := w.find(segs[2], segs[3])
	if entry == nil {
		return nil, collection{}, statusError(method, href, http.StatusNotFound, "No such %s: %s,%s", info.root, segs[1], segs[3])
	}
	return entry, info, nil
}

func (m *Mock) resource(method, href string, segs []string) (*etree.Element, error) {
	entry, info, err := m.store(method, href, segs)
	if err != nil {
		return nil, err
	}
	if segs[4] != info.child {
		return nil, statusError(method, href, http.StatusNotFound, "No such collection: %s", segs[4])
	}
	for _, res := range entry.resources {
		if childText(res, "name") == segs[5] {
			return res, nil
		}
	}
	return nil, statusError(method, href, http.StatusNotFound, "No such %s: %s", info.childTag, segs[5])
}

// merge replaces (in place) or appends each child of update into target.
func merge(target, update *etree.Element) {
	for _, child := range update.ChildElements() {
		replacement := child.Copy()
		if existing := target.SelectElement(child.Tag); existing != nil {
			target.InsertChildAt(existing.Index(), replacement)
			target.RemoveChild(existing)
			continue
		}
		target.AddChild(replacement)
	}
}

func childText(el *etree.Element, tag string) string {
	if child := el.SelectElement(tag); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

func statusError(method, href string, status int, format string, args ...any) error {
	return &httpx.HTTPError{
		Method:     method,
		URL:        href,
		StatusCode: status,
		Body:       []byte(fmt.Sprintf(format, args...)),
	}
}
