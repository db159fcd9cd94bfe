package mock_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/gsconfig-go/gsconfig/internal/devseed"
	"github.com/gsconfig-go/gsconfig/internal/httpx"
	"github.com/gsconfig-go/gsconfig/pkg/catalog/mock"
)

const base = mock.DefaultServiceURL

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("parse %s: %v", data, err)
	}
	return doc.Root()
}

func seeded(t *testing.T) *mock.Mock {
	t.Helper()
	m := mock.New()
	if err := m.AddWorkspace("topp"); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	ds := etree.NewElement("dataStore")
	ds.CreateElement("name").SetText("roads")
	ds.CreateElement("enabled").SetText("true")
	ds.CreateElement("description").SetText("road network")
	if err := m.AddStore("topp", mock.DataStores, ds); err != nil {
		t.Fatalf("AddStore: %v", err)
	}
	return m
}

func TestGetRawRoutes(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	data, err := m.GetRaw(ctx, base+"/workspaces/topp/datastores.xml")
	if err != nil {
		t.Fatalf("GetRaw listing: %v", err)
	}
	list := parse(t, data)
	if list.Tag != "dataStores" || len(list.SelectElements("dataStore")) != 1 {
		t.Fatalf("unexpected listing %s", data)
	}

	data, err = m.GetRaw(ctx, base+"/workspaces/topp/datastores/roads.xml")
	if err != nil {
		t.Fatalf("GetRaw store: %v", err)
	}
	if doc := parse(t, data); doc.SelectElement("description").Text() != "road network" {
		t.Fatalf("unexpected store document %s", data)
	}

	for _, href := range []string{
		base + "/workspaces/nope.xml",
		base + "/workspaces/topp/datastores/missing.xml",
		base + "/workspaces/topp/layergroups.xml",
		"http://elsewhere/rest/workspaces.xml",
	} {
		if _, err := m.GetRaw(ctx, href); httpx.StatusCode(err) != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %v", href, err)
		}
	}
}

func TestSendRawCreateAndMerge(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	if err := m.SendRaw(ctx, http.MethodPost, base+"/workspaces/topp/datastores?name=rivers", []byte(`<dataStore><enabled>false</enabled></dataStore>`)); err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := m.GetRaw(ctx, base+"/workspaces/topp/datastores/rivers.xml")
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	doc := parse(t, data)
	if doc.SelectElement("name").Text() != "rivers" || doc.FindElement("workspace/name").Text() != "topp" {
		t.Fatalf("create did not fill in identity: %s", data)
	}

	if err := m.SendRaw(ctx, http.MethodPut, base+"/workspaces/topp/datastores/roads.xml", []byte(`<dataStore><enabled>false</enabled><title>Roads</title></dataStore>`)); err != nil {
		t.Fatalf("update: %v", err)
	}
	data, err = m.GetRaw(ctx, base+"/workspaces/topp/datastores/roads.xml")
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	var tags []string
	for _, child := range parse(t, data).ChildElements() {
		tags = append(tags, child.Tag+"="+child.Text())
	}
	if got := strings.Join(tags, ","); got != "name=roads,enabled=false,description=road network,title=Roads" {
		t.Fatalf("unexpected merged document %s", got)
	}
}

func TestSendRawErrors(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()
	cases := []struct {
		name   string
		method string
		href   string
		body   string
		status int
	}{
		{"duplicate store", http.MethodPost, base + "/workspaces/topp/datastores?name=roads", `<dataStore/>`, http.StatusConflict},
		{"wrong root", http.MethodPost, base + "/workspaces/topp/datastores?name=x", `<coverageStore/>`, http.StatusBadRequest},
		{"malformed body", http.MethodPut, base + "/workspaces/topp/datastores/roads.xml", `<dataStore`, http.StatusBadRequest},
		{"missing store", http.MethodPut, base + "/workspaces/topp/datastores/none.xml", `<dataStore/>`, http.StatusNotFound},
		{"delete", http.MethodDelete, base + "/workspaces/topp/datastores/roads.xml", `<dataStore/>`, http.StatusMethodNotAllowed},
		{"post to document", http.MethodPost, base + "/workspaces/topp/datastores/roads.xml", `<dataStore/>`, http.StatusMethodNotAllowed},
		{"duplicate workspace", http.MethodPost, base + "/workspaces", `<workspace><name>topp</name></workspace>`, http.StatusConflict},
	}
	for _, tc := range cases {
		err := m.SendRaw(ctx, tc.method, tc.href, []byte(tc.body))
		if got := httpx.StatusCode(err); got != tc.status {
			t.Fatalf("%s: expected %d, got %d (%v)", tc.name, tc.status, got, err)
		}
	}
}

func TestRequestsAreRecorded(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()
	_, _ = m.GetRaw(ctx, base+"/workspaces/topp/wmsstores/x/wmslayers.xml?list=available")
	_ = m.SendRaw(ctx, http.MethodPost, base+"/workspaces/topp/datastores?name=y", []byte(`<dataStore/>`))

	reqs := m.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 recorded requests, got %d", len(reqs))
	}
	if reqs[0].Method != http.MethodGet || reqs[0].Path != "workspaces/topp/wmsstores/x/wmslayers" || reqs[0].Query.Get("list") != "available" {
		t.Fatalf("unexpected first request %#v", reqs[0])
	}
	if reqs[1].Method != http.MethodPost || string(reqs[1].Body) != `<dataStore/>` {
		t.Fatalf("unexpected second request %#v", reqs[1])
	}
}

func TestSeedValidation(t *testing.T) {
	seed, err := devseed.Parse([]byte("workspaces:\n  - name: topp\n    datastores:\n      - name: roads\n        available: [a]\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := mock.New().Seed(seed); err == nil {
		t.Fatalf("expected error for available layers on a data store")
	}

	m := mock.New()
	if err := m.AddWorkspace("topp"); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	if err := m.AddWorkspace("topp"); err == nil {
		t.Fatalf("expected duplicate workspace error")
	}
	if err := m.AddStore("topp", "layergroups", etree.NewElement("layerGroup")); err == nil {
		t.Fatalf("expected unknown collection error")
	}
	if err := m.SetAvailable("topp", "missing", "a"); err == nil {
		t.Fatalf("expected missing store error")
	}
}

func TestHandler(t *testing.T) {
	m := seeded(t)
	h := mock.Handler(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/geoserver/rest/workspaces/topp/datastores/roads.xml", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/xml" {
		t.Fatalf("unexpected GET response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if root := parse(t, rec.Body.Bytes()); root.Tag != "dataStore" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/geoserver/rest/workspaces/topp/coveragestores?name=dem", strings.NewReader(`<coverageStore><type>GeoTIFF</type></coverageStore>`))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/geoserver/rest/workspaces/nope.xml", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "No such workspace") {
		t.Fatalf("unexpected 404 response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other/workspaces.xml", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside the base path, got %d", rec.Code)
	}
}
