package devseed_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gsconfig-go/gsconfig/internal/devseed"
)

func TestParseKeepsParameterOrder(t *testing.T) {
	seed, err := devseed.Parse([]byte(`
workspaces:
  - name: topp
    datastores:
      - name: roads
        enabled: false
        connectionParameters:
          port: "5432"
          host: db.local
          dbtype: postgis
        resources: [streets]
    wmsstores:
      - name: remote
        available: [L1, L2]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(seed.Workspaces) != 1 {
		t.Fatalf("expected one workspace, got %d", len(seed.Workspaces))
	}
	ws := seed.Workspaces[0]
	ds := ws.DataStores[0]
	want := devseed.Params{{Key: "port", Value: "5432"}, {Key: "host", Value: "db.local"}, {Key: "dbtype", Value: "postgis"}}
	if !reflect.DeepEqual(ds.ConnectionParameters, want) {
		t.Fatalf("unexpected parameters %#v", ds.ConnectionParameters)
	}
	if ds.Enabled == nil || *ds.Enabled {
		t.Fatalf("expected explicit enabled=false")
	}
	if !reflect.DeepEqual(ws.WmsStores[0].Available, []string{"L1", "L2"}) {
		t.Fatalf("unexpected available layers %v", ws.WmsStores[0].Available)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unnamed workspace":  "workspaces:\n  - datastores: []\n",
		"unnamed store":      "workspaces:\n  - name: topp\n    coveragestores:\n      - type: GeoTIFF\n",
		"nested parameter":   "workspaces:\n  - name: topp\n    datastores:\n      - name: a\n        connectionParameters:\n          host: {x: 1}\n",
		"parameters as list": "workspaces:\n  - name: topp\n    datastores:\n      - name: a\n        metadata: [a, b]\n",
		"not yaml":           "workspaces: [\n",
	}
	for name, raw := range cases {
		if _, err := devseed.Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("workspaces:\n  - name: sf\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	seed, err := devseed.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if seed.Workspaces[0].Name != "sf" {
		t.Fatalf("unexpected seed %#v", seed)
	}
	if _, err := devseed.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
