package store

import (
	"context"

	"github.com/beevik/etree"

	"github.com/gsconfig-go/gsconfig/pkg/resource"
)

// Defaults applied to coverage stores created with NewUnsavedCoverageStore.
const (
	DefaultCoverageType = "GeoTIFF"
	DefaultCoverageURL  = "file:data/"
)

// connectionParameters is managed by the server and cannot be written.
var coverageStoreKind = &resource.Kind{
	RootTag:    "coverageStore",
	Collection: "coveragestores",
	Attributes: map[string]resource.Attribute{
		AttrEnabled:              resource.Bool(),
		AttrName:                 resource.Text(),
		AttrURL:                  resource.Text(),
		AttrType:                 resource.Text(),
		AttrConnectionParameters: resource.ReadOnly(resource.Map()),
	},
}

// CoverageStoreKind returns a copy of the descriptor for raster stores.
func CoverageStoreKind() *resource.Kind { return coverageStoreKind.Clone() }

// CoverageStore is a raster data source registered under a workspace.
type CoverageStore struct {
	*resource.Resource
}

// NewCoverageStore returns a handle on an existing coverage store.
func NewCoverageStore(cat resource.Catalog, ws *resource.Workspace, name string) (*CoverageStore, error) {
	r, err := resource.New(cat, coverageStoreKind, ws, workspacePath(ws), name)
	if err != nil {
		return nil, err
	}
	return &CoverageStore{Resource: r}, nil
}

// NewUnsavedCoverageStore returns a coverage store to be created on Save,
// enabled, of type GeoTIFF and pointing at file:data/.
func NewUnsavedCoverageStore(cat resource.Catalog, ws *resource.Workspace, name string) (*CoverageStore, error) {
	r, err := resource.NewUnsaved(cat, coverageStoreKind, ws, workspacePath(ws), name,
		resource.Field{Name: AttrName, Value: name},
		resource.Field{Name: AttrEnabled, Value: true},
		resource.Field{Name: AttrType, Value: DefaultCoverageType},
		resource.Field{Name: AttrURL, Value: DefaultCoverageURL},
	)
	if err != nil {
		return nil, err
	}
	return &CoverageStore{Resource: r}, nil
}

// CoverageStoreFromIndex builds a handle from a coveragestores listing node.
func CoverageStoreFromIndex(cat resource.Catalog, ws *resource.Workspace, node *etree.Element) (*CoverageStore, error) {
	name, err := resource.IndexName(node)
	if err != nil {
		return nil, err
	}
	return NewCoverageStore(cat, ws, name)
}

// Enabled reports the enabled flag.
func (s *CoverageStore) Enabled(ctx context.Context) (bool, bool, error) {
	return s.Bool(ctx, AttrEnabled)
}

// SetEnabled marks the enabled flag for the next save.
func (s *CoverageStore) SetEnabled(enabled bool) error {
	return s.Set(AttrEnabled, enabled)
}

// URL returns the location of the raster data, e.g. file:data/dem.tif.
func (s *CoverageStore) URL(ctx context.Context) (string, bool, error) {
	return s.Text(ctx, AttrURL)
}

// SetURL points the store at another raster source.
func (s *CoverageStore) SetURL(u string) error {
	return s.Set(AttrURL, u)
}

// Type returns the coverage format name, e.g. GeoTIFF.
func (s *CoverageStore) Type(ctx context.Context) (string, bool, error) {
	return s.Text(ctx, AttrType)
}

// SetType changes the coverage format on the next save.
func (s *CoverageStore) SetType(t string) error {
	return s.Set(AttrType, t)
}

// ConnectionParameters is read-only for coverage stores.
func (s *CoverageStore) ConnectionParameters(ctx context.Context) (*resource.KeyValues, bool, error) {
	return s.KeyValues(ctx, AttrConnectionParameters)
}

// GetResources lists the coverages published from this store.
func (s *CoverageStore) GetResources(ctx context.Context) ([]*Coverage, error) {
	nodes, err := resource.Children(ctx, s.Catalog(), s.ChildHref(coverageKind.Collection), coverageKind.RootTag)
	if err != nil {
		return nil, err
	}
	out := make([]*Coverage, 0, len(nodes))
	for _, node := range nodes {
		cov, err := CoverageFromIndex(s.Catalog(), s.Workspace(), s, node)
		if err != nil {
			return nil, err
		}
		out = append(out, cov)
	}
	return out, nil
}
