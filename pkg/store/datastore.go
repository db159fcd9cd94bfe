package store

import (
	"context"

	"github.com/beevik/etree"

	"github.com/gsconfig-go/gsconfig/pkg/resource"
)

var dataStoreKind = &resource.Kind{
	RootTag:    "dataStore",
	Collection: "datastores",
	Attributes: map[string]resource.Attribute{
		AttrEnabled:              resource.Bool(),
		AttrName:                 resource.Text(),
		AttrConnectionParameters: resource.Map(),
	},
}

// DataStoreKind returns a copy of the descriptor for vector data stores.
func DataStoreKind() *resource.Kind { return dataStoreKind.Clone() }

// DataStore is a vector data source registered under a workspace.
type DataStore struct {
	*resource.Resource
}

// NewDataStore returns a handle on an existing data store.
func NewDataStore(cat resource.Catalog, ws *resource.Workspace, name string) (*DataStore, error) {
	r, err := resource.New(cat, dataStoreKind, ws, workspacePath(ws), name)
	if err != nil {
		return nil, err
	}
	return &DataStore{Resource: r}, nil
}

// NewUnsavedDataStore returns a data store to be created on Save. It starts
// enabled with empty connection parameters.
func NewUnsavedDataStore(cat resource.Catalog, ws *resource.Workspace, name string) (*DataStore, error) {
	r, err := resource.NewUnsaved(cat, dataStoreKind, ws, workspacePath(ws), name,
		resource.Field{Name: AttrName, Value: name},
		resource.Field{Name: AttrEnabled, Value: true},
		resource.Field{Name: AttrConnectionParameters, Value: resource.NewKeyValues()},
	)
	if err != nil {
		return nil, err
	}
	return &DataStore{Resource: r}, nil
}

// DataStoreFromIndex builds a handle from a datastores listing node.
func DataStoreFromIndex(cat resource.Catalog, ws *resource.Workspace, node *etree.Element) (*DataStore, error) {
	name, err := resource.IndexName(node)
	if err != nil {
		return nil, err
	}
	return NewDataStore(cat, ws, name)
}

// Enabled reports the enabled flag.
func (s *DataStore) Enabled(ctx context.Context) (bool, bool, error) {
	return s.Bool(ctx, AttrEnabled)
}

// SetEnabled marks the enabled flag for the next save.
func (s *DataStore) SetEnabled(enabled bool) error {
	return s.Set(AttrEnabled, enabled)
}

// ConnectionParameters returns the store's connection parameters.
func (s *DataStore) ConnectionParameters(ctx context.Context) (*resource.KeyValues, bool, error) {
	return s.KeyValues(ctx, AttrConnectionParameters)
}

// SetConnectionParameters replaces the connection parameters on the next save.
func (s *DataStore) SetConnectionParameters(params *resource.KeyValues) error {
	return s.Set(AttrConnectionParameters, params)
}

// GetResources lists the feature types published from this store, in
// server order.
func (s *DataStore) GetResources(ctx context.Context) ([]*FeatureType, error) {
	nodes, err := resource.Children(ctx, s.Catalog(), s.ChildHref(featureTypeKind.Collection), featureTypeKind.RootTag)
	if err != nil {
		return nil, err
	}
	out := make([]*FeatureType, 0, len(nodes))
	for _, node := range nodes {
		ft, err := FeatureTypeFromIndex(s.Catalog(), s.Workspace(), s, node)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, nil
}
