package store

import (
	"context"

	"github.com/beevik/etree"

	"github.com/gsconfig-go/gsconfig/pkg/resource"
)

// DefaultWmsType is the store type used by NewUnsavedWmsStore.
const DefaultWmsType = "WMS"

// Tag of the plain layer-name elements returned by ?list=available.
const availableLayerTag = "wmsLayerName"

var wmsStoreKind = &resource.Kind{
	RootTag:    "wmsStore",
	Collection: "wmsstores",
	Attributes: map[string]resource.Attribute{
		AttrEnabled:         resource.Bool(),
		AttrName:            resource.Text(),
		AttrCapabilitiesURL: resource.Text(),
		AttrType:            resource.Text(),
		AttrMetadata:        resource.Map(),
	},
}

// WmsStoreKind returns a copy of the descriptor for cascaded WMS stores.
func WmsStoreKind() *resource.Kind { return wmsStoreKind.Clone() }

// WmsStore is a remote WMS server cascaded through GeoServer.
type WmsStore struct {
	*resource.Resource

	credentials *resource.KeyValues
}

// NewWmsStore returns a handle on an existing WMS store. Non-empty user or
// password values are laid over the store's metadata: Metadata reports them
// and the next save sends them.
func NewWmsStore(cat resource.Catalog, ws *resource.Workspace, name, user, password string) (*WmsStore, error) {
	r, err := resource.New(cat, wmsStoreKind, ws, workspacePath(ws), name)
	if err != nil {
		return nil, err
	}
	return newWmsStore(r, user, password), nil
}

// NewUnsavedWmsStore returns a WMS store to be created on Save. The remote
// credentials travel in the metadata map.
func NewUnsavedWmsStore(cat resource.Catalog, ws *resource.Workspace, name, user, password string) (*WmsStore, error) {
	r, err := resource.NewUnsaved(cat, wmsStoreKind, ws, workspacePath(ws), name,
		resource.Field{Name: AttrName, Value: name},
		resource.Field{Name: AttrEnabled, Value: true},
		resource.Field{Name: AttrCapabilitiesURL, Value: ""},
		resource.Field{Name: AttrType, Value: DefaultWmsType},
		resource.Field{Name: AttrMetadata, Value: credentialMap(user, password)},
	)
	if err != nil {
		return nil, err
	}
	return newWmsStore(r, user, password), nil
}

// WmsStoreFromIndex builds a handle from a wmsstores listing node. Listings
// carry no credentials, so user and password are left empty.
func WmsStoreFromIndex(cat resource.Catalog, ws *resource.Workspace, node *etree.Element) (*WmsStore, error) {
	name, err := resource.IndexName(node)
	if err != nil {
		return nil, err
	}
	return NewWmsStore(cat, ws, name, "", "")
}

func newWmsStore(r *resource.Resource, user, password string) *WmsStore {
	return &WmsStore{Resource: r, credentials: credentialMap(user, password)}
}

func credentialMap(user, password string) *resource.KeyValues {
	return resource.NewKeyValues(MetadataUser, user, MetadataPassword, password)
}

// Credentials returns the in-memory user/password map. It always holds both
// keys, possibly with empty values.
func (s *WmsStore) Credentials() *resource.KeyValues {
	return s.credentials.Clone()
}

func (s *WmsStore) hasCredentials() bool {
	user, _ := s.credentials.Get(MetadataUser)
	password, _ := s.credentials.Get(MetadataPassword)
	return user != "" || password != ""
}

// SetCredentials updates the in-memory credentials and marks metadata for
// the next save, keeping any other metadata entries already known.
func (s *WmsStore) SetCredentials(ctx context.Context, user, password string) error {
	s.credentials = credentialMap(user, password)
	md, _, err := s.Metadata(ctx)
	if err != nil {
		return err
	}
	if md == nil {
		md = resource.NewKeyValues()
	}
	md.Set(MetadataUser, user)
	md.Set(MetadataPassword, password)
	return s.Set(AttrMetadata, md)
}

// Save persists pending changes. Credentials given at construction travel in
// metadata unless metadata was already set explicitly.
func (s *WmsStore) Save(ctx context.Context) error {
	if s.hasCredentials() && !s.IsDirty(AttrMetadata) && len(s.Dirty()) > 0 {
		md, _, err := s.Metadata(ctx)
		if err != nil {
			return err
		}
		if err := s.Set(AttrMetadata, md); err != nil {
			return err
		}
	}
	return s.Resource.Save(ctx)
}

// Enabled reports the enabled flag.
func (s *WmsStore) Enabled(ctx context.Context) (bool, bool, error) {
	return s.Bool(ctx, AttrEnabled)
}

// SetEnabled marks the enabled flag for the next save.
func (s *WmsStore) SetEnabled(enabled bool) error {
	return s.Set(AttrEnabled, enabled)
}

// CapabilitiesURL returns the GetCapabilities URL of the remote server.
func (s *WmsStore) CapabilitiesURL(ctx context.Context) (string, bool, error) {
	return s.Text(ctx, AttrCapabilitiesURL)
}

// SetCapabilitiesURL points the store at another remote server.
func (s *WmsStore) SetCapabilitiesURL(u string) error {
	return s.Set(AttrCapabilitiesURL, u)
}

// Type returns the store type, normally WMS.
func (s *WmsStore) Type(ctx context.Context) (string, bool, error) {
	return s.Text(ctx, AttrType)
}

// SetType changes the store type on the next save.
func (s *WmsStore) SetType(t string) error {
	return s.Set(AttrType, t)
}

// Metadata returns a copy of the store metadata map. Pending metadata is
// returned as set; otherwise the server's map is returned with any
// credentials given at construction laid over it.
func (s *WmsStore) Metadata(ctx context.Context) (*resource.KeyValues, bool, error) {
	md, ok, err := s.KeyValues(ctx, AttrMetadata)
	if err != nil {
		return nil, false, err
	}
	if ok {
		md = md.Clone()
	}
	if s.IsDirty(AttrMetadata) || !s.hasCredentials() {
		return md, ok, nil
	}
	if md == nil {
		md = resource.NewKeyValues()
	}
	for _, e := range s.credentials.Entries() {
		md.Set(e.Key, e.Value)
	}
	return md, true, nil
}

// SetMetadata replaces the metadata map on the next save.
func (s *WmsStore) SetMetadata(md *resource.KeyValues) error {
	return s.Set(AttrMetadata, md)
}

// WmsListing is the result of GetResourcesMode. Exactly one of Layers and
// Available is meaningful, selected by the Available flag.
type WmsListing struct {
	Available bool
	Layers    []*WmsLayer
	Names     []string
}

// GetResourcesMode lists the store's layers. With available=false it returns
// the published layers as entities; with available=true it returns the names
// of the remote layers that could be published.
func (s *WmsStore) GetResourcesMode(ctx context.Context, available bool) (*WmsListing, error) {
	if available {
		names, err := s.GetAvailableResources(ctx)
		if err != nil {
			return nil, err
		}
		return &WmsListing{Available: true, Names: names}, nil
	}
	layers, err := s.GetResources(ctx)
	if err != nil {
		return nil, err
	}
	return &WmsListing{Layers: layers}, nil
}

// GetResources lists the WMS layers published from this store.
func (s *WmsStore) GetResources(ctx context.Context) ([]*WmsLayer, error) {
	nodes, err := resource.Children(ctx, s.Catalog(), s.ChildHref(wmsLayerKind.Collection), wmsLayerKind.RootTag)
	if err != nil {
		return nil, err
	}
	out := make([]*WmsLayer, 0, len(nodes))
	for _, node := range nodes {
		layer, err := WmsLayerFromIndex(s.Catalog(), s.Workspace(), s, node)
		if err != nil {
			return nil, err
		}
		out = append(out, layer)
	}
	return out, nil
}

// GetAvailableResources lists the remote layer names the store offers,
// published or not, in server order.
func (s *WmsStore) GetAvailableResources(ctx context.Context) ([]string, error) {
	href := s.ChildHref(wmsLayerKind.Collection) + "?list=available"
	nodes, err := resource.Children(ctx, s.Catalog(), href, availableLayerTag)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(nodes))
	for _, node := range nodes {
		names = append(names, node.Text())
	}
	return names, nil
}
