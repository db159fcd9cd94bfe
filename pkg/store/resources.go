package store

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/gsconfig-go/gsconfig/pkg/resource"
)

func publishedAttributes() map[string]resource.Attribute {
	return map[string]resource.Attribute{
		AttrName:       resource.Text(),
		AttrNativeName: resource.Text(),
		AttrTitle:      resource.Text(),
		AttrAbstract:   resource.Text(),
		AttrEnabled:    resource.Bool(),
	}
}

var (
	featureTypeKind = &resource.Kind{RootTag: "featureType", Collection: "featuretypes", Attributes: publishedAttributes()}
	coverageKind    = &resource.Kind{RootTag: "coverage", Collection: "coverages", Attributes: publishedAttributes()}
	wmsLayerKind    = &resource.Kind{RootTag: "wmsLayer", Collection: "wmslayers", Attributes: publishedAttributes()}
)

// FeatureTypeKind returns a copy of the descriptor for vector layers under a
// data store.
func FeatureTypeKind() *resource.Kind { return featureTypeKind.Clone() }

// CoverageKind returns a copy of the descriptor for rasters under a coverage
// store.
func CoverageKind() *resource.Kind { return coverageKind.Clone() }

// WmsLayerKind returns a copy of the descriptor for cascaded layers under a
// WMS store.
func WmsLayerKind() *resource.Kind { return wmsLayerKind.Clone() }

// Published is the part shared by feature types, coverages and WMS layers.
type Published struct {
	*resource.Resource
}

// Title returns the human readable title.
func (p *Published) Title(ctx context.Context) (string, bool, error) {
	return p.Text(ctx, AttrTitle)
}

// SetTitle marks a new title for the next save.
func (p *Published) SetTitle(title string) error {
	return p.Set(AttrTitle, title)
}

// Abstract returns the layer description.
func (p *Published) Abstract(ctx context.Context) (string, bool, error) {
	return p.Text(ctx, AttrAbstract)
}

// SetAbstract marks a new description for the next save.
func (p *Published) SetAbstract(abstract string) error {
	return p.Set(AttrAbstract, abstract)
}

// NativeName is the name of the layer in the underlying source.
func (p *Published) NativeName(ctx context.Context) (string, bool, error) {
	return p.Text(ctx, AttrNativeName)
}

// Enabled reports the enabled flag.
func (p *Published) Enabled(ctx context.Context) (bool, bool, error) {
	return p.Bool(ctx, AttrEnabled)
}

// SetEnabled marks the enabled flag for the next save.
func (p *Published) SetEnabled(enabled bool) error {
	return p.Set(AttrEnabled, enabled)
}

// FeatureType is a vector layer published from a DataStore.
type FeatureType struct {
	Published
	Store *DataStore
}

// Coverage is a raster layer published from a CoverageStore.
type Coverage struct {
	Published
	Store *CoverageStore
}

// WmsLayer is a remote layer published from a WmsStore.
type WmsLayer struct {
	Published
	Store *WmsStore
}

// FeatureTypeFromIndex builds a feature type handle from a listing node.
func FeatureTypeFromIndex(cat resource.Catalog, ws *resource.Workspace, ds *DataStore, node *etree.Element) (*FeatureType, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: feature type needs a data store", resource.ErrInvalidArgument)
	}
	r, err := publishedFromIndex(cat, ws, ds.Resource, featureTypeKind, node)
	if err != nil {
		return nil, err
	}
	return &FeatureType{Published: Published{Resource: r}, Store: ds}, nil
}

// CoverageFromIndex builds a coverage handle from a listing node.
func CoverageFromIndex(cat resource.Catalog, ws *resource.Workspace, cs *CoverageStore, node *etree.Element) (*Coverage, error) {
	if cs == nil {
		return nil, fmt.Errorf("%w: coverage needs a coverage store", resource.ErrInvalidArgument)
	}
	r, err := publishedFromIndex(cat, ws, cs.Resource, coverageKind, node)
	if err != nil {
		return nil, err
	}
	return &Coverage{Published: Published{Resource: r}, Store: cs}, nil
}

// WmsLayerFromIndex builds a WMS layer handle from a listing node.
func WmsLayerFromIndex(cat resource.Catalog, ws *resource.Workspace, wms *WmsStore, node *etree.Element) (*WmsLayer, error) {
	if wms == nil {
		return nil, fmt.Errorf("%w: WMS layer needs a WMS store", resource.ErrInvalidArgument)
	}
	r, err := publishedFromIndex(cat, ws, wms.Resource, wmsLayerKind, node)
	if err != nil {
		return nil, err
	}
	return &WmsLayer{Published: Published{Resource: r}, Store: wms}, nil
}

func publishedFromIndex(cat resource.Catalog, ws *resource.Workspace, owner *resource.Resource, kind *resource.Kind, node *etree.Element) (*resource.Resource, error) {
	name, err := resource.IndexName(node)
	if err != nil {
		return nil, err
	}
	return resource.New(cat, kind, ws, owner.Path(), name)
}
