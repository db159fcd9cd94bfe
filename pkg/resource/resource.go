package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
)

// Catalog is the collaborator that knows the service URL and moves XML
// documents over the wire.
type Catalog interface {
	ServiceURL() string
	GetXML(ctx context.Context, href string) (*etree.Document, error)
	Send(ctx context.Context, method, href string, doc *etree.Document) error
}

// Workspace is the namespace a resource lives in.
type Workspace struct {
	Name string
}

// NewWorkspace returns a workspace handle.
func NewWorkspace(name string) (*Workspace, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: workspace name is required", ErrInvalidArgument)
	}
	return &Workspace{Name: name}, nil
}

// State is the lifecycle position of a Resource.
type State int

const (
	// StateUnresolved: no document fetched yet and nothing pending.
	StateUnresolved State = iota
	// StateResolved: the backing document is cached.
	StateResolved
	// StateDirty: pending changes exist.
	StateDirty
	// StateSaved: the last save succeeded; the next read re-fetches.
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolved:
		return "resolved"
	case StateDirty:
		return "dirty"
	case StateSaved:
		return "saved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Field is an attribute name/value pair used to seed pending changes.
type Field struct {
	Name  string
	Value any
}

// Resource is a named configuration object backed by a lazily fetched XML
// document, with pending attribute values overlaid on top of it. A Resource
// is meant for a single goroutine.
type Resource struct {
	catalog   Catalog
	kind      *Kind
	workspace *Workspace
	parent    string
	name      string
	create    bool

	doc   *etree.Document
	dirty map[string]any
	order []string
	saved bool
}

// New returns a handle on an existing resource named name, located under
// parent (a path relative to the service URL such as "workspaces/topp").
// Nothing is fetched until an attribute is read.
func New(cat Catalog, kind *Kind, ws *Workspace, parent, name string) (*Resource, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: catalog is nil", ErrInvalidArgument)
	}
	if kind == nil {
		return nil, fmt.Errorf("%w: kind is nil", ErrInvalidArgument)
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: workspace is nil", ErrInvalidArgument)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: %s name is required", ErrInvalidArgument, kind.RootTag)
	}
	return &Resource{
		catalog:   cat,
		kind:      kind,
		workspace: ws,
		parent:    strings.Trim(parent, "/"),
		name:      name,
		dirty:     make(map[string]any),
	}, nil
}

// NewUnsaved returns a resource that does not exist on the server yet. The
// defaults become pending changes and Save issues a creation request.
func NewUnsaved(cat Catalog, kind *Kind, ws *Workspace, parent, name string, defaults ...Field) (*Resource, error) {
	r, err := New(cat, kind, ws, parent, name)
	if err != nil {
		return nil, err
	}
	r.create = true
	for _, f := range defaults {
		if err := r.Set(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Name returns the identity name used to build the resource URL.
func (r *Resource) Name() string { return r.name }

// Workspace returns the owning workspace.
func (r *Resource) Workspace() *Workspace { return r.workspace }

// Catalog returns the catalog the resource talks through.
func (r *Resource) Catalog() Catalog { return r.catalog }

// Kind returns the kind descriptor.
func (r *Resource) Kind() *Kind { return r.kind }

// Href returns the URL used for reads and for the next save: the creation
// endpoint while unsaved, the .xml document afterwards.
func (r *Resource) Href() string {
	if r.create {
		return r.collectionURL() + "?name=" + url.QueryEscape(r.name)
	}
	return r.collectionURL() + "/" + url.PathEscape(r.name) + ".xml"
}

// ChildHref returns the listing URL for a nested collection such as
// "featuretypes".
func (r *Resource) ChildHref(collection string) string {
	return r.collectionURL() + "/" + url.PathEscape(r.name) + "/" + collection + ".xml"
}

// Path returns the resource path relative to the service URL, suitable as
// the parent of nested resources.
func (r *Resource) Path() string {
	return joinPath(r.parent, r.kind.Collection, url.PathEscape(r.name))
}

func (r *Resource) collectionURL() string {
	return strings.TrimRight(r.catalog.ServiceURL(), "/") + "/" + joinPath(r.parent, r.kind.Collection)
}

// SaveMethod returns POST for unsaved resources and PUT otherwise.
func (r *Resource) SaveMethod() string {
	if r.create {
		return http.MethodPost
	}
	return http.MethodPut
}

// State reports where the resource is in its lifecycle.
func (r *Resource) State() State {
	switch {
	case len(r.dirty) > 0:
		return StateDirty
	case r.doc != nil:
		return StateResolved
	case r.saved:
		return StateSaved
	default:
		return StateUnresolved
	}
}

// Dirty returns the pending changes in the order they were first set.
func (r *Resource) Dirty() []Field {
	fields := make([]Field, 0, len(r.order))
	for _, name := range r.order {
		fields = append(fields, Field{Name: name, Value: r.dirty[name]})
	}
	return fields
}

// IsDirty reports whether name has a pending value.
func (r *Resource) IsDirty(name string) bool {
	_, ok := r.dirty[name]
	return ok
}

// Document returns the backing document, fetching it on first use. Unsaved
// resources have no document and return nil.
func (r *Resource) Document(ctx context.Context) (*etree.Document, error) {
	if r.create {
		return nil, nil
	}
	if r.doc == nil {
		doc, err := r.catalog.GetXML(ctx, r.Href())
		if err != nil {
			return nil, err
		}
		r.doc = doc
		r.saved = false
	}
	return r.doc, nil
}

// Refresh drops the cached document so the next read fetches it again.
func (r *Resource) Refresh() {
	r.doc = nil
}

// Get returns the value of name. Pending values win over the document and
// are returned as stored. A missing element yields nil.
func (r *Resource) Get(ctx context.Context, name string) (any, error) {
	if v, ok := r.dirty[name]; ok {
		return v, nil
	}
	attr, ok := r.kind.Attribute(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no attribute %q", ErrUnknownAttribute, r.kind.RootTag, name)
	}
	doc, err := r.Document(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Root() == nil {
		return nil, nil
	}
	el := doc.Root().SelectElement(name)
	if el == nil {
		return nil, nil
	}
	return attr.Read(el), nil
}

// Text returns a text attribute; ok is false when it is absent.
func (r *Resource) Text(ctx context.Context, name string) (value string, ok bool, err error) {
	v, err := r.Get(ctx, name)
	if err != nil || v == nil {
		return "", false, err
	}
	s, isString := v.(string)
	if !isString {
		return "", false, fmt.Errorf("%w: %s is %T, not string", ErrInvalidValue, name, v)
	}
	return s, true, nil
}

// Bool returns a boolean attribute; ok is false when it is absent.
func (r *Resource) Bool(ctx context.Context, name string) (value bool, ok bool, err error) {
	v, err := r.Get(ctx, name)
	if err != nil || v == nil {
		return false, false, err
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, false, fmt.Errorf("%w: %s is %T, not bool", ErrInvalidValue, name, v)
	}
	return b, true, nil
}

// KeyValues returns a key/value attribute; ok is false when it is absent.
// A pending value is returned as stored, so mutating it changes what Save
// sends.
func (r *Resource) KeyValues(ctx context.Context, name string) (value *KeyValues, ok bool, err error) {
	v, err := r.Get(ctx, name)
	if err != nil || v == nil {
		return nil, false, err
	}
	kv, isKV := v.(*KeyValues)
	if !isKV {
		return nil, false, fmt.Errorf("%w: %s is %T, not *KeyValues", ErrInvalidValue, name, v)
	}
	return kv, true, nil
}

// Set records value as a pending change for name. The document is not
// touched. Attributes without a writer are rejected.
func (r *Resource) Set(name string, value any) error {
	attr, ok := r.kind.Attribute(name)
	if !ok {
		return fmt.Errorf("%w: %s has no attribute %q", ErrUnknownAttribute, r.kind.RootTag, name)
	}
	if attr.Write == nil {
		return fmt.Errorf("%w: %s.%s is read-only", ErrUnwritable, r.kind.RootTag, name)
	}
	if err := attr.Write(etree.NewElement(r.kind.RootTag), name, value); err != nil {
		return err
	}
	if kv, isKV := value.(*KeyValues); isKV {
		value = kv.Clone()
	}
	r.setDirty(name, value)
	return nil
}

func (r *Resource) setDirty(name string, value any) {
	if _, exists := r.dirty[name]; !exists {
		r.order = append(r.order, name)
	}
	r.dirty[name] = value
}

// Discard drops all pending changes.
func (r *Resource) Discard() {
	r.dirty = make(map[string]any)
	r.order = nil
}

// Serialize builds the save payload under the kind's root element. When a
// fetched document is cached and changes are pending, every declared,
// writable attribute found in the document is written in document order,
// with pending values taking their place. Pending attributes the document
// lacks follow in the order they were first set. Every pending attribute
// lacking a writer is reported and no document is returned.
func (r *Resource) Serialize() (*etree.Document, error) {
	doc := etree.NewDocument()
	root := doc.CreateElement(r.kind.RootTag)
	var errs error
	written := make(map[string]bool, len(r.order))
	if base := r.baseRoot(); base != nil && len(r.dirty) > 0 {
		for _, el := range base.ChildElements() {
			name := el.Tag
			if written[name] {
				continue
			}
			if value, pending := r.dirty[name]; pending {
				written[name] = true
				errs = multierr.Append(errs, r.write(root, name, value))
				continue
			}
			attr, ok := r.kind.Attribute(name)
			if !ok || attr.Write == nil {
				continue
			}
			written[name] = true
			errs = multierr.Append(errs, attr.Write(root, name, attr.Read(el)))
		}
	}
	for _, name := range r.order {
		if written[name] {
			continue
		}
		errs = multierr.Append(errs, r.write(root, name, r.dirty[name]))
	}
	if errs != nil {
		return nil, errs
	}
	return doc, nil
}

func (r *Resource) baseRoot() *etree.Element {
	if r.create || r.doc == nil {
		return nil
	}
	return r.doc.Root()
}

func (r *Resource) write(root *etree.Element, name string, value any) error {
	attr, ok := r.kind.Attributes[name]
	if !ok {
		return fmt.Errorf("%w: %s has no attribute %q", ErrUnknownAttribute, r.kind.RootTag, name)
	}
	if attr.Write == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnwritable, r.kind.RootTag, name)
	}
	return attr.Write(root, name, value)
}

// Save sends the pending changes with SaveMethod to Href. An existing
// resource is resolved first so the payload carries the full document with
// the pending values laid over it. On success the pending set is cleared and
// the cached document dropped; a created resource switches to update mode.
// On failure the pending set is kept and a *SaveError is returned. Saving
// with nothing pending does nothing.
func (r *Resource) Save(ctx context.Context) error {
	if len(r.dirty) == 0 {
		return nil
	}
	method, href := r.SaveMethod(), r.Href()
	if _, err := r.Document(ctx); err != nil {
		return newSaveError(r, method, href, err)
	}
	doc, err := r.Serialize()
	if err != nil {
		return err
	}
	if err := r.catalog.Send(ctx, method, href, doc); err != nil {
		return newSaveError(r, method, href, err)
	}
	r.Discard()
	r.doc = nil
	r.saved = true
	r.create = false
	return nil
}

// Children fetches href and returns the root's children tagged tag, in
// document order.
func Children(ctx context.Context, cat Catalog, href, tag string) ([]*etree.Element, error) {
	doc, err := cat.GetXML(ctx, href)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Root() == nil {
		return nil, nil
	}
	return doc.Root().SelectElements(tag), nil
}

// IndexName returns the text of node's <name> child.
func IndexName(node *etree.Element) (string, error) {
	if node == nil {
		return "", fmt.Errorf("%w: index node is nil", ErrInvalidArgument)
	}
	name := node.SelectElement("name")
	if name == nil || strings.TrimSpace(name.Text()) == "" {
		return "", fmt.Errorf("%w: %s index node has no name", ErrInvalidArgument, node.Tag)
	}
	return name.Text(), nil
}

func joinPath(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
