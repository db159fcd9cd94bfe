package resource

import (
	"errors"
	"fmt"

	"github.com/gsconfig-go/gsconfig/internal/httpx"
)

var (
	// ErrInvalidArgument is returned for nil catalogs or workspaces and empty names.
	ErrInvalidArgument = errors.New("resource: invalid argument")
	// ErrUnknownAttribute is returned when an attribute is not declared by the kind.
	ErrUnknownAttribute = errors.New("resource: unknown attribute")
	// ErrUnwritable is returned when a dirty attribute has no registered writer.
	ErrUnwritable = errors.New("resource: attribute has no writer")
	// ErrInvalidValue is returned when a value does not match the attribute's type.
	ErrInvalidValue = errors.New("resource: invalid attribute value")
)

// SaveError reports a failed save. The resource keeps its pending changes.
type SaveError struct {
	Kind       string
	Name       string
	Method     string
	Href       string
	StatusCode int
	Err        error
}

func (e *SaveError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("resource: save %s %q: %s %s: status %d: %v", e.Kind, e.Name, e.Method, e.Href, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("resource: save %s %q: %s %s: %v", e.Kind, e.Name, e.Method, e.Href, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

func newSaveError(r *Resource, method, href string, err error) *SaveError {
	return &SaveError{
		Kind:       r.kind.RootTag,
		Name:       r.name,
		Method:     method,
		Href:       href,
		StatusCode: httpx.StatusCode(err),
		Err:        err,
	}
}
