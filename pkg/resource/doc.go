// Package resource implements XML-backed GeoServer configuration resources.
//
// A Resource is described by a Kind: the root tag used on the wire, the URL
// collection it lives under and a table mapping attribute names to a read
// conversion (document element to Go value) and a write conversion (Go value
// to element). Reads consult pending changes first and otherwise resolve the
// backing document once through the Catalog. Writes only record pending
// changes; Save serializes them and sends them with PUT, or POST for
// resources created with NewUnsaved.
package resource
