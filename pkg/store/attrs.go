package store

import (
	"net/url"

	"github.com/gsconfig-go/gsconfig/pkg/resource"
)

// Attribute names as they appear in GeoServer's XML.
const (
	AttrEnabled              = "enabled"
	AttrName                 = "name"
	AttrConnectionParameters = "connectionParameters"
	AttrURL                  = "url"
	AttrType                 = "type"
	AttrCapabilitiesURL      = "capabilitiesURL"
	AttrMetadata             = "metadata"
	AttrNativeName           = "nativeName"
	AttrTitle                = "title"
	AttrAbstract             = "abstract"
)

// Metadata keys carrying remote WMS credentials.
const (
	MetadataUser     = "user"
	MetadataPassword = "password"
)

func workspacePath(ws *resource.Workspace) string {
	if ws == nil {
		return ""
	}
	return "workspaces/" + url.PathEscape(ws.Name)
}
