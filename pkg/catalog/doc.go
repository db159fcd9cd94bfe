// Package catalog is the entry point to a GeoServer REST service. A Catalog
// knows the service URL and moves XML documents through a Backend: HTTP by
// default, or the in-memory emulation from package mock. It lists
// workspaces and stores and hands out store handles from package store.
package catalog
