// Package store models GeoServer stores: vector data stores, coverage
// stores and cascaded WMS stores, together with the feature types,
// coverages and WMS layers they publish.
//
// Handles built with NewDataStore, NewCoverageStore and NewWmsStore refer
// to stores that already exist and fetch their XML lazily. The NewUnsaved*
// constructors return the same types in creation mode, pre-populated with
// the fields GeoServer requires before it accepts a POST.
package store
