// Package types defines the entity types, configuration, and standard errors
// shared by the backlog store, the importer, and the command surfaces.
//
// Entities use integer surrogate keys assigned by the store. A zero ID means
// the entity has not been persisted yet.
package types
