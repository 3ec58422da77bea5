// Package catalog provides the static tool catalog.
//
// The catalog package indexes the remote operations known to the worker:
// name, description, category, and input schema. The catalog is data owned
// by an external collaborator; this package only loads and queries it. It
// backs the discovery capabilities exposed to executed snippets (list,
// search, info, category lookup), while the actual invocation goes through
// the provider package.
package catalog
