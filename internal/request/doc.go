// Package request derives the per-operation view of a compiled schema: the
// endpoint being addressed plus the client's query options (debug, include
// paths, sparse fieldsets, sort and filter tokens).
//
// A View is built once per inbound operation and is read-only afterwards.
package request
