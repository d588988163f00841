// Package diagnostic collects structured errors and warnings produced while
// compiling endpoint declarations.
//
// Every entry carries a stable code (e.g. "duplicate_exposed_name"), the
// endpoint it belongs to ("api/v1 articles") and, when relevant, the host field
// it concerns, so a schema author can locate the problem without reading the
// compiler.
package diagnostic
