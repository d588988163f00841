// Package document models the wire-format resource document: the top-level
// envelope, resource objects, relationship linkages and the included
// side-table, plus their JSON encoding and the tolerant decoding of inbound
// payloads.
//
// Single-versus-list ambiguity is resolved once, at decode time, into the
// Data variant; nothing downstream inspects raw JSON shapes.
package document
