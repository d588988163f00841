// Package encode walks host records and produces resource documents.
//
// Encoding starts at the top-level record(s) with an empty path. Every
// traversed field extends the path by its exposed name. A related record
// is always referenced by a {type, id} linkage; its full body is added to
// the document's included side-table only when the path is a prefix of a
// requested include path, or of a default include path of the top-level
// record when the client requested none. Related records that are not
// included are never walked, which also bounds traversal of cyclic graphs.
//
// Sparse fieldsets are keyed by the final exposed type, so the type of each
// record is resolved before any of its fields are filtered.
package encode
