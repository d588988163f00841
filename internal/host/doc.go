// Package host declares the collaborator contracts the mapping engine consumes:
// the record graph and its field values, kind metadata, field/record access
// control and storage.
//
// Field values are a closed set of variants (Scalar, Multi, Reference,
// References). Consumers dispatch on them through Visitor rather than by
// probing concrete types.
package host
