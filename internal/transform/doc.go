// Package transform provides named, reversible value conversions applied to
// individual fields as they cross between the host representation and the
// wire representation.
//
// A Transform has two directions:
//
//	Normalize   host -> wire   (used while encoding)
//	Denormalize wire -> host   (used while decoding)
//
// For every canonical host value v, Denormalize(Normalize(v)) == v. Nil maps to
// nil in both directions.
//
// Transforms are looked up by name through a Registry. Schema compilation
// rejects a field mapping that names a transform the registry does not hold.
package transform
