// Package schema compiles the YAML endpoint declarations into immutable,
// query-efficient field tables.
//
// A schema file groups endpoints into scopes. Each endpoint is mounted at a
// path inside its scope and exposes one record kind, optionally restricted to
// a set of sub-kinds:
//
//	scopes:
//	  api:
//	    articles:
//	      kind: node
//	      sub_kinds: [article]
//	      fields:
//	        - title                     # exposed as "title"
//	        - field_byline: byline      # renamed
//	        - field_body: {as: body, transform: json}
//	        - type: type
//	      include: [author]
//	      extensions:
//	        article:
//	          fields: [field_tags]
//	          include: [tags]
//
// Fields may also be given as a mapping (`fields: {title: title}`). A field
// given without a name is exposed under its source name with any "field_"
// prefix removed, kebab-cased: field_publishedAt becomes published-at.
//
// Compilation is two-pass. Parse only decodes shorthand into canonical
// FieldEntry values; Compile validates them, injects the default "type" and
// "id" fields, resolves sub-kind extensions and builds the reverse indexes
// used to find the endpoint that renders a nested record. Problems are
// collected as diagnostics and reported together as a ConfigError.
//
// A compiled Schema is never mutated and may be shared between goroutines.
package schema
