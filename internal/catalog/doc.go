// Package catalog declares the record kinds a deployment serves and provides
// the generic host record used by the bundled stores.
//
//	kinds:
//	  node:
//	    bundle_label: Content type
//	    identity_key: nid
//	    bundle_key: type
//	    operations: [view, create, edit, delete]
//	    sub_kinds:
//	      article:
//	        - title
//	        - {name: uid, references: user}
//	        - {name: field_tags, references: taxonomy_term, multiple: true}
//	        - {name: status, read_only: true}
//
// A Catalog answers the host metadata and access questions of the mapping
// engine. Every record of a kind exposes its identity key and bundle key
// ahead of the declared fields of its sub-kind.
package catalog
