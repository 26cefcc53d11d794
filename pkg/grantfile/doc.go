// Package grantfile reads declarative grant files.
//
// A grant file is a YAML sequence of tagged mappings:
//
//	- !allow
//	  identifier: u1
//	  action: read
//	  target: doc1
//	- !allow
//	  identifier: {type: user, id: "42"}
//	  action: write
//	  target: {type: doc, id: "7"}
//	- !disallow
//	  identifier: u2
//	  action: read
//	  target: doc1
//
// Nested mappings become ordered documents in source order, so the file
// spells out the exact key order stored for structured values. Entries are
// applied in order with Apply, which stops at the first failure.
package grantfile
