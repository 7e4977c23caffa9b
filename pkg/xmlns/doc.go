// Package xmlns provides qualified names and namespace-prefix resolution
// for SOAP documents.
//
// A QName is a (namespace URI, local name) pair. Equality is always on the
// pair; prefixes are a serialization concern and are resolved against the
// in-scope xmlns declarations of a concrete element.
package xmlns
