// Package xsd defines the type-resolver boundary between the SOAP message
// codec and whatever compiles XML Schema definitions into per-type readers
// and writers.
//
// The codec only ever sees two callable shapes: a ReadFunc that turns an XML
// element into a Go value, and a WriteFunc that turns a Go value into an XML
// element. A Resolver hands these out keyed by qualified type name. The
// Builtin resolver covers the XML Schema primitive types so the codec is
// usable without a generated schema layer; anything richer plugs in behind
// the same interface.
package xsd
