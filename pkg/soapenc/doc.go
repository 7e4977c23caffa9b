// Package soapenc implements the SOAP 1.1 encoding conventions: typed
// scalars, structs, nil markers, multi-reference href/id graphs, and the
// SOAP-ENC array model (dense, sparse, multi-dimensional).
//
// The Encoder builds encoded values as etree elements from Go values and
// pre-built child elements. The Decoder walks loosely-typed RPC-encoded XML
// back into a tree of Node values, resolves multi-reference links into a
// (possibly cyclic) object graph, and can optionally collapse the verbose
// decode tree into an ergonomic shape.
//
// Decoding is deliberately forgiving: unknown types fall back to structural
// inference, dangling hrefs degrade to warnings, and the caller always gets
// a best-effort value back.
package soapenc
