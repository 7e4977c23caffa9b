// Package soap builds and parses SOAP 1.1 envelopes from typed message
// parts.
//
// A Message describes one operation's header, body, and fault parts; it is
// compiled once and reused for every call. The Codec turns a flat
// label-to-value mapping into an Envelope/Header/Body document and back,
// dispatching each part through reader and writer callables resolved from
// an xsd.Resolver. Document and rpc-literal styles are supported on encode;
// rpc-encoded bodies decode through the soapenc package's inference
// decoder.
//
// Transport is out of scope: the codec consumes and produces etree
// documents and never touches the network.
package soap
