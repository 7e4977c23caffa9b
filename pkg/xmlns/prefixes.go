package xmlns

import "fmt"

// Prefixes allocates serialization prefixes for namespace URIs within one
// encode session. The four SOAP envelope prefixes are fixed so that a peer
// matching on prefixed strings sees stable output; everything else gets
// ns2, ns3, ... in first-use order.
type Prefixes struct {
	byURI map[string]string
	order []string
	next  int
}

// NewPrefixes returns an allocator seeded with the canonical SOAP prefixes.
func NewPrefixes() *Prefixes {
	p := &Prefixes{byURI: make(map[string]string), next: 2}
	seed := []struct{ uri, pfx string }{
		{SOAPEnvelope, PrefixEnvelope},
		{SOAPEncoding, PrefixEncoding},
		{XSI, PrefixXSI},
		{Schema2001, PrefixSchema},
	}
	for _, s := range seed {
		p.byURI[s.uri] = s.pfx
		p.order = append(p.order, s.uri)
	}
	return p
}

// For returns the prefix assigned to uri, allocating one if needed.
func (p *Prefixes) For(uri string) string {
	if pfx, ok := p.byURI[uri]; ok {
		return pfx
	}
	pfx := fmt.Sprintf("ns%d", p.next)
	p.next++
	p.byURI[uri] = pfx
	p.order = append(p.order, uri)
	return pfx
}

// Qualify renders q with its assigned prefix, e.g. "xsd:int". A QName with
// no namespace (or the NoNamespace marker) renders bare.
func (p *Prefixes) Qualify(q QName) string {
	if q.Space == "" || q.Space == NoNamespace {
		return q.Local
	}
	return p.For(q.Space) + ":" + q.Local
}

// Each calls fn for every (uri, prefix) pair in allocation order.
func (p *Prefixes) Each(fn func(uri, prefix string)) {
	for _, uri := range p.order {
		fn(uri, p.byURI[uri])
	}
}
