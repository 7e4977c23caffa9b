package soap

import (
	"fmt"
	"sync"

	"github.com/xmlwire/soapmsg/pkg/xmlns"
	"github.com/xmlwire/soapmsg/pkg/xsd"
)

// Part binds one message part label to its qualified type and wire element
// name. Reader and writer callables are resolved on first use and cached;
// after that a Part is read-only and safe for concurrent reuse.
type Part struct {
	// Label is the caller-visible name of the part, unique within its
	// section.
	Label string

	// Type is the qualified schema type of the part's value.
	Type xmlns.QName

	// Element is the wire element name. When zero the label is used as an
	// unqualified element name.
	Element xmlns.QName

	readOnce sync.Once
	read     xsd.ReadFunc
	readErr  error

	writeOnce sync.Once
	write     xsd.WriteFunc
	writeErr  error
}

// ElementName returns the wire element name for the part.
func (p *Part) ElementName() xmlns.QName {
	if !p.Element.IsZero() {
		return p.Element
	}
	return xmlns.Name("", p.Label)
}

// Reader resolves and caches the part's reader.
func (p *Part) Reader(r xsd.Resolver) (xsd.ReadFunc, error) {
	p.readOnce.Do(func() {
		p.read, p.readErr = r.Reader(p.Type, xsd.ReaderOptions{
			ElementName: p.ElementName(),
			IsType:      true,
		})
	})
	return p.read, p.readErr
}

// Writer resolves and caches the part's writer.
func (p *Part) Writer(r xsd.Resolver) (xsd.WriteFunc, error) {
	p.writeOnce.Do(func() {
		p.write, p.writeErr = r.Writer(p.Type, xsd.WriterOptions{
			ElementName: p.ElementName(),
			IsType:      true,
			OmitNSDecl:  true,
		})
	})
	return p.write, p.writeErr
}

// Message is the compiled description of one operation's parts. Build it
// once with NewMessage and reuse it for every call; it is immutable after
// construction apart from the internal codec caches.
type Message struct {
	// Operation names the rpc wrapper element. Required for rpc styles.
	Operation xmlns.QName

	// Style selects the message convention.
	Style Style

	// Header, Body, and Faults are the part lists per envelope section.
	Header []*Part
	Body   []*Part
	Faults []*Part

	// MustUnderstand marks header labels that are serialized with
	// soapenv:mustUnderstand="1".
	MustUnderstand map[string]bool

	// Destination maps header labels to soapenv:actor role URIs.
	Destination map[string]string

	initOnce sync.Once
	initErr  error
}

// NewMessage validates the part lists and returns a compiled message.
// Validation failures are configuration errors and abort construction.
func NewMessage(m Message) (*Message, error) {
	if m.Style != StyleDocument && m.Operation.IsZero() {
		return nil, fmt.Errorf("soap: %s message requires an operation name", m.Style)
	}
	for _, section := range []struct {
		name  string
		parts []*Part
	}{{"header", m.Header}, {"body", m.Body}, {"fault", m.Faults}} {
		seen := make(map[string]bool)
		for _, p := range section.parts {
			if p.Label == "" {
				return nil, fmt.Errorf("soap: %s part missing label", section.name)
			}
			if seen[p.Label] {
				return nil, fmt.Errorf("soap: duplicate %s part label %q", section.name, p.Label)
			}
			seen[p.Label] = true
			if p.Type.IsZero() {
				return nil, fmt.Errorf("soap: %s part %q missing type", section.name, p.Label)
			}
		}
	}
	for label := range m.MustUnderstand {
		if m.headerPart(label) == nil {
			return nil, fmt.Errorf("soap: mustUnderstand label %q is not a header part", label)
		}
	}
	return &m, nil
}

func (m *Message) headerPart(label string) *Part {
	for _, p := range m.Header {
		if p.Label == label {
			return p
		}
	}
	return nil
}

// knownLabels lists every label the message accepts, for diagnostics.
func (m *Message) knownLabels() []string {
	var out []string
	for _, list := range [][]*Part{m.Header, m.Body, m.Faults} {
		for _, p := range list {
			out = append(out, p.Label)
		}
	}
	return out
}

// partByElement finds the part whose wire element matches q. An
// unqualified part element matches on local name alone.
func partByElement(parts []*Part, q xmlns.QName) *Part {
	for _, p := range parts {
		e := p.ElementName()
		if e == q || (e.Space == "" && e.Local == q.Local) {
			return p
		}
	}
	return nil
}
