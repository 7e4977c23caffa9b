package xmlns

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Well-known namespace URIs.
const (
	SOAPEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	SOAPEncoding = "http://schemas.xmlsoap.org/soap/encoding/"
	XSI          = "http://www.w3.org/2001/XMLSchema-instance"
	Schema2001   = "http://www.w3.org/2001/XMLSchema"
	Schema1999   = "http://www.w3.org/1999/XMLSchema"
	XMLNamespace = "http://www.w3.org/XML/1998/namespace"
)

// Canonical prefixes used when serializing.
const (
	PrefixEnvelope = "soapenv"
	PrefixEncoding = "soapenc"
	PrefixXSI      = "xsi"
	PrefixSchema   = "xsd"
)

// NoNamespace is an escape marker: a type or element whose Space is set to
// this value is serialized with a true empty namespace instead of picking up
// a default.
const NoNamespace = "\x00none"

// QName identifies an XML element or type by namespace URI and local name.
type QName struct {
	Space string
	Local string
}

// Name builds a QName.
func Name(space, local string) QName {
	return QName{Space: space, Local: local}
}

// IsZero reports whether q has neither namespace nor local name.
func (q QName) IsZero() bool {
	return q.Space == "" && q.Local == ""
}

// String renders the QName in Clark notation for diagnostics.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// LookupPrefix resolves a namespace prefix against the xmlns declarations in
// scope at el, walking toward the document root. The empty prefix resolves
// the default namespace. The second result is false when no declaration is
// found.
func LookupPrefix(el *etree.Element, prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" {
				if a.Space == "" && a.Key == "xmlns" {
					return a.Value, true
				}
			} else if a.Space == "xmlns" && a.Key == prefix {
				return a.Value, true
			}
		}
	}
	return "", false
}

// ParseQName resolves a possibly-prefixed name such as "xsd:int" against the
// namespace scope of el. A name with no colon gets the empty namespace;
// attribute values like xsi:type and arrayType never pick up the default
// namespace declaration.
func ParseQName(text string, scope *etree.Element) (QName, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return QName{}, fmt.Errorf("empty qualified name")
	}
	i := strings.Index(text, ":")
	if i < 0 {
		return QName{Local: text}, nil
	}
	prefix, local := text[:i], text[i+1:]
	if local == "" {
		return QName{}, fmt.Errorf("malformed qualified name %q", text)
	}
	uri, ok := LookupPrefix(scope, prefix)
	if !ok {
		return QName{}, fmt.Errorf("undeclared namespace prefix %q in %q", prefix, text)
	}
	return QName{Space: uri, Local: local}, nil
}

// ElementName returns the resolved QName of el itself.
func ElementName(el *etree.Element) QName {
	uri, _ := LookupPrefix(el, el.Space)
	return QName{Space: uri, Local: el.Tag}
}

// Attr looks up an attribute on el by namespace URI and local name,
// resolving each attribute's prefix in scope. An unprefixed attribute has
// the empty namespace (attributes never inherit the default namespace).
func Attr(el *etree.Element, space, local string) (string, bool) {
	for _, a := range el.Attr {
		if a.Key != local || a.Space == "xmlns" {
			continue
		}
		if a.Space == "" {
			if space == "" {
				return a.Value, true
			}
			continue
		}
		if uri, ok := LookupPrefix(el, a.Space); ok && uri == space {
			return a.Value, true
		}
	}
	return "", false
}

// IsSchemaNamespace reports whether uri is one of the XML Schema namespaces
// this package understands.
func IsSchemaNamespace(uri string) bool {
	return uri == Schema2001 || uri == Schema1999
}
