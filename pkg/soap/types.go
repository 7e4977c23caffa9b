package soap

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

// Style selects the message convention for a Message.
type Style int

const (
	// StyleDocument maps body parts directly to schema elements.
	StyleDocument Style = iota
	// StyleRPCLiteral wraps body parts in one procedure-named element.
	StyleRPCLiteral
	// StyleRPCEncoded additionally uses SOAP-ENC typing for untyped data.
	// It is decode-only; encoding it is always rejected.
	StyleRPCEncoded
)

// String implements fmt.Stringer.
func (s Style) String() string {
	switch s {
	case StyleDocument:
		return "document"
	case StyleRPCLiteral:
		return "rpc-literal"
	case StyleRPCEncoded:
		return "rpc-encoded"
	}
	return fmt.Sprintf("style(%d)", int(s))
}

// ParseStyle parses a style name as it appears in configuration files.
// "rpc" is accepted as an alias for rpc-literal.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "document", "":
		return StyleDocument, nil
	case "rpc", "rpc-literal":
		return StyleRPCLiteral, nil
	case "rpc-encoded":
		return StyleRPCEncoded, nil
	}
	return 0, fmt.Errorf("soap: unsupported style %q", s)
}

// FaultLabel is the reserved part label for SOAP faults.
const FaultLabel = "Fault"

// Fault is a SOAP 1.1 fault payload.
type Fault struct {
	Code   string
	String string
	Actor  string
	Detail string
}

// Error implements the error interface so a decoded fault can travel as a
// Go error.
func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	return f.String
}

// MustUnderstandFault is the fault value emitted in place of an
// unrecognized header element that carried a mustUnderstand marker.
func MustUnderstandFault(el xmlns.QName) *Fault {
	return &Fault{
		Code:   xmlns.PrefixEnvelope + ":MustUnderstand",
		String: "SOAP Must Understand Error",
		Detail: el.String(),
	}
}

// buildFault renders a SOAP 1.1 Fault element. The faultcode, faultstring,
// faultactor, and detail children are unqualified per the SOAP 1.1 schema.
// detail carries the Detail text plus any encoded fault part elements.
func buildFault(f *Fault, detail []*etree.Element) *etree.Element {
	el := etree.NewElement(xmlns.PrefixEnvelope + ":" + FaultLabel)
	el.CreateElement("faultcode").SetText(f.Code)
	el.CreateElement("faultstring").SetText(f.String)
	if f.Actor != "" {
		el.CreateElement("faultactor").SetText(f.Actor)
	}
	if f.Detail != "" || len(detail) > 0 {
		d := el.CreateElement("detail")
		if f.Detail != "" {
			d.SetText(f.Detail)
		}
		for _, child := range detail {
			d.AddChild(child)
		}
	}
	return el
}

// parseFault extracts a Fault from a soapenv:Fault element.
func parseFault(el *etree.Element) *Fault {
	f := &Fault{}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "faultcode":
			f.Code = child.Text()
		case "faultstring":
			f.String = child.Text()
		case "faultactor":
			f.Actor = child.Text()
		case "detail":
			f.Detail = child.Text()
		}
	}
	return f
}
