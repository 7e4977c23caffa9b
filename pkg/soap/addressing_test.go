package soap

import (
	"strings"
	"testing"

	"github.com/xmlwire/soapmsg/pkg/xmlns"
	"github.com/xmlwire/soapmsg/pkg/xsd"
)

func TestAddressingHookStampsHeaders(t *testing.T) {
	hook := &AddressingHook{Action: "urn:quotes:getPrice", To: "https://quotes.example/soap"}
	c := NewCodec(xsd.Builtin(), []Hook{hook}, Options{})
	doc, err := c.Encode(priceMessage(t), map[string]any{"Price": 1.0})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	header := childByTag(t, doc.Root(), "Header")
	if got := header.SelectAttrValue("xmlns:wsa", ""); got != AddressingNamespace {
		t.Errorf("wsa declaration = %q", got)
	}

	mid := childByTag(t, header, "MessageID")
	if !strings.HasPrefix(mid.Text(), "urn:uuid:") {
		t.Errorf("MessageID = %q", mid.Text())
	}
	if childByTag(t, header, "Action").Text() != "urn:quotes:getPrice" {
		t.Error("Action header lost")
	}
	if childByTag(t, header, "To").Text() != "https://quotes.example/soap" {
		t.Error("To header lost")
	}

	// The header must come before the Body.
	kids := doc.Root().ChildElements()
	if len(kids) < 2 || kids[0].Tag != "Header" || kids[1].Tag != "Body" {
		t.Errorf("envelope children = %v", kids)
	}
}

func TestAddressingMessageIDsDiffer(t *testing.T) {
	hook := &AddressingHook{}
	c := NewCodec(xsd.Builtin(), []Hook{hook}, Options{})
	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		doc, err := c.Encode(priceMessage(t), map[string]any{"Price": 1.0})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		mid := childByTag(t, childByTag(t, doc.Root(), "Header"), "MessageID").Text()
		if ids[mid] {
			t.Fatalf("duplicate MessageID %q", mid)
		}
		ids[mid] = true
	}
}

func TestAddressingHookLiftsIncomingHeaders(t *testing.T) {
	hook := &AddressingHook{}
	c := NewCodec(xsd.Builtin(), []Hook{hook}, Options{})
	doc := parseDoc(t, `<soapenv:Envelope`+envNS+` xmlns:wsa="`+AddressingNamespace+`">
		<soapenv:Header>
			<wsa:Action>urn:quotes:getPriceResponse</wsa:Action>
			<wsa:RelatesTo>urn:uuid:123</wsa:RelatesTo>
		</soapenv:Header>
		<soapenv:Body><Price>1</Price></soapenv:Body>
	</soapenv:Envelope>`)
	got, _, err := c.Decode(priceMessage(t), doc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got["wsa:Action"] != "urn:quotes:getPriceResponse" {
		t.Errorf("wsa:Action = %#v", got["wsa:Action"])
	}
	if got["wsa:RelatesTo"] != "urn:uuid:123" {
		t.Errorf("wsa:RelatesTo = %#v", got["wsa:RelatesTo"])
	}
}

func TestMustUnderstandFaultValue(t *testing.T) {
	f := MustUnderstandFault(xmlns.Name("urn:x", "auth"))
	if f.Code != xmlns.PrefixEnvelope+":MustUnderstand" {
		t.Errorf("code = %q", f.Code)
	}
	if !strings.Contains(f.Detail, "auth") {
		t.Errorf("detail = %q", f.Detail)
	}
}
