package soap

import (
	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/internal/id"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

// AddressingNamespace is the 2004/08 WS-Addressing namespace most SOAP 1.1
// stacks speak.
const AddressingNamespace = "http://schemas.xmlsoap.org/ws/2004/08/addressing"

const addressingPrefix = "wsa"

// AddressingHook stamps WS-Addressing headers on outgoing envelopes and
// lifts them off incoming ones. Each encoded message gets a fresh
// urn:uuid MessageID.
type AddressingHook struct {
	NopHook

	// Action is the wsa:Action URI. Empty means no Action header.
	Action string

	// To is the wsa:To endpoint URI. Empty means no To header.
	To string
}

// BeforeEncode implements Hook.
func (h *AddressingHook) BeforeEncode(ctx *EncodeContext) error {
	hdr := ctx.EnsureHeader()
	hdr.CreateAttr("xmlns:"+addressingPrefix, AddressingNamespace)

	mid := hdr.CreateElement(addressingPrefix + ":MessageID")
	mid.SetText("urn:uuid:" + id.UUID())

	if h.Action != "" {
		hdr.CreateElement(addressingPrefix + ":Action").SetText(h.Action)
	}
	if h.To != "" {
		hdr.CreateElement(addressingPrefix + ":To").SetText(h.To)
	}
	return nil
}

// AfterDecode implements Hook. Addressing headers are surfaced under their
// prefixed names so they never collide with part labels.
func (h *AddressingHook) AfterDecode(ctx *DecodeContext) error {
	var header *etree.Element
	for _, child := range ctx.Envelope.ChildElements() {
		if child.Tag == "Header" {
			header = child
			break
		}
	}
	if header == nil {
		return nil
	}
	for _, child := range header.ChildElements() {
		if q := xmlns.ElementName(child); q.Space == AddressingNamespace {
			ctx.Values[addressingPrefix+":"+q.Local] = child.Text()
		}
	}
	return nil
}
