package soap

import (
	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

// Hook extends the codec with protocol add-on behavior. Hooks are passed to
// NewCodec as an explicit ordered list and invoked in that order.
type Hook interface {
	// OnMessageInit runs once per compiled message, before its first use.
	OnMessageInit(msg *Message) error

	// BeforeEncode runs after the envelope is fully built, before
	// namespace declarations are finalized.
	BeforeEncode(ctx *EncodeContext) error

	// AfterDecode runs after header and body parts are merged into the
	// result mapping.
	AfterDecode(ctx *DecodeContext) error
}

// EncodeContext is the mutable state handed to BeforeEncode hooks.
type EncodeContext struct {
	Message  *Message
	Document *etree.Document
	Envelope *etree.Element
	Body     *etree.Element
	Prefixes *xmlns.Prefixes

	header *etree.Element
}

// Header returns the Header element, or nil when no header part was
// populated.
func (ctx *EncodeContext) Header() *etree.Element {
	return ctx.header
}

// EnsureHeader returns the Header element, creating it as the Envelope's
// first child if the encode produced none.
func (ctx *EncodeContext) EnsureHeader() *etree.Element {
	if ctx.header != nil {
		return ctx.header
	}
	ctx.header = etree.NewElement(xmlns.PrefixEnvelope + ":Header")
	ctx.Envelope.InsertChildAt(0, ctx.header)
	return ctx.header
}

// DecodeContext is the state handed to AfterDecode hooks. Hooks may add
// derived values to Values.
type DecodeContext struct {
	Message  *Message
	Envelope *etree.Element
	Values   map[string]any
}

// NopHook is a Hook with no behavior, for embedding in hooks that only
// implement part of the interface.
type NopHook struct{}

// OnMessageInit implements Hook.
func (NopHook) OnMessageInit(*Message) error { return nil }

// BeforeEncode implements Hook.
func (NopHook) BeforeEncode(*EncodeContext) error { return nil }

// AfterDecode implements Hook.
func (NopHook) AfterDecode(*DecodeContext) error { return nil }
