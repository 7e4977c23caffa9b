package soap

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/logging"
	"github.com/xmlwire/soapmsg/pkg/soapenc"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
	"github.com/xmlwire/soapmsg/pkg/xsd"
)

// Options configure a Codec.
type Options struct {
	// Simplify collapses rpc-encoded decode trees into an ergonomic shape.
	Simplify bool

	// Logger receives trace output for decode soft failures. Defaults to a
	// no-op logger.
	Logger *slog.Logger
}

// Codec encodes and decodes SOAP 1.1 envelopes for compiled Messages. One
// Codec is safe for concurrent use across calls, provided the resolver's
// readers and writers are side-effect-free.
type Codec struct {
	resolver xsd.Resolver
	hooks    []Hook
	simplify bool
	logger   *slog.Logger
}

// NewCodec builds a codec. Hooks are invoked in the given order on every
// encode and decode.
func NewCodec(resolver xsd.Resolver, hooks []Hook, opts Options) *Codec {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Codec{
		resolver: resolver,
		hooks:    hooks,
		simplify: opts.Simplify,
		logger:   opts.Logger,
	}
}

// initMessage runs OnMessageInit hooks once per message.
func (c *Codec) initMessage(msg *Message) error {
	msg.initOnce.Do(func() {
		for _, h := range c.hooks {
			if err := h.OnMessageInit(msg); err != nil {
				msg.initErr = err
				return
			}
		}
	})
	return msg.initErr
}

// Encode builds an envelope document from a flat label-to-value mapping.
// Header is emitted only when a header part is populated; Body is always
// emitted. Fault part values render as children of the Fault detail element;
// when no *Fault is supplied under the reserved Fault label alongside them,
// a Server-coded fault is synthesized to carry the detail. Any supplied
// label that matches no configured part is a hard error.
func (c *Codec) Encode(msg *Message, values map[string]any) (*etree.Document, error) {
	if msg.Style == StyleRPCEncoded {
		return nil, errors.New("soap: rpc-encoded body encoding is not supported")
	}
	if err := c.initMessage(msg); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	enc := soapenc.NewEncoder(doc, c.resolver, soapenc.EncodeOptions{Logger: c.logger})
	prefixes := enc.Prefixes()

	env := doc.CreateElement(xmlns.PrefixEnvelope + ":Envelope")

	remaining := make(map[string]any, len(values))
	for k, v := range values {
		remaining[k] = v
	}

	var headerChildren []*etree.Element
	for _, p := range msg.Header {
		v, ok := remaining[p.Label]
		if !ok {
			continue
		}
		delete(remaining, p.Label)
		el, err := c.encodePart(doc, prefixes, p, v)
		if err != nil {
			return nil, err
		}
		if msg.MustUnderstand[p.Label] {
			el.CreateAttr(xmlns.PrefixEnvelope+":mustUnderstand", "1")
		}
		if actor := msg.Destination[p.Label]; actor != "" {
			el.CreateAttr(xmlns.PrefixEnvelope+":actor", actor)
		}
		headerChildren = append(headerChildren, el)
	}

	var header *etree.Element
	if len(headerChildren) > 0 {
		header = env.CreateElement(xmlns.PrefixEnvelope + ":Header")
		for _, el := range headerChildren {
			header.AddChild(el)
		}
	}
	body := env.CreateElement(xmlns.PrefixEnvelope + ":Body")

	var fault *Fault
	if fv, ok := remaining[FaultLabel]; ok {
		delete(remaining, FaultLabel)
		f, ok := fv.(*Fault)
		if !ok {
			return nil, fmt.Errorf("soap: %s value must be *Fault, got %T", FaultLabel, fv)
		}
		fault = f
	}

	var detailChildren []*etree.Element
	for _, p := range msg.Faults {
		if p.Label == FaultLabel {
			continue
		}
		v, ok := remaining[p.Label]
		if !ok {
			continue
		}
		delete(remaining, p.Label)
		el, err := c.encodePart(doc, prefixes, p, v)
		if err != nil {
			return nil, err
		}
		detailChildren = append(detailChildren, el)
	}
	if fault == nil && len(detailChildren) > 0 {
		fault = &Fault{Code: xmlns.PrefixEnvelope + ":Server"}
	}

	var faultChildren []*etree.Element
	if fault != nil {
		faultChildren = append(faultChildren, buildFault(fault, detailChildren))
	}

	var bodyChildren []*etree.Element
	for _, p := range msg.Body {
		if p.Label == FaultLabel {
			continue
		}
		v, ok := remaining[p.Label]
		if !ok {
			continue
		}
		delete(remaining, p.Label)
		el, err := c.encodePart(doc, prefixes, p, v)
		if err != nil {
			return nil, err
		}
		bodyChildren = append(bodyChildren, el)
	}

	// Single-parameter-style compatibility: with exactly two body labels
	// configured and neither populated, the caller passed bare fields
	// instead of a nested structure; fold the residual mapping into the
	// first label's element.
	if len(bodyChildren) == 0 && len(faultChildren) == 0 && len(remaining) > 0 {
		if labels := nonFaultLabels(msg.Body); len(labels) == 2 {
			p := labels[0]
			el, err := c.encodePart(doc, prefixes, p, remaining)
			if err != nil {
				return nil, err
			}
			bodyChildren = append(bodyChildren, el)
			remaining = nil
		}
	}

	if len(remaining) > 0 {
		unused := make([]string, 0, len(remaining))
		for k := range remaining {
			unused = append(unused, k)
		}
		sort.Strings(unused)
		c.logger.Warn("call data not used", "unused", unused, "known", msg.knownLabels())
		return nil, fmt.Errorf("soap: call data not used: %s", strings.Join(unused, ", "))
	}

	switch msg.Style {
	case StyleRPCLiteral:
		wrapper := body.CreateElement(prefixes.Qualify(msg.Operation))
		for _, el := range bodyChildren {
			wrapper.AddChild(el)
		}
	default:
		for _, el := range bodyChildren {
			body.AddChild(el)
		}
	}
	// Faults are siblings of the rpc wrapper, never inside it.
	for _, el := range faultChildren {
		body.AddChild(el)
	}

	ctx := &EncodeContext{Message: msg, Document: doc, Envelope: env, Body: body, header: header, Prefixes: prefixes}
	for _, h := range c.hooks {
		if err := h.BeforeEncode(ctx); err != nil {
			return nil, fmt.Errorf("soap: encode hook: %w", err)
		}
	}

	enc.DeclareNamespaces(env)
	return doc, nil
}

// encodePart serializes one part value and renames the produced element to
// the part's wire name.
func (c *Codec) encodePart(doc *etree.Document, prefixes *xmlns.Prefixes, p *Part, v any) (*etree.Element, error) {
	write, err := p.Writer(c.resolver)
	if err != nil {
		return nil, fmt.Errorf("soap: part %q: %w", p.Label, err)
	}
	el, err := write(doc, v)
	if err != nil {
		return nil, fmt.Errorf("soap: part %q: %w", p.Label, err)
	}
	name := p.ElementName()
	el.Tag = name.Local
	if name.Space != "" && name.Space != xmlns.NoNamespace {
		el.Space = prefixes.For(name.Space)
	}
	return el, nil
}

func nonFaultLabels(parts []*Part) []*Part {
	var out []*Part
	for _, p := range parts {
		if p.Label != FaultLabel {
			out = append(out, p)
		}
	}
	return out
}

// Decode parses an envelope document into a flat label-to-value mapping
// covering header and body parts. Unrecognized elements are skipped with a
// trace note unless they demand understanding, in which case a
// MustUnderstandFault value takes their place. The second result carries
// decode warnings; it is never the cause of a failure.
func (c *Codec) Decode(msg *Message, doc *etree.Document) (map[string]any, []string, error) {
	if err := c.initMessage(msg); err != nil {
		return nil, nil, err
	}
	env := doc.Root()
	if env == nil {
		return nil, nil, errors.New("soap: empty document")
	}
	if env.Tag != "Envelope" {
		return nil, nil, fmt.Errorf("soap: root element must be Envelope, got %s", env.Tag)
	}
	if ns := xmlns.ElementName(env).Space; ns != "" && ns != xmlns.SOAPEnvelope {
		return nil, nil, fmt.Errorf("soap: unsupported envelope namespace %s", ns)
	}

	var header, body *etree.Element
	for _, child := range env.ChildElements() {
		switch child.Tag {
		case "Header":
			header = child
		case "Body":
			body = child
		}
	}
	if body == nil {
		return nil, nil, errors.New("soap: envelope has no Body")
	}

	result := make(map[string]any)
	var warnings []string

	if header != nil {
		w, err := c.decodeSection(msg, msg.Header, header.ChildElements(), result, true)
		warnings = append(warnings, w...)
		if err != nil {
			return nil, warnings, err
		}
	}

	w, err := c.decodeBody(msg, body, result)
	warnings = append(warnings, w...)
	if err != nil {
		return nil, warnings, err
	}

	ctx := &DecodeContext{Message: msg, Envelope: env, Values: result}
	for _, h := range c.hooks {
		if err := h.AfterDecode(ctx); err != nil {
			return nil, warnings, fmt.Errorf("soap: decode hook: %w", err)
		}
	}
	return result, warnings, nil
}

// decodeSection runs configured part readers over sibling elements, keyed
// by the XML element's qualified name. mustUnderstand handling applies only
// to header sections: SOAP 1.1 defines the attribute for header entries, so
// an unrecognized body element is always a plain skip.
func (c *Codec) decodeSection(msg *Message, parts []*Part, els []*etree.Element, result map[string]any, isHeader bool) ([]string, error) {
	var warnings []string
	for _, el := range els {
		q := xmlns.ElementName(el)
		p := partByElement(parts, q)
		if p == nil {
			if isHeader && demandsUnderstanding(el) {
				warnings = append(warnings, fmt.Sprintf("must-understand header %s not understood", q))
				result[el.Tag] = MustUnderstandFault(q)
				continue
			}
			c.logger.Debug("skipping unrecognized element", "element", q.String())
			continue
		}
		read, err := p.Reader(c.resolver)
		if err != nil {
			return warnings, fmt.Errorf("soap: part %q: %w", p.Label, err)
		}
		v, err := read(el)
		if err != nil {
			return warnings, fmt.Errorf("soap: part %q: %w", p.Label, err)
		}
		result[p.Label] = v
	}
	return warnings, nil
}

// decodeBody dispatches the body per message style.
func (c *Codec) decodeBody(msg *Message, body *etree.Element, result map[string]any) ([]string, error) {
	children := body.ChildElements()

	// A Fault child always wins, regardless of style. Its detail children run
	// through the configured fault part readers.
	var warnings []string
	rest := children[:0:0]
	for _, el := range children {
		if el.Tag == FaultLabel && xmlns.ElementName(el).Space == xmlns.SOAPEnvelope {
			result[FaultLabel] = parseFault(el)
			for _, fc := range el.ChildElements() {
				if fc.Tag != "detail" {
					continue
				}
				w, err := c.decodeSection(msg, msg.Faults, fc.ChildElements(), result, false)
				warnings = append(warnings, w...)
				if err != nil {
					return warnings, err
				}
			}
			continue
		}
		rest = append(rest, el)
	}

	switch msg.Style {
	case StyleDocument:
		w, err := c.decodeSection(msg, msg.Body, rest, result, false)
		return append(warnings, w...), err

	case StyleRPCLiteral, StyleRPCEncoded:
		op := c.findOperation(msg, rest)
		if op == nil {
			return warnings, fmt.Errorf("soap: body has no %s element", msg.Operation.Local)
		}
		if msg.Style == StyleRPCEncoded {
			w, err := c.decodeEncodedBody(op, result)
			return append(warnings, w...), err
		}
		for _, child := range op.ChildElements() {
			q := xmlns.ElementName(child)
			p := partByElement(msg.Body, q)
			if p == nil {
				// No reader matches: the raw node passes through so the
				// caller loses nothing.
				c.logger.Debug("passing through unrecognized rpc parameter", "element", q.String())
				result[q.String()] = child
				continue
			}
			read, err := p.Reader(c.resolver)
			if err != nil {
				return warnings, fmt.Errorf("soap: part %q: %w", p.Label, err)
			}
			v, err := read(child)
			if err != nil {
				return warnings, fmt.Errorf("soap: part %q: %w", p.Label, err)
			}
			result[p.Label] = v
		}
		return warnings, nil
	}
	return nil, fmt.Errorf("soap: unsupported style %s", msg.Style)
}

// findOperation locates the rpc wrapper element, preferring an exact
// qualified-name match and falling back to the first element.
func (c *Codec) findOperation(msg *Message, els []*etree.Element) *etree.Element {
	for _, el := range els {
		q := xmlns.ElementName(el)
		if q.Local == msg.Operation.Local && (msg.Operation.Space == "" || q.Space == msg.Operation.Space) {
			return el
		}
	}
	if len(els) > 0 {
		return els[0]
	}
	return nil
}

// decodeEncodedBody hands an rpc-encoded operation's children to the
// SOAP-ENC inference decoder and merges the folded result.
func (c *Codec) decodeEncodedBody(op *etree.Element, result map[string]any) ([]string, error) {
	dec := soapenc.NewDecoder(c.resolver, soapenc.DecodeOptions{Simplify: c.simplify, Logger: c.logger})
	res, err := dec.Decode(op.ChildElements())
	if err != nil {
		return nil, err
	}
	if res.Value.Kind == soapenc.KindMapping {
		for k, v := range res.Value.Fields {
			result[k] = v
		}
	} else {
		result[op.Tag] = res.Value
	}
	return res.Warnings, nil
}

// demandsUnderstanding reports a SOAP 1.1 mustUnderstand marker.
func demandsUnderstanding(el *etree.Element) bool {
	v, ok := xmlns.Attr(el, xmlns.SOAPEnvelope, "mustUnderstand")
	return ok && (v == "1" || v == "true")
}
