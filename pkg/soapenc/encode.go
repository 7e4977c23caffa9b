package soapenc

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/internal/id"
	"github.com/xmlwire/soapmsg/pkg/logging"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
	"github.com/xmlwire/soapmsg/pkg/xsd"
)

// EncodeOptions configure an Encoder. The zero value is usable.
type EncodeOptions struct {
	// IDs generates href/id values for multi-reference encoding. A fresh
	// generator is created when nil.
	IDs *id.Generator

	// Prefixes allocates namespace prefixes. A fresh allocator seeded with
	// the canonical SOAP prefixes is created when nil.
	Prefixes *xmlns.Prefixes

	// Logger receives encode trace output. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Encoder builds SOAP-ENC encoded values as etree elements. One Encoder
// serves one document; it owns the id generator and prefix allocator for
// that encode session, so independent sessions never share id namespaces.
type Encoder struct {
	doc      *etree.Document
	resolver xsd.Resolver
	prefixes *xmlns.Prefixes
	ids      *id.Generator
	logger   *slog.Logger
}

// NewEncoder returns an encoder writing into doc.
func NewEncoder(doc *etree.Document, resolver xsd.Resolver, opts EncodeOptions) *Encoder {
	if opts.IDs == nil {
		opts.IDs = id.NewGenerator()
	}
	if opts.Prefixes == nil {
		opts.Prefixes = xmlns.NewPrefixes()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Encoder{
		doc:      doc,
		resolver: resolver,
		prefixes: opts.Prefixes,
		ids:      opts.IDs,
		logger:   opts.Logger,
	}
}

// Prefixes exposes the encoder's prefix allocator so envelope-level code can
// declare the namespaces used during encoding.
func (e *Encoder) Prefixes() *xmlns.Prefixes {
	return e.prefixes
}

// DeclareNamespaces writes xmlns declarations for every prefix allocated so
// far onto el, typically the envelope root.
func (e *Encoder) DeclareNamespaces(el *etree.Element) {
	e.prefixes.Each(func(uri, prefix string) {
		el.CreateAttr("xmlns:"+prefix, uri)
	})
}

// effectiveType applies the default-namespace rule: a type with no
// namespace gets the 2001 XML Schema namespace unless the caller passed the
// NoNamespace escape marker.
func effectiveType(t xmlns.QName) xmlns.QName {
	switch t.Space {
	case "":
		t.Space = xmlns.Schema2001
	case xmlns.NoNamespace:
		t.Space = ""
	}
	return t
}

// TypedScalar renders value through the schema-level writer for t and stamps
// an explicit xsi:type attribute naming the type.
func (e *Encoder) TypedScalar(t xmlns.QName, value any) (*etree.Element, error) {
	t = effectiveType(t)
	write, err := e.resolver.Writer(t, xsd.WriterOptions{IsType: true})
	if err != nil {
		return nil, fmt.Errorf("soapenc: no writer for type %s: %w", t, err)
	}
	el, err := write(e.doc, value)
	if err != nil {
		return nil, fmt.Errorf("soapenc: encoding %s: %w", t, err)
	}
	e.setAttr(el, xmlns.XSI, "type", e.prefixes.Qualify(t))
	return el, nil
}

// Struct produces an element named after t with the given pre-built child
// elements attached. No value processing happens here.
func (e *Encoder) Struct(t xmlns.QName, children ...*etree.Element) *etree.Element {
	el := etree.NewElement(e.prefixes.Qualify(t))
	for _, c := range children {
		el.AddChild(c)
	}
	return el
}

// Reference returns a new element named name that points at target via
// href. When target has no id attribute one is assigned, preferring
// preferredID over a generated one. Target content is never touched.
func (e *Encoder) Reference(name xmlns.QName, target *etree.Element, preferredID string) *etree.Element {
	ref := target.SelectAttrValue("id", "")
	if ref == "" {
		ref = preferredID
		if ref == "" {
			ref = e.ids.Next()
		}
		target.CreateAttr("id", ref)
	}
	el := etree.NewElement(e.prefixes.Qualify(name))
	el.CreateAttr("href", "#"+ref)
	return el
}

// Nil produces an xsi:nil element named name, with an xsi:type attribute
// when t is non-nil.
func (e *Encoder) Nil(t *xmlns.QName, name xmlns.QName) *etree.Element {
	el := etree.NewElement(e.prefixes.Qualify(name))
	e.setAttr(el, xmlns.XSI, "nil", "true")
	if t != nil {
		e.setAttr(el, xmlns.XSI, "type", e.prefixes.Qualify(effectiveType(*t)))
	}
	return el
}

// ArrayOptions tune one-dimensional array encoding.
type ArrayOptions struct {
	// Offset is the absolute index of the first entry of items.
	Offset int

	// Slice limits the encoded range to this many entries from Offset.
	// Zero or negative means through the end.
	Slice int

	// ID sets an id attribute on the array element.
	ID string

	// NestedMarker is prepended to the size group of the arrayType
	// attribute for arrays of arrays, e.g. "[]" or "[,]".
	NestedMarker string

	// OmitArrayType suppresses the arrayType attribute entirely.
	OmitArrayType bool
}

// Array builds a one-dimensional SOAP-ENC array from pre-built item
// elements. A nil entry in items is a hole; holes strictly inside the
// effective range make the array sparse, in which case each defined item is
// cloned and tagged with its absolute position. Dense arrays starting past
// index zero carry an offset attribute instead.
//
// A zero name produces the generic SOAP-ENC Array element.
func (e *Encoder) Array(name, itemType xmlns.QName, items []*etree.Element, o ArrayOptions) (*etree.Element, error) {
	if o.Offset < 0 {
		return nil, fmt.Errorf("soapenc: negative array offset %d", o.Offset)
	}
	min := o.Offset
	max := o.Offset + len(items)
	if o.Slice > 0 && o.Offset+o.Slice < max {
		max = o.Offset + o.Slice
	}
	at := func(i int) *etree.Element { return items[i-o.Offset] }

	// Trailing holes shrink the range; leading holes stay inside it and
	// make the array sparse.
	for max > min && at(max-1) == nil {
		max--
	}

	sparse := false
	for i := min; i < max; i++ {
		if at(i) == nil {
			sparse = true
			break
		}
	}

	el := e.newArrayElement(name)
	if o.ID != "" {
		el.CreateAttr("id", o.ID)
	}
	if !o.OmitArrayType {
		e.setAttr(el, xmlns.SOAPEncoding, "arrayType",
			formatArrayType(e.prefixes.Qualify(effectiveType(itemType)), o.NestedMarker, []int{max}))
	}

	if sparse {
		for i := min; i < max; i++ {
			if at(i) == nil {
				continue
			}
			item := at(i).Copy()
			e.setAttr(item, xmlns.SOAPEncoding, "position", formatBracketedInts([]int{i}))
			el.AddChild(item)
		}
		return el, nil
	}

	if min > 0 {
		e.setAttr(el, xmlns.SOAPEncoding, "offset", formatBracketedInts([]int{min}))
	}
	for i := min; i < max; i++ {
		el.AddChild(at(i))
	}
	return el, nil
}

// MultidimOptions tune multi-dimensional array encoding.
type MultidimOptions struct {
	// ID sets an id attribute on the array element.
	ID string

	// OmitArrayType suppresses the arrayType attribute entirely.
	OmitArrayType bool
}

// MultidimArray builds a multi-dimensional SOAP-ENC array. rows is a nested
// structure of []any whose leaves are *etree.Element or nil; dimensions are
// inferred from the first row at each nesting level. Rows longer than the
// first row are rejected, as is any leaf that is neither nil nor an
// element. If any slot is undefined the array is encoded sparse, with each
// defined leaf tagged by its full coordinate position; otherwise leaves are
// emitted in row-major order.
func (e *Encoder) MultidimArray(name, itemType xmlns.QName, rows []any, o MultidimOptions) (*etree.Element, error) {
	dims := inferDims(rows)
	var leaves []multidimLeaf
	holes := false
	if err := collectLeaves(rows, dims, nil, &leaves, &holes); err != nil {
		return nil, err
	}
	if len(leaves) < product(dims) {
		holes = true
	}

	el := e.newArrayElement(name)
	if o.ID != "" {
		el.CreateAttr("id", o.ID)
	}
	if !o.OmitArrayType {
		e.setAttr(el, xmlns.SOAPEncoding, "arrayType",
			formatArrayType(e.prefixes.Qualify(effectiveType(itemType)), "", dims))
	}

	for _, leaf := range leaves {
		if holes {
			item := leaf.el.Copy()
			e.setAttr(item, xmlns.SOAPEncoding, "position", formatBracketedInts(leaf.coords))
			el.AddChild(item)
		} else {
			el.AddChild(leaf.el)
		}
	}
	return el, nil
}

type multidimLeaf struct {
	coords []int
	el     *etree.Element
}

// inferDims reads the dimension sizes off the first row at each nesting
// level.
func inferDims(rows []any) []int {
	dims := []int{len(rows)}
	v := rows
	for len(v) > 0 {
		inner, ok := v[0].([]any)
		if !ok {
			break
		}
		dims = append(dims, len(inner))
		v = inner
	}
	return dims
}

// collectLeaves validates the nested structure against dims and flattens
// defined leaves in row-major order. Short rows leave holes.
func collectLeaves(v []any, dims []int, coords []int, out *[]multidimLeaf, holes *bool) error {
	if len(v) > dims[0] {
		return fmt.Errorf("soapenc: dimension larger than size of first row at %s",
			coordPath(coords))
	}
	if len(v) < dims[0] {
		*holes = true
	}
	for i, item := range v {
		here := append(append([]int{}, coords...), i)
		if len(dims) > 1 {
			inner, ok := item.([]any)
			if !ok {
				if item == nil {
					*holes = true
					continue
				}
				return fmt.Errorf("soapenc: expected nested array at %s, got %T",
					coordPath(here), item)
			}
			if err := collectLeaves(inner, dims[1:], here, out, holes); err != nil {
				return err
			}
			continue
		}
		if item == nil {
			*holes = true
			continue
		}
		el, ok := item.(*etree.Element)
		if !ok {
			return fmt.Errorf("soapenc: expected element or nil at %s, got %T",
				coordPath(here), item)
		}
		*out = append(*out, multidimLeaf{coords: here, el: el})
	}
	return nil
}

func coordPath(coords []int) string {
	if len(coords) == 0 {
		return "[]"
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = fmt.Sprintf("[%d]", c)
	}
	return strings.Join(parts, "")
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// newArrayElement names an array element, defaulting to SOAP-ENC Array.
func (e *Encoder) newArrayElement(name xmlns.QName) *etree.Element {
	if name.IsZero() {
		name = xmlns.Name(xmlns.SOAPEncoding, "Array")
	}
	return etree.NewElement(e.prefixes.Qualify(name))
}

// setAttr writes a namespace-qualified attribute using the session prefix
// for its namespace.
func (e *Encoder) setAttr(el *etree.Element, space, local, value string) {
	el.CreateAttr(e.prefixes.For(space)+":"+local, value)
}
