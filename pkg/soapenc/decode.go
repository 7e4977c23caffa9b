package soapenc

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/logging"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
	"github.com/xmlwire/soapmsg/pkg/xsd"
)

// DecodeOptions configure a Decoder.
type DecodeOptions struct {
	// Simplify collapses the verbose decode tree (single-key wrappers,
	// metadata keys, single-element sequences) into an ergonomic shape.
	Simplify bool

	// Logger receives decode trace output. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Decoder turns loosely-typed RPC-encoded XML into Node trees. It is safe
// for concurrent use; all per-call state lives on the stack of Decode.
type Decoder struct {
	resolver xsd.Resolver
	simplify bool
	logger   *slog.Logger
}

// NewDecoder returns a decoder using resolver for explicit-type dispatch.
func NewDecoder(resolver xsd.Resolver, opts DecodeOptions) *Decoder {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Decoder{resolver: resolver, simplify: opts.Simplify, logger: opts.Logger}
}

// Result is the outcome of one decode call. Warnings record fidelity loss
// (skipped content, dangling hrefs, reader fallbacks) that did not abort
// the decode.
type Result struct {
	Value    *Node
	Warnings []string
}

// Decode decodes the given sibling elements, resolves multi-reference
// links, optionally simplifies, and folds multiple root items into one
// mapping. Items whose source element is marked root="0" in the SOAP
// encoding namespace (multiRef carriers) are excluded from the fold.
func (d *Decoder) Decode(els []*etree.Element) (*Result, error) {
	s := &decodeState{Decoder: d}

	type topItem struct {
		src  *etree.Element
		node *Node
	}
	var items []topItem
	for _, el := range els {
		n, err := s.dec(el, xmlns.QName{}, 0)
		if err != nil {
			return nil, err
		}
		items = append(items, topItem{src: el, node: n})
	}

	// Multi-reference resolution runs over a synthetic root so splices into
	// top-level slots work like any other slot.
	root := NewSequence()
	for _, it := range items {
		root.Items = append(root.Items, it.node)
	}
	s.warnings = append(s.warnings, resolveRefs(root)...)
	for i := range items {
		items[i].node = root.Items[i]
	}

	// One memo across all top-level items keeps shared nodes shared.
	if d.simplify {
		memo := newSimplifyMemo()
		for i := range items {
			items[i].node = simplify(items[i].node, memo)
		}
	}

	switch len(items) {
	case 0:
		return &Result{Value: NewMapping(), Warnings: s.warnings}, nil
	case 1:
		return &Result{Value: items[0].node, Warnings: s.warnings}, nil
	}

	out := NewMapping()
	accumulated := make(map[string]bool)
	for _, it := range items {
		if v, ok := xmlns.Attr(it.src, xmlns.SOAPEncoding, "root"); ok && v == "0" {
			continue
		}
		if it.node.Kind != KindMapping {
			s.warnf("top-level item %s is not a mapping, keyed under its element name", it.src.Tag)
			s.accumulate(out, it.src.Tag, it.node, accumulated)
			continue
		}
		for k, v := range it.node.Fields {
			s.accumulate(out, k, v, accumulated)
		}
	}
	return &Result{Value: out, Warnings: s.warnings}, nil
}

// decodeState carries the per-call warning list.
type decodeState struct {
	*Decoder
	warnings []string
}

func (s *decodeState) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.warnings = append(s.warnings, msg)
	s.logger.Warn(msg)
}

func (s *decodeState) tracef(format string, args ...any) {
	s.logger.Debug(fmt.Sprintf(format, args...))
}

// accumulate merges v under key k, turning repeated keys into a sequence
// instead of overwriting. Only sequences created by accumulation itself are
// appended to; a decoded array value gets wrapped so array-of-array shape
// survives.
func (s *decodeState) accumulate(m *Node, k string, v *Node, accumulated map[string]bool) {
	existing := m.Fields[k]
	switch {
	case existing == nil:
		m.Set(k, v)
	case accumulated[k]:
		existing.Items = append(existing.Items, v)
	default:
		m.Set(k, NewSequence(existing, v))
		accumulated[k] = true
	}
}

// dec decodes one element into a single-key mapping {name: value}. The
// element's local name is the key, except that the generic SOAP-ENC Array
// name maps to the reserved "_" key so later simplification can drop it.
// typeHint carries the caller-declared base type for untyped content;
// hintDims the dimension count split off a trailing [..] suffix.
func (s *decodeState) dec(el *etree.Element, typeHint xmlns.QName, hintDims int) (*Node, error) {
	key, val, err := s.decValue(el, typeHint, hintDims)
	if err != nil {
		return nil, err
	}
	return NewMapping().Set(key, val), nil
}

// decValue decodes the element's value and the key it should appear under.
func (s *decodeState) decValue(el *etree.Element, typeHint xmlns.QName, hintDims int) (string, *Node, error) {
	name := el.Tag
	elNS, _ := xmlns.LookupPrefix(el, el.Space)

	// References never decode their content.
	if href := el.SelectAttrValue("href", ""); href != "" {
		return name, NewMapping().Set(KeyHref, Scalar(href)), nil
	}

	// Nil markers decode to an annotated nil even when the declared type
	// has no reader.
	if v, ok := xmlns.Attr(el, xmlns.XSI, "nil"); ok && (v == "true" || v == "1") {
		val := NewMapping().Set(KeyValue, Scalar(nil))
		if xt, ok := xmlns.Attr(el, xmlns.XSI, "type"); ok {
			val.Set(KeyType, Scalar(xt))
		} else if !typeHint.IsZero() {
			val.Set(KeyType, Scalar(typeHint.Local))
		}
		val.Set(KeyName, Scalar(name))
		s.stampID(el, val)
		return name, val, nil
	}

	// Typed array unwrap, triggered purely by the arrayType attribute.
	if at, ok := s.arrayTypeAttr(el); ok {
		desc, err := ParseArrayType(at, el)
		if err == nil {
			seq, aerr := s.decodeArray(el, desc)
			if aerr == nil {
				key := name
				if name == "Array" {
					key = KeyValue
				}
				if idv := el.SelectAttrValue("id", ""); idv != "" {
					return key, NewMapping().Set(KeyValue, seq).Set(KeyID, Scalar(idv)), nil
				}
				return key, seq, nil
			}
			return "", nil, aerr
		}
		s.warnf("ignoring malformed arrayType on %s: %v", name, err)
	}

	if elNS != xmlns.SOAPEncoding {
		if xt, ok := xmlns.Attr(el, xmlns.XSI, "type"); ok {
			if val, ok := s.decTyped(el, xt); ok {
				return name, val, nil
			}
		}
		return s.decInferred(el, typeHint, hintDims)
	}

	// SOAP-ENC namespace: the generic Array element is detected
	// structurally, everything else is a scalar type name.
	if name == "Array" {
		return s.decInferred(el, typeHint, hintDims)
	}
	typ := xmlns.Name(xmlns.SOAPEncoding, name)
	read, err := s.resolver.Reader(typ, xsd.ReaderOptions{IsType: true})
	if err != nil {
		s.tracef("no reader for SOAP-ENC type %s, inferring", name)
		return s.decInferred(el, typeHint, hintDims)
	}
	v, err := read(el)
	if err != nil {
		s.warnf("reader for SOAP-ENC type %s failed: %v", name, err)
		return s.decInferred(el, typeHint, hintDims)
	}
	val := s.wrapValue(v)
	val.Set(KeyType, Scalar(name)).Set(KeyName, Scalar(name))
	s.stampID(el, val)
	return name, val, nil
}

// decTyped decodes via an explicit xsi:type. ok is false when the type
// cannot be resolved or read, in which case the caller falls back to
// inference.
func (s *decodeState) decTyped(el *etree.Element, typeText string) (*Node, bool) {
	typ, err := xmlns.ParseQName(typeText, el)
	if err != nil {
		s.tracef("unresolvable xsi:type %q on %s: %v", typeText, el.Tag, err)
		return nil, false
	}
	read, err := s.resolver.Reader(typ, xsd.ReaderOptions{IsType: true})
	if err != nil {
		s.tracef("no reader for xsi:type %q on %s, inferring", typeText, el.Tag)
		return nil, false
	}
	v, err := read(el)
	if err != nil {
		s.warnf("reader for %q failed on %s: %v", typeText, el.Tag, err)
		return nil, false
	}
	val := s.wrapValue(v)
	val.Set(KeyType, Scalar(typeText)).Set(KeyName, Scalar(el.Tag))
	s.stampID(el, val)
	return val, true
}

// decInferred handles elements with no usable declared type: structures
// decode their children as a sequence, leaves keep their text under "_".
func (s *decodeState) decInferred(el *etree.Element, typeHint xmlns.QName, hintDims int) (string, *Node, error) {
	name := el.Tag
	key := name
	if name == "Array" {
		key = KeyValue
	}

	// A caller-declared type may still have a reader even without xsi:type
	// on the wire.
	if !typeHint.IsZero() && hintDims == 0 {
		if read, err := s.resolver.Reader(typeHint, xsd.ReaderOptions{IsType: true}); err == nil {
			if v, err := read(el); err == nil && len(el.ChildElements()) == 0 {
				val := s.wrapValue(v)
				val.Set(KeyType, Scalar(typeHint.Local)).Set(KeyName, Scalar(name))
				s.stampID(el, val)
				return key, val, nil
			}
		}
	}

	children := el.ChildElements()
	if len(children) == 0 {
		val := NewMapping().Set(KeyValue, Scalar(el.Text()))
		if !typeHint.IsZero() {
			val.Set(KeyType, Scalar(typeHint.Local))
		}
		val.Set(KeyName, Scalar(name))
		s.stampID(el, val)
		return key, val, nil
	}

	seq := NewSequence()
	next := 0
	for _, child := range children {
		cn, err := s.dec(child, typeHint, 0)
		if err != nil {
			return "", nil, err
		}
		if pos, ok := xmlns.Attr(child, xmlns.SOAPEncoding, "position"); ok && hintDims > 0 {
			coords, perr := parseBracketedInts(pos)
			if perr != nil {
				s.warnf("malformed position %q on %s: %v", pos, child.Tag, perr)
				setSeqAt(seq, next, cn)
				next++
				continue
			}
			placeAt(seq, coords, cn)
			continue
		}
		setSeqAt(seq, next, cn)
		next++
	}
	if idv := el.SelectAttrValue("id", ""); idv != "" {
		return key, NewMapping().Set(KeyValue, seq).Set(KeyID, Scalar(idv)), nil
	}
	return key, seq, nil
}

// decodeArray unwraps a SOAP-ENC typed array per its descriptor.
func (s *decodeState) decodeArray(el *etree.Element, desc *ArrayDescriptor) (*Node, error) {
	children := el.ChildElements()

	if len(desc.Dims) <= 1 {
		start := 0
		if off, ok := xmlns.Attr(el, xmlns.SOAPEncoding, "offset"); ok {
			coords, err := parseBracketedInts(off)
			if err != nil || len(coords) != 1 {
				s.warnf("malformed offset %q on %s", off, el.Tag)
			} else {
				start = coords[0]
			}
		}
		seq := NewSequence()
		idx := start
		for _, child := range children {
			val, err := s.decArrayItem(child, desc)
			if err != nil {
				return nil, err
			}
			if pos, ok := xmlns.Attr(child, xmlns.SOAPEncoding, "position"); ok {
				coords, perr := parseBracketedInts(pos)
				if perr != nil || len(coords) != 1 {
					s.warnf("malformed position %q on %s", pos, child.Tag)
				} else {
					setSeqAt(seq, coords[0], val)
					idx = coords[0] + 1
					continue
				}
			}
			setSeqAt(seq, idx, val)
			idx++
		}
		if size := desc.Dims; len(size) == 1 && size[0] != DimUnspecified {
			resizeSeq(seq, size[0])
		}
		return seq, nil
	}

	// Multi-dimensional: a position attribute on the first child means the
	// array was encoded sparse and flat.
	sparse := false
	if len(children) > 0 {
		_, sparse = xmlns.Attr(children[0], xmlns.SOAPEncoding, "position")
	}

	if sparse {
		seq := NewSequence()
		for _, child := range children {
			val, err := s.decArrayItem(child, desc)
			if err != nil {
				return nil, err
			}
			pos, ok := xmlns.Attr(child, xmlns.SOAPEncoding, "position")
			if !ok {
				s.warnf("sparse array item %s lacks a position, skipped", child.Tag)
				continue
			}
			coords, perr := parseBracketedInts(pos)
			if perr != nil || len(coords) != len(desc.Dims) {
				s.warnf("position %q on %s does not match %d dimensions", pos, child.Tag, len(desc.Dims))
				continue
			}
			placeAt(seq, coords, val)
		}
		normalizeDims(seq, desc.Dims)
		return seq, nil
	}

	var flat []*Node
	for _, child := range children {
		val, err := s.decArrayItem(child, desc)
		if err != nil {
			return nil, err
		}
		flat = append(flat, val)
	}
	// Row-major partitioning needs every inner dimension size.
	for _, d := range desc.Dims[1:] {
		if d == DimUnspecified {
			s.warnf("arrayType on %s leaves an inner dimension open, keeping items flat", el.Tag)
			return NewSequence(flat...), nil
		}
	}
	return partition(flat, desc.Dims), nil
}

// decArrayItem decodes one array entry to its bare value, passing the item
// type down as the hint.
func (s *decodeState) decArrayItem(child *etree.Element, desc *ArrayDescriptor) (*Node, error) {
	hintDims := 0
	if desc.Nested != "" {
		hintDims = strings.Count(desc.Nested, ",") + 1
	}
	_, val, err := s.decValue(child, desc.ItemType, hintDims)
	return val, err
}

// wrapValue lifts a reader result into a Node mapping, wrapping non-mapping
// results under the "_" key.
func (s *decodeState) wrapValue(v any) *Node {
	switch t := v.(type) {
	case *Node:
		if t.Kind == KindMapping {
			return t
		}
		return NewMapping().Set(KeyValue, t)
	case map[string]any:
		m := NewMapping()
		for k, item := range t {
			m.Set(k, s.wrapAny(item))
		}
		return m
	default:
		return NewMapping().Set(KeyValue, Scalar(v))
	}
}

func (s *decodeState) wrapAny(v any) *Node {
	switch t := v.(type) {
	case *Node:
		return t
	case map[string]any:
		m := NewMapping()
		for k, item := range t {
			m.Set(k, s.wrapAny(item))
		}
		return m
	case []any:
		seq := NewSequence()
		for _, item := range t {
			seq.Items = append(seq.Items, s.wrapAny(item))
		}
		return seq
	default:
		return Scalar(v)
	}
}

func (s *decodeState) stampID(el *etree.Element, val *Node) {
	if idv := el.SelectAttrValue("id", ""); idv != "" {
		val.Set(KeyID, Scalar(idv))
	}
}

// arrayTypeAttr fetches the arrayType attribute, accepting both the
// SOAP-ENC qualified form and a bare attribute from sloppy peers.
func (s *decodeState) arrayTypeAttr(el *etree.Element) (string, bool) {
	if v, ok := xmlns.Attr(el, xmlns.SOAPEncoding, "arrayType"); ok {
		return v, true
	}
	if v, ok := xmlns.Attr(el, "", "arrayType"); ok {
		return v, true
	}
	return "", false
}

// setSeqAt grows seq as needed and writes v at index i.
func setSeqAt(seq *Node, i int, v *Node) {
	for len(seq.Items) <= i {
		seq.Items = append(seq.Items, nil)
	}
	seq.Items[i] = v
}

// placeAt descends into nested sequences per coordinate, auto-growing each
// level, and writes v at the final slot.
func placeAt(seq *Node, coords []int, v *Node) {
	cur := seq
	for _, c := range coords[:len(coords)-1] {
		for len(cur.Items) <= c {
			cur.Items = append(cur.Items, nil)
		}
		if cur.Items[c] == nil || cur.Items[c].Kind != KindSequence {
			cur.Items[c] = NewSequence()
		}
		cur = cur.Items[c]
	}
	setSeqAt(cur, coords[len(coords)-1], v)
}

// resizeSeq truncates or pads seq with holes to exactly size entries.
func resizeSeq(seq *Node, size int) {
	if len(seq.Items) > size {
		seq.Items = seq.Items[:size]
		return
	}
	for len(seq.Items) < size {
		seq.Items = append(seq.Items, nil)
	}
}

// normalizeDims pads a nested sequence so every level matches the declared
// dimension sizes.
func normalizeDims(seq *Node, dims []int) {
	if dims[0] != DimUnspecified {
		resizeSeq(seq, dims[0])
	}
	if len(dims) == 1 {
		return
	}
	for i, item := range seq.Items {
		if item == nil {
			item = NewSequence()
			seq.Items[i] = item
		}
		if item.Kind == KindSequence {
			normalizeDims(item, dims[1:])
		}
	}
}

// partition slices a flat row-major item list into nested sequences
// matching each dimension size in turn.
func partition(flat []*Node, dims []int) *Node {
	if len(dims) == 1 {
		seq := NewSequence(flat...)
		if dims[0] != DimUnspecified {
			resizeSeq(seq, dims[0])
		}
		return seq
	}
	chunk := 1
	for _, d := range dims[1:] {
		if d == DimUnspecified {
			// Unpartitionable; keep every decoded item.
			return NewSequence(flat...)
		}
		chunk *= d
	}
	seq := NewSequence()
	for i := 0; i < dims[0]; i++ {
		lo := i * chunk
		hi := lo + chunk
		switch {
		case lo >= len(flat):
			seq.Items = append(seq.Items, partition(nil, dims[1:]))
		case hi > len(flat):
			seq.Items = append(seq.Items, partition(flat[lo:], dims[1:]))
		default:
			seq.Items = append(seq.Items, partition(flat[lo:hi], dims[1:]))
		}
	}
	return seq
}
