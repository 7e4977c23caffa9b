package soapenc

// Kind discriminates the variants of a decoded Node.
type Kind int

const (
	// KindScalar is a leaf value (string, number, bool, nil, ...).
	KindScalar Kind = iota
	// KindMapping is a string-keyed collection; insertion order is not
	// significant.
	KindMapping
	// KindSequence is an ordered collection; nil entries are holes left by
	// sparse arrays.
	KindSequence
	// KindReference is an unresolved href placeholder pointing at an id
	// elsewhere in the same document.
	KindReference
)

// Reserved mapping keys carrying decode metadata rather than payload.
// The simplifier strips them without losing the main value.
const (
	KeyValue = "_"
	KeyType  = "_TYPE"
	KeyName  = "_NAME"
	KeyID    = "id"
	KeyHref  = "href"
)

// Node is one vertex of a decoded value tree. After multi-reference
// resolution the tree may contain shared nodes and cycles; traversals must
// guard on node identity.
type Node struct {
	Kind   Kind
	Value  any              // KindScalar payload
	Fields map[string]*Node // KindMapping entries
	Items  []*Node          // KindSequence entries, nil = hole
	Ref    string           // KindReference target id, without the leading #
}

// Scalar returns a new scalar node.
func Scalar(v any) *Node {
	return &Node{Kind: KindScalar, Value: v}
}

// NewMapping returns a new empty mapping node.
func NewMapping() *Node {
	return &Node{Kind: KindMapping, Fields: make(map[string]*Node)}
}

// NewSequence returns a new sequence node with the given items.
func NewSequence(items ...*Node) *Node {
	return &Node{Kind: KindSequence, Items: items}
}

// Set stores a mapping entry and returns n for chaining.
func (n *Node) Set(key string, v *Node) *Node {
	if n.Fields == nil {
		n.Fields = make(map[string]*Node)
	}
	n.Fields[key] = v
	return n
}

// Get returns the mapping entry for key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindMapping {
		return nil
	}
	return n.Fields[key]
}

// ScalarString returns the node's scalar payload rendered as a string, or
// "" when the node is not a scalar.
func (n *Node) ScalarString() string {
	if n == nil || n.Kind != KindScalar {
		return ""
	}
	if s, ok := n.Value.(string); ok {
		return s
	}
	return ""
}

// SingleKey returns the only key of a single-entry mapping. ok is false
// for any other node shape.
func (n *Node) SingleKey() (string, bool) {
	if n == nil || n.Kind != KindMapping || len(n.Fields) != 1 {
		return "", false
	}
	for k := range n.Fields {
		return k, true
	}
	return "", false
}

// isHrefPlaceholder reports whether n is an unresolved reference: either a
// bare KindReference node or a mapping still carrying an href key.
func (n *Node) isHrefPlaceholder() bool {
	if n == nil {
		return false
	}
	if n.Kind == KindReference {
		return true
	}
	return n.Kind == KindMapping && n.Fields[KeyHref] != nil
}

// Interface converts the node graph to plain Go values: map[string]any,
// []any, and scalars. Revisited nodes (shared references or cycles) render
// as map[string]any{"href": "#..."} so the result is always acyclic and
// safe to marshal.
func (n *Node) Interface() any {
	return n.toInterface(make(map[*Node]bool))
}

func (n *Node) toInterface(onPath map[*Node]bool) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindScalar:
		return n.Value
	case KindReference:
		return map[string]any{KeyHref: "#" + n.Ref}
	case KindMapping:
		if onPath[n] {
			return map[string]any{KeyHref: "#" + n.refID()}
		}
		onPath[n] = true
		m := make(map[string]any, len(n.Fields))
		for k, v := range n.Fields {
			m[k] = v.toInterface(onPath)
		}
		delete(onPath, n)
		return m
	case KindSequence:
		if onPath[n] {
			return map[string]any{KeyHref: "#" + n.refID()}
		}
		onPath[n] = true
		s := make([]any, len(n.Items))
		for i, v := range n.Items {
			s[i] = v.toInterface(onPath)
		}
		delete(onPath, n)
		return s
	}
	return nil
}

// refID returns the node's own decode-time id when it has one, for
// rendering back-references.
func (n *Node) refID() string {
	if idn := n.Get(KeyID); idn != nil {
		return idn.ScalarString()
	}
	return ""
}
