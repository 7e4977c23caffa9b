package soapenc

// Simplify collapses the verbose decode tree into an ergonomic shape:
// metadata keys are stripped, single-key "_" wrappers collapse to their
// value, single-element sequences collapse to that element, and sequences
// of single-key mappings merge into one mapping (repeats of a key become a
// sequence under it). Simplifying an already-simplified tree returns an
// equal tree. Results are memoized per node, so a node shared between
// parents after multi-reference resolution simplifies to one shared result
// and keeps its identity; cycles are guarded by node identity and returned
// early rather than looped on.
func Simplify(n *Node) *Node {
	return simplify(n, newSimplifyMemo())
}

type simplifyMemo struct {
	done     map[*Node]*Node
	inFlight map[*Node]bool
}

func newSimplifyMemo() *simplifyMemo {
	return &simplifyMemo{done: make(map[*Node]*Node), inFlight: make(map[*Node]bool)}
}

func simplify(n *Node, m *simplifyMemo) *Node {
	if n == nil {
		return nil
	}
	if out, ok := m.done[n]; ok {
		return out
	}
	if m.inFlight[n] {
		return n
	}
	m.inFlight[n] = true
	defer delete(m.inFlight, n)

	out := n
	switch n.Kind {
	case KindSequence:
		for i, item := range n.Items {
			n.Items[i] = simplify(item, m)
		}
		if len(n.Items) == 1 {
			out = n.Items[0]
		} else {
			out = mergeSingleKey(n)
		}

	case KindMapping:
		delete(n.Fields, KeyName)
		delete(n.Fields, KeyType)
		delete(n.Fields, KeyID)
		for k, v := range n.Fields {
			n.Fields[k] = simplify(v, m)
		}
		if len(n.Fields) == 1 {
			if v, ok := n.Fields[KeyValue]; ok {
				out = v
			}
		}
	}
	m.done[n] = out
	return out
}

// mergeSingleKey merges a sequence whose elements are all single-key
// mappings into one mapping. Repeated keys accumulate into a sequence; an
// element value that is itself a sequence is appended whole, preserving
// array-of-array shape. Any element of another shape leaves the sequence
// untouched.
func mergeSingleKey(seq *Node) *Node {
	for _, item := range seq.Items {
		if _, ok := item.SingleKey(); !ok {
			return seq
		}
	}
	if len(seq.Items) == 0 {
		return seq
	}
	out := NewMapping()
	accumulated := make(map[string]bool)
	for _, item := range seq.Items {
		k, _ := item.SingleKey()
		v := item.Fields[k]
		switch existing := out.Fields[k]; {
		case existing == nil:
			out.Set(k, v)
		case accumulated[k]:
			existing.Items = append(existing.Items, v)
		default:
			out.Set(k, NewSequence(existing, v))
			accumulated[k] = true
		}
	}
	return out
}
