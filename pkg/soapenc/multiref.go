package soapenc

import (
	"fmt"
	"strings"
)

// pendingRef records one href placeholder slot awaiting resolution. set
// overwrites the slot in its parent with the target node.
type pendingRef struct {
	id  string
	set func(*Node)
}

// resolveRefs performs two-pass multi-reference resolution over root: an
// index pass collecting id-bearing mapping nodes and href placeholder
// slots, then a resolve pass splicing each placeholder's slot with its
// target. Splicing shares the target node, deliberately creating shared
// references and cycles in the result graph. Unresolved hrefs degrade to a
// warning and keep their placeholder in place.
func resolveRefs(root *Node) []string {
	idx := make(map[string]*Node)
	var pending []pendingRef
	indexNode(root, idx, &pending, make(map[*Node]bool))

	var warnings []string
	for _, p := range pending {
		target, ok := idx[p.id]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cannot find id for href #%s", p.id))
			continue
		}
		p.set(target)
	}
	return warnings
}

// indexNode walks the tree depth-first. The seen set guards against
// revisiting nodes in graphs that are already partially circular.
func indexNode(n *Node, idx map[string]*Node, pending *[]pendingRef, seen map[*Node]bool) {
	if n == nil || seen[n] {
		return
	}
	seen[n] = true

	switch n.Kind {
	case KindMapping:
		if idn := n.Fields[KeyID]; idn != nil {
			if s := idn.ScalarString(); s != "" {
				idx[s] = n
			}
		}
		for k, child := range n.Fields {
			if child.isHrefPlaceholder() {
				key := k
				parent := n
				*pending = append(*pending, pendingRef{
					id:  hrefTarget(child),
					set: func(target *Node) { parent.Fields[key] = target },
				})
				continue
			}
			indexNode(child, idx, pending, seen)
		}
	case KindSequence:
		for i, child := range n.Items {
			if child.isHrefPlaceholder() {
				i := i
				parent := n
				*pending = append(*pending, pendingRef{
					id:  hrefTarget(child),
					set: func(target *Node) { parent.Items[i] = target },
				})
				continue
			}
			indexNode(child, idx, pending, seen)
		}
	}
}

// hrefTarget extracts the target id from a placeholder, stripping the
// document-local # marker.
func hrefTarget(n *Node) string {
	if n.Kind == KindReference {
		return n.Ref
	}
	href := n.Fields[KeyHref].ScalarString()
	return strings.TrimPrefix(href, "#")
}
