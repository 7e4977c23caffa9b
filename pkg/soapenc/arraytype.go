package soapenc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

// DimUnspecified marks an arrayType dimension with no declared size, as in
// "xsd:int[]".
const DimUnspecified = -1

// ArrayDescriptor is the parsed form of a SOAP-ENC arrayType attribute,
// e.g. "ns:int[2,3]" or "xsd:string[][4]".
type ArrayDescriptor struct {
	// ItemType is the resolved element type of the array items.
	ItemType xmlns.QName

	// Dims are the declared sizes of the final bracket group, in order.
	// A dimension may be DimUnspecified.
	Dims []int

	// Nested carries any leading bracket groups verbatim ("[]", "[,]"),
	// marking arrays whose items are themselves arrays.
	Nested string
}

// ParseArrayType parses the textual arrayType grammar, resolving the item
// type's prefix against the namespaces in scope at el.
func ParseArrayType(text string, scope *etree.Element) (*ArrayDescriptor, error) {
	text = strings.TrimSpace(text)
	open := strings.LastIndex(text, "[")
	if open < 0 || !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("soapenc: malformed arrayType %q", text)
	}
	head, dimText := text[:open], text[open+1:len(text)-1]

	// Leading bracket groups between the type name and the final group are
	// nested-array markers.
	nested := ""
	if i := strings.Index(head, "["); i >= 0 {
		nested = head[i:]
		head = head[:i]
		for _, r := range nested {
			if r != '[' && r != ']' && r != ',' {
				return nil, fmt.Errorf("soapenc: malformed arrayType %q", text)
			}
		}
	}

	itemType, err := xmlns.ParseQName(head, scope)
	if err != nil {
		return nil, fmt.Errorf("soapenc: arrayType %q: %w", text, err)
	}

	var dims []int
	for _, part := range strings.Split(dimText, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			dims = append(dims, DimUnspecified)
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("soapenc: invalid arrayType dimension %q in %q", part, text)
		}
		dims = append(dims, n)
	}

	return &ArrayDescriptor{ItemType: itemType, Dims: dims, Nested: nested}, nil
}

// formatArrayType renders an arrayType attribute value from a prefixed item
// type, an optional nested-array marker, and dimension sizes.
func formatArrayType(prefixedType, nested string, dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		if d == DimUnspecified {
			parts[i] = ""
		} else {
			parts[i] = strconv.Itoa(d)
		}
	}
	return prefixedType + nested + "[" + strings.Join(parts, ",") + "]"
}

// Size returns the total number of slots the descriptor declares, or
// DimUnspecified when any dimension is open.
func (d *ArrayDescriptor) Size() int {
	total := 1
	for _, dim := range d.Dims {
		if dim == DimUnspecified {
			return DimUnspecified
		}
		total *= dim
	}
	return total
}

// parseBracketedInts parses attribute values of the form "[2]" or "[1,0,3]"
// used by the offset and position attributes.
func parseBracketedInts(text string) ([]int, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("soapenc: malformed bracketed value %q", text)
	}
	var out []int
	for _, part := range strings.Split(text[1:len(text)-1], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("soapenc: malformed bracketed value %q", text)
		}
		out = append(out, n)
	}
	return out, nil
}

// formatBracketedInts is the inverse of parseBracketedInts.
func formatBracketedInts(coords []int) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.Itoa(c)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
