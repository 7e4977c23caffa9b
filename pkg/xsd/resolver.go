package xsd

import (
	"errors"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

// ErrUnknownType is returned by a Resolver when it has no reader or writer
// for the requested type. Callers use it to trigger inferred-decode
// fallbacks instead of failing the whole message.
var ErrUnknownType = errors.New("xsd: unknown type")

// ReadFunc decodes one XML element into a Go value.
type ReadFunc func(el *etree.Element) (any, error)

// WriteFunc renders a Go value as a new element attached to doc.
type WriteFunc func(doc *etree.Document, value any) (*etree.Element, error)

// ReaderOptions tune how a resolved reader interprets its element.
type ReaderOptions struct {
	// ElementName overrides the element name the reader expects.
	ElementName xmlns.QName

	// IsType decodes the type directly rather than via its element wrapper.
	IsType bool
}

// WriterOptions tune how a resolved writer serializes its value.
type WriterOptions struct {
	// ElementName overrides the name of the produced element. When zero the
	// writer names the element after the type's local name.
	ElementName xmlns.QName

	// IsType encodes the type directly rather than via its element wrapper.
	IsType bool

	// OmitNSDecl suppresses namespace declarations on the produced element,
	// used to keep envelope-level prefixes stable.
	OmitNSDecl bool
}

// Resolver maps qualified type names to readers and writers. Implementations
// must be side-effect-free after construction; resolved funcs are cached by
// the codec and invoked concurrently.
type Resolver interface {
	Reader(typ xmlns.QName, opts ReaderOptions) (ReadFunc, error)
	Writer(typ xmlns.QName, opts WriterOptions) (WriteFunc, error)
}
