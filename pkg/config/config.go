// Package config loads declarative SOAP message specifications from YAML
// or JSON documents and compiles them into soap.Message values.
//
// A service file names operations; each operation lists its header, body,
// and fault parts with a label, a qualified type, and an optional wire
// element name. Qualified names use the "prefix:local" form resolved
// against the file's namespaces table.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xmlwire/soapmsg/pkg/soap"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
	"gopkg.in/yaml.v3"
)

// ServiceConfig is the root of a message-spec file.
type ServiceConfig struct {
	// Name identifies the service in diagnostics.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Namespaces maps prefixes to namespace URIs for every qualified name
	// in the file. The xsd prefix is predeclared.
	Namespaces map[string]string `json:"namespaces,omitempty" yaml:"namespaces,omitempty"`

	// Operations maps operation names to their message shapes.
	Operations map[string]OperationSpec `json:"operations" yaml:"operations"`
}

// OperationSpec describes one operation's message.
type OperationSpec struct {
	Style          string            `json:"style,omitempty" yaml:"style,omitempty"`
	Operation      string            `json:"operation,omitempty" yaml:"operation,omitempty"`
	Header         []PartSpec        `json:"header,omitempty" yaml:"header,omitempty"`
	Body           []PartSpec        `json:"body,omitempty" yaml:"body,omitempty"`
	Faults         []PartSpec        `json:"faults,omitempty" yaml:"faults,omitempty"`
	MustUnderstand []string          `json:"mustUnderstand,omitempty" yaml:"mustUnderstand,omitempty"`
	Destination    map[string]string `json:"destination,omitempty" yaml:"destination,omitempty"`
}

// PartSpec describes one message part.
type PartSpec struct {
	Label   string `json:"label" yaml:"label"`
	Type    string `json:"type" yaml:"type"`
	Element string `json:"element,omitempty" yaml:"element,omitempty"`
}

// Load parses a service config from YAML (or JSON, which YAML subsumes).
func Load(data []byte) (*ServiceConfig, error) {
	var cfg ServiceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(cfg.Operations) == 0 {
		return nil, fmt.Errorf("config: no operations defined")
	}
	return &cfg, nil
}

// LoadFile reads and parses a service config file.
func LoadFile(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Load(data)
}

// Build compiles every operation into a soap.Message. Invalid part
// definitions are configuration errors and fail the whole build.
func (cfg *ServiceConfig) Build() (map[string]*soap.Message, error) {
	out := make(map[string]*soap.Message, len(cfg.Operations))
	for name, op := range cfg.Operations {
		msg, err := cfg.buildOperation(name, op)
		if err != nil {
			return nil, err
		}
		out[name] = msg
	}
	return out, nil
}

func (cfg *ServiceConfig) buildOperation(name string, op OperationSpec) (*soap.Message, error) {
	style, err := soap.ParseStyle(op.Style)
	if err != nil {
		return nil, fmt.Errorf("config: operation %q: %w", name, err)
	}

	opName := op.Operation
	if opName == "" {
		opName = name
	}
	operation, err := cfg.resolve(opName)
	if err != nil {
		return nil, fmt.Errorf("config: operation %q: %w", name, err)
	}

	m := soap.Message{
		Operation:      operation,
		Style:          style,
		MustUnderstand: make(map[string]bool),
		Destination:    op.Destination,
	}
	for _, label := range op.MustUnderstand {
		m.MustUnderstand[label] = true
	}

	for _, section := range []struct {
		specs []PartSpec
		parts *[]*soap.Part
	}{{op.Header, &m.Header}, {op.Body, &m.Body}, {op.Faults, &m.Faults}} {
		for _, ps := range section.specs {
			p, err := cfg.buildPart(name, ps)
			if err != nil {
				return nil, err
			}
			*section.parts = append(*section.parts, p)
		}
	}

	msg, err := soap.NewMessage(m)
	if err != nil {
		return nil, fmt.Errorf("config: operation %q: %w", name, err)
	}
	return msg, nil
}

func (cfg *ServiceConfig) buildPart(op string, ps PartSpec) (*soap.Part, error) {
	if ps.Label == "" {
		return nil, fmt.Errorf("config: operation %q: part missing label", op)
	}
	if ps.Type == "" {
		return nil, fmt.Errorf("config: operation %q: part %q missing type", op, ps.Label)
	}
	typ, err := cfg.resolve(ps.Type)
	if err != nil {
		return nil, fmt.Errorf("config: operation %q: part %q: %w", op, ps.Label, err)
	}
	p := &soap.Part{Label: ps.Label, Type: typ}
	if ps.Element != "" {
		el, err := cfg.resolve(ps.Element)
		if err != nil {
			return nil, fmt.Errorf("config: operation %q: part %q: %w", op, ps.Label, err)
		}
		p.Element = el
	}
	return p, nil
}

// resolve turns a "prefix:local" string into a QName using the file's
// namespaces table. A bare name has no namespace.
func (cfg *ServiceConfig) resolve(name string) (xmlns.QName, error) {
	i := strings.Index(name, ":")
	if i < 0 {
		return xmlns.Name("", name), nil
	}
	prefix, local := name[:i], name[i+1:]
	if prefix == xmlns.PrefixSchema {
		return xmlns.Name(xmlns.Schema2001, local), nil
	}
	uri, ok := cfg.Namespaces[prefix]
	if !ok {
		return xmlns.QName{}, fmt.Errorf("undeclared namespace prefix %q in %q", prefix, name)
	}
	return xmlns.Name(uri, local), nil
}
