package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"
	"github.com/xmlwire/soapmsg/pkg/config"
	"github.com/xmlwire/soapmsg/pkg/soap"
	"github.com/xmlwire/soapmsg/pkg/soapenc"
	"github.com/xmlwire/soapmsg/pkg/xsd"
	"gopkg.in/yaml.v3"
)

var (
	decodeSpec      string
	decodeOperation string
	decodeSimplify  bool
	decodeFormat    string
)

var decodeCmd = &cobra.Command{
	Use:   "decode [envelope.xml]",
	Short: "Decode a SOAP envelope and print its structure",
	Long: `Decode parses a SOAP 1.1 envelope and prints the decoded values.

With --spec and --operation the configured part readers are used; without
them the body is decoded with the SOAP-ENC inference decoder alone.
Reads from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeSpec, "spec", "", "message spec file (yaml)")
	decodeCmd.Flags().StringVar(&decodeOperation, "operation", "", "operation name within the spec")
	decodeCmd.Flags().BoolVar(&decodeSimplify, "simplify", true, "collapse the decode tree into an ergonomic shape")
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "yaml", "output format (yaml or json)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := readInput(args)
	if err != nil {
		return err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("invalid XML: %w", err)
	}

	logger := newLogger()
	values, warnings, err := decodeDocument(doc)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	return writeOutput(cmd.OutOrStdout(), values)
}

func decodeDocument(doc *etree.Document) (map[string]any, []string, error) {
	logger := newLogger()

	if decodeSpec != "" {
		if decodeOperation == "" {
			return nil, nil, fmt.Errorf("--operation is required with --spec")
		}
		cfg, err := config.LoadFile(decodeSpec)
		if err != nil {
			return nil, nil, err
		}
		msgs, err := cfg.Build()
		if err != nil {
			return nil, nil, err
		}
		msg, ok := msgs[decodeOperation]
		if !ok {
			return nil, nil, fmt.Errorf("operation %q not found in %s", decodeOperation, decodeSpec)
		}
		codec := soap.NewCodec(xsd.Builtin(), nil, soap.Options{Simplify: decodeSimplify, Logger: logger})
		raw, warnings, err := codec.Decode(msg, doc)
		if err != nil {
			return nil, warnings, err
		}
		return plainValues(raw), warnings, nil
	}

	// Spec-less mode: find the Body and run the inference decoder over its
	// children.
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("empty document")
	}
	var body *etree.Element
	for _, child := range root.ChildElements() {
		if child.Tag == "Body" {
			body = child
			break
		}
	}
	if body == nil {
		return nil, nil, fmt.Errorf("envelope has no Body")
	}
	dec := soapenc.NewDecoder(xsd.Builtin(), soapenc.DecodeOptions{Simplify: decodeSimplify, Logger: logger})
	res, err := dec.Decode(body.ChildElements())
	if err != nil {
		return nil, nil, err
	}
	v := res.Value.Interface()
	if m, ok := v.(map[string]any); ok {
		return m, res.Warnings, nil
	}
	return map[string]any{"body": v}, res.Warnings, nil
}

// plainValues converts decoded values into marshal-friendly shapes.
func plainValues(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case *soapenc.Node:
			out[k] = t.Interface()
		case *soap.Fault:
			out[k] = map[string]any{
				"faultcode":   t.Code,
				"faultstring": t.String,
				"detail":      t.Detail,
			}
		case *etree.Element:
			d := etree.NewDocument()
			d.SetRoot(t.Copy())
			s, err := d.WriteToString()
			if err != nil {
				s = ""
			}
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

func writeOutput(w io.Writer, v any) error {
	switch decodeFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
}
