package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xmlwire/soapmsg/pkg/config"
	"github.com/xmlwire/soapmsg/pkg/soap"
	"github.com/xmlwire/soapmsg/pkg/xsd"
	"gopkg.in/yaml.v3"
)

var (
	encodeSpec      string
	encodeOperation string
	encodeIndent    int
)

var encodeCmd = &cobra.Command{
	Use:   "encode --spec spec.yaml --operation Op [values.yaml]",
	Short: "Build a SOAP envelope from a values file",
	Long: `Encode reads a label-to-value mapping from a YAML file (or stdin)
and renders the operation's SOAP 1.1 envelope to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().StringVar(&encodeSpec, "spec", "", "message spec file (yaml)")
	encodeCmd.Flags().StringVar(&encodeOperation, "operation", "", "operation name within the spec")
	encodeCmd.Flags().IntVar(&encodeIndent, "indent", 2, "indentation width, 0 for compact output")
	_ = encodeCmd.MarkFlagRequired("spec")
	_ = encodeCmd.MarkFlagRequired("operation")
}

func runEncode(cmd *cobra.Command, args []string) error {
	data, err := readInput(args)
	if err != nil {
		return err
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("invalid values file: %w", err)
	}

	cfg, err := config.LoadFile(encodeSpec)
	if err != nil {
		return err
	}
	msgs, err := cfg.Build()
	if err != nil {
		return err
	}
	msg, ok := msgs[encodeOperation]
	if !ok {
		return fmt.Errorf("operation %q not found in %s", encodeOperation, encodeSpec)
	}

	codec := soap.NewCodec(xsd.Builtin(), nil, soap.Options{Logger: newLogger()})
	doc, err := codec.Encode(msg, values)
	if err != nil {
		return err
	}
	if encodeIndent > 0 {
		doc.Indent(encodeIndent)
	}
	if _, err := doc.WriteTo(cmd.OutOrStdout()); err != nil {
		return err
	}
	return nil
}
