// soapmsg CLI - encode and decode SOAP 1.1 envelopes from the command line
package main

import (
	"fmt"
	"os"

	"github.com/xmlwire/soapmsg/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
