// Command formwizard serves, runs and validates wizard definitions.
//
//	formwizard serve --config formwizard.yaml
//	formwizard run orders_info --param service_member_id=sm-1
//	formwizard validate definitions/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
