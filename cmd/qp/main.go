// Command qp optimizes and runs query plans described in YAML files against
// CSV tables, within a fixed page buffer budget.
//
//	qp stats query.yaml              compute <table>.stat for every table
//	qp optimize query.yaml           print the cheapest plan found
//	qp run query.yaml                optimize, then execute and print the rows
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"queryproc/pkg/logging"
)

func main() {
	cmd := newRootCmd(afero.NewOsFs())
	err := cmd.Execute()
	if closeErr := logging.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
