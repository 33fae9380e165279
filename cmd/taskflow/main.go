// Taskflow runs dependency graphs of shell commands linked by the files they
// consume and produce.
//
// Usage:
//
//	taskflow [--concurrency N] [--force] <command> [flags]
//
// Commands:
//
//	run      Execute a YAML graph file
//	pcap     Build, report and plot pcap captures
//	plan     Print the execution plan of a graph file
//	version  Print build information
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.HasCode(err, errors.ErrCodeCanceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
