package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/waftester/contractfuzz/pkg/defaults"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.out, "%s %s (%s %s/%s)\n", defaults.ToolName, defaults.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
