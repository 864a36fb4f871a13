package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waftester/contractfuzz/pkg/customtest"
)

func newWordsCmd(a *app) *cobra.Command {
	var security bool
	cmd := &cobra.Command{
		Use:   "words",
		Short: "List the reserved words of custom test files",
		Long: "Reserved words configure a test definition instead of becoming payload fields.\n" +
			"With --security the words accepted by security test files are listed.",
		Args: cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			words := customtest.CustomWords()
			if security {
				words = customtest.SecurityWords()
			}
			for _, w := range words {
				fmt.Fprintln(a.out, w)
			}
		},
	}
	cmd.Flags().BoolVar(&security, "security", false, "list security test words")
	return cmd
}
