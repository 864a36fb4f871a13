package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/waftester/contractfuzz/pkg/config"
	"github.com/waftester/contractfuzz/pkg/contract"
	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/ui"
)

// errErrorsFound marks a run that finished but recorded error verdicts.
var errErrorsFound = errors.New("test cases failed")

// app carries what every subcommand shares.
type app struct {
	v       *viper.Viper
	cfgFile string
	out     io.Writer
	errOut  io.Writer
}

// NewRootCommand builds a fresh command tree so flags never leak between
// executions.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           defaults.ToolName,
		Short:         "Contract-driven API fuzzer",
		Version:       defaults.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				ui.SetNoColor(true)
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML)")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(newRunCmd(a), newWordsCmd(a), newVersionCmd(a))
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := NewRootCommand(out, errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return defaults.ExitSuccess
	}
	if !errors.Is(err, errErrorsFound) {
		fmt.Fprintln(errOut, "Error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return defaults.ExitSuccess
	case errors.Is(err, errErrorsFound):
		return defaults.ExitErrorsFound
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, contract.ErrUnsupportedContract):
		return defaults.ExitUserError
	default:
		return defaults.ExitInternalError
	}
}
