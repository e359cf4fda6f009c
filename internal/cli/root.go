package cli

import (
	"os"

	"github.com/spf13/cobra"
	"goa.design/clue/log"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the fluxion CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fluxion",
		Short: "Fluxion - a symbolic compiler for discontinuous Galerkin operators",
		Long: `Fluxion builds symbolic right-hand-side templates for discretized PDE
operators, lowers them through a pass pipeline, and evaluates them
against a discretization. The bundled driver advances the first-order
wave system in time and records diagnostics per step.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Diagnostics go to stderr so command output stays pipeable.
			format := log.FormatJSON
			if log.IsTerminal() {
				format = log.FormatTerminal
			}
			ctx := log.Context(cmd.Context(),
				log.WithFormat(format), log.WithOutput(os.Stderr))
			if opts.Verbose {
				ctx = log.Context(ctx, log.WithDebug())
				log.Debugf(ctx, "debug logs enabled")
			}
			cmd.SetContext(ctx)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}
