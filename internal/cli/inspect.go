package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluxion-dg/fluxion/sym"
)

// InspectFormats are the available report encodings.
var InspectFormats = []string{"text", "json", "yaml"}

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Format string
}

// Report summarizes a lowered problem: the mesh, the step plan, and
// what the compiled template will actually execute.
type Report struct {
	Name      string     `json:"name" yaml:"name"`
	Elements  int        `json:"elements" yaml:"elements"`
	Order     int        `json:"order" yaml:"order"`
	Interval  [2]float64 `json:"interval" yaml:"interval,flow"`
	GridNodes int        `json:"gridNodes" yaml:"gridNodes"`

	FluxType string `json:"fluxType" yaml:"fluxType"`
	BC       string `json:"bc" yaml:"bc"`

	Dt        float64 `json:"dt" yaml:"dt"`
	Steps     int     `json:"steps" yaml:"steps"`
	FinalTime float64 `json:"finalTime" yaml:"finalTime"`

	BoundaryTags   []string       `json:"boundaryTags" yaml:"boundaryTags,flow"`
	BoundOperators map[string]int `json:"boundOperators" yaml:"boundOperators"`
	Fluxes         int            `json:"fluxes" yaml:"fluxes"`
	LiftingFluxes  int            `json:"liftingFluxes" yaml:"liftingFluxes"`
	TreeNodes      int            `json:"treeNodes" yaml:"treeNodes"`
	Flops          int            `json:"flops" yaml:"flops"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [config]",
		Short: "Summarize the lowered problem",
		Long: `Lower the wave template against the configured mesh and report what
the compiled operator will execute: distinct bound operators by kind,
flux terms, boundary regions, and the template-level flop estimate.

With no config argument the schema defaults apply.

Example:
  fluxion inspect
  fluxion inspect --format json run.cue`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectProblem(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	return cmd
}

func inspectProblem(cmd *cobra.Command, opts *InspectOptions, args []string) error {
	if !contains(InspectFormats, opts.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, InspectFormats))
	}

	p, err := setupProblem(args)
	if err != nil {
		return err
	}
	report, err := buildReport(cmd, p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch opts.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return WrapExitError(ExitFailure, "encode report", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(report); err != nil {
			return WrapExitError(ExitFailure, "encode report", err)
		}
		if err := enc.Close(); err != nil {
			return WrapExitError(ExitFailure, "encode report", err)
		}
	default:
		writeReportText(out, report)
	}
	return nil
}

// buildReport lowers the template and collects the report numbers from
// the lowered tree.
func buildReport(cmd *cobra.Command, p *problem) (*Report, error) {
	tree, err := lowerToStage(cmd.Context(), p, "lowered")
	if err != nil {
		return nil, err
	}

	tags, err := sym.CollectBoundaryTags(tree)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "analyze template", err)
	}
	bindings, err := sym.CollectBindings(tree, func(sym.Operator) bool { return true })
	if err != nil {
		return nil, WrapExitError(ExitFailure, "analyze template", err)
	}
	flops, err := sym.CountFlops(tree)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "analyze template", err)
	}

	report := &Report{
		Name:      p.run.Name,
		Elements:  p.run.Elements,
		Order:     p.run.Order,
		Interval:  [2]float64{p.run.Interval.A, p.run.Interval.B},
		GridNodes: p.discr.NumNodes(),

		FluxType: p.run.FluxType,
		BC:       p.run.BC,

		Dt:        p.dt,
		Steps:     p.steps,
		FinalTime: p.run.FinalTime,

		BoundOperators: map[string]int{},
		TreeNodes:      sym.CountNodes(tree),
		Flops:          flops,
	}
	for _, t := range tags {
		report.BoundaryTags = append(report.BoundaryTags, string(t))
	}
	for _, b := range bindings {
		report.BoundOperators[opKind(b.Op())]++
		switch b.Op().(type) {
		case *sym.Flux:
			report.Fluxes++
		case *sym.LiftingFlux:
			report.Fluxes++
			report.LiftingFluxes++
		}
	}
	return report, nil
}

// opKind names an operator family for the report, collapsing the
// per-axis and per-formula parametrization.
func opKind(op sym.Operator) string {
	switch op.(type) {
	case *sym.Diff:
		return "diff"
	case *sym.Stiffness:
		return "stiffness"
	case *sym.StiffnessT:
		return "stiffness-transpose"
	case *sym.MInvST:
		return "minv-stiffness-transpose"
	case *sym.Mass:
		return "mass"
	case *sym.InverseMass:
		return "inverse-mass"
	case *sym.ElementwiseMax:
		return "elementwise-max"
	case *sym.Boundarize:
		return "boundarize"
	case *sym.FluxExchange:
		return "flux-exchange"
	case *sym.Flux:
		return "flux"
	case *sym.LiftingFlux:
		return "lifting-flux"
	}
	return fmt.Sprintf("%T", op)
}

func writeReportText(w io.Writer, r *Report) {
	fmt.Fprintf(w, "name:          %s\n", r.Name)
	fmt.Fprintf(w, "mesh:          %d elements of order %d on [%g, %g], %d nodes\n",
		r.Elements, r.Order, r.Interval[0], r.Interval[1], r.GridNodes)
	fmt.Fprintf(w, "flux:          %s\n", r.FluxType)
	fmt.Fprintf(w, "bc:            %s\n", r.BC)
	fmt.Fprintf(w, "dt:            %g (%d steps to t=%g)\n", r.Dt, r.Steps, r.FinalTime)
	fmt.Fprintf(w, "boundary tags: %s\n", joinOrNone(r.BoundaryTags))

	fmt.Fprintln(w, "bound operators:")
	kinds := make([]string, 0, len(r.BoundOperators))
	for k := range r.BoundOperators {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-26s %d\n", k, r.BoundOperators[k])
	}

	fmt.Fprintf(w, "fluxes:        %d (%d lifting)\n", r.Fluxes, r.LiftingFluxes)
	fmt.Fprintf(w, "tree nodes:    %d\n", r.TreeNodes)
	fmt.Fprintf(w, "flops:         %d\n", r.Flops)
}

func joinOrNone(tags []string) string {
	if len(tags) == 0 {
		return "(none)"
	}
	return strings.Join(tags, ", ")
}
