package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/fluxion-dg/fluxion/operators"
	"github.com/fluxion-dg/fluxion/runlog"
	"github.com/fluxion-dg/fluxion/sym"
	"github.com/fluxion-dg/fluxion/timestep"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config]",
		Short: "Run a wave simulation",
		Long: `Compile the wave template against the configured mesh and advance it
to the final time with the low-storage RK4 integrator. Diagnostics are
sampled every step; with log.path set they are also written to a SQLite
database for later analysis.

With no config argument the schema defaults apply: a Gaussian source
pumps the domain for a short while and the wave reflects off Dirichlet
walls.

Example:
  fluxion run
  fluxion run --verbose run.cue`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, args)
		},
	}

	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := setupProblem(args)
	if err != nil {
		return err
	}
	run := p.run

	log.Info(ctx, log.KV{K: "run", V: run.Name},
		log.KV{K: "elements", V: run.Elements},
		log.KV{K: "order", V: run.Order},
		log.KV{K: "dt", V: p.dt},
		log.KV{K: "steps", V: p.steps})

	op, err := p.discr.Compile(ctx, p.template, nil)
	if err != nil {
		return WrapExitError(ExitFailure, "compile template", err)
	}

	var st *runlog.Store
	if run.Log.Path != "" {
		st, err = runlog.Open(run.Log.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "open run database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Errorf(ctx, closeErr, "closing run database")
			}
		}()
	}

	mgr, err := runlog.NewManager(ctx, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "start run log", err)
	}
	mgr.AddRunInfo()
	mgr.SetConstant("name", run.Name)
	mgr.SetConstant("elements", run.Elements)
	mgr.SetConstant("order", run.Order)
	mgr.SetConstant("speed", run.Speed)
	mgr.SetConstant("fluxType", run.FluxType)
	mgr.SetConstant("bc", run.BC)
	mgr.SetConstant("dt", p.dt)

	clock := runlog.NewSimClock(p.dt)
	if err := clock.Register(ctx, mgr); err != nil {
		return WrapExitError(ExitCommandError, "register quantities", err)
	}

	// The norm getters read the current state through the slice variable,
	// so reassigning it below is what they observe.
	state := []sym.FieldData{p.discr.VolumeField(0), p.discr.VolumeField(0)}
	uGetter := runlog.Getter{Name: "u", Get: func() sym.FieldData { return state[0] }}
	for _, mk := range []func(runlog.Getter, runlog.NormContext, string) (*runlog.Norm, error){
		runlog.NewL1Norm, runlog.NewL2Norm, runlog.NewLInfNorm,
	} {
		q, err := mk(uGetter, p.discr, "")
		if err != nil {
			return WrapExitError(ExitCommandError, "register quantities", err)
		}
		if err := mgr.AddQuantity(ctx, q); err != nil {
			return WrapExitError(ExitCommandError, "register quantities", err)
		}
	}
	if err := mgr.AddWatch(run.Log.Watches...); err != nil {
		return WrapExitError(ExitCommandError, "configure watches", err)
	}

	var source sym.FieldData
	if p.wave.SourceName != "" {
		source = p.discr.Interpolate(func(x float64) float64 {
			dx := (x - run.Source.Center) / run.Source.Width
			return run.Source.Amplitude * math.Exp(-dx*dx)
		})
	}
	zero := p.discr.VolumeField(0)

	rhs := func(ctx context.Context, t float64, y []sym.FieldData) ([]sym.FieldData, error) {
		env := sym.Environment{operators.StateName: sym.TupleValue{y[0], y[1]}}
		if source != nil {
			s := source
			if t >= run.Source.Duration {
				s = zero
			}
			env[sourceName] = s
		}
		out, err := op.Call(ctx, env)
		if err != nil {
			return nil, err
		}
		return p.discr.FieldsOf(out)
	}

	var rk timestep.RK4
	t := 0.0
	for step := 0; step < p.steps; step++ {
		if err := ctx.Err(); err != nil {
			return WrapExitError(ExitFailure, "interrupted", err)
		}
		if err := mgr.Tick(ctx); err != nil {
			return WrapExitError(ExitFailure, "record diagnostics", err)
		}
		next, err := rk.Step(ctx, t, p.dt, state, rhs)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("step %d", step), err)
		}
		state = next
		t = float64(step+1) * p.dt
		clock.Advance(t, p.dt)
	}
	if err := mgr.Tick(ctx); err != nil {
		return WrapExitError(ExitFailure, "record diagnostics", err)
	}
	if err := mgr.Close(ctx); err != nil {
		return WrapExitError(ExitFailure, "close run log", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d steps to t=%g (dt=%g)\n", mgr.RunID(), p.steps, run.FinalTime, p.dt)
	for _, name := range []string{"l1_u", "l2_u", "linf_u"} {
		if v, ok := mgr.Last(name); ok {
			fmt.Fprintf(out, "%s = %.6g\n", name, v)
		}
	}
	return nil
}
