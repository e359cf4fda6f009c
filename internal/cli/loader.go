package cli

import (
	"math"

	"github.com/fluxion-dg/fluxion/backend/serial"
	"github.com/fluxion-dg/fluxion/internal/simspec"
	"github.com/fluxion-dg/fluxion/operators"
	"github.com/fluxion-dg/fluxion/sym"
)

// sourceName is the template variable the run driver binds the volume
// source field to.
const sourceName = "source"

// problem bundles everything the commands derive from a run
// configuration: the operator builder, its template, the mesh, and the
// step plan.
type problem struct {
	run      *simspec.Run
	wave     operators.StrongWave
	template *sym.Vector
	discr    *serial.Discretization
	dt       float64
	steps    int
}

// loadRun resolves the run configuration. The optional positional
// argument names a CUE file; no argument means the schema defaults.
func loadRun(args []string) (*simspec.Run, error) {
	if len(args) == 0 {
		run, err := simspec.Default()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "default configuration", err)
		}
		return run, nil
	}
	run, err := simspec.Load(args[0])
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return run, nil
}

// waveFromRun maps a run configuration onto the wave operator builder.
// The configured boundary condition applies to the whole boundary.
func waveFromRun(run *simspec.Run) operators.StrongWave {
	wave := operators.StrongWave{
		Dim:      1,
		Speed:    run.Speed,
		FluxType: operators.FluxType(run.FluxType),
	}
	switch run.BC {
	case "dirichlet":
		wave.DirichletTag = sym.TagAll
	case "neumann":
		wave.NeumannTag = sym.TagAll
	case "radiation":
		wave.RadiationTag = sym.TagAll
	}
	if run.Source.Amplitude != 0 {
		wave.SourceName = sourceName
	}
	return wave
}

// setupProblem loads the configuration and assembles the pieces shared
// by show, inspect, and run. The step count divides finalTime evenly so
// the last step lands exactly on it.
func setupProblem(args []string) (*problem, error) {
	run, err := loadRun(args)
	if err != nil {
		return nil, err
	}

	discr, err := serial.NewDiscretization(run.Order, run.Elements, run.Interval.A, run.Interval.B)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid mesh", err)
	}

	wave := waveFromRun(run)
	template, err := wave.Template()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid wave operator", err)
	}

	dt := run.DtScale * discr.DtScale(wave.MaxEigenvalue())
	steps := int(math.Ceil(run.FinalTime / dt))
	if steps < 1 {
		steps = 1
	}
	dt = run.FinalTime / float64(steps)

	return &problem{
		run:      run,
		wave:     wave,
		template: template,
		discr:    discr,
		dt:       dt,
		steps:    steps,
	}, nil
}
