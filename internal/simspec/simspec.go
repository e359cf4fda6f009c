// Package simspec loads run configurations. The schema is CUE,
// embedded with its defaults; user files are unified against it and
// the result decodes into a Run. Unknown fields, type conflicts and
// out-of-range values surface as ConfigErrors carrying the field path
// and source position.
package simspec

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Run is a decoded run configuration.
type Run struct {
	Name      string   `json:"name"`
	Elements  int      `json:"elements"`
	Order     int      `json:"order"`
	Interval  Interval `json:"interval"`
	Speed     float64  `json:"speed"`
	FinalTime float64  `json:"finalTime"`
	DtScale   float64  `json:"dtScale"`
	FluxType  string   `json:"fluxType"`
	BC        string   `json:"bc"`
	Source    Source   `json:"source"`
	Log       Log      `json:"log"`
}

// Interval is the 1D domain [A, B].
type Interval struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Source describes the Gaussian volume source, active while
// t < Duration. A zero amplitude disables it.
type Source struct {
	Amplitude float64 `json:"amplitude"`
	Width     float64 `json:"width"`
	Center    float64 `json:"center"`
	Duration  float64 `json:"duration"`
}

// Log configures run diagnostics. An empty path keeps samples in
// memory.
type Log struct {
	Path    string   `json:"path"`
	Watches []string `json:"watches"`
}

// ConfigError is a configuration error with the offending field path
// and, when known, the source position.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and decodes a configuration file.
func Load(path string) (*Run, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Default returns the configuration with every field at its schema
// default.
func Default() (*Run, error) {
	return Parse("default", nil)
}

// Parse decodes CUE source against the schema. The filename labels
// positions in error messages; empty source yields the defaults.
func Parse(filename string, src []byte) (*Run, error) {
	cuectx := cuecontext.New()

	schema := cuectx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Run"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("internal schema: %w", err)
	}

	user := cuectx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := def.Unify(user)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var run Run
	if err := v.Decode(&run); err != nil {
		return nil, formatCUEError(err)
	}

	// The schema constrains fields independently; relations between
	// fields are checked here.
	if run.Interval.B <= run.Interval.A {
		return nil, &ConfigError{
			Field:   "interval",
			Message: fmt.Sprintf("b (%g) must exceed a (%g)", run.Interval.B, run.Interval.A),
		}
	}
	return &run, nil
}

// formatCUEError surfaces the first CUE error with its field path and
// position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := strings.Join(first.Path(), ".")
	if field == "" {
		field = "config"
	}
	format, args := first.Msg()

	ce := &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
