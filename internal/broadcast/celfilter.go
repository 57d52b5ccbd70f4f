package broadcast

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/padsense/vitals/internal/reading"
)

// Filter wraps a compiled CEL program evaluated against each reading before
// delivery. The zero value (and an empty expression) matches everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles a CEL expression. Available variables: pressure, id,
// ts_ms, now_ms (ints) and temperature, humidity (int or null when the
// reading omits them).
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("pressure", cel.IntType),
		cel.Variable("temperature", cel.DynType),
		cel.Variable("humidity", cel.DynType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against a reading. When disabled, returns true.
// Evaluation errors fail closed.
func (f Filter) Eval(r reading.Reading) bool {
	if !f.enabled {
		return true
	}
	var temperature, humidity any
	if r.Temperature != nil {
		temperature = int64(*r.Temperature)
	}
	if r.Humidity != nil {
		humidity = int64(*r.Humidity)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"id":          int64(r.ID),
		"pressure":    int64(r.Pressure),
		"temperature": temperature,
		"humidity":    humidity,
		"ts_ms":       r.TimestampMs,
		"now_ms":      time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
