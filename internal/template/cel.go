package template

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// CompileError reports an expression that failed to parse or type-check.
type CompileError struct {
	Field   string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type envs struct {
	candidate *cel.Env // c
	product   *cel.Env // r, site
	tuple     *cel.Env // r
}

func newEnvs() (*envs, error) {
	candidateType := cel.MapType(cel.StringType, cel.DynType)
	tupleType := cel.ListType(candidateType)

	candidate, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("c", candidateType),
	)
	if err != nil {
		return nil, fmt.Errorf("candidate env: %w", err)
	}
	product, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("r", tupleType),
		cel.Variable("site", cel.ListType(cel.IntType)),
	)
	if err != nil {
		return nil, fmt.Errorf("product env: %w", err)
	}
	tuple, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("r", tupleType),
	)
	if err != nil {
		return nil, fmt.Errorf("tuple env: %w", err)
	}
	return &envs{candidate: candidate, product: product, tuple: tuple}, nil
}

// compileExpr compiles expr and checks its static type. Expressions that
// only reach dyn map values type-check as dyn and are checked at runtime.
func compileExpr(env *cel.Env, expr string, want *cel.Type, field string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &CompileError{Field: field, Message: issues.Err().Error()}
	}
	out := ast.OutputType()
	if !out.IsExactType(want) && !out.IsExactType(cel.DynType) {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("expression returns %s, want %s", out, want)}
	}
	prg, err := env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error()}
	}
	return prg, nil
}

func eval(ctx context.Context, prg cel.Program, vars map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return out.Value(), nil
}

func evalBool(ctx context.Context, prg cel.Program, vars map[string]any) (bool, error) {
	v, err := eval(ctx, prg, vars)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("CEL result is not boolean: %T", v)
	}
	return b, nil
}

func evalString(ctx context.Context, prg cel.Program, vars map[string]any) (string, error) {
	v, err := eval(ctx, prg, vars)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("CEL result is not a string: %T", v)
	}
	return s, nil
}

func evalInt(ctx context.Context, prg cel.Program, vars map[string]any) (int64, error) {
	v, err := eval(ctx, prg, vars)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("CEL result is not an int: %T", v)
	}
	return n, nil
}
