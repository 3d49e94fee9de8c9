package notify

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Filter is a CEL predicate deciding which changes are dispatched.
//
// Variables: subject, domain, old_status, new_status, actor (strings) and
// affected_users (list of strings). Example:
//
//	subject != "stock_account" || new_status in ["LOW_STOCK", "OUT_OF_STOCK"]
type Filter struct {
	expr    string
	program cel.Program
}

// NewFilter compiles expr. The expression must evaluate to a bool.
func NewFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("subject", cel.StringType),
		cel.Variable("domain", cel.StringType),
		cel.Variable("old_status", cel.StringType),
		cel.Variable("new_status", cel.StringType),
		cel.Variable("actor", cel.StringType),
		cel.Variable("affected_users", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}
	return &Filter{expr: expr, program: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.expr }

// Match evaluates the filter against change.
func (f *Filter) Match(change StatusChange) (bool, error) {
	users := change.AffectedUsers
	if users == nil {
		users = []string{}
	}
	out, _, err := f.program.Eval(map[string]any{
		"subject":        string(change.Subject),
		"domain":         change.Domain,
		"old_status":     change.OldStatus,
		"new_status":     change.NewStatus,
		"actor":          change.ActorID,
		"affected_users": users,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T", out.Value())
	}
	return match, nil
}
