package core

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprFilters compiles expr-lang expressions into FilterFuncs.
// Compiled programs are cached by expression string.
//
// The expression sees three variables: value (the filter value), field
// (the row's value for the filtered field) and row (the whole row), plus
// params when the filter carries them. It must evaluate to a bool.
type ExprFilters struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

// NewExprFilters creates an empty expression cache.
func NewExprFilters() *ExprFilters {
	return &ExprFilters{cache: make(map[string]*vm.Program)}
}

// Compile returns a FilterFunc for expression. Evaluation errors make the
// row fail the filter and are logged at debug level.
func (e *ExprFilters) Compile(expression string) (FilterFunc, error) {
	prog, err := e.program(expression)
	if err != nil {
		return nil, err
	}

	return func(value, rowValue any, row Row, params any) bool {
		env := map[string]any{
			"value":  value,
			"field":  rowValue,
			"row":    map[string]any(row),
			"params": params,
		}
		result, err := expr.Run(prog, env)
		if err != nil {
			slog.Debug("filter expression failed", "expression", expression, "error", err)
			return false
		}
		ok, _ := result.(bool)
		return ok
	}, nil
}

func (e *ExprFilters) program(expression string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prog, ok := e.cache[expression]; ok {
		return prog, nil
	}
	prog, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile filter expression: %w", err)
	}
	e.cache[expression] = prog
	return prog, nil
}
