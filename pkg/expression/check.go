package expression

import (
	"github.com/expr-lang/expr"
	"github.com/pkg/errors"

	"github.com/autobrr/linkdupe/pkg/catalog"
)

// Filter excludes catalog entries matching any of its expressions.
type Filter struct {
	Expressions []CompiledExpression
}

func NewFilter(expressions []string) (*Filter, error) {
	compiled, err := Compile(expressions)
	if err != nil {
		return nil, err
	}
	return &Filter{Expressions: compiled}, nil
}

// Excluded implements catalog.Filter.
func (f *Filter) Excluded(e catalog.Entry) (bool, string, error) {
	if f == nil {
		return false, "", nil
	}
	return CheckEntrySingleMatchWithReason(e, f.Expressions)
}

func CheckEntrySingleMatchWithReason(e catalog.Entry, expressions []CompiledExpression) (bool, string, error) {
	env := NewEnv(e)

	for _, expression := range expressions {
		result, err := expr.Run(expression.Program, env)
		if err != nil {
			return false, "", errors.Wrap(err, "check expression")
		}

		expResult, ok := result.(bool)
		if !ok {
			return false, "", errors.Errorf("expression %q did not return a bool: %T", expression.Text, result)
		}

		if expResult {
			return true, expression.Text, nil
		}
	}

	return false, "", nil
}
