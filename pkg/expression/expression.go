package expression

import (
	"path/filepath"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"

	"github.com/autobrr/linkdupe/pkg/catalog"
)

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

// Env is the set of fields available to filter expressions.
type Env struct {
	Path    string
	Name    string
	Dir     string
	Ext     string
	Size    int64
	ModTime time.Time
	Links   uint64
}

func NewEnv(e catalog.Entry) Env {
	return Env{
		Path:    e.Path,
		Name:    filepath.Base(e.Path),
		Dir:     filepath.Dir(e.Path),
		Ext:     filepath.Ext(e.Path),
		Size:    e.Size,
		ModTime: e.ModTime,
		Links:   e.Links,
	}
}

func Compile(expressions []string) ([]CompiledExpression, error) {
	compiled := make([]CompiledExpression, 0, len(expressions))
	for _, text := range expressions {
		program, err := expr.Compile(text, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrapf(err, "compile expression %q", text)
		}
		compiled = append(compiled, CompiledExpression{Program: program, Text: text})
	}
	return compiled, nil
}
