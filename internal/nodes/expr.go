package nodes

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// evaluate компилирует и выполняет expr-выражение с полями item
// в качестве окружения. Компиляция идёт для каждого item отдельно:
// переменные окружения перекрывают встроенные функции expr, поэтому
// поле с именем count или len не конфликтует с одноимённым builtin.
func evaluate(src string, fields map[string]any) (any, error) {
	program, err := expr.Compile(src, expr.Env(fields), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	out, err := expr.Run(program, fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	return out, nil
}
