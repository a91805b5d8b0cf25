// Package formula 封装部件分解与物料消耗公式的算术求值。
// 公式为普通算术表达式，变量来自明细尺寸（H/W/D/Q）与数值型属性
package formula

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Evaluator 表达式求值契约
type Evaluator interface {
	// Evaluate 对公式求值。公式语法错误或引用未定义变量时返回错误
	Evaluate(formula string, vars map[string]float64) (float64, error)
	// Validate 纯语法检查，不求值
	Validate(formula string) bool
}

// ExprEvaluator 基于 expr-lang/expr 的实现
type ExprEvaluator struct{}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

func (e *ExprEvaluator) Evaluate(formula string, vars map[string]float64) (float64, error) {
	if formula == "" {
		return 0, fmt.Errorf("公式为空")
	}
	env := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		env[k] = v
	}
	out, err := expr.Eval(formula, env)
	if err != nil {
		return 0, fmt.Errorf("公式 %q 求值失败: %w", formula, err)
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("公式 %q 的结果不是数值: %T", formula, out)
	}
}

func (e *ExprEvaluator) Validate(formula string) bool {
	if formula == "" {
		return false
	}
	_, err := expr.Compile(formula,
		expr.Env(map[string]interface{}{}),
		expr.AllowUndefinedVariables(),
	)
	return err == nil
}
