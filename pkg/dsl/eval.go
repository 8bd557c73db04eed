package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// DefaultDecisionExpr 是默认的录取判定：概率达到阈值（含等于）即 admit。
const DefaultDecisionExpr = "probability >= threshold"

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量类型
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("probability", cel.DoubleType),
		cel.Variable("threshold", cel.DoubleType),
		cel.Variable("track", cel.StringType),
		cel.Variable("features", cel.MapType(cel.StringType, cel.DoubleType)),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Rule 是录取判定规则，使用 CEL (Common Expression Language) 表达。
// 表达式在 NewRule 时编译一次，之后 Evaluate 可以并发调用。
//
// 可用变量：
//   - probability: 模型输出的概率 [0,1]
//   - threshold:   track 的判定阈值
//   - track:       "undergraduate_specialist" / "graduate"
//   - features:    特征向量（map<string, double>）
//
// 示例：
//   - `probability >= threshold`（默认）
//   - `probability >= threshold || features["Целевая квота"] == 1.0`
//   - `track == "graduate" ? probability >= threshold + 0.05 : probability >= threshold`
type Rule struct {
	expr string
	prg  cel.Program
}

// NewRule 编译表达式；空表达式使用 DefaultDecisionExpr。
func NewRule(expr string) (*Rule, error) {
	if expr == "" {
		expr = DefaultDecisionExpr
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %v", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

func (r *Rule) Expr() string { return r.expr }

// IsDefault 报告规则是否为默认阈值判定。
func (r *Rule) IsDefault() bool { return r.expr == DefaultDecisionExpr }

// Evaluate 执行规则，返回是否 admit。
func (r *Rule) Evaluate(probability, threshold float64, track string, features map[string]float64) (bool, error) {
	if features == nil {
		features = map[string]float64{}
	}
	out, _, err := r.prg.Eval(map[string]any{
		"probability": probability,
		"threshold":   threshold,
		"track":       track,
		"features":    features,
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}
