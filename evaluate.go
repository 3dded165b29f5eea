package uistate

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("uistate: evaluator not configured")

// Evaluate executes expr against the current root using the configured
// evaluator and wraps the result. Top-level fields of the root (by json tag)
// are available as variables, e.g. "settings.download_encoding.value".
func (s *Store[T]) Evaluate(expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	ctx := RuleContext{Snapshot: snapshotBinding(s.Get()), Store: s.cfg.name}.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError("", expr, ctx.storeLabel(), evalErr)
	s.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Store:    ctx.storeLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

// SubscribeExpr registers a subscription whose selector is an expression
// string compiled once by the configured evaluator. Evaluation errors on
// later commits are reported to the evaluator logger and suppress the
// notification instead of propagating.
func (s *Store[T]) SubscribeExpr(expr string, onChange func(any)) (func(), error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if onChange == nil {
		return nil, fmt.Errorf("uistate: onChange is required")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, wrapEvaluationError(evaluatorEngineName(evaluator), expr, s.cfg.name, err)
	}

	engine := evaluatorEngineName(evaluator)
	selector := func(root T) (any, bool) {
		ctx := RuleContext{Snapshot: snapshotBinding(root), Store: s.cfg.name}.withDefaults()
		start := time.Now()
		value, evalErr := rule.Evaluate(ctx)
		duration := time.Since(start)
		evalErr = wrapEvaluationError(engine, expr, ctx.storeLabel(), evalErr)
		if evalErr != nil {
			s.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
				Engine:   engine,
				Expr:     expr,
				Store:    ctx.storeLabel(),
				Duration: duration,
				Err:      evalErr,
			})
			return nil, false
		}
		return value, true
	}
	return s.subscribe(selector, onChange), nil
}

func (s *Store[T]) resolveEvaluator() (Evaluator, error) {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := s.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := s.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func (s *Store[T]) evaluatorLogger() EvaluatorLogger {
	if s.cfg.logger != nil {
		return s.cfg.logger
	}
	return noopEvaluatorLogger{}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*uistate.exprEvaluator":
		return "expr"
	case "*uistate.celEvaluator":
		return "cel"
	case "*uistate.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}

// snapshotBinding converts a store root into the map binding exposed to
// expressions. Typed roots round-trip through JSON so expression variables
// match the json tags used by field paths.
func snapshotBinding(value any) map[string]any {
	if value == nil {
		return map[string]any{}
	}
	if m, ok := value.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(value)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}
