package sparse

import (
	"fmt"
	"time"
)

// Evaluate runs expr against the root document with every reference
// dereferenced. Top-level keys of the document are bound as variables.
func (r *Root[T]) Evaluate(expr string) (Response[any], error) {
	return r.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith executes expr using ctx, falling back to the dereferenced root
// document when ctx.Snapshot is nil.
func (r *Root[T]) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	var (
		evaluator Evaluator
		logger    Logger
	)
	err := r.shared.Write(func(s *State) error {
		if ctx.Path == "" {
			ctx.Path = s.RootPath()
		}
		if ctx.Snapshot == nil {
			snapshot, err := s.Dereference(s.RootPath(), "/")
			if err != nil {
				return err
			}
			ctx.Snapshot = snapshot
		}
		var err error
		evaluator, err = s.cfg.resolveEvaluator()
		logger = s.cfg.log()
		return err
	})
	if err != nil {
		return Response[any]{}, err
	}

	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.pathLabel(), evalErr)
	logger.Log(LogEvent{
		Op:       OpEvaluate,
		Path:     ctx.Path,
		Engine:   engine,
		Expr:     expr,
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

func (c *config) resolveEvaluator() (Evaluator, error) {
	if c.evaluator != nil {
		return c.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if c.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(c.programCache))
	}
	if c.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(c.functions))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	c.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

// NewEvaluator builds the evaluator registered under engine: "expr", "cel"
// or "js". The js engine needs the js_eval build tag.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch engine {
	case "", "expr":
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case "cel":
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case "js":
		evaluator := NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
		if evaluator == nil {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch typed := e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	case interface{ engineName() string }:
		return typed.engineName()
	default:
		return "custom"
	}
}
