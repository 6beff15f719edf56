package sparse

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goliatone/go-sparse/pkg/activity"
	"github.com/goliatone/go-sparse/pkg/store"
)

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	// Snapshot is the dereferenced document tree the expression runs against.
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Path is the document the snapshot was taken from.
	Path string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) pathLabel() string {
	if ctx.Path != "" {
		return ctx.Path
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// Option configures a State and every Root built on top of it.
type Option func(*config)

type config struct {
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	logger          Logger
	activityHooks   activity.Hooks
	activityChannel string
	validate        *validator.Validate
	configureDec    []func(*json.Decoder)
	store           store.Store
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c *config) log() Logger {
	if c.logger != nil {
		return c.logger
	}
	return noopLogger{}
}

func (c *config) emitter() *activity.Emitter {
	return activity.NewEmitter(c.activityHooks, activity.Config{
		Enabled: len(c.activityHooks) > 0,
		Channel: c.activityChannel,
	})
}
