package sparse

import (
	"encoding/json"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/goliatone/go-sparse/pkg/store"
)

// WithEvaluator configures the evaluator used by Root.Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithStructValidation validates values against their `validate` struct tags
// before a mutable view writes them back.
func WithStructValidation() Option {
	return func(cfg *config) {
		if cfg.validate == nil {
			cfg.validate = validator.New(validator.WithRequiredStructEnabled())
		}
	}
}

// WithValidator uses v for struct tag validation on save.
func WithValidator(v *validator.Validate) Option {
	return func(cfg *config) {
		cfg.validate = v
	}
}

// WithDecoderConfig configures the json.Decoder used to turn document nodes
// into typed values.
func WithDecoderConfig(configure func(*json.Decoder)) Option {
	return func(cfg *config) {
		if configure != nil {
			cfg.configureDec = append(cfg.configureDec, configure)
		}
	}
}

// WithUseNumber decodes untyped numbers as json.Number.
func WithUseNumber() Option {
	return WithDecoderConfig(func(dec *json.Decoder) {
		dec.UseNumber()
	})
}

// WithDisallowUnknownFields rejects document keys that do not map to a field.
func WithDisallowUnknownFields() Option {
	return WithDecoderConfig(func(dec *json.Decoder) {
		dec.DisallowUnknownFields()
	})
}

func (c *config) validateValue(value any) error {
	if err := callValidate(value); err != nil {
		return err
	}
	if c.validate == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return c.validate.Struct(rv.Interface())
}

func callValidate(value any) error {
	if v, ok := value.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if v, ok := rv.Elem().Interface().(interface{ Validate() error }); ok {
			return v.Validate()
		}
	}
	return nil
}

// WithStore reads and flushes documents through st instead of the local
// filesystem. Flushes carry the ETag of the last load so a document changed
// behind the state's back fails with store.ErrETagMismatch.
func WithStore(st store.Store) Option {
	return func(cfg *config) {
		cfg.store = st
	}
}
