package sparse

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-sparse/pkg/activity"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	state, err := NewStateFromValue("/virtual/root.json", map[string]any{"a": 1}, WithActivityHooks(activity.Hooks{nil, hook}))
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	hooks := state.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	// Mutate returned slice and ensure original configuration is unaffected.
	hooks[0] = nil
	again := state.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	state, err := NewStateFromValue("/virtual/root.json", map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if hooks := state.ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestActivityHookFailureIsLogged(t *testing.T) {
	var logged []LogEvent
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return errors.New("sink down") })

	state, err := NewStateFromValue("/virtual/root.json", map[string]any{"a": 1},
		WithActivityHooks(activity.Hooks{hook}),
		WithLogger(LoggerFunc(func(event LogEvent) { logged = append(logged, event) })),
	)
	if err != nil {
		t.Fatalf("hook failures must not fail the operation: %v", err)
	}
	if err := state.ReplaceAt("/virtual/root.json", "/a", 2); err != nil {
		t.Fatalf("replace: %v", err)
	}

	var failures int
	for _, event := range logged {
		if event.Op == "activity" && event.Err != nil {
			failures++
		}
	}
	if failures != 2 {
		t.Fatalf("expected load and replace hook failures to be logged, got %d in %+v", failures, logged)
	}
}
