package sparse

import (
	"context"

	"github.com/goliatone/go-sparse/pkg/activity"
)

// WithActivityHooks attaches activity hooks notified on document load,
// replacement, reload, export and flush. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel sets the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.activityChannel = channel
	}
}

// ActivityHooks returns a copy of the hooks configured on the state.
func (s *State) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.cfg.activityHooks)
}

func (s *State) emit(build func(activity.DocumentEventInput) activity.Event, input activity.DocumentEventInput) {
	if s.emitter == nil || !s.emitter.Enabled() {
		return
	}
	if err := s.emitter.Emit(context.Background(), build(input)); err != nil {
		s.cfg.log().Log(LogEvent{Op: "activity", Path: input.Path, Err: err})
	}
}

func documentInput(path string, file *StateFile) activity.DocumentEventInput {
	return activity.DocumentEventInput{
		Path:       path,
		Format:     file.format.String(),
		Version:    file.version,
		SnapshotID: file.snapshotID,
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
