package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-sparse"
)

type config struct {
	Name sparse.Ref[string] `json:"name"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newRoot(t *testing.T) (*sparse.Root[config], string, string) {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "root.json")
	names := filepath.Join(dir, "names.json")
	writeFile(t, root, `{"name":{"$ref":"names.json#/primary"}}`)
	writeFile(t, names, `{"primary":"alpha"}`)
	r, err := sparse.NewRootFromFile[config](root)
	if err != nil {
		t.Fatalf("new root: %v", err)
	}
	return r, root, names
}

func currentName(r *sparse.Root[config]) (string, error) {
	view, err := r.RootGet()
	if err != nil {
		return "", err
	}
	value, err := view.Val().Name.Get(r.State())
	if err != nil {
		return "", err
	}
	return *value.Val(), nil
}

func TestReloadSkipsUntrackedAndReportsChanges(t *testing.T) {
	r, rootPath, names := newRoot(t)
	writeFile(t, names, `{"primary":"beta"}`)

	result := Reload(r.State(), []string{names, rootPath, filepath.Join(filepath.Dir(names), "other.json")}, 0, time.Millisecond)
	if result.Err != nil {
		t.Fatalf("reload: %v", result.Err)
	}
	if !reflect.DeepEqual(result.Paths, []string{names, rootPath}) {
		t.Fatalf("unexpected paths %v", result.Paths)
	}
	if !reflect.DeepEqual(result.Changed, []string{names}) {
		t.Fatalf("unexpected changed %v", result.Changed)
	}

	view, err := r.RootGet()
	if err != nil {
		t.Fatalf("root get: %v", err)
	}
	if _, err := view.Val().Name.Get(r.State()); !errors.Is(err, sparse.ErrOutdatedPointer) {
		t.Fatalf("expected ErrOutdatedPointer, got %v", err)
	}
	if err := r.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := currentName(r)
	if err != nil || got != "beta" {
		t.Fatalf("expected beta, got %q (%v)", got, err)
	}
}

func TestReloadRetriesWhileBorrowed(t *testing.T) {
	r, _, names := newRoot(t)
	shared := r.State()

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = shared.Read(func(*sparse.State) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	result := Reload(shared, []string{names}, 0, time.Millisecond)
	if !errors.Is(result.Err, sparse.ErrStateAlreadyBorrowed) {
		t.Fatalf("expected ErrStateAlreadyBorrowed, got %v", result.Err)
	}

	time.AfterFunc(20*time.Millisecond, func() { close(release) })
	result = Reload(shared, []string{names}, 200, 5*time.Millisecond)
	if result.Err != nil {
		t.Fatalf("expected reload to succeed after release, got %v", result.Err)
	}
	<-finished
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	r, _, names := newRoot(t)

	results := make(chan Result, 16)
	w, err := New(r.State(), &Options{
		Debounce: 20 * time.Millisecond,
		OnReload: func(res Result) {
			results <- res
		},
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if !w.IsWatching() {
		t.Fatalf("expected watcher to be running")
	}
	if dirs := w.Dirs(); !reflect.DeepEqual(dirs, []string{filepath.Dir(names)}) {
		t.Fatalf("unexpected watched dirs %v", dirs)
	}

	writeFile(t, names, `{"primary":"gamma"}`)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case res := <-results:
			if res.Err != nil {
				continue
			}
			// A batch may observe the truncated file before the full write.
			if err := r.Update(); err != nil {
				continue
			}
			if name, err := currentName(r); err == nil && name == "gamma" {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload")
		}
	}
}

func TestWatcherRejectsInMemoryState(t *testing.T) {
	r, err := sparse.NewRootFromValue[config]("/virtual/root.json", map[string]any{"name": "inline"}, nil)
	if err != nil {
		t.Fatalf("new root: %v", err)
	}
	w, err := New(r.State(), nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()
	if err := w.Start(context.Background()); !errors.Is(err, sparse.ErrNoDistantFile) {
		t.Fatalf("expected ErrNoDistantFile, got %v", err)
	}
}

func TestDedupeKeepsFirstOccurrenceOrder(t *testing.T) {
	got := dedupe([]string{"/b", "/a", "/b", "/c", "/a"})
	if !reflect.DeepEqual(got, []string{"/b", "/a", "/c"}) {
		t.Fatalf("unexpected dedupe result %v", got)
	}
}

func TestRetryBorrowedStopsWithoutTrailingSleep(t *testing.T) {
	calls := 0
	start := time.Now()
	err := retryBorrowed(func() error {
		calls++
		return sparse.ErrStateAlreadyBorrowed
	}, 0, time.Second)
	if !errors.Is(err, sparse.ErrStateAlreadyBorrowed) {
		t.Fatalf("expected ErrStateAlreadyBorrowed, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if elapsed := time.Since(start); elapsed >= 500*time.Millisecond {
		t.Fatalf("expected no sleep after the last attempt, took %s", elapsed)
	}

	calls = 0
	err = retryBorrowed(func() error {
		calls++
		if calls < 3 {
			return sparse.ErrStateAlreadyBorrowed
		}
		return nil
	}, 5, time.Millisecond)
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, got err=%v calls=%d", err, calls)
	}
}
