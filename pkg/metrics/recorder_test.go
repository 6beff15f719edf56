package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-sparse"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return r
}

func TestRecorderCountsByResult(t *testing.T) {
	r := newTestRecorder(t)

	r.Log(sparse.LogEvent{Op: sparse.OpSave, Path: "/a.json", Duration: time.Millisecond})
	r.Log(sparse.LogEvent{Op: sparse.OpSave, Path: "/a.json", Err: errors.New("boom")})

	if got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues("save", "success")); got != 1 {
		t.Fatalf("expected 1 successful save, got %v", got)
	}
	if got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues("save", "error")); got != 1 {
		t.Fatalf("expected 1 failed save, got %v", got)
	}
	if got := testutil.CollectAndCount(r.OperationDuration); got != 1 {
		t.Fatalf("expected one duration series, got %d", got)
	}
}

func TestRecorderOutdatedAndDocuments(t *testing.T) {
	r := newTestRecorder(t)

	r.Log(sparse.LogEvent{Op: sparse.OpLoad, Path: "/a.json"})
	r.Log(sparse.LogEvent{Op: sparse.OpLoad, Path: "/b.json"})
	r.Log(sparse.LogEvent{Op: sparse.OpLoad, Path: "/a.json"})
	r.Log(sparse.LogEvent{Op: sparse.OpLoad, Path: "/c.json", Err: errors.New("missing")})
	r.Log(sparse.LogEvent{Op: "check", Err: sparse.ErrOutdatedPointer})

	if got := testutil.ToFloat64(r.DocumentsTracked); got != 2 {
		t.Fatalf("expected 2 tracked documents, got %v", got)
	}
	if got := testutil.ToFloat64(r.OutdatedTotal); got != 1 {
		t.Fatalf("expected 1 outdated failure, got %v", got)
	}
}

func TestRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := NewRecorder(nil); err != nil {
		t.Fatalf("unregistered recorder: %v", err)
	}
}

func TestRecorderObservesResolution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "root.json")
	if err := os.WriteFile(path, []byte(`{"hello":"world","key1":{"$ref":"#/hello"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := newTestRecorder(t)

	type doc struct {
		Key1 sparse.Ref[string] `json:"key1"`
	}
	if _, err := sparse.NewRootFromFile[doc](path, sparse.WithLogger(r)); err != nil {
		t.Fatalf("new root: %v", err)
	}

	if got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues("resolve", "success")); got != 1 {
		t.Fatalf("expected 1 resolution, got %v", got)
	}
	if got := testutil.ToFloat64(r.DocumentsTracked); got != 1 {
		t.Fatalf("expected 1 tracked document, got %v", got)
	}
}
