package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"time"
)

var ErrETagMismatch = errors.New("store: etag mismatch")

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves the bytes of one document.
type Store interface {
	Load(ctx context.Context, path string) (data []byte, meta Meta, ok bool, err error)
	Save(ctx context.Context, path string, data []byte, meta Meta) (Meta, error)
}

// ETag returns the content token stores assign to data.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:12])
}

// Key normalises path into the key stores index documents by.
func Key(path string) string {
	return filepath.Clean(path)
}

func checkETag(expected, current string) error {
	if expected == "" || current == "" || expected == current {
		return nil
	}
	return errors.Join(ErrETagMismatch, errors.New("expected "+expected+", got "+current))
}

// mergeMeta overlays the non-zero fields of override onto base.
func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
