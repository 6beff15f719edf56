// Package store defines the persistence contract a sparse State can use to
// load and flush document bytes instead of touching the filesystem directly.
//
// Responsibilities:
//   - Store only loads/saves the raw bytes of a single document keyed by its
//     absolute path. Parsing, format detection and versioning stay in the
//     sparse package.
//   - Meta carries storage-owned metadata. ETag is the optimistic
//     concurrency token: a Save carrying a non-empty ETag fails with
//     ErrETagMismatch when the stored document changed since it was loaded.
//
// Data flow:
//
//	Store.Load -> State (parse, version) -> ValueMut.Save -> State.SaveToDisk -> Store.Save
//
// MemoryStore is intended for tests and in-process documents; FileStore maps
// keys onto the local filesystem.
package store
