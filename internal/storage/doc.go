package storage

// Package storage provides the durable key-value layer backing the planner.
//
// It holds opaque blobs under fixed keys (the task map lives under one key
// and is rewritten whole on every mutation). Two drivers are available:
//   - "file": one JSON file per key, written atomically (tmp + rename)
//   - "sqlite": a kv table in a SQLite database (optional build tag)
