// Package blobstore stores image blobs and analysis artifacts.
//
// Two backends implement the Store interface: a filesystem tree for
// single-machine deployments and MinIO (S3-compatible) for shared object
// storage. Keys are forward-slash paths; images live under images/<hash>
// and detector visualizations under traditional-analysis/. Both backends
// report missing objects as ErrNotFound so callers can distinguish absent
// media from transport failures.
package blobstore
