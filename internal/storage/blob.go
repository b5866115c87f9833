package storage

import "io"

// BlobStore holds binary assets extracted from QTI packages.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
