// Package blob provides avatar object storage backends.
package blob

import "context"

// PutOptions carries object metadata set at write time.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Store is the blob storage port. Keys are opaque to the store; the upload
// pipeline owns the key format.
type Store interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	Delete(ctx context.Context, key string) error
}
