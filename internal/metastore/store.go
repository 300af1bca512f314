// Package metastore uploads token logos and JSON descriptors to a
// content-addressed blob store and links them into token metadata.
package metastore

import "context"

// BlobStore writes blobs keyed by their content hash and returns a
// publicly resolvable URI. Uploading identical bytes twice returns the
// same URI.
type BlobStore interface {
	UploadBlob(ctx context.Context, data []byte, filename, contentType string) (string, error)
}
