package metastore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"solana-token-forge/internal/observability"
)

// S3Store is a content-addressed blob store on an S3 bucket. Objects
// are keyed by the hex SHA-256 of their content, so uploads are
// idempotent and immutable by construction.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string // public URL prefix the bucket is served under
}

// NewS3Store builds a store over the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, baseURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Store{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// NewS3StoreWithClient wires an existing client. Tests use this with a
// localstack endpoint.
func NewS3StoreWithClient(client *s3.Client, bucket, baseURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// contentKey derives the object key: hex digest plus the original
// file extension, so browsers resolve the content type from the URL.
func contentKey(data []byte, filename string) string {
	digest := sha256.Sum256(data)
	key := hex.EncodeToString(digest[:])
	if ext := path.Ext(filename); ext != "" {
		key += ext
	}
	return key
}

func (s *S3Store) UploadBlob(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	key := contentKey(data, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	observability.RecordBlobUpload(err)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

var _ BlobStore = (*S3Store)(nil)
