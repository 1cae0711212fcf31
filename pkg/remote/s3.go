package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// S3API is the subset of the S3 client used by S3Mirror.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror stores the document as a single object. The leading slash of the
// key is dropped so "/agentcore/config" becomes the object "agentcore/config".
type S3Mirror struct {
	client S3API
	bucket string
	logger zerolog.Logger
}

// NewS3Mirror creates an object storage mirror.
func NewS3Mirror(client S3API, bucket string, logger zerolog.Logger) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("backend", string(BackendS3)).Str("bucket", bucket).Logger(),
	}
}

// Name returns "s3".
func (m *S3Mirror) Name() string { return string(BackendS3) }

func objectKey(key string) string {
	return strings.TrimPrefix(key, "/")
}

// Get downloads the object.
func (m *S3Mirror) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, notFound(m.Name(), key)
		}
		return nil, wrapError(m.Name(), "get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, wrapError(m.Name(), "get", key, err)
	}
	m.logger.Debug().Str("key", objectKey(key)).Int("bytes", len(data)).Msg("Fetched remote document")
	return data, nil
}

// Put uploads the object, replacing any previous content.
func (m *S3Mirror) Put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return wrapError(m.Name(), "put", key, err)
	}
	m.logger.Debug().Str("key", objectKey(key)).Int("bytes", len(data)).Msg("Stored remote document")
	return nil
}

func isMissingObject(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ engine.Mirror = (*S3Mirror)(nil)
