package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/config"
)

// ErrNotFound is returned when the requested object key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// NewS3Client builds a real S3 client for the configured endpoint. The
// custom endpoint resolver and path-style addressing make the client work
// against MinIO as well as AWS.
func NewS3Client(ctx context.Context, cfg config.S3Config) (S3Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					SigningRegion:     region,
					HostnameImmutable: true, // important for MinIO
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle // required for MinIO
		o.HTTPClient = &http.Client{}
	})
	return client, nil
}

// ObjectStore stores and retrieves form blobs under one bucket. Crawled
// originals live under raw/{slug}-{ts}.{ext}; converted derivatives under
// raw/{stem}.pdf; page previews under previews/{slug}.png.
type ObjectStore struct {
	client   S3Client
	uploader *manager.Uploader
	bucket   string
}

// NewObjectStore wraps an S3 client for the given bucket. When the client
// is a full SDK client the managed uploader handles large blobs in parts.
func NewObjectStore(client S3Client, bucket string) *ObjectStore {
	store := &ObjectStore{client: client, bucket: bucket}
	if api, ok := client.(manager.UploadAPIClient); ok {
		store.uploader = manager.NewUploader(api)
	}
	return store
}

// Bucket returns the bucket this store writes to.
func (o *ObjectStore) Bucket() string {
	return o.bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (o *ObjectStore) EnsureBucket(ctx context.Context) error {
	_, err := o.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(o.bucket),
	})
	if err == nil {
		return nil
	}
	_, err = o.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(o.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", o.bucket, err)
	}
	common.Logger.WithField("bucket", o.bucket).Info("created bucket")
	return nil
}

// Put uploads data under key with the given content type. An md5 checksum
// is attached as object metadata for sync-style comparisons.
func (o *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"md5": fmt.Sprintf("%x", md5.Sum(data)),
		},
	}
	var err error
	if o.uploader != nil {
		_, err = o.uploader.Upload(ctx, input)
	} else {
		_, err = o.client.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Get downloads the object stored under key.
func (o *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether an object is stored under key.
func (o *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noKey) || errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", key, err)
	}
	return true, nil
}

// ContentTypeForFormat maps a source document format to its MIME type.
func ContentTypeForFormat(format string) string {
	switch format {
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "png":
		return "image/png"
	}
	return "application/octet-stream"
}
