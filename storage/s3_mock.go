package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockS3Object holds one stored blob for the mock client.
type MockS3Object struct {
	Key         string
	Content     []byte
	ContentType string
	Metadata    map[string]string
}

// MockS3Client is an in-memory S3Client for tests. It records the last call
// parameters and can be primed with Err to simulate failures.
type MockS3Client struct {
	Objects map[string]*MockS3Object
	Buckets map[string]bool
	Err     error

	PutObjectCalled bool
	GetObjectCalled bool
	LastBucket      string
	LastObjectKey   string
}

// NewMockS3Client creates an empty mock client.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		Objects: make(map[string]*MockS3Object),
		Buckets: make(map[string]bool),
	}
}

// HeadBucket mocks checking bucket existence.
func (m *MockS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if params.Bucket != nil && m.Buckets[*params.Bucket] {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, &types.NoSuchBucket{}
}

// CreateBucket mocks creating a bucket.
func (m *MockS3Client) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if params.Bucket != nil {
		m.Buckets[*params.Bucket] = true
	}
	return &s3.CreateBucketOutput{}, nil
}

// PutObject mocks uploading an object.
func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.PutObjectCalled = true
	if params.Bucket != nil {
		m.LastBucket = *params.Bucket
	}
	if params.Key != nil {
		m.LastObjectKey = *params.Key
	}
	if m.Err != nil {
		return nil, m.Err
	}

	var content []byte
	if params.Body != nil {
		content, _ = io.ReadAll(params.Body)
	}
	if params.Key != nil {
		m.Objects[*params.Key] = &MockS3Object{
			Key:         *params.Key,
			Content:     content,
			ContentType: aws.ToString(params.ContentType),
			Metadata:    params.Metadata,
		}
	}
	return &s3.PutObjectOutput{}, nil
}

// GetObject mocks retrieving an object.
func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.GetObjectCalled = true
	if params.Bucket != nil {
		m.LastBucket = *params.Bucket
	}
	if params.Key != nil {
		m.LastObjectKey = *params.Key
	}
	if m.Err != nil {
		return nil, m.Err
	}

	if params.Key != nil {
		if obj, exists := m.Objects[*params.Key]; exists {
			return &s3.GetObjectOutput{
				Body:     io.NopCloser(bytes.NewReader(obj.Content)),
				Metadata: obj.Metadata,
			}, nil
		}
	}
	return nil, &types.NoSuchKey{}
}

// HeadObject mocks retrieving object metadata.
func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if params.Key != nil {
		if obj, exists := m.Objects[*params.Key]; exists {
			return &s3.HeadObjectOutput{
				Metadata:      obj.Metadata,
				ContentLength: aws.Int64(int64(len(obj.Content))),
			}, nil
		}
	}
	return nil, &types.NotFound{}
}

// ListObjectsV2 mocks listing objects, honoring the prefix filter.
func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	prefix := aws.ToString(params.Prefix)
	var contents []types.Object
	for key, obj := range m.Objects {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			contents = append(contents, types.Object{
				Key:  aws.String(obj.Key),
				Size: aws.Int64(int64(len(obj.Content))),
			})
		}
	}
	return &s3.ListObjectsV2Output{Contents: contents}, nil
}
