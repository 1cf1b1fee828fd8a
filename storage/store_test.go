package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStorePutGet(t *testing.T) {
	mock := NewMockS3Client()
	store := NewObjectStore(mock, "forms")

	data := []byte("%PDF-1.4 test")
	require.NoError(t, store.Put(context.Background(), "raw/mau-1700000000.pdf", data, "application/pdf"))
	assert.True(t, mock.PutObjectCalled)
	assert.Equal(t, "forms", mock.LastBucket)

	got, err := store.Get(context.Background(), "raw/mau-1700000000.pdf")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	obj := mock.Objects["raw/mau-1700000000.pdf"]
	require.NotNil(t, obj)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.NotEmpty(t, obj.Metadata["md5"])
}

func TestObjectStoreGetMissing(t *testing.T) {
	store := NewObjectStore(NewMockS3Client(), "forms")

	_, err := store.Get(context.Background(), "raw/nope.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestObjectStoreExists(t *testing.T) {
	mock := NewMockS3Client()
	store := NewObjectStore(mock, "forms")

	ok, err := store.Exists(context.Background(), "raw/x.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(context.Background(), "raw/x.pdf", []byte("x"), "application/pdf"))
	ok, err = store.Exists(context.Background(), "raw/x.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureBucket(t *testing.T) {
	mock := NewMockS3Client()
	store := NewObjectStore(mock, "forms")

	require.NoError(t, store.EnsureBucket(context.Background()))
	assert.True(t, mock.Buckets["forms"])
	// idempotent
	require.NoError(t, store.EnsureBucket(context.Background()))
}

func TestContentTypeForFormat(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeForFormat("pdf"))
	assert.Equal(t, "application/msword", ContentTypeForFormat("doc"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ContentTypeForFormat("docx"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFormat("bin"))
}
