package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formvn/formbot/config"
	"github.com/formvn/formbot/db"
	"github.com/formvn/formbot/queue"
	"github.com/formvn/formbot/storage"
)

// fakeDedupRepo is an in-memory DedupRepo with the same uniqueness
// semantics as the Mongo collection.
type fakeDedupRepo struct {
	docs map[string]*db.CrawledDocument
}

func newFakeDedupRepo() *fakeDedupRepo {
	return &fakeDedupRepo{docs: make(map[string]*db.CrawledDocument)}
}

func (f *fakeDedupRepo) key(url, hash string) string { return url + "|" + hash }

func (f *fakeDedupRepo) Find(ctx context.Context, url, hash string) (*db.CrawledDocument, error) {
	if doc, ok := f.docs[f.key(url, hash)]; ok {
		return doc, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeDedupRepo) Insert(ctx context.Context, doc *db.CrawledDocument) error {
	k := f.key(doc.URL, doc.ContentHash)
	if _, ok := f.docs[k]; ok {
		return db.ErrDuplicate
	}
	f.docs[k] = doc
	return nil
}

func (f *fakeDedupRepo) Touch(ctx context.Context, url, hash string, when time.Time) error {
	doc, ok := f.docs[f.key(url, hash)]
	if !ok {
		return db.ErrNotFound
	}
	doc.LastCheckedAt = when
	return nil
}

type fakePublisher struct {
	events []queue.StorageEvent
}

func (f *fakePublisher) PublishStorageEvent(event queue.StorageEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestCrawler(t *testing.T, serverURL string) (*Crawler, *fakeDedupRepo, *storage.MockS3Client, *fakePublisher) {
	t.Helper()
	mock := storage.NewMockS3Client()
	store := storage.NewObjectStore(mock, "forms")
	repo := newFakeDedupRepo()
	pub := &fakePublisher{}
	cfg := config.CrawlerConfig{
		Interval:     time.Hour,
		FetchTimeout: 5 * time.Second,
		Sources: []config.CrawlerSource{
			{URL: serverURL, Name: "mau", Format: "docx", SourceLabel: "Test"},
		},
	}
	return New(cfg, store, repo, pub), repo, mock, pub
}

func TestRunCycleNewDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PK\x03\x04 docx bytes"))
	}))
	defer server.Close()

	c, repo, mock, pub := newTestCrawler(t, server.URL)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	stats := c.RunCycle(context.Background())
	assert.Equal(t, Stats{New: 1}, stats)

	require.Len(t, repo.docs, 1)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "raw/mau-1700000000.docx", pub.events[0].Key)
	assert.Contains(t, mock.Objects, "raw/mau-1700000000.docx")

	for _, doc := range repo.docs {
		assert.Equal(t, "raw/mau-1700000000.docx", doc.BlobKey)
		assert.Equal(t, "forms", doc.Bucket)
		assert.Equal(t, doc.CrawledAt, doc.LastCheckedAt)
	}
}

func TestRunCycleUnchangedRefreshesTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("same content"))
	}))
	defer server.Close()

	c, repo, mock, pub := newTestCrawler(t, server.URL)

	first := time.Unix(1700000000, 0)
	second := time.Unix(1700003600, 0)
	c.now = func() time.Time { return first }
	assert.Equal(t, Stats{New: 1}, c.RunCycle(context.Background()))

	c.now = func() time.Time { return second }
	assert.Equal(t, Stats{Skipped: 1}, c.RunCycle(context.Background()))

	// exactly one record, exactly one blob, timestamp advanced
	require.Len(t, repo.docs, 1)
	assert.Len(t, mock.Objects, 1)
	assert.Len(t, pub.events, 1)
	for _, doc := range repo.docs {
		assert.Equal(t, second.UTC(), doc.LastCheckedAt)
		assert.Equal(t, first.UTC(), doc.CrawledAt)
	}
}

func TestRunCycleChangedContentCreatesSecondRecord(t *testing.T) {
	content := "v1"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer server.Close()

	c, repo, _, _ := newTestCrawler(t, server.URL)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	assert.Equal(t, Stats{New: 1}, c.RunCycle(context.Background()))

	content = "v2"
	c.now = func() time.Time { return time.Unix(1700007200, 0) }
	assert.Equal(t, Stats{New: 1}, c.RunCycle(context.Background()))
	assert.Len(t, repo.docs, 2)
}

func TestRunCycleServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c, repo, _, _ := newTestCrawler(t, server.URL)
	assert.Equal(t, Stats{Failed: 1}, c.RunCycle(context.Background()))
	assert.Empty(t, repo.docs)
}

func TestRunCycleOneFailureDoesNotAbortOthers(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	}))
	defer okServer.Close()

	mock := storage.NewMockS3Client()
	store := storage.NewObjectStore(mock, "forms")
	repo := newFakeDedupRepo()
	cfg := config.CrawlerConfig{
		FetchTimeout: 2 * time.Second,
		Interval:     time.Hour,
		Sources: []config.CrawlerSource{
			{URL: "http://127.0.0.1:1/dead", Name: "dead", Format: "pdf"},
			{URL: okServer.URL, Name: "alive", Format: "pdf"},
		},
	}
	c := New(cfg, store, repo, nil)

	stats := c.RunCycle(context.Background())
	assert.Equal(t, Stats{New: 1, Failed: 1}, stats)
}

func TestFetcherInsecureFallback(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secured"))
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	// the test server's certificate is self-signed, so the verified attempt
	// fails and the insecure retry must carry the request
	data, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "secured", string(data))
}

func TestFetcherRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(2 * time.Second)
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 404"))
}
