package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"eduadmin_go/config"
	"eduadmin_go/models"
	"eduadmin_go/storage"
	"eduadmin_go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]storage.Object
	putErr  error
	listErr error
}

func newFakeObjects() *fakeObjects { return &fakeObjects{objects: map[string]storage.Object{}} }

func (f *fakeObjects) Put(_ context.Context, key string, body io.ReadSeeker, contentType string, metadata map[string]string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, _ := io.ReadAll(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = storage.Object{Key: key, Size: int64(len(data)), ContentType: contentType, Metadata: metadata, LastModified: time.Now()}
	return nil
}

func (f *fakeObjects) List(_ context.Context, prefix string) ([]storage.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Object
	for k, o := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) URL(key string) string { return "https://bucket.example/" + key }

func TestRemoteStoreRoundTrip(t *testing.T) {
	objects := newFakeObjects()
	store := NewRemoteDocumentStore(objects)
	store.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	doc, err := store.Put(ctx, "s1", models.Document{Name: "Marksheet.PDF"}, strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, doc.Source)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, int64(8), doc.Size)
	assert.Equal(t, "students/s1/2024/03/"+doc.ID+".pdf", doc.Key)
	assert.Equal(t, "https://bucket.example/"+doc.Key, doc.URL)

	docs, err := store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.Equal(t, "Marksheet.PDF", docs[0].Name)

	other, err := store.List(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.Delete(ctx, "s1", doc.ID))
	assert.True(t, utils.IsNotFound(store.Delete(ctx, "s1", doc.ID)))
}

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryFallbackStore()
	ctx := context.Background()

	a, err := store.Put(ctx, "s1", models.Document{Name: "a.png"}, strings.NewReader("png"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "s1", models.Document{Name: "b.pdf"}, strings.NewReader("pdf"))
	require.NoError(t, err)

	assert.Equal(t, SourceMemory, a.Source)
	data, ok := store.Content("s1", a.ID)
	require.True(t, ok)
	assert.Equal(t, "png", string(data))

	docs, _ := store.List(ctx, "s1")
	assert.Len(t, docs, 2)

	require.NoError(t, store.Delete(ctx, "s1", a.ID))
	docs, _ = store.List(ctx, "s1")
	require.Len(t, docs, 1)
	assert.Equal(t, "b.pdf", docs[0].Name)

	assert.True(t, utils.IsNotFound(store.Delete(ctx, "s9", "nope")))
}

func TestFallbackStoreUsesMemoryWhenRemoteFails(t *testing.T) {
	objects := newFakeObjects()
	objects.putErr = errors.New("access denied")
	memory := NewInMemoryFallbackStore()
	store := &FallbackStore{Primary: NewRemoteDocumentStore(objects), Fallback: memory}
	ctx := context.Background()

	doc, err := store.Put(ctx, "s1", models.Document{Name: "id.jpg"}, strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, doc.Source)

	data, ok := memory.Content("s1", doc.ID)
	require.True(t, ok)
	assert.Equal(t, "jpeg-bytes", string(data))

	objects.putErr = nil
	remote, err := store.Put(ctx, "s1", models.Document{Name: "later.pdf"}, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, remote.Source)

	docs, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, store.Delete(ctx, "s1", doc.ID))
	require.NoError(t, store.Delete(ctx, "s1", remote.ID))
	docs, err = store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFallbackStoreListSurvivesRemoteOutage(t *testing.T) {
	objects := newFakeObjects()
	memory := NewInMemoryFallbackStore()
	store := &FallbackStore{Primary: NewRemoteDocumentStore(objects), Fallback: memory}
	ctx := context.Background()

	_, err := memory.Put(ctx, "s1", models.Document{Name: "a.pdf"}, strings.NewReader("a"))
	require.NoError(t, err)
	objects.listErr = errors.New("timeout")

	docs, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = store.List(ctx, "s2")
	assert.Error(t, err)
}

func TestValidateUpload(t *testing.T) {
	allowed := []string{"jpg", "pdf"}
	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr string
	}{
		{"ok", "scan.PDF", 100, ""},
		{"empty name", " ", 1, "file required"},
		{"bad type", "virus.exe", 1, "file type not allowed"},
		{"too big", "photo.jpg", 2048, "file too large"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUpload(tc.file, tc.size, 1024, allowed)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, utils.IsValidation(err))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewDocumentStore(t *testing.T) {
	s, err := NewDocumentStore(&config.Config{DocumentStore: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryFallbackStore{}, s)

	_, err = NewDocumentStore(&config.Config{DocumentStore: "s3"})
	assert.Error(t, err, "bucket is required")

	_, err = NewDocumentStore(&config.Config{DocumentStore: "ftp"})
	assert.Error(t, err)
}
