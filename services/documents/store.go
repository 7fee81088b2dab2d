// Package documents stores files attached to student profiles.
//
// The remote store writes to S3. When it is unavailable, uploads land in a
// process-local fallback so the admin does not lose the file for the session.
package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"eduadmin_go/config"
	"eduadmin_go/models"
	"eduadmin_go/storage"
	"eduadmin_go/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Document sources
const (
	SourceRemote = "remote"
	SourceMemory = "memory"
)

// DocumentStore keeps per-student documents.
type DocumentStore interface {
	Put(ctx context.Context, studentID string, doc models.Document, body io.Reader) (models.Document, error)
	List(ctx context.Context, studentID string) ([]models.Document, error)
	Delete(ctx context.Context, studentID, docID string) error
}

// ValidateUpload checks the file name and size against the allow list.
func ValidateUpload(name string, size, maxSize int64, allowed []string) error {
	if strings.TrimSpace(name) == "" {
		return utils.NewValidationError("file required", utils.FieldError{Field: "file", Message: "is required"})
	}
	if !utils.IsValidFileExtension(name, allowed) {
		return utils.NewValidationError("file type not allowed", utils.FieldError{
			Field:   "file",
			Message: "allowed types: " + strings.Join(allowed, ", "),
		})
	}
	if maxSize > 0 && size > maxSize {
		return utils.NewValidationError("file too large", utils.FieldError{
			Field:   "file",
			Message: "must be at most " + strconv.FormatInt(maxSize, 10) + " bytes",
		})
	}
	return nil
}

// prepare fills the generated fields of a new document.
func prepare(studentID string, doc models.Document, size int64, now time.Time) models.Document {
	doc.ID = uuid.NewString()
	doc.StudentID = studentID
	doc.Size = size
	doc.UploadedAt = now.UTC()
	if doc.ContentType == "" {
		doc.ContentType = utils.ContentTypeFor(utils.FileExtension(doc.Name))
	}
	return doc
}

// ObjectStore is the part of storage.S3Store the remote store uses.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, contentType string, metadata map[string]string) error
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

const (
	metaName = "Document-Name"
	metaID   = "Document-Id"
)

// RemoteDocumentStore keeps documents in S3 under
// students/<id>/<yyyy>/<mm>/<uuid>.<ext>.
type RemoteDocumentStore struct {
	objects ObjectStore
	now     func() time.Time
}

func NewRemoteDocumentStore(objects ObjectStore) *RemoteDocumentStore {
	return &RemoteDocumentStore{objects: objects, now: time.Now}
}

func studentPrefix(studentID string) string {
	return "students/" + studentID + "/"
}

func (s *RemoteDocumentStore) Put(ctx context.Context, studentID string, doc models.Document, body io.Reader) (models.Document, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read file: %v", err)
	}
	now := s.now()
	doc = prepare(studentID, doc, int64(len(data)), now)
	doc.Key = fmt.Sprintf("%s%d/%02d/%s.%s", studentPrefix(studentID), now.Year(), now.Month(), doc.ID, utils.FileExtension(doc.Name))
	doc.Source = SourceRemote

	meta := map[string]string{metaName: doc.Name, metaID: doc.ID}
	if err := s.objects.Put(ctx, doc.Key, bytes.NewReader(data), doc.ContentType, meta); err != nil {
		return models.Document{}, err
	}
	doc.URL = s.objects.URL(doc.Key)
	return doc, nil
}

func (s *RemoteDocumentStore) List(ctx context.Context, studentID string) ([]models.Document, error) {
	objects, err := s.objects.List(ctx, studentPrefix(studentID))
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(objects))
	for _, o := range objects {
		docs = append(docs, s.fromObject(studentID, o))
	}
	return docs, nil
}

func (s *RemoteDocumentStore) Delete(ctx context.Context, studentID, docID string) error {
	objects, err := s.objects.List(ctx, studentPrefix(studentID))
	if err != nil {
		return err
	}
	for _, o := range objects {
		if s.fromObject(studentID, o).ID == docID {
			return s.objects.Delete(ctx, o.Key)
		}
	}
	return &utils.NotFoundError{Resource: "document", ID: docID}
}

func (s *RemoteDocumentStore) fromObject(studentID string, o storage.Object) models.Document {
	base := path.Base(o.Key)
	id := strings.TrimSuffix(base, path.Ext(base))
	name := base
	if v := metaValue(o.Metadata, metaID); v != "" {
		id = v
	}
	if v := metaValue(o.Metadata, metaName); v != "" {
		name = v
	}
	return models.Document{
		ID:          id,
		StudentID:   studentID,
		Name:        name,
		ContentType: o.ContentType,
		Size:        o.Size,
		Key:         o.Key,
		URL:         s.objects.URL(o.Key),
		Source:      SourceRemote,
		UploadedAt:  o.LastModified,
	}
}

// metaValue looks a key up ignoring case; S3 canonicalises metadata names.
func metaValue(meta map[string]string, key string) string {
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

type memoryEntry struct {
	doc  models.Document
	data []byte
}

// InMemoryFallbackStore keeps documents in process memory. Contents are lost
// on restart.
type InMemoryFallbackStore struct {
	mu   sync.RWMutex
	docs map[string][]memoryEntry
	now  func() time.Time
}

func NewInMemoryFallbackStore() *InMemoryFallbackStore {
	return &InMemoryFallbackStore{docs: make(map[string][]memoryEntry), now: time.Now}
}

func (s *InMemoryFallbackStore) Put(_ context.Context, studentID string, doc models.Document, body io.Reader) (models.Document, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read file: %v", err)
	}
	doc = prepare(studentID, doc, int64(len(data)), s.now())
	doc.Source = SourceMemory

	s.mu.Lock()
	s.docs[studentID] = append(s.docs[studentID], memoryEntry{doc: doc, data: data})
	s.mu.Unlock()
	return doc, nil
}

func (s *InMemoryFallbackStore) List(_ context.Context, studentID string) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.docs[studentID]
	out := make([]models.Document, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.doc)
	}
	return out, nil
}

func (s *InMemoryFallbackStore) Delete(_ context.Context, studentID, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.docs[studentID]
	for i, e := range entries {
		if e.doc.ID == docID {
			s.docs[studentID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return &utils.NotFoundError{Resource: "document", ID: docID}
}

// Content returns the stored bytes of a document.
func (s *InMemoryFallbackStore) Content(studentID, docID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.docs[studentID] {
		if e.doc.ID == docID {
			return e.data, true
		}
	}
	return nil, false
}

// FallbackStore writes to Primary and falls back to Fallback when Primary fails.
// List merges both; documents are newest first.
type FallbackStore struct {
	Primary  DocumentStore
	Fallback DocumentStore
}

func (s *FallbackStore) Put(ctx context.Context, studentID string, doc models.Document, body io.Reader) (models.Document, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read file: %v", err)
	}
	saved, err := s.Primary.Put(ctx, studentID, doc, bytes.NewReader(data))
	if err == nil {
		return saved, nil
	}
	logrus.WithFields(logrus.Fields{
		"student_id": studentID,
		"name":       doc.Name,
	}).WithError(err).Warn("remote document upload failed, keeping document in memory")
	return s.Fallback.Put(ctx, studentID, doc, bytes.NewReader(data))
}

func (s *FallbackStore) List(ctx context.Context, studentID string) ([]models.Document, error) {
	fallback, err := s.Fallback.List(ctx, studentID)
	if err != nil {
		return nil, err
	}
	primary, err := s.Primary.List(ctx, studentID)
	if err != nil {
		logrus.WithField("student_id", studentID).WithError(err).Warn("remote document list failed")
		if len(fallback) == 0 {
			return nil, err
		}
	}
	docs := append(primary, fallback...)
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
	return docs, nil
}

func (s *FallbackStore) Delete(ctx context.Context, studentID, docID string) error {
	err := s.Fallback.Delete(ctx, studentID, docID)
	if err == nil || !utils.IsNotFound(err) {
		return err
	}
	return s.Primary.Delete(ctx, studentID, docID)
}

// ContentReader is implemented by stores that can serve document bytes
// themselves. Remote documents are served from their URL instead.
type ContentReader interface {
	Content(studentID, docID string) ([]byte, bool)
}

// Content serves documents held by the fallback.
func (s *FallbackStore) Content(studentID, docID string) ([]byte, bool) {
	if r, ok := s.Fallback.(ContentReader); ok {
		return r.Content(studentID, docID)
	}
	return nil, false
}

// NewDocumentStore builds the store selected by DOCUMENT_STORE.
func NewDocumentStore(cfg *config.Config) (DocumentStore, error) {
	switch cfg.DocumentStore {
	case "", SourceMemory:
		return NewInMemoryFallbackStore(), nil
	case "s3":
		objects, err := storage.NewS3Store(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.S3BucketName)
		if err != nil {
			return nil, err
		}
		return &FallbackStore{
			Primary:  NewRemoteDocumentStore(objects),
			Fallback: NewInMemoryFallbackStore(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown DOCUMENT_STORE %q", cfg.DocumentStore)
	}
}
