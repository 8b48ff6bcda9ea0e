// Package s3test provides an in-process S3-compatible server for tests.
// It implements the object, bucket, listing and multipart surfaces the
// client under test exercises, with hooks for fault injection.
package s3test

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type storedObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modTime     time.Time
	etag        string
}

type uploadState struct {
	key         string
	contentType string
	metadata    map[string]string
	parts       map[int]storedObject
}

type bucketState struct {
	objects map[string]*storedObject
	uploads map[string]*uploadState
}

// Server is a fake S3 endpoint backed by in-memory state. All exported
// methods are safe for concurrent use.
type Server struct {
	ts *httptest.Server

	mu      sync.Mutex
	buckets map[string]*bucketState

	// PartFailures maps part numbers to a count of times uploads of
	// that part should fail with a 500 before succeeding.
	PartFailures map[int]int

	// AbortCount counts AbortMultipartUpload requests received.
	AbortCount int

	// FailComplete makes CompleteMultipartUpload respond with a 500.
	FailComplete bool

	// CompleteCount counts CompleteMultipartUpload requests received.
	CompleteCount int
}

// New starts a fake server and registers shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		buckets:      make(map[string]*bucketState),
		PartFailures: make(map[int]int),
	}

	r := chi.NewRouter()
	r.Use(s.requireAuth)
	r.Route("/{bucket}", func(r chi.Router) {
		r.Put("/", s.handleCreateBucket)
		r.Delete("/", s.handleDeleteBucket)
		r.Get("/", s.handleList)
		r.Put("/*", s.handlePutObject)
		r.Get("/*", s.handleGetObject)
		r.Head("/*", s.handleHeadObject)
		r.Delete("/*", s.handleDeleteObject)
		r.Post("/*", s.handlePostObject)
	})

	s.ts = httptest.NewServer(r)
	t.Cleanup(s.ts.Close)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.ts.URL
}

// CreateBucket seeds a bucket.
func (s *Server) CreateBucket(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureBucket(name)
}

// SeedObject stores an object directly, bypassing the HTTP surface.
func (s *Server) SeedObject(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ensureBucket(bucket)
	b.objects[key] = &storedObject{
		data:    data,
		modTime: time.Now(),
		etag:    md5Hex(data),
	}
}

// Object returns a stored object's content, if present.
func (s *Server) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		return nil, false
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, false
	}
	return obj.data, true
}

// OpenUploads returns the number of multipart uploads not yet completed
// or aborted in bucket.
func (s *Server) OpenUploads(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		return 0
	}
	return len(b.uploads)
}

func (s *Server) ensureBucket(name string) *bucketState {
	b, ok := s.buckets[name]
	if !ok {
		b = &bucketState{
			objects: make(map[string]*storedObject),
			uploads: make(map[string]*uploadState),
		}
		s.buckets[name] = b
	}
	return b
}

// requireAuth rejects unsigned requests the way a real endpoint would.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signedHeader := strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=")
		signedQuery := r.URL.Query().Get("X-Amz-Signature") != ""
		if !signedHeader && !signedQuery {
			writeError(w, http.StatusForbidden, "AccessDenied", "request is not signed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	s.mu.Lock()
	s.ensureBucket(bucket)
	s.mu.Unlock()
	w.Header().Set("Location", "/"+bucket)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	if len(b.objects) > 0 {
		writeError(w, http.StatusConflict, "BucketNotEmpty", "bucket is not empty")
		return
	}
	delete(s.buckets, bucket)
	w.WriteHeader(http.StatusNoContent)
}

type listEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int    `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

type listResponse struct {
	XMLName               xml.Name    `xml:"ListBucketResult"`
	Name                  string      `xml:"Name"`
	Contents              []listEntry `xml:"Contents"`
	IsTruncated           bool        `xml:"IsTruncated"`
	NextContinuationToken string      `xml:"NextContinuationToken,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}

	prefix := q.Get("prefix")
	maxKeys := 1000
	if v := q.Get("max-keys"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxKeys = n
		}
	}
	startAfter := q.Get("continuation-token")

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) && (startAfter == "" || k > startAfter) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	resp := listResponse{Name: bucket}
	for _, k := range keys {
		if len(resp.Contents) == maxKeys {
			resp.IsTruncated = true
			resp.NextContinuationToken = resp.Contents[len(resp.Contents)-1].Key
			break
		}
		obj := b.objects[k]
		resp.Contents = append(resp.Contents, listEntry{
			Key:          k,
			LastModified: obj.modTime.UTC().Format(time.RFC3339),
			ETag:         `"` + obj.etag + `"`,
			Size:         len(obj.data),
			StorageClass: "STANDARD",
		})
	}
	writeXML(w, http.StatusOK, resp)
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}

	if uploadID := r.URL.Query().Get("uploadId"); uploadID != "" {
		s.handleUploadPart(w, r, bucket, key, uploadID, data)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	obj := &storedObject{
		data:        data,
		contentType: r.Header.Get("Content-Type"),
		metadata:    metadataFromHeaders(r.Header),
		modTime:     time.Now(),
		etag:        md5Hex(data),
	}
	b.objects[key] = obj
	w.Header().Set("ETag", `"`+obj.etag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUploadPart(w http.ResponseWriter, r *http.Request, bucket, key, uploadID string, data []byte) {
	partNumber, err := strconv.Atoi(r.URL.Query().Get("partNumber"))
	if err != nil || partNumber < 1 || partNumber > 10000 {
		writeError(w, http.StatusBadRequest, "InvalidPartNumber", "part number out of range")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if remaining := s.PartFailures[partNumber]; remaining > 0 {
		s.PartFailures[partNumber] = remaining - 1
		writeError(w, http.StatusInternalServerError, "InternalError", "injected part failure")
		return
	}
	b, ok := s.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	up, ok := b.uploads[uploadID]
	if !ok || up.key != key {
		writeError(w, http.StatusNotFound, "NoSuchUpload", "upload does not exist")
		return
	}
	etag := md5Hex(data)
	up.parts[partNumber] = storedObject{data: data, etag: etag}
	w.Header().Set("ETag", `"`+etag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeObjectHeaders(w, obj)
	w.WriteHeader(http.StatusOK)
	w.Write(obj.data) //nolint:errcheck
}

func (s *Server) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeObjectHeaders(w, obj)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}

	if uploadID := r.URL.Query().Get("uploadId"); uploadID != "" {
		s.AbortCount++
		if up, ok := b.uploads[uploadID]; !ok || up.key != key {
			writeError(w, http.StatusNotFound, "NoSuchUpload", "upload does not exist")
			return
		}
		delete(b.uploads, uploadID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	delete(b.objects, key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}

	if _, isInitiate := q["uploads"]; isInitiate {
		uploadID := uuid.NewString()
		b.uploads[uploadID] = &uploadState{
			key:         key,
			contentType: r.Header.Get("Content-Type"),
			metadata:    metadataFromHeaders(r.Header),
			parts:       make(map[int]storedObject),
		}
		writeXML(w, http.StatusOK, struct {
			XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
			Bucket   string   `xml:"Bucket"`
			Key      string   `xml:"Key"`
			UploadID string   `xml:"UploadId"`
		}{Bucket: bucket, Key: key, UploadID: uploadID})
		return
	}

	uploadID := q.Get("uploadId")
	up, ok := b.uploads[uploadID]
	if !ok || up.key != key {
		writeError(w, http.StatusNotFound, "NoSuchUpload", "upload does not exist")
		return
	}
	s.CompleteCount++
	if s.FailComplete {
		writeError(w, http.StatusInternalServerError, "InternalError", "injected complete failure")
		return
	}

	var manifest struct {
		XMLName xml.Name `xml:"CompleteMultipartUpload"`
		Parts   []struct {
			PartNumber int    `xml:"PartNumber"`
			ETag       string `xml:"ETag"`
		} `xml:"Part"`
	}
	body, _ := io.ReadAll(r.Body)
	if err := xml.Unmarshal(body, &manifest); err != nil || len(manifest.Parts) == 0 {
		writeError(w, http.StatusBadRequest, "MalformedXML", "bad complete manifest")
		return
	}

	var assembled []byte
	last := 0
	for _, p := range manifest.Parts {
		if p.PartNumber <= last {
			writeError(w, http.StatusBadRequest, "InvalidPartOrder", "parts not ascending")
			return
		}
		last = p.PartNumber
		part, ok := up.parts[p.PartNumber]
		if !ok || `"`+part.etag+`"` != strings.TrimSpace(p.ETag) {
			writeError(w, http.StatusBadRequest, "InvalidPart", fmt.Sprintf("part %d mismatch", p.PartNumber))
			return
		}
		assembled = append(assembled, part.data...)
	}

	etag := md5Hex(assembled) + "-" + strconv.Itoa(len(manifest.Parts))
	b.objects[key] = &storedObject{
		data:        assembled,
		contentType: up.contentType,
		metadata:    up.metadata,
		modTime:     time.Now(),
		etag:        etag,
	}
	delete(b.uploads, uploadID)

	writeXML(w, http.StatusOK, struct {
		XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
		Location string   `xml:"Location"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		ETag     string   `xml:"ETag"`
	}{
		Location: s.ts.URL + "/" + bucket + "/" + key,
		Bucket:   bucket,
		Key:      key,
		ETag:     `"` + etag + `"`,
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*storedObject, bool) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return nil, false
	}
	obj, ok := b.objects[key]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchKey", "object does not exist")
		return nil, false
	}
	return obj, true
}

func writeObjectHeaders(w http.ResponseWriter, obj *storedObject) {
	h := w.Header()
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	h.Set("Content-Length", strconv.Itoa(len(obj.data)))
	h.Set("ETag", `"`+obj.etag+`"`)
	h.Set("Last-Modified", obj.modTime.UTC().Format(http.TimeFormat))
	for k, v := range obj.metadata {
		h.Set("x-amz-meta-"+k, v)
	}
}

func metadataFromHeaders(h http.Header) map[string]string {
	meta := make(map[string]string)
	for k, vs := range h {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "x-amz-meta-") && len(vs) > 0 {
			meta[strings.TrimPrefix(lk, "x-amz-meta-")] = vs[0]
		}
	}
	return meta
}

type errorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeXML(w, status, errorResponse{Code: code, Message: message})
}

func writeXML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	out, err := xml.Marshal(v)
	if err != nil {
		return
	}
	w.Write(out) //nolint:errcheck
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
