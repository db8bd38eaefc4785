package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/angelmondragon/popspot-backend/pkg/config"
	"google.golang.org/api/option"
)

type fakeStorage struct {
	mu           sync.Mutex
	objects      map[string][]byte
	bucketExists bool
	denyWrites   bool
	uploadQuery  []string
}

func (f *fakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/b/store-images"):
		if !f.bucketExists {
			writeAPIError(w, http.StatusNotFound, "The specified bucket does not exist.")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"store-images"}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/b/store-images/o"):
		if f.denyWrites {
			writeAPIError(w, http.StatusForbidden, "caller does not have storage.objects.create access")
			return
		}
		f.uploadQuery = append(f.uploadQuery, r.URL.RawQuery)
		name := r.URL.Query().Get("name")
		body, _ := io.ReadAll(r.Body)
		if name == "" {
			name = extractName(string(body))
		}
		if _, exists := f.objects[name]; exists {
			writeAPIError(w, http.StatusPreconditionFailed, "At least one of the pre-conditions you specified did not hold.")
			return
		}
		f.objects[name] = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"`+name+`","bucket":"store-images","size":"5"}`)
	case r.Method == http.MethodDelete && strings.Contains(path, "/b/store-images/o/"):
		name := path[strings.Index(path, "/o/")+3:]
		if _, ok := f.objects[name]; !ok {
			writeAPIError(w, http.StatusNotFound, "No such object")
			return
		}
		delete(f.objects, name)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeAPIError(w, http.StatusBadRequest, "unexpected request "+r.Method+" "+path)
	}
}

// multipart uploads carry the object metadata as the first JSON part.
func extractName(body string) string {
	idx := strings.Index(body, `"name":"`)
	if idx < 0 {
		return ""
	}
	rest := body[idx+len(`"name":"`):]
	return rest[:strings.Index(rest, `"`)]
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, `{"error":{"code":`+strconv.Itoa(code)+`,"message":"`+msg+`"}}`)
}

func newTestClient(t *testing.T, fake *fakeStorage) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := config.StorageConfig{
		Bucket:          "store-images",
		PublicBaseURL:   "https://cdn.test",
		CacheControlSec: 3600,
	}
	client, err := NewClient(context.Background(), cfg, nil,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestBucketExists(t *testing.T) {
	fake := &fakeStorage{objects: map[string][]byte{}}
	client := newTestClient(t, fake)

	ok, err := client.BucketExists(context.Background())
	if err != nil {
		t.Fatalf("bucket exists: %v", err)
	}
	if ok {
		t.Fatalf("expected missing bucket")
	}
	if err := client.Ping(context.Background()); !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound from ping, got %v", err)
	}

	fake.bucketExists = true
	if ok, err := client.BucketExists(context.Background()); err != nil || !ok {
		t.Fatalf("expected bucket present, got %v %v", ok, err)
	}
}

func TestUploadRefusesOverwrite(t *testing.T) {
	fake := &fakeStorage{objects: map[string][]byte{}, bucketExists: true}
	client := newTestClient(t, fake)
	ctx := context.Background()

	res, err := client.Upload(ctx, "u1/stores/1700000000000-abc.png", "image/png", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Path != "u1/stores/1700000000000-abc.png" {
		t.Fatalf("unexpected path %q", res.Path)
	}
	if res.URL != "https://cdn.test/store-images/u1/stores/1700000000000-abc.png" {
		t.Fatalf("unexpected url %q", res.URL)
	}
	if len(fake.uploadQuery) != 1 || !strings.Contains(fake.uploadQuery[0], "ifGenerationMatch=0") {
		t.Fatalf("expected no-overwrite precondition, got %v", fake.uploadQuery)
	}

	if _, err := client.Upload(ctx, "u1/stores/1700000000000-abc.png", "image/png", strings.NewReader("again")); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
}

func TestUploadForbidden(t *testing.T) {
	fake := &fakeStorage{objects: map[string][]byte{}, bucketExists: true, denyWrites: true}
	client := newTestClient(t, fake)

	_, err := client.Upload(context.Background(), "u1/a.png", "image/png", strings.NewReader("x"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeleteIgnoresMissingObject(t *testing.T) {
	fake := &fakeStorage{objects: map[string][]byte{"u1/a.png": []byte("x")}, bucketExists: true}
	client := newTestClient(t, fake)
	ctx := context.Background()

	if err := client.Delete(ctx, "u1/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := fake.objects["u1/a.png"]; ok {
		t.Fatalf("object not deleted")
	}
	if err := client.Delete(ctx, "u1/a.png"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestPathFromURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"https://cdn.test/store-images/u1/stores/a.png", "u1/stores/a.png", true},
		{"https://x.supabase.co/storage/v1/object/public/store-images/u1/b.webp?v=2", "u1/b.webp", true},
		{"https://cdn.test/other-bucket/u1/a.png", "", false},
		{"https://cdn.test/store-images/", "", false},
	}
	for _, tc := range cases {
		got, ok := PathFromURL("store-images", tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("PathFromURL(%q) = %q %v, want %q %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
