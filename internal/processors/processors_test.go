package processors_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/documents"
	"github.com/inkwellhq/inkwell/internal/engine"
	"github.com/inkwellhq/inkwell/internal/processors"
	"github.com/inkwellhq/inkwell/pkg/lifecycle"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// memBlobs is an in-memory storage.System for processor tests.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}}
}

func (m *memBlobs) Start(lc *lifecycle.Coordinator) error { return nil }

func (m *memBlobs) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *memBlobs) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memBlobs) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

func intPtr(n int) *int { return &n }

func TestRegisterBuiltins(t *testing.T) {
	reg := engine.NewRegistry()
	if err := processors.RegisterBuiltins(reg); err != nil {
		t.Fatalf("RegisterBuiltins() error = %v", err)
	}

	for _, typ := range []string{"metadata", "approval", "archive"} {
		if _, ok := reg.Lookup(typ); !ok {
			t.Errorf("builtin %q not registered", typ)
		}
	}

	// Registering twice collides on every type.
	if err := processors.RegisterBuiltins(reg); err == nil {
		t.Error("second RegisterBuiltins() should fail")
	}
}

func TestMetadataOutput(t *testing.T) {
	proc := &processors.Metadata{}

	doc := &documents.Document{
		ID:          uuid.New(),
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2048,
		ContentHash: "abc123",
		PageCount:   intPtr(7),
	}

	res, err := proc.Execute(context.Background(), engine.Input{Document: doc})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if res.Output["filename"] != "report.pdf" {
		t.Errorf("filename = %v", res.Output["filename"])
	}
	if res.Output["size_bytes"] != int64(2048) {
		t.Errorf("size_bytes = %v (%T)", res.Output["size_bytes"], res.Output["size_bytes"])
	}
	if res.Output["page_count"] != 7 {
		t.Errorf("page_count = %v", res.Output["page_count"])
	}

	// The output satisfies the processor's own declared schema.
	if err := proc.OutputSchema().Validate(res.Output); err != nil {
		t.Errorf("output violates own schema: %v", err)
	}
}

func TestMetadataWithoutPageCount(t *testing.T) {
	proc := &processors.Metadata{}

	doc := &documents.Document{
		Filename:    "scan.png",
		ContentType: "image/png",
		SizeBytes:   100,
		ContentHash: "def",
	}

	res, err := proc.Execute(context.Background(), engine.Input{Document: doc})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if _, present := res.Output["page_count"]; present {
		t.Error("page_count should be absent for documents without one")
	}
	if err := proc.OutputSchema().Validate(res.Output); err != nil {
		t.Errorf("output violates own schema: %v", err)
	}
}

func TestApprovalSuspends(t *testing.T) {
	proc := &processors.Approval{}

	tests := []struct {
		name   string
		config map[string]any
		want   time.Duration
	}{
		{
			name: "default timeout",
			want: 72 * time.Hour,
		},
		{
			name:   "timeout from config",
			config: map[string]any{"timeout_seconds": float64(3600)},
			want:   time.Hour,
		},
		{
			name:   "integer timeout",
			config: map[string]any{"timeout_seconds": 60},
			want:   time.Minute,
		},
		{
			name:   "non-numeric timeout ignored",
			config: map[string]any{"timeout_seconds": "soon"},
			want:   72 * time.Hour,
		},
		{
			name:   "non-positive timeout ignored",
			config: map[string]any{"timeout_seconds": float64(-5)},
			want:   72 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := proc.Execute(context.Background(), engine.Input{Config: tt.config})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if res.Suspend == nil {
				t.Fatal("approval should always suspend")
			}
			if res.Suspend.Timeout != tt.want {
				t.Errorf("timeout = %v, want %v", res.Suspend.Timeout, tt.want)
			}
		})
	}
}

func TestArchiveCopiesBlob(t *testing.T) {
	blobs := newMemBlobs()
	src := "tenants/t1/documents/hash/report.pdf"
	blobs.blobs[src] = []byte("%PDF content")

	proc := &processors.Archive{}
	doc := &documents.Document{
		StorageKey:  src,
		ContentType: "application/pdf",
	}

	res, err := proc.Execute(context.Background(), engine.Input{
		Document: doc,
		Blobs:    blobs,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	wantDst := "tenants/t1/documents/hash/archive/report.pdf"
	if res.Output["archive_key"] != wantDst {
		t.Errorf("archive_key = %v, want %s", res.Output["archive_key"], wantDst)
	}
	if res.Output["source_key"] != src {
		t.Errorf("source_key = %v, want %s", res.Output["source_key"], src)
	}

	if !bytes.Equal(blobs.blobs[wantDst], []byte("%PDF content")) {
		t.Error("archived blob content differs from source")
	}
	if err := proc.OutputSchema().Validate(res.Output); err != nil {
		t.Errorf("output violates own schema: %v", err)
	}
}

func TestArchiveCustomPrefix(t *testing.T) {
	blobs := newMemBlobs()
	src := "tenants/t1/documents/hash/report.pdf"
	blobs.blobs[src] = []byte("data")

	proc := &processors.Archive{}
	res, err := proc.Execute(context.Background(), engine.Input{
		Document: &documents.Document{StorageKey: src},
		Config:   map[string]any{"prefix": "cold"},
		Blobs:    blobs,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "tenants/t1/documents/hash/cold/report.pdf"
	if res.Output["archive_key"] != want {
		t.Errorf("archive_key = %v, want %s", res.Output["archive_key"], want)
	}
}

func TestArchiveMissingSource(t *testing.T) {
	proc := &processors.Archive{}
	_, err := proc.Execute(context.Background(), engine.Input{
		Document: &documents.Document{StorageKey: "tenants/t1/documents/hash/missing.pdf"},
		Blobs:    newMemBlobs(),
	})
	if err == nil {
		t.Error("Execute() should fail when the source blob is missing")
	}
}
