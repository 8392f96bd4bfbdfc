package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFileBackend(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	boltB, err := NewBoltBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewBoltBackend: %v", err)
	}
	all := map[string]Backend{
		"file":   file,
		"bolt":   boltB,
		"memory": NewMemoryBackend(),
	}
	t.Cleanup(func() {
		for _, b := range all {
			_ = b.Close()
		}
	})
	return all
}

func newDoc(t *testing.T, id string, seq uint64, data interface{}) *types.Document {
	t.Helper()
	doc, err := types.NewDocument(id, data)
	if err != nil {
		t.Fatalf("NewDocument(%s): %v", id, err)
	}
	doc.Seq = seq
	return &doc
}

func TestDocumentRoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.EnsureCollection("tasks"); err != nil {
				t.Fatalf("EnsureCollection: %v", err)
			}
			want := newDoc(t, "t1", 1, map[string]interface{}{
				"title":    "write report",
				"priority": float64(3),
				"tags":     []interface{}{"work", "urgent"},
				"done":     false,
			})
			if err := b.WriteDocument("tasks", want); err != nil {
				t.Fatalf("WriteDocument: %v", err)
			}
			got, err := b.ReadDocument("tasks", "t1")
			if err != nil {
				t.Fatalf("ReadDocument: %v", err)
			}
			if got == nil {
				t.Fatal("ReadDocument returned nil for existing document")
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
			ok, err := got.VerifyChecksum()
			if err != nil {
				t.Fatalf("VerifyChecksum: %v", err)
			}
			if !ok {
				t.Error("checksum did not survive the round trip")
			}
		})
	}
}

func TestReadMissingDocument(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.EnsureCollection("tasks"); err != nil {
				t.Fatalf("EnsureCollection: %v", err)
			}
			doc, err := b.ReadDocument("tasks", "ghost")
			if err != nil {
				t.Fatalf("ReadDocument: %v", err)
			}
			if doc != nil {
				t.Errorf("expected nil for missing document, got %+v", doc)
			}
			// Missing collection behaves the same as a missing document.
			doc, err = b.ReadDocument("nope", "ghost")
			if err != nil || doc != nil {
				t.Errorf("missing collection: got (%+v, %v), want (nil, nil)", doc, err)
			}
		})
	}
}

func TestDeleteDocument(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.EnsureCollection("tasks"); err != nil {
				t.Fatalf("EnsureCollection: %v", err)
			}
			if err := b.WriteDocument("tasks", newDoc(t, "t1", 1, map[string]interface{}{"a": float64(1)})); err != nil {
				t.Fatalf("WriteDocument: %v", err)
			}
			if err := b.DeleteDocument("tasks", "t1"); err != nil {
				t.Fatalf("DeleteDocument: %v", err)
			}
			if doc, err := b.ReadDocument("tasks", "t1"); err != nil || doc != nil {
				t.Errorf("after delete: got (%+v, %v), want (nil, nil)", doc, err)
			}
			err := b.DeleteDocument("tasks", "t1")
			if !types.IsNotFound(err) {
				t.Errorf("deleting twice: got %v, want not-found", err)
			}
		})
	}
}

func TestListDocumentsInsertionOrder(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.EnsureCollection("tasks"); err != nil {
				t.Fatalf("EnsureCollection: %v", err)
			}
			// Write out of id order so the listing has to use Seq.
			for _, d := range []struct {
				id  string
				seq uint64
			}{{"zz", 1}, {"aa", 2}, {"mm", 3}} {
				if err := b.WriteDocument("tasks", newDoc(t, d.id, d.seq, map[string]interface{}{"n": float64(d.seq)})); err != nil {
					t.Fatalf("WriteDocument(%s): %v", d.id, err)
				}
			}
			docs, err := b.ListDocuments("tasks")
			if err != nil {
				t.Fatalf("ListDocuments: %v", err)
			}
			got := make([]string, len(docs))
			for i, d := range docs {
				got[i] = d.ID
			}
			want := []string{"zz", "aa", "mm"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("insertion order (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCollectionLifecycle(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, coll := range []string{"users", "tasks", "events"} {
				if err := b.EnsureCollection(coll); err != nil {
					t.Fatalf("EnsureCollection(%s): %v", coll, err)
				}
			}
			// Idempotent.
			if err := b.EnsureCollection("users"); err != nil {
				t.Fatalf("EnsureCollection twice: %v", err)
			}
			names, err := b.ListCollections()
			if err != nil {
				t.Fatalf("ListCollections: %v", err)
			}
			want := []string{"events", "tasks", "users"}
			if diff := cmp.Diff(want, names); diff != "" {
				t.Errorf("collections (-want +got):\n%s", diff)
			}
			if err := b.DeleteCollection("events"); err != nil {
				t.Fatalf("DeleteCollection: %v", err)
			}
			if err := b.DeleteCollection("events"); !types.IsNotFound(err) {
				t.Errorf("deleting missing collection: got %v, want not-found", err)
			}
		})
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fresh, err := b.LoadStoreMeta()
			if err != nil {
				t.Fatalf("LoadStoreMeta: %v", err)
			}
			if fresh != nil {
				t.Fatalf("fresh store returned metadata: %+v", fresh)
			}
			meta := NewStoreMeta()
			meta.CollectionCount = 2
			meta.TotalDocuments = 7
			if err := b.SaveStoreMeta(meta); err != nil {
				t.Fatalf("SaveStoreMeta: %v", err)
			}
			got, err := b.LoadStoreMeta()
			if err != nil {
				t.Fatalf("LoadStoreMeta: %v", err)
			}
			if diff := cmp.Diff(meta, got); diff != "" {
				t.Errorf("store metadata (-want +got):\n%s", diff)
			}

			if err := b.EnsureCollection("tasks"); err != nil {
				t.Fatalf("EnsureCollection: %v", err)
			}
			cm, err := b.LoadCollectionMeta("tasks")
			if err != nil {
				t.Fatalf("LoadCollectionMeta: %v", err)
			}
			if cm != nil {
				t.Fatalf("fresh collection returned metadata: %+v", cm)
			}
			cm = NewCollectionMeta("tasks")
			cm.NextSeq()
			cm.AddDocument(128)
			if err := b.SaveCollectionMeta("tasks", cm); err != nil {
				t.Fatalf("SaveCollectionMeta: %v", err)
			}
			got2, err := b.LoadCollectionMeta("tasks")
			if err != nil {
				t.Fatalf("LoadCollectionMeta: %v", err)
			}
			if diff := cmp.Diff(cm, got2); diff != "" {
				t.Errorf("collection metadata (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileBackendSoftDelete(t *testing.T) {
	root := t.TempDir()
	b, err := NewFileBackend(root, true)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	defer b.Close()

	if err := b.EnsureCollection("tasks"); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := b.WriteDocument("tasks", newDoc(t, "t1", 1, map[string]interface{}{"a": float64(1)})); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if err := b.DeleteDocument("tasks", "t1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if doc, err := b.ReadDocument("tasks", "t1"); err != nil || doc != nil {
		t.Fatalf("after delete: got (%+v, %v), want (nil, nil)", doc, err)
	}
	// The file moves to deleted/ instead of going away.
	moved := filepath.Join(root, dataDir, "tasks", deletedDir, "t1.json")
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("expected soft-deleted file at %s: %v", moved, err)
	}
}

func TestFileBackendCorruptDocument(t *testing.T) {
	root := t.TempDir()
	b, err := NewFileBackend(root, false)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	defer b.Close()

	if err := b.EnsureCollection("tasks"); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	path := filepath.Join(root, dataDir, "tasks", "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err = b.ReadDocument("tasks", "bad")
	if types.CodeOf(err) != types.CodeRuntime {
		t.Errorf("reading corrupt file: got %v, want runtime error", err)
	}
}

func TestLockManagerSerializesWriters(t *testing.T) {
	lm := NewLockManager()
	counter := 0
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_ = lm.Execute(WriteOperation, func() error {
					counter++
					return nil
				})
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if err := lm.Execute(ReadOperation, func() error {
		if counter != 800 {
			t.Errorf("counter = %d, want 800", counter)
		}
		return nil
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
