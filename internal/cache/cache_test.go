package cache

import (
	"testing"

	"github.com/imyousuf/codescribe/internal/model"
)

func sampleEntry() *Entry {
	return &Entry{
		Components: []*model.Component{{
			ID:           "a.f",
			Name:         "f",
			Kind:         model.KindFunction,
			RelativePath: "a.py",
			StartLine:    1,
			EndLine:      2,
			SourceCode:   "def f(): g()",
		}},
		Edges: []*model.CallEdge{{Caller: "a.f", Callee: "g", Kind: model.EdgeCalls}},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	content := []byte("def f(): g()\n")
	if _, ok := store.Get("a.py", content); ok {
		t.Fatal("hit on empty cache")
	}
	if err := store.Put("a.py", content, sampleEntry()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, ok := store.Get("a.py", content)
	if !ok {
		t.Fatal("miss after Put")
	}
	if len(entry.Components) != 1 || entry.Components[0].ID != "a.f" {
		t.Errorf("components = %+v", entry.Components)
	}
	if len(entry.Edges) != 1 || entry.Edges[0].Callee != "g" {
		t.Errorf("edges = %+v", entry.Edges)
	}
}

func TestEditedContentMisses(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	v1 := []byte("def f(): pass\n")
	v2 := []byte("def f(): g()\n")
	if err := store.Put("a.py", v1, sampleEntry()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("a.py", v2); ok {
		t.Error("edited content hit a stale entry")
	}
	// Reverting restores the hit.
	if _, ok := store.Get("a.py", v1); !ok {
		t.Error("original content missed")
	}
}

func TestPutReplacesStaleHash(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	v1 := []byte("v1")
	v2 := []byte("v2")
	if err := store.Put("a.py", v1, sampleEntry()); err != nil {
		t.Fatal(err)
	}
	if err := store.Put("a.py", v2, sampleEntry()); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Get("a.py", v1); ok {
		t.Error("stale hash survived a Put for the same path")
	}
	n, err := store.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	content := []byte("def f(): pass\n")

	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("a.py", content, sampleEntry()); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if _, ok := reopened.Get("a.py", content); !ok {
		t.Error("entry lost across reopen")
	}
}
