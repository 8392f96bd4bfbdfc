package sentinel_test

import (
	"testing"

	sentinel "github.com/cyberpath-HQ/sentinel/sentinel"
	"github.com/cyberpath-HQ/sentinel/testutil"
)

func TestEndToEnd(t *testing.T) {
	s := testutil.TempStore(t, sentinel.WithBackend(sentinel.MemoryBackend))
	col := testutil.SeededCollection(t, s, "people")

	q, err := sentinel.NewQuery().
		Equals("city", "boston").
		GreaterOrEqual("age", float64(25)).
		Sort("name", sentinel.Ascending).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	docs, err := col.Query(q)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "u1" {
		t.Fatalf("query matched %v, want [u1]", ids(docs))
	}

	// OR-union through the facade.
	qa, err := sentinel.NewQuery().Equals("city", "denver").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	qb, err := sentinel.NewQuery().Contains("tags", "eng").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	union, err := col.QueryComposite(sentinel.Or(qa, qb))
	if err != nil {
		t.Fatalf("QueryComposite: %v", err)
	}
	if len(union) != 3 {
		t.Fatalf("union matched %v, want 3 documents", ids(union))
	}

	if err := col.Delete("ghost"); !sentinel.IsNotFound(err) {
		t.Errorf("Delete(ghost): got %v, want not-found", err)
	}
	if err := col.Insert("u1", map[string]interface{}{}); !sentinel.IsConflict(err) {
		t.Errorf("duplicate insert: got %v, want conflict", err)
	}
}

func ids(docs []sentinel.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
