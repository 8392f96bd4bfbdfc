// Package testutil provides shared fixtures for store tests: a throwaway
// store per test and a small, well-known document population.
package testutil

import (
	"testing"

	"github.com/cyberpath-HQ/sentinel/sentinel/store"
)

// Person is one entry of the seeded fixture population.
type Person struct {
	ID   string
	Name string
	Age  float64
	City string
	Tags []interface{}
}

// Universe is the fixture population. Ages, cities and tags are chosen so
// that every filter variant has both matching and non-matching documents.
var Universe = []Person{
	{ID: "u1", Name: "alice", Age: 28, City: "boston", Tags: []interface{}{"admin", "eng"}},
	{ID: "u2", Name: "bob", Age: 34, City: "chicago", Tags: []interface{}{"eng"}},
	{ID: "u3", Name: "carol", Age: 22, City: "boston", Tags: []interface{}{"sales"}},
	{ID: "u4", Name: "dave", Age: 41, City: "denver", Tags: []interface{}{}},
}

// Body returns the person's document body.
func (p Person) Body() map[string]interface{} {
	return map[string]interface{}{
		"name": p.Name,
		"age":  p.Age,
		"city": p.City,
		"tags": p.Tags,
	}
}

// TempStore opens a store in a fresh temp directory and closes it when the
// test finishes.
func TempStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

// SeededCollection returns a collection holding the Universe population.
func SeededCollection(t *testing.T, s *store.Store, name string) *store.Collection {
	t.Helper()
	col, err := s.Collection(name)
	if err != nil {
		t.Fatalf("opening collection %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := col.Close(); err != nil {
			t.Errorf("closing collection %s: %v", name, err)
		}
	})
	pairs := make([]store.DocumentPair, len(Universe))
	for i, p := range Universe {
		pairs[i] = store.DocumentPair{ID: p.ID, Data: p.Body()}
	}
	if err := col.BulkInsert(pairs); err != nil {
		t.Fatalf("seeding collection %s: %v", name, err)
	}
	return col
}
