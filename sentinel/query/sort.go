package query

import (
	"sort"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// sortDocuments orders docs by the sort field. Documents missing the field
// rank before all documents that have it, in both directions. Ties keep
// insertion order: the sort is stable and the input arrives in insertion
// sequence.
func sortDocuments(docs []types.Document, spec SortSpec) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi, oki := docs[i].Field(spec.Field)
		vj, okj := docs[j].Field(spec.Field)
		switch {
		case !oki && !okj:
			return false
		case !oki:
			return true
		case !okj:
			return false
		}
		cmp := types.Compare(vi, vj)
		if spec.Dir == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}
