package query

import (
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Direction selects the sort order. The numeric values are part of the
// call-boundary contract: 0 ascending, 1 descending.
type Direction int

const (
	Ascending  Direction = 0
	Descending Direction = 1
)

// SortSpec names the sort field and direction of a query.
type SortSpec struct {
	Field string
	Dir   Direction
}

// Query is an immutable conjunction of filters with optional sort,
// pagination and projection. Build one with a Builder.
type Query struct {
	filters    []Filter
	sort       *SortSpec
	limit      int
	offset     int
	projection []string
}

// Filters returns the query's predicates in builder call order.
func (q Query) Filters() []Filter {
	out := make([]Filter, len(q.filters))
	copy(out, q.filters)
	return out
}

// Sort returns the sort spec, or nil when the query is unsorted.
func (q Query) Sort() *SortSpec {
	if q.sort == nil {
		return nil
	}
	s := *q.sort
	return &s
}

// matches reports whether every filter accepts the document.
func (q Query) matches(doc *types.Document) bool {
	for _, f := range q.filters {
		if !f.Matches(doc) {
			return false
		}
	}
	return true
}

// Execute evaluates the query over documents given in insertion order and
// returns the matches, sorted, paginated and projected. The result is
// always non-nil; zero matches yield an empty slice. Input documents are
// never mutated.
func (q Query) Execute(docs []types.Document) []types.Document {
	matched := make([]types.Document, 0, len(docs))
	for i := range docs {
		if q.matches(&docs[i]) {
			matched = append(matched, docs[i])
		}
	}
	if q.sort != nil {
		sortDocuments(matched, *q.sort)
	}
	matched = paginate(matched, q.offset, q.limit)
	if q.projection != nil {
		for i := range matched {
			matched[i] = projectDocument(matched[i], q.projection)
		}
	}
	return matched
}

// paginate applies offset then limit. Zero for either means no effect.
func paginate(docs []types.Document, offset, limit int) []types.Document {
	if offset > 0 {
		if offset >= len(docs) {
			return docs[:0]
		}
		docs = docs[offset:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// projectDocument returns a copy of doc whose body keeps only the named
// top-level fields. Non-object bodies pass through unchanged.
func projectDocument(doc types.Document, fields []string) types.Document {
	obj, ok := doc.Data.(map[string]interface{})
	if !ok {
		return doc
	}
	slim := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, present := obj[f]; present {
			slim[f] = v
		}
	}
	doc.Data = slim
	return doc
}

// Composite is the OR-union of two queries over one collection: a document
// is in the result when either query matches it, de-duplicated by id.
type Composite struct {
	first  Query
	second Query
}

// Or combines two queries into their union.
func Or(a, b Query) Composite {
	return Composite{first: a, second: b}
}

// Execute returns the union of both queries' matches over documents given
// in insertion order. Each query contributes its full match set (its own
// sort, pagination and projection do not apply to the union). The union is
// ordered by the first query's sort when it has one, otherwise by insertion
// order.
func (c Composite) Execute(docs []types.Document) []types.Document {
	result := make([]types.Document, 0, len(docs))
	for i := range docs {
		if c.first.matches(&docs[i]) || c.second.matches(&docs[i]) {
			result = append(result, docs[i])
		}
	}
	if s := c.first.Sort(); s != nil {
		sortDocuments(result, *s)
	}
	return result
}
