package validation

import (
	"testing"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

func TestCollectionName(t *testing.T) {
	valid := []string{"users", "user_data", "data-2024", "test_collection_123", "v1.backup"}
	for _, name := range valid {
		if err := CollectionName(name); err != nil {
			t.Errorf("CollectionName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		".hidden",
		"path/traversal",
		"back\\slash",
		"CON",
		"lpt1",
		"trailing.",
		"trailing ",
		"emoji🙂",
		"colon:name",
	}
	for _, name := range invalid {
		err := CollectionName(name)
		if err == nil {
			t.Errorf("CollectionName(%q) should fail", name)
			continue
		}
		if types.CodeOf(err) != types.CodeInvalidArgument {
			t.Errorf("CollectionName(%q) code = %v, want invalid argument", name, types.CodeOf(err))
		}
	}
}

func TestDocumentID(t *testing.T) {
	valid := []string{"user-123", "user_456", "user123", "123", "a", "CamelCaseID"}
	for _, id := range valid {
		if err := DocumentID(id); err != nil {
			t.Errorf("DocumentID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "with.dot", "a/b", "NUL", "question?", "sp ace"}
	for _, id := range invalid {
		if err := DocumentID(id); err == nil {
			t.Errorf("DocumentID(%q) should fail", id)
		}
	}
}
