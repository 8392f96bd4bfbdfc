package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewDocument(t *testing.T) {
	data := map[string]interface{}{"name": "Alice", "age": float64(28)}
	doc, err := NewDocument("user-1", data)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "user-1" {
		t.Errorf("id = %q, want user-1", doc.ID)
	}
	if doc.Version != FormatVersion {
		t.Errorf("version = %d, want %d", doc.Version, FormatVersion)
	}
	if doc.Checksum == "" {
		t.Error("checksum should be set")
	}
	if !doc.CreatedAt.Equal(doc.UpdatedAt) {
		t.Error("created and updated timestamps should match on a new document")
	}
	ok, err := doc.VerifyChecksum()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("fresh document should verify")
	}
}

func TestSetDataReplacesWholeBody(t *testing.T) {
	doc, err := NewDocument("d", map[string]interface{}{"a": float64(1), "b": float64(2)})
	if err != nil {
		t.Fatal(err)
	}
	before := doc.Checksum
	if err := doc.SetData(map[string]interface{}{"a": float64(1)}); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Field("b"); ok {
		t.Error("update must replace the body, not merge")
	}
	if doc.Checksum == before {
		t.Error("checksum should change with the body")
	}
}

func TestVerifyChecksumDetectsTampering(t *testing.T) {
	doc, err := NewDocument("d", map[string]interface{}{"n": float64(1)})
	if err != nil {
		t.Fatal(err)
	}
	doc.Data = map[string]interface{}{"n": float64(2)}
	ok, err := doc.VerifyChecksum()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("modified body must fail verification")
	}
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc, err := NewDocument("rt", map[string]interface{}{
		"s":    "v",
		"n":    float64(1.5),
		"b":    true,
		"null": nil,
		"arr":  []interface{}{float64(1), "two"},
		"obj":  map[string]interface{}{"nested": "x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var got Document
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc.Data, got.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	ok, err := got.VerifyChecksum()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("round-tripped document should verify")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewError(CodeConflict, "document exists", nil)
	wrapped := NewError(CodeIO, "writing", err)
	if CodeOf(wrapped) != CodeIO {
		t.Errorf("outermost code should win, got %v", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != CodeRuntime {
		t.Error("foreign errors classify as runtime")
	}
	if CodeOf(nil) != 0 {
		t.Error("nil error has no code")
	}
	if !IsConflict(err) {
		t.Error("IsConflict should see the code")
	}
	if !IsNotFound(Errorf(CodeNotFound, "document %q not found", "x")) {
		t.Error("IsNotFound should see the code")
	}
}
