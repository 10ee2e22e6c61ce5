package dictation

import (
	"errors"
	"testing"
)

func TestDocument_FirstLiteralCapitalized(t *testing.T) {
	doc := NewDocument()

	if !doc.CapitalizeNext() {
		t.Error("Expected new document to capitalize the first insertion")
	}

	doc.AppendLiteral("hello world")
	if got := doc.Snapshot(); got != "Hello world" {
		t.Errorf("Expected %q, got %q", "Hello world", got)
	}
	if doc.CapitalizeNext() {
		t.Error("Expected capitalizeNext false after non-terminal text")
	}
}

func TestDocument_CapitalizeAfterSentenceEnders(t *testing.T) {
	for _, token := range []string{".", "!", "?"} {
		doc := NewDocument()
		doc.AppendLiteral("hello")
		doc.InsertToken(token)

		if !doc.CapitalizeNext() {
			t.Errorf("Expected capitalizeNext true after %q", token)
		}

		doc.AppendLiteral("next sentence")
		want := "Hello" + token + " Next sentence"
		if got := doc.Snapshot(); got != want {
			t.Errorf("After %q: expected %q, got %q", token, want, got)
		}
	}
}

func TestDocument_NoCapitalizeAfterComma(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("first")
	doc.InsertToken(",")
	doc.AppendLiteral("second")

	if got := doc.Snapshot(); got != "First, second" {
		t.Errorf("Expected %q, got %q", "First, second", got)
	}
}

func TestDocument_NoSpaceAfterNewline(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("line one")
	doc.InsertToken("\n\n")
	doc.AppendLiteral("line two")

	if got := doc.Snapshot(); got != "Line one\n\nline two" {
		t.Errorf("Expected %q, got %q", "Line one\n\nline two", got)
	}
}

func TestDocument_AppendDeleteRangeRoundTrip(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("hello")
	before := doc.Snapshot()

	record := doc.AppendLiteral("world")
	if got := doc.Snapshot(); got != "Hello world" {
		t.Fatalf("Expected %q, got %q", "Hello world", got)
	}

	if err := doc.DeleteRange(record); err != nil {
		t.Fatalf("DeleteRange failed: %v", err)
	}
	if got := doc.Snapshot(); got != before {
		t.Errorf("Expected buffer restored to %q, got %q", before, got)
	}
}

func TestDocument_DeleteRangeRejectsStaleRecord(t *testing.T) {
	doc := NewDocument()
	first := doc.AppendLiteral("one")
	doc.AppendLiteral("two")

	if err := doc.DeleteRange(first); !errors.Is(err, ErrStaleRecord) {
		t.Errorf("Expected ErrStaleRecord, got %v", err)
	}
	if got := doc.Snapshot(); got != "One two" {
		t.Errorf("Expected buffer untouched, got %q", got)
	}
}

func TestDocument_UndoIsLIFOAndSingleLevelPerCall(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("one")
	doc.AppendLiteral("two")
	doc.AppendLiteral("three")

	if err := doc.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := doc.Snapshot(); got != "One two" {
		t.Errorf("Expected %q, got %q", "One two", got)
	}

	if err := doc.Undo(); err != nil {
		t.Fatalf("Second undo failed: %v", err)
	}
	if got := doc.Snapshot(); got != "One" {
		t.Errorf("Expected %q, got %q", "One", got)
	}
}

func TestDocument_UndoEmptyStack(t *testing.T) {
	doc := NewDocument()
	if err := doc.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo, got %v", err)
	}
}

func TestDocument_UndoRestoresCapitalizeState(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("hello")
	doc.InsertToken(".")
	doc.AppendLiteral("world")

	if doc.CapitalizeNext() {
		t.Fatal("Expected capitalizeNext false after literal text")
	}

	if err := doc.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := doc.Snapshot(); got != "Hello." {
		t.Errorf("Expected %q, got %q", "Hello.", got)
	}
	if !doc.CapitalizeNext() {
		t.Error("Expected capitalizeNext recomputed to true after undo")
	}
}

func TestDocument_TokensAreNotUndoable(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("hello")
	doc.InsertToken(".")

	if doc.RecordCount() != 1 {
		t.Fatalf("Expected 1 record, got %d", doc.RecordCount())
	}

	// Undo removes the literal, not the token.
	if err := doc.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := doc.Snapshot(); got != "." {
		t.Errorf("Expected %q left after undo, got %q", ".", got)
	}
	if err := doc.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo with only a token left, got %v", err)
	}
}

func TestDocument_DeleteLastWord(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("testing one two")

	if err := doc.DeleteLastWord(); err != nil {
		t.Fatalf("DeleteLastWord failed: %v", err)
	}
	if got := doc.Snapshot(); got != "Testing one" {
		t.Errorf("Expected %q, got %q", "Testing one", got)
	}

	if err := doc.DeleteLastWord(); err != nil {
		t.Fatalf("DeleteLastWord failed: %v", err)
	}
	if got := doc.Snapshot(); got != "Testing" {
		t.Errorf("Expected %q, got %q", "Testing", got)
	}
}

func TestDocument_DeleteLastWordEmptyBuffer(t *testing.T) {
	doc := NewDocument()
	if err := doc.DeleteLastWord(); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("Expected ErrEmptyBuffer, got %v", err)
	}
}

func TestDocument_DeleteLastWordReconcilesRecords(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("alpha")
	doc.AppendLiteral("beta")

	// Word deletion removes "beta"; the record for that insertion no longer
	// fits the buffer and must not survive intact.
	if err := doc.DeleteLastWord(); err != nil {
		t.Fatalf("DeleteLastWord failed: %v", err)
	}
	if got := doc.Snapshot(); got != "Alpha" {
		t.Fatalf("Expected %q, got %q", "Alpha", got)
	}

	// A subsequent undo must remove an in-bounds span, never panic or eat
	// unrelated text.
	if doc.RecordCount() > 0 {
		if err := doc.Undo(); err != nil {
			t.Fatalf("Undo after reconcile failed: %v", err)
		}
	}
	got := doc.Snapshot()
	if len(got) > len("Alpha") {
		t.Errorf("Undo after word deletion grew the buffer: %q", got)
	}
}

func TestDocument_ClearResetsEverything(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("some text")
	doc.Clear()

	if doc.Snapshot() != "" {
		t.Errorf("Expected empty buffer, got %q", doc.Snapshot())
	}
	if doc.RecordCount() != 0 {
		t.Errorf("Expected empty record stack, got %d", doc.RecordCount())
	}
	if !doc.CapitalizeNext() {
		t.Error("Expected capitalizeNext true after clear")
	}
	if err := doc.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo after clear, got %v", err)
	}
}

func TestDocument_ReplaceAllDiscardsRecords(t *testing.T) {
	doc := NewDocument()
	doc.AppendLiteral("draft text")

	doc.ReplaceAll("Polished note.")
	if got := doc.Snapshot(); got != "Polished note." {
		t.Errorf("Expected %q, got %q", "Polished note.", got)
	}
	if doc.RecordCount() != 0 {
		t.Errorf("Expected record stack discarded, got %d", doc.RecordCount())
	}
	if !doc.CapitalizeNext() {
		t.Error("Expected capitalizeNext recomputed from replaced text")
	}
}

func TestDocument_Len(t *testing.T) {
	doc := NewDocument()
	if doc.Len() != 0 {
		t.Errorf("Expected empty document length 0, got %d", doc.Len())
	}
	doc.AppendLiteral("abc")
	if doc.Len() != 3 {
		t.Errorf("Expected length 3, got %d", doc.Len())
	}
}
