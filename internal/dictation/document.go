package dictation

import (
	"errors"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/medscribe/dictation-engine/internal/observability"
)

var (
	// ErrNothingToUndo is reported when the insertion stack is empty.
	// A user-action no-op, not a failure.
	ErrNothingToUndo = errors.New("nothing to scratch")

	// ErrEmptyBuffer is reported by word deletion on an empty document.
	ErrEmptyBuffer = errors.New("buffer is empty")

	// ErrStaleRecord is reported when DeleteRange is given a record that is
	// no longer the most recent insertion.
	ErrStaleRecord = errors.New("record is not the most recent insertion")
)

// InsertionRecord describes the span one literal-text insertion contributed
// to the buffer. Only the most recent record may ever be removed.
type InsertionRecord struct {
	ID    string
	Start int // Byte offset into the buffer
	End   int
}

// Document is the single mutable text state of a dictation session: the
// character buffer, the capitalize-next flag, and the append log that backs
// single-level undo. The interpreter is the only mutating caller; readers
// may take snapshots at any time.
//
// Invariant: capitalizeNext is true exactly when the buffer is empty or its
// last character is one of ". ! ?".
type Document struct {
	mu             sync.RWMutex
	text           string
	capitalizeNext bool
	records        []InsertionRecord
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{capitalizeNext: true}
}

// Snapshot returns the current text. Always observes a fully-applied state.
func (d *Document) Snapshot() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Len returns the buffer length in bytes
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.text)
}

// CapitalizeNext reports whether the next literal insertion starts a
// sentence
func (d *Document) CapitalizeNext() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.capitalizeNext
}

// RecordCount returns the depth of the insertion stack
func (d *Document) RecordCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// AppendLiteral appends dictated text and pushes an insertion record
// spanning everything the call added, including the joining space, so that
// deleting the record restores the prior buffer exactly. The first rune is
// uppercased when the buffer expects a sentence start.
func (d *Document) AppendLiteral(text string) InsertionRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capitalizeNext && text != "" {
		r, size := utf8.DecodeRuneInString(text)
		text = string(unicode.ToUpper(r)) + text[size:]
	}

	prefix := ""
	if d.text != "" && !strings.HasSuffix(d.text, "\n") {
		prefix = " "
	}

	piece := prefix + text
	record := InsertionRecord{
		ID:    uuid.New().String(),
		Start: len(d.text),
		End:   len(d.text) + len(piece),
	}

	d.text += piece
	d.records = append(d.records, record)
	d.recomputeCapitalize()

	observability.RecordLiteralInsertion(len(d.text))
	return record
}

// InsertToken appends a fixed punctuation or whitespace token. Tokens never
// create insertion records and are not undoable.
func (d *Document) InsertToken(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.text += token
	d.recomputeCapitalize()
	observability.RecordDocumentLength(len(d.text))
}

// Undo removes the most recent literal insertion (LIFO, one level, no redo)
func (d *Document) Undo() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.records) == 0 {
		return ErrNothingToUndo
	}
	record := d.records[len(d.records)-1]
	return d.deleteRecordLocked(record)
}

// DeleteRange removes the span of the given record. Only the most recent
// record is accepted; earlier records cannot be removed out of order.
func (d *Document) DeleteRange(record InsertionRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.records) == 0 {
		return ErrNothingToUndo
	}
	if d.records[len(d.records)-1].ID != record.ID {
		return ErrStaleRecord
	}
	return d.deleteRecordLocked(record)
}

func (d *Document) deleteRecordLocked(record InsertionRecord) error {
	d.text = d.text[:record.Start] + d.text[record.End:]
	d.records = d.records[:len(d.records)-1]
	d.recomputeCapitalize()
	observability.RecordDocumentLength(len(d.text))
	return nil
}

// DeleteLastWord drops the buffer's final whitespace-separated token and
// rejoins the rest with single spaces. Insertion records that no longer fit
// the shortened buffer are truncated or dropped, so a later undo cannot
// remove the wrong span.
func (d *Document) DeleteLastWord() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.text == "" {
		return ErrEmptyBuffer
	}

	words := strings.Fields(d.text)
	if len(words) == 0 {
		d.text = ""
	} else {
		d.text = strings.Join(words[:len(words)-1], " ")
	}

	d.reconcileRecordsLocked()
	d.recomputeCapitalize()
	observability.RecordDocumentLength(len(d.text))
	return nil
}

// reconcileRecordsLocked clamps the insertion stack to the current buffer
// length after a whole-buffer rewrite
func (d *Document) reconcileRecordsLocked() {
	kept := d.records[:0]
	for _, record := range d.records {
		if record.Start >= len(d.text) {
			continue
		}
		if record.End > len(d.text) {
			record.End = len(d.text)
		}
		if record.End > record.Start {
			kept = append(kept, record)
		}
	}
	d.records = kept
}

// ReplaceAll swaps the whole buffer, discarding the insertion stack.
// Used when an AI transform rewrites the document.
func (d *Document) ReplaceAll(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.text = text
	d.records = nil
	d.recomputeCapitalize()
	observability.RecordDocumentLength(len(d.text))
}

// Clear wipes the buffer and destroys all insertion records
func (d *Document) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.text = ""
	d.records = nil
	d.recomputeCapitalize()
	observability.RecordDocumentLength(0)
}

func (d *Document) recomputeCapitalize() {
	if d.text == "" {
		d.capitalizeNext = true
		return
	}
	last, _ := utf8.DecodeLastRuneInString(d.text)
	d.capitalizeNext = last == '.' || last == '!' || last == '?'
}
