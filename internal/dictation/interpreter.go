package dictation

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscribe/dictation-engine/internal/observability"
	"github.com/medscribe/dictation-engine/internal/stt"
)

// Notifier receives push-style notifications from the interpreter. The
// presentation layer subscribes through it; callbacks run on the
// interpreter goroutine and must not block.
type Notifier interface {
	DocumentChanged(snapshot string)
	Status(message string)
}

// Hooks delegates the voice commands whose effects live outside the core
// (clipboard, file save, session bookkeeping)
type Hooks interface {
	NewDictation()
	ClearText()
	CopyText(snapshot string)
	SaveText(snapshot string)
}

type nopNotifier struct{}

func (nopNotifier) DocumentChanged(string) {}
func (nopNotifier) Status(string)          {}

type nopHooks struct{}

func (nopHooks) NewDictation()    {}
func (nopHooks) ClearText()       {}
func (nopHooks) CopyText(string)  {}
func (nopHooks) SaveText(string)  {}

// Interpreter is the single serializing consumer of transcription results.
// Workers complete in arbitrary order; the interpreter holds completed
// results in a reorder window and applies them to the document strictly in
// increasing sequence order. A slot whose result does not arrive within the
// head-of-line timeout is skipped so the sequence keeps moving.
type Interpreter struct {
	doc      *Document
	notifier Notifier
	hooks    Hooks
	timeout  time.Duration

	nextSeq uint64
	pending map[uint64]stt.Result

	logger zerolog.Logger
}

// NewInterpreter creates an interpreter over the given document. notifier
// and hooks may be nil.
func NewInterpreter(doc *Document, notifier Notifier, hooks Hooks, timeout time.Duration) *Interpreter {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if hooks == nil {
		hooks = nopHooks{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Interpreter{
		doc:      doc,
		notifier: notifier,
		hooks:    hooks,
		timeout:  timeout,
		pending:  make(map[uint64]stt.Result),
		logger:   observability.GetLogger().With().Str("component", "interpreter").Logger(),
	}
}

// Run consumes results until the channel closes and all pending results are
// applied. It is the sole writer of the document; one result's command
// lookup and mutation complete fully before the next is considered.
func (it *Interpreter) Run(results <-chan stt.Result) {
	var (
		headDeadline time.Time
		deadlineSeq  uint64
	)

	for {
		it.applyReady()

		if len(it.pending) == 0 {
			// Nothing out of order outstanding; wait for the next result.
			result, ok := <-results
			if !ok {
				return
			}
			it.admit(result)
			continue
		}

		// The head of the sequence is missing while later results wait. It
		// gets one bounded window, measured from the moment it became the
		// head; later arrivals must not extend it or the pipeline stalls
		// under sustained input.
		if headDeadline.IsZero() || deadlineSeq != it.nextSeq {
			headDeadline = time.Now().Add(it.timeout)
			deadlineSeq = it.nextSeq
		}

		select {
		case result, ok := <-results:
			if !ok {
				it.drainPending()
				return
			}
			it.admit(result)
		case <-time.After(time.Until(headDeadline)):
			it.skipHead()
		}
	}
}

// admit inserts a completed result into the reorder window
func (it *Interpreter) admit(result stt.Result) {
	if result.Seq < it.nextSeq {
		// Its slot was already skipped after the bounded wait.
		it.logger.Warn().Uint64("seq", result.Seq).Msg("late result for skipped slot dropped")
		return
	}
	it.pending[result.Seq] = result
}

// applyReady pops and applies results while the window's smallest key is the
// next expected sequence number
func (it *Interpreter) applyReady() {
	for {
		result, ok := it.pending[it.nextSeq]
		if !ok {
			return
		}
		delete(it.pending, it.nextSeq)
		it.apply(result)
		it.nextSeq++
	}
}

// skipHead abandons the next expected slot, keeping forward progress
func (it *Interpreter) skipHead() {
	observability.RecordReorderSkip()
	it.logger.Warn().Uint64("seq", it.nextSeq).Msg("result timed out, skipping slot")
	it.notifier.Status(fmt.Sprintf("Utterance %d timed out", it.nextSeq))
	it.nextSeq++
}

// drainPending applies whatever is left in sequence order once no more
// results can arrive. Gaps advance without waiting.
func (it *Interpreter) drainPending() {
	for len(it.pending) > 0 {
		result, ok := it.pending[it.nextSeq]
		if ok {
			delete(it.pending, it.nextSeq)
			it.apply(result)
		}
		it.nextSeq++
	}
}

// apply executes one result against the document
func (it *Interpreter) apply(result stt.Result) {
	switch result.Status {
	case stt.StatusUnrecognized:
		it.notifier.Status("Audio not understood")
		return
	case stt.StatusTransport:
		it.notifier.Status(fmt.Sprintf("Transcription error: %v", result.Err))
		return
	case stt.StatusSkipped:
		return
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return
	}

	if cmd, ok := LookupCommand(text); ok {
		it.execute(cmd)
		return
	}

	it.doc.AppendLiteral(text)
	it.notifier.DocumentChanged(it.doc.Snapshot())
}

// execute runs one voice command. Commands never create insertion records.
func (it *Interpreter) execute(cmd Command) {
	observability.RecordCommand(cmd.Action.String())

	switch cmd.Action {
	case ActionInsertToken:
		it.doc.InsertToken(cmd.Token)
		it.notifier.DocumentChanged(it.doc.Snapshot())

	case ActionScratchThat:
		if err := it.doc.Undo(); err != nil {
			it.notifier.Status("Nothing to scratch")
			return
		}
		it.notifier.DocumentChanged(it.doc.Snapshot())
		it.notifier.Status("Last added text removed")

	case ActionDeleteLastWord:
		if err := it.doc.DeleteLastWord(); err != nil {
			it.notifier.Status("Nothing to delete")
			return
		}
		it.notifier.DocumentChanged(it.doc.Snapshot())

	case ActionNewDictation:
		it.doc.Clear()
		it.hooks.NewDictation()
		it.notifier.DocumentChanged(it.doc.Snapshot())
		it.notifier.Status("New dictation started")

	case ActionClearText:
		it.doc.Clear()
		it.hooks.ClearText()
		it.notifier.DocumentChanged(it.doc.Snapshot())
		it.notifier.Status("Text cleared")

	case ActionCopyText:
		it.hooks.CopyText(it.doc.Snapshot())
		it.notifier.Status("Text copied")

	case ActionSaveText:
		it.hooks.SaveText(it.doc.Snapshot())
		it.notifier.Status("Text saved")
	}
}
