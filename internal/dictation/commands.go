package dictation

import (
	"strings"
	"unicode"
)

// Action identifies what a recognized voice command does. The set is closed;
// the table maps normalized phrases onto it.
type Action int

const (
	ActionInsertToken Action = iota // Insert a fixed punctuation/whitespace token
	ActionScratchThat
	ActionDeleteLastWord
	ActionNewDictation
	ActionClearText
	ActionCopyText
	ActionSaveText
)

// String returns the action label used in logs and metrics
func (a Action) String() string {
	switch a {
	case ActionInsertToken:
		return "insert_token"
	case ActionScratchThat:
		return "scratch_that"
	case ActionDeleteLastWord:
		return "delete_last_word"
	case ActionNewDictation:
		return "new_dictation"
	case ActionClearText:
		return "clear_text"
	case ActionCopyText:
		return "copy_text"
	case ActionSaveText:
		return "save_text"
	default:
		return "unknown"
	}
}

// Command is one entry in the command table
type Command struct {
	Action Action
	Token  string // Set for ActionInsertToken
}

// commandTable maps normalized spoken phrases to commands. Static for the
// process lifetime.
var commandTable = map[string]Command{
	"new paragraph":     {Action: ActionInsertToken, Token: "\n\n"},
	"new line":          {Action: ActionInsertToken, Token: "\n"},
	"full stop":         {Action: ActionInsertToken, Token: "."},
	"comma":             {Action: ActionInsertToken, Token: ","},
	"question mark":     {Action: ActionInsertToken, Token: "?"},
	"exclamation point": {Action: ActionInsertToken, Token: "!"},
	"semicolon":         {Action: ActionInsertToken, Token: ";"},
	"colon":             {Action: ActionInsertToken, Token: ":"},
	"open quote":        {Action: ActionInsertToken, Token: "\""},
	"close quote":       {Action: ActionInsertToken, Token: "\""},
	"open parenthesis":  {Action: ActionInsertToken, Token: "("},
	"close parenthesis": {Action: ActionInsertToken, Token: ")"},
	"delete last word":  {Action: ActionDeleteLastWord},
	"scratch that":      {Action: ActionScratchThat},
	"new dictation":     {Action: ActionNewDictation},
	"clear text":        {Action: ActionClearText},
	"copy text":         {Action: ActionCopyText},
	"save text":         {Action: ActionSaveText},
}

// Normalize canonicalizes recognized text for command lookup: lowercase,
// punctuation stripped, whitespace collapsed.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// LookupCommand matches recognized text against the command table.
// Matching is case- and punctuation-insensitive.
func LookupCommand(text string) (Command, bool) {
	cmd, ok := commandTable[Normalize(text)]
	return cmd, ok
}

// CommandPhrases returns the set of recognized phrases, for help surfaces
func CommandPhrases() []string {
	phrases := make([]string, 0, len(commandTable))
	for phrase := range commandTable {
		phrases = append(phrases, phrase)
	}
	return phrases
}
