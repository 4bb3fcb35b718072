package spam

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/iamwavecut/antispambot/internal/state"
)

const (
	// maxMentions is the number of @mentions a message may carry before it
	// is considered a mention flood.
	maxMentions = 5
	// maxSymbolRuns is the number of punctuation runs allowed before the
	// message is considered symbol spam.
	maxSymbolRuns = 3
)

var (
	mentionRE   = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	symbolRunRE = regexp.MustCompile(`[!*#$%^&]{3,}`)
)

// Classifier decides whether a message is spam. The content checks are
// pure; repeat detection reads and appends to the per-(chat,user) history
// window owned by the state container.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify runs the stateless content checks: blacklist phrase match,
// mention flood and symbol spam. Any single check is sufficient. Empty
// text is never spam.
func (c *Classifier) Classify(text string, policy state.Policy) bool {
	if text == "" {
		return false
	}
	for _, phrase := range policy.BlacklistPhrases {
		if containsWholeWord(text, phrase) {
			return true
		}
	}
	if len(mentionRE.FindAllStringIndex(text, -1)) > maxMentions {
		return true
	}
	if len(symbolRunRE.FindAllStringIndex(text, -1)) > maxSymbolRuns {
		return true
	}
	return false
}

// Repeated reports whether the message is a time-windowed repeat. The
// message is appended to the history window as a side effect of the
// evaluation, whatever the outcome.
func (c *Classifier) Repeated(st *state.State, key state.ChatUser, text string, policy state.Policy, now time.Time) bool {
	if text == "" {
		return false
	}
	return st.ObserveMessage(key, text, now) >= policy.MaxRepeatedMessages
}

// containsWholeWord looks for the phrase as a case-insensitive literal,
// anchored at word boundaries on both sides. Boundaries follow the usual
// regex rule: a transition between a word rune (letter, digit, underscore)
// and anything else, including the ends of the text.
func containsWholeWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	lowerText := strings.ToLower(text)
	lowerPhrase := strings.ToLower(phrase)

	for start := 0; start <= len(lowerText)-len(lowerPhrase); {
		idx := strings.Index(lowerText[start:], lowerPhrase)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(lowerPhrase)
		if isBoundary(lowerText, idx) && isBoundary(lowerText, end) {
			return true
		}
		start = idx + 1
	}
	return false
}

func isBoundary(text string, pos int) bool {
	var before, after bool
	if pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:pos])
		before = isWordRune(r)
	}
	if pos < len(text) {
		r, _ := utf8.DecodeRuneInString(text[pos:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
