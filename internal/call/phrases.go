package call

import (
	"strings"
	"unicode"
)

// endPhrases end the call when a final user transcript contains one of them.
var endPhrases = []string{
	"end interview",
	"end the interview",
	"stop the interview",
	"hang up",
	"that's all",
	"that is all",
	"goodbye",
	"good bye",
}

// normalMeetingEnd matches SDK error text emitted when a call ends normally.
var normalMeetingEnd = []string{
	"meeting has ended",
	"meeting ended",
}

// normalize lower-cases text, turns every rune that is not a letter or digit
// into a space and pads the result with single spaces so phrases only match
// on word boundaries. An apostrophe (straight or curly) survives only between
// two letters, as in "that's".
func normalize(text string) string {
	runes := []rune(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	space := true
	for i, r := range runes {
		switch {
		case isApostrophe(r) && i > 0 && i+1 < len(runes) &&
			unicode.IsLetter(runes[i-1]) && unicode.IsLetter(runes[i+1]):
			b.WriteByte('\'')
			space = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

func containsAny(text string, phrases []string) bool {
	n := normalize(text)
	for _, p := range phrases {
		if strings.Contains(n, " "+p+" ") {
			return true
		}
	}
	return false
}

// ContainsEndPhrase reports whether a user utterance asks to end the call.
func ContainsEndPhrase(text string) bool {
	return containsAny(text, endPhrases)
}

// IsNormalMeetingEnd reports whether an SDK error only signals that the
// meeting was closed.
func IsNormalMeetingEnd(message string) bool {
	return containsAny(message, normalMeetingEnd)
}
