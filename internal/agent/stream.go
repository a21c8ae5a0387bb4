package agent

import "strings"

const (
	synthOpenTag  = "<synthesis>"
	synthCloseTag = "</synthesis>"
)

// SynthesisStream is an incremental parser that extracts synthesis text
// from a token stream as it arrives, so callers can render the final
// answer live without waiting for the full response. Two states, outside
// and inside the synthesis block, with a carry buffer for tags split
// across token boundaries. Each instance serves exactly one LLM call.
type SynthesisStream struct {
	emit   func(string)
	inside bool
	closed bool
	carry  string
}

// NewSynthesisStream builds a stream that forwards synthesis text to emit.
func NewSynthesisStream(emit func(string)) *SynthesisStream {
	return &SynthesisStream{emit: emit}
}

// Feed consumes one token delta. Tag matching is case-insensitive.
func (s *SynthesisStream) Feed(delta string) {
	if s.closed || s.emit == nil {
		return
	}
	s.carry += delta

	for {
		if !s.inside {
			idx := indexFold(s.carry, synthOpenTag)
			if idx < 0 {
				// Keep a possible tag prefix at the end of the buffer.
				s.carry = tail(s.carry, len(synthOpenTag)-1)
				return
			}
			s.carry = s.carry[idx+len(synthOpenTag):]
			s.inside = true
		}

		idx := indexFold(s.carry, synthCloseTag)
		if idx < 0 {
			keep := len(synthCloseTag) - 1
			if len(s.carry) > keep {
				s.emit(s.carry[:len(s.carry)-keep])
				s.carry = s.carry[len(s.carry)-keep:]
			}
			return
		}
		if idx > 0 {
			s.emit(s.carry[:idx])
		}
		s.carry = s.carry[idx+len(synthCloseTag):]
		s.inside = false
		s.closed = true
		return
	}
}

// Emitted reports whether any synthesis text was streamed.
func (s *SynthesisStream) Emitted() bool { return s.inside || s.closed }

// indexFold is a case-insensitive strings.Index. Folding is ASCII-only:
// the tags are ASCII, and Unicode lowering can change byte length (U+0130
// lowers to three bytes), which would misalign the returned index against
// the original buffer.
func indexFold(haystack, needle string) int {
	return strings.Index(asciiLower(haystack), asciiLower(needle))
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
