package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedInChunks(s *SynthesisStream, text string, chunk int) {
	for i := 0; i < len(text); i += chunk {
		end := i + chunk
		if end > len(text) {
			end = len(text)
		}
		s.Feed(text[i:end])
	}
}

func TestSynthesisStream_EmitsOnlySynthesisText(t *testing.T) {
	text := "Let me think about it.\n<synthesis>The answer is 42.</synthesis>\ntrailing noise"

	// Any chunking must produce the same emission.
	for _, chunk := range []int{1, 3, 7, len(text)} {
		var got strings.Builder
		s := NewSynthesisStream(func(d string) { got.WriteString(d) })
		feedInChunks(s, text, chunk)

		assert.Equal(t, "The answer is 42.", got.String(), "chunk size %d", chunk)
		assert.True(t, s.Emitted())
	}
}

func TestSynthesisStream_TagSplitAcrossTokens(t *testing.T) {
	var got strings.Builder
	s := NewSynthesisStream(func(d string) { got.WriteString(d) })

	s.Feed("thinking <synth")
	s.Feed("esis>partial ")
	s.Feed("answer</synthe")
	s.Feed("sis> done")

	assert.Equal(t, "partial answer", got.String())
}

func TestSynthesisStream_CaseInsensitiveTags(t *testing.T) {
	var got strings.Builder
	s := NewSynthesisStream(func(d string) { got.WriteString(d) })
	s.Feed("<SYNTHESIS>loud answer</SYNTHESIS>")

	assert.Equal(t, "loud answer", got.String())
}

func TestSynthesisStream_NoSynthesisEmitsNothing(t *testing.T) {
	var got strings.Builder
	s := NewSynthesisStream(func(d string) { got.WriteString(d) })
	feedInChunks(s, "<tool_call><name>web_search</name></tool_call>", 4)

	assert.Empty(t, got.String())
	assert.False(t, s.Emitted())
}

func TestSynthesisStream_NonASCIIBeforeTag(t *testing.T) {
	// U+0130 changes byte length under Unicode lowering; the emitted text
	// must not shift.
	var got strings.Builder
	s := NewSynthesisStream(func(d string) { got.WriteString(d) })
	feedInChunks(s, "İstanbul research done İİ <synthesis>Nüfus: 15M</synthesis>", 5)

	assert.Equal(t, "Nüfus: 15M", got.String())
}

func TestSynthesisStream_NilCallbackIsSafe(t *testing.T) {
	s := NewSynthesisStream(nil)
	s.Feed("<synthesis>whatever</synthesis>")
}

func TestSynthesisStream_IgnoresTextAfterClose(t *testing.T) {
	var got strings.Builder
	s := NewSynthesisStream(func(d string) { got.WriteString(d) })
	s.Feed("<synthesis>one</synthesis><synthesis>two</synthesis>")

	assert.Equal(t, "one", got.String())
}
