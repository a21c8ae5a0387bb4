package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrades_WellFormed(t *testing.T) {
	graded := parseGrades(gradeBothRelevant().Content, twoResults())
	require.Len(t, graded, 2)

	assert.Equal(t, Relevant, graded[0].Relevance)
	assert.Equal(t, 0.9, graded[0].Confidence)
	assert.Equal(t, "on topic", graded[0].Reasoning)
	assert.Equal(t, "Go generics guide", graded[0].Result.Title)
}

func TestParseGrades_Totality(t *testing.T) {
	// Whatever the model emits, every input result gets exactly one grade
	// with a valid relevance and clamped confidence.
	cases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"prose only", "I think the first one is good and the second is bad."},
		{"partial", `<result index="0"><relevance>not_relevant</relevance></result>`},
		{"broken tags", `<result index="0"><relevance>relevant</confidence></result>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			graded := parseGrades(tc.content, twoResults())
			require.Len(t, graded, 2)
			for _, g := range graded {
				assert.Contains(t, []string{Relevant, NotRelevant}, g.Relevance)
				assert.GreaterOrEqual(t, g.Confidence, 0.0)
				assert.LessOrEqual(t, g.Confidence, 1.0)
			}
		})
	}
}

func TestParseGrades_EmptyDegradesToAllRelevant(t *testing.T) {
	graded := parseGrades("", twoResults())
	for _, g := range graded {
		assert.Equal(t, Relevant, g.Relevance)
		assert.Equal(t, 0.5, g.Confidence)
	}
}

func TestParseGrades_OutOfRangeIndexDiscarded(t *testing.T) {
	content := `<result index="7"><relevance>not_relevant</relevance><confidence>0.9</confidence><reasoning>ghost</reasoning></result>`
	graded := parseGrades(content, twoResults())

	// The ghost grade lands nowhere; both results keep the default.
	for _, g := range graded {
		assert.Equal(t, Relevant, g.Relevance)
		assert.Equal(t, 0.5, g.Confidence)
	}
}

func TestParseGrades_ConfidenceClamped(t *testing.T) {
	content := `<result index="0"><relevance>relevant</relevance><confidence>3.7</confidence><reasoning>x</reasoning></result>
<result index="1"><relevance>relevant</relevance><confidence>-2</confidence><reasoning>y</reasoning></result>`
	graded := parseGrades(content, twoResults())

	assert.Equal(t, 1.0, graded[0].Confidence)
	assert.Equal(t, 0.0, graded[1].Confidence)
}

func TestParseGrades_SloppyFormatting(t *testing.T) {
	// Unquoted index, mixed case tags, quoted relevance value.
	content := `<RESULT index=1>
<Relevance> "NOT_RELEVANT" </Relevance>
<Confidence>0.8</Confidence>
<Reasoning>  off topic  </Reasoning>
</RESULT>`
	graded := parseGrades(content, twoResults())

	assert.Equal(t, NotRelevant, graded[1].Relevance)
	assert.Equal(t, 0.8, graded[1].Confidence)
	assert.Equal(t, "off topic", graded[1].Reasoning)
}

func TestParseRelevance_OptimisticDefault(t *testing.T) {
	cases := map[string]string{
		"relevant":      Relevant,
		"RELEVANT":      Relevant,
		"not_relevant":  NotRelevant,
		"not relevant":  NotRelevant,
		"irrelevant":    NotRelevant,
		"maybe":         Relevant,
		"":              Relevant,
		"highly useful": Relevant,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseRelevance(in), "input %q", in)
	}
}

func TestParseRewrittenQuery(t *testing.T) {
	assert.Equal(t, "better query",
		parseRewrittenQuery("<rewritten_query>better query</rewritten_query>"))
	assert.Equal(t, "better query",
		parseRewrittenQuery("Sure, here you go:\n<rewritten_query>\n  better query\n</rewritten_query>"))
	assert.Equal(t, "bare reply", parseRewrittenQuery("bare reply"))
	assert.Equal(t, "", parseRewrittenQuery("multi\nline\nprose"))
	assert.Equal(t, "", parseRewrittenQuery(""))
}
