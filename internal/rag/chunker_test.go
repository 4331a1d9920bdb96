package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitText_ShortInputIsSingleChunk(t *testing.T) {
	chunks := SplitText("hello world", 100)
	require.Equal(t, []string{"hello world"}, chunks)
}

func TestSplitText_EmptyInput(t *testing.T) {
	require.Nil(t, SplitText("", 100))
}

func TestSplitText_RoundTripReconstructsInput(t *testing.T) {
	inputs := []string{
		strings.Repeat("paragraph one text. ", 20) + "\n\n" + strings.Repeat("paragraph two text. ", 20),
		strings.Repeat("a sentence here. ", 50),
		strings.Repeat("word ", 200),
		strings.Repeat("x", 500),
		"short",
		"line one\nline two\nline three\n" + strings.Repeat("long line content ", 30),
	}
	for _, input := range inputs {
		for _, maxSize := range []int{10, 50, 128} {
			chunks := SplitText(input, maxSize)
			require.Equal(t, input, strings.Join(chunks, ""), "maxSize=%d", maxSize)
			for i, c := range chunks {
				require.LessOrEqual(t, len(c), maxSize, "chunk %d exceeds max at maxSize=%d", i, maxSize)
			}
		}
	}
}

func TestSplitText_PrefersParagraphBoundaries(t *testing.T) {
	text := "first paragraph.\n\nsecond paragraph."
	chunks := SplitText(text, 20)
	require.Equal(t, "first paragraph.\n\n", chunks[0])
	require.Equal(t, "second paragraph.", chunks[1])
}

func TestSplitText_AvoidsMidWordCutsWhenWordBoundaryFits(t *testing.T) {
	text := "alpha beta gamma delta epsilon"
	chunks := SplitText(text, 12)
	for _, c := range chunks[:len(chunks)-1] {
		require.True(t, strings.HasSuffix(c, " "), "chunk %q should end at a word boundary", c)
	}
	require.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitText_HardCutRespectsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 30)
	chunks := SplitText(text, 10)
	require.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 10)
		// no broken runes
		require.True(t, strings.ToValidUTF8(c, "") == c)
	}
}
