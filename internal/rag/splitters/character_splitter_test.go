package splitters

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/schema"
)

func doc(id, text string) *schema.Document {
	return &schema.Document{ID: id, Text: text}
}

func TestNewCharacterSplitter_RejectsInvalidParameters(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero chunk size", 0, 0},
		{"negative chunk size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equal to chunk size", 10, 10},
		{"overlap larger than chunk size", 10, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCharacterSplitter(tc.chunkSize, tc.overlap)
			require.Error(t, err)
			assert.True(t, errs.IsConfig(err))
		})
	}
}

func TestSplit_SlidingWindow(t *testing.T) {
	s, err := NewCharacterSplitter(9, 3)
	require.NoError(t, err)

	passages, err := s.Split(context.Background(), []*schema.Document{doc("a.txt", "AAAA BBBB CCCC DDDD")})
	require.NoError(t, err)

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	assert.Equal(t, []string{"AAAA BBBB", "BBB CCCC ", "CC DDDD"}, texts)

	for i, p := range passages {
		assert.Equal(t, i, p.SequenceIndex)
		assert.Equal(t, "a.txt", p.DocumentID)
	}
}

func TestSplit_OverlapRepeatsTrailingCharacters(t *testing.T) {
	s, err := NewCharacterSplitter(10, 4)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	passages, err := s.Split(context.Background(), []*schema.Document{doc("d", text)})
	require.NoError(t, err)
	require.Greater(t, len(passages), 1)

	for i := 0; i < len(passages)-1; i++ {
		prev := passages[i].Text
		next := passages[i+1].Text
		assert.True(t, strings.HasPrefix(next, prev[len(prev)-4:]),
			"passage %d should start with the trailing overlap of passage %d", i+1, i)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := NewCharacterSplitter(7, 2)
	require.NoError(t, err)

	docs := []*schema.Document{doc("paper.pdf", "the quick brown fox jumps over the lazy dog")}

	first, err := s.Split(context.Background(), docs)
	require.NoError(t, err)
	second, err := s.Split(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must yield identical passages, IDs included")
}

func TestSplit_ShortTextYieldsSinglePassage(t *testing.T) {
	s, err := NewCharacterSplitter(100, 10)
	require.NoError(t, err)

	passages, err := s.Split(context.Background(), []*schema.Document{doc("d", "short text")})
	require.NoError(t, err)

	require.Len(t, passages, 1)
	assert.Equal(t, "short text", passages[0].Text)
	assert.Equal(t, 0, passages[0].SequenceIndex)
}

func TestSplit_SequenceIndexesRunAcrossPages(t *testing.T) {
	s, err := NewCharacterSplitter(5, 0)
	require.NoError(t, err)

	pages := []*schema.Document{
		{ID: "paper.pdf", Text: "aaaaabbbbb", Metadata: map[string]interface{}{schema.MetadataKeyPageLabel: "1"}},
		{ID: "paper.pdf", Text: "ccccc", Metadata: map[string]interface{}{schema.MetadataKeyPageLabel: "2"}},
	}

	passages, err := s.Split(context.Background(), pages)
	require.NoError(t, err)
	require.Len(t, passages, 3)

	for i, p := range passages {
		assert.Equal(t, i, p.SequenceIndex, "sequence indexes must be 0..n-1 with no gaps")
	}
	assert.Equal(t, 1, passages[0].Page)
	assert.Equal(t, 1, passages[1].Page)
	assert.Equal(t, 2, passages[2].Page)
}

func TestSplit_EmptyDocumentYieldsNoPassages(t *testing.T) {
	s, err := NewCharacterSplitter(10, 2)
	require.NoError(t, err)

	passages, err := s.Split(context.Background(), []*schema.Document{doc("d", "")})
	require.NoError(t, err)
	assert.Empty(t, passages)
}
