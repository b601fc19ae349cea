package encoding

import (
	"context"
	"strings"
	"testing"

	"github.com/kosent/headline-sentiment/kosent/encoding/tokenizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenizer splits on whitespace and maps tokens through a fixed vocab.
type fakeTokenizer struct {
	vocab   map[string]int64
	inverse map[int64]string
}

func newFakeTokenizer(tokens ...string) *fakeTokenizer {
	f := &fakeTokenizer{vocab: map[string]int64{}, inverse: map[int64]string{}}
	base := []string{tokenizer.PadToken, tokenizer.UnkToken, tokenizer.ClsToken, tokenizer.SepToken}
	for i, tok := range append(base, tokens...) {
		f.vocab[tok] = int64(i)
		f.inverse[int64(i)] = tok
	}
	return f
}

func (f *fakeTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

func (f *fakeTokenizer) ConvertTokensToIDs(tokens []string) []int64 {
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		if id, ok := f.vocab[tok]; ok {
			ids[i] = id
		} else {
			ids[i] = f.vocab[tokenizer.UnkToken]
		}
	}
	return ids
}

func (f *fakeTokenizer) ConvertIDsToTokens(ids []int64) []string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		if tok, ok := f.inverse[id]; ok {
			tokens[i] = tok
		} else {
			tokens[i] = tokenizer.UnkToken
		}
	}
	return tokens
}

func TestNewSequenceEncoderRejectsTinyLength(t *testing.T) {
	_, err := NewSequenceEncoder(newFakeTokenizer(), 2)
	assert.Error(t, err)

	_, err = NewSequenceEncoder(nil, 10)
	assert.Error(t, err)
}

func TestEncodeShortSequenceLayout(t *testing.T) {
	tok := newFakeTokenizer("a", "b", "c")
	enc, err := NewSequenceEncoder(tok, 10)
	require.NoError(t, err)

	in := enc.Encode("a b c")

	assert.Len(t, in.TokenIDs, 10)
	assert.Len(t, in.AttentionMask, 10)
	assert.Len(t, in.SegmentIDs, 10)

	// k=3 subwords: k+2 real positions, then zeros.
	cls := tok.vocab[tokenizer.ClsToken]
	sep := tok.vocab[tokenizer.SepToken]
	assert.Equal(t, []int64{cls, tok.vocab["a"], tok.vocab["b"], tok.vocab["c"], sep, 0, 0, 0, 0, 0}, in.TokenIDs)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}, in.AttentionMask)
	assert.Equal(t, make([]int64, 10), in.SegmentIDs)
}

func TestEncodeTruncatesLongSequence(t *testing.T) {
	tok := newFakeTokenizer("a", "b", "c", "d", "e", "f", "g")
	enc, err := NewSequenceEncoder(tok, 5)
	require.NoError(t, err)

	in := enc.Encode("a b c d e f g")

	assert.Len(t, in.TokenIDs, 5)
	// No padding: every position is real.
	for i, m := range in.AttentionMask {
		assert.Equal(t, int64(1), m, "position %d", i)
	}
	// The final position is always the separator marker, never a subword.
	assert.Equal(t, tok.vocab[tokenizer.SepToken], in.TokenIDs[4])
	assert.Equal(t, tok.vocab[tokenizer.ClsToken], in.TokenIDs[0])
	assert.Equal(t, int64(1), enc.TruncatedCount())
}

func TestEncodeEmptyText(t *testing.T) {
	tok := newFakeTokenizer()
	enc, err := NewSequenceEncoder(tok, 10)
	require.NoError(t, err)

	in := enc.Encode("")

	assert.Equal(t, tok.vocab[tokenizer.ClsToken], in.TokenIDs[0])
	assert.Equal(t, tok.vocab[tokenizer.SepToken], in.TokenIDs[1])
	assert.Equal(t, []int64{1, 1, 0, 0, 0, 0, 0, 0, 0, 0}, in.AttentionMask)
}

func TestEncodeDeterministic(t *testing.T) {
	tok := newFakeTokenizer("뉴스", "제목")
	enc, err := NewSequenceEncoder(tok, 8)
	require.NoError(t, err)

	first := enc.Encode("뉴스 제목")
	second := enc.Encode("뉴스 제목")

	assert.Equal(t, first, second)
}

func TestEncodeRoundTrip(t *testing.T) {
	tok := newFakeTokenizer("경제", "회복")
	enc, err := NewSequenceEncoder(tok, 10)
	require.NoError(t, err)

	in := enc.Encode("경제 회복")
	decoded := tok.ConvertIDsToTokens(in.TokenIDs[:4])

	assert.Equal(t, []string{tokenizer.ClsToken, "경제", "회복", tokenizer.SepToken}, decoded)
}

func TestEncodeKoreanScenario(t *testing.T) {
	tok := newFakeTokenizer("괜찮다")
	enc, err := NewSequenceEncoder(tok, 10)
	require.NoError(t, err)

	for _, text := range []string{"괜찮다", ""} {
		in := enc.Encode(text)
		assert.Len(t, in.TokenIDs, 10)
		assert.Len(t, in.AttentionMask, 10)
		assert.Len(t, in.SegmentIDs, 10)
	}

	empty := enc.Encode("")
	var real int
	for _, m := range empty.AttentionMask {
		real += int(m)
	}
	assert.Equal(t, 2, real, "empty text is [CLS][SEP] plus padding")
	assert.Equal(t, make([]int64, 8), empty.TokenIDs[2:])
}

func TestEncodeBatchPreservesOrder(t *testing.T) {
	tok := newFakeTokenizer("a", "b", "c")
	enc, err := NewSequenceEncoder(tok, 6)
	require.NoError(t, err)

	texts := []string{"a", "b", "c", "a b", "b c", ""}
	got, err := enc.EncodeBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, len(texts))

	for i, text := range texts {
		assert.Equal(t, enc.Encode(text), got[i], "batch result %d must match sequential encode", i)
	}
}

func TestEncodeBatchCancelled(t *testing.T) {
	tok := newFakeTokenizer("a")
	enc, err := NewSequenceEncoder(tok, 6)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = enc.EncodeBatch(ctx, []string{"a", "a", "a"})
	assert.Error(t, err)
}
