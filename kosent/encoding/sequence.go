package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kosent/headline-sentiment/kosent/encoding/tokenizer"

	"github.com/sourcegraph/conc/pool"
)

// Input is one record's model-ready form: three aligned integer arrays of
// identical, fixed length.
type Input struct {
	TokenIDs      []int64
	AttentionMask []int64
	SegmentIDs    []int64
}

// SequenceEncoder converts raw text into fixed-length (ids, mask, segment)
// triples satisfying a BERT-style encoder's input contract: [CLS] + subwords
// + [SEP], zero right-padding, all-zero segment ids (single-segment task).
//
// Truncation to maxSeqLen-2 subwords is lossy and non-reversible; it is
// counted and logged rather than raised as an error.
type SequenceEncoder struct {
	tok       tokenizer.Tokenizer
	maxSeqLen int
	truncated atomic.Int64
}

// NewSequenceEncoder validates maxSeqLen leaves room for the boundary markers.
func NewSequenceEncoder(tok tokenizer.Tokenizer, maxSeqLen int) (*SequenceEncoder, error) {
	if tok == nil {
		return nil, fmt.Errorf("sequence encoder requires a tokenizer")
	}
	if maxSeqLen < 3 {
		return nil, fmt.Errorf("maxSeqLen must be at least 3 to hold [CLS], one token and [SEP], got %d", maxSeqLen)
	}
	return &SequenceEncoder{tok: tok, maxSeqLen: maxSeqLen}, nil
}

// MaxSeqLen returns the configured fixed length L.
func (e *SequenceEncoder) MaxSeqLen() int { return e.maxSeqLen }

// TruncatedCount reports how many encoded texts lost subwords to truncation.
func (e *SequenceEncoder) TruncatedCount() int64 { return e.truncated.Load() }

// Encode is deterministic and order-preserving: the same text always yields
// identical arrays. Empty text yields a two-token [CLS][SEP] sequence
// followed by padding.
func (e *SequenceEncoder) Encode(text string) Input {
	pieces := e.tok.Tokenize(text)
	limit := e.maxSeqLen - 2
	if len(pieces) > limit {
		e.truncated.Add(1)
		slog.Debug("truncating subword sequence", "subwords", len(pieces), "limit", limit)
		pieces = pieces[:limit]
	}

	tokens := make([]string, 0, len(pieces)+2)
	tokens = append(tokens, tokenizer.ClsToken)
	tokens = append(tokens, pieces...)
	tokens = append(tokens, tokenizer.SepToken)
	ids := e.tok.ConvertTokensToIDs(tokens)

	in := Input{
		TokenIDs:      make([]int64, e.maxSeqLen),
		AttentionMask: make([]int64, e.maxSeqLen),
		SegmentIDs:    make([]int64, e.maxSeqLen),
	}
	copy(in.TokenIDs, ids)
	for i := range ids {
		in.AttentionMask[i] = 1
	}
	return in
}

// EncodeBatch encodes texts concurrently while preserving input order.
func (e *SequenceEncoder) EncodeBatch(ctx context.Context, texts []string) ([]Input, error) {
	out := make([]Input, len(texts))
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for i, text := range texts {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			out[i] = e.Encode(text)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return out, nil
}
