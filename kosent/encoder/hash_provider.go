package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/kosent/headline-sentiment/kosent/encoding"
)

// hashEncoder is a deterministic stand-in for the pretrained model: each
// position's embedding is derived from the record's token ids and the
// position index. It lets the training loop, checkpointing and evaluation be
// exercised without a multi-hundred-million-parameter model on disk.
type hashEncoder struct{ hidden int }

func NewHashEncoder(hidden int) *hashEncoder {
	if hidden <= 0 {
		hidden = 768
	}
	return &hashEncoder{hidden: hidden}
}

func (h *hashEncoder) HiddenDim() int { return h.hidden }

func (h *hashEncoder) Encode(ctx context.Context, batch []encoding.Input) ([][][]float32, error) {
	out := make([][][]float32, len(batch))
	for i, in := range batch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		seed := make([]byte, 0, 8*len(in.TokenIDs))
		for _, id := range in.TokenIDs {
			seed = binary.LittleEndian.AppendUint64(seed, uint64(id))
		}
		seq := make([][]float32, len(in.TokenIDs))
		for pos := range in.TokenIDs {
			d := sha256.New()
			d.Write(seed)
			d.Write([]byte{byte(pos), byte(pos >> 8)})
			var sum [sha256.Size]byte
			d.Sum(sum[:0])
			vec := make([]float32, h.hidden)
			// repeat hash bytes to fill dims
			for j := 0; j < h.hidden; j++ {
				b := sum[j%len(sum)]
				vec[j] = (float32(int(b)) - 128.0) / 128.0
			}
			seq[pos] = vec
		}
		out[i] = seq
	}
	return out, nil
}
