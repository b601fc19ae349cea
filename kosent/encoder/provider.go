package encoder

import (
	"context"
	"strings"

	"github.com/kosent/headline-sentiment/kosent/encoding"
)

// Encoder maps model-ready inputs to per-token embedding tensors of shape
// [seq][hidden]. The pretrained model behind it is opaque; its hidden
// dimension and expected sequence length must match the sequence encoder's
// configuration.
type Encoder interface {
	HiddenDim() int
	Encode(ctx context.Context, batch []encoding.Input) ([][][]float32, error)
}

// NewEncoder selects an encoder by name (e.g., "hash", "onnx").
// modelPath points at a local ONNX model when applicable.
// Unknown names fall back to the deterministic hash encoder.
func NewEncoder(name string, hiddenDim int, modelPath string) Encoder {
	if hiddenDim <= 0 {
		hiddenDim = 768
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hash", "", "dev":
		return NewHashEncoder(hiddenDim)
	default:
		if strings.HasPrefix(strings.ToLower(name), "onnx") {
			return newONNXEncoder(hiddenDim, modelPath)
		}
		return NewHashEncoder(hiddenDim)
	}
}
