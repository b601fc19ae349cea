//go:build !onnx
// +build !onnx

package encoder

import (
	"context"
	"fmt"

	"github.com/kosent/headline-sentiment/kosent/encoding"
)

// onnxEncoder is a stub used when built without the "onnx" build tag.
type onnxEncoder struct{ hidden int }

func newONNXEncoder(hidden int, modelPath string) Encoder { return &onnxEncoder{hidden: hidden} }

func (p *onnxEncoder) HiddenDim() int { return p.hidden }

func (p *onnxEncoder) Encode(ctx context.Context, batch []encoding.Input) ([][][]float32, error) {
	return nil, fmt.Errorf("onnx encoder not available: build with -tags onnx and provide a supported model")
}
