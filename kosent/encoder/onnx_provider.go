//go:build onnx
// +build onnx

package encoder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kosent/headline-sentiment/kosent/encoding"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNX-backed encoder under the onnx build tag. Initializes ORT and opens a
// dynamic session against a BERT-style model exposing input_ids,
// attention_mask and token_type_ids, with a rank-3 last_hidden_state output.
type onnxEncoder struct {
	hidden      int
	modelPath   string
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

func newONNXEncoder(hidden int, modelPath string) Encoder {
	return &onnxEncoder{hidden: hidden, modelPath: modelPath}
}

func (p *onnxEncoder) HiddenDim() int { return p.hidden }

func (p *onnxEncoder) ensureSession() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return nil
	}
	if p.modelPath == "" {
		return fmt.Errorf("onnx model path is required")
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}
	// Probe IO
	ins, outs, err := ort.GetInputOutputInfo(p.modelPath)
	if err != nil {
		return fmt.Errorf("get IO info: %w", err)
	}
	var idsName, maskName, tokTypeName string
	for _, ii := range ins {
		name := ii.Name
		n := strings.ToLower(name)
		if strings.Contains(n, "input_ids") || n == "ids" {
			idsName = name
		}
		if strings.Contains(n, "attention_mask") || n == "mask" {
			maskName = name
		}
		if strings.Contains(n, "token_type") || n == "segment_ids" {
			tokTypeName = name
		}
	}
	var inputNames []string
	for _, n := range []string{idsName, maskName, tokTypeName} {
		if n != "" {
			inputNames = append(inputNames, n)
		}
	}
	// Fallback: take the model's int64 tensor inputs in declared order
	if len(inputNames) == 0 {
		for _, ii := range ins {
			if ii.DataType == ort.TensorElementDataTypeInt64 {
				inputNames = append(inputNames, ii.Name)
				if len(inputNames) >= 3 {
					break
				}
			}
		}
	}
	if len(inputNames) == 0 {
		return fmt.Errorf("could not determine ONNX input names")
	}
	// Choose first float output by default
	var outputNames []string
	for _, oi := range outs {
		if oi.DataType == ort.TensorElementDataTypeFloat {
			outputNames = append(outputNames, oi.Name)
			break
		}
	}
	if len(outputNames) == 0 {
		return fmt.Errorf("could not determine ONNX output name")
	}
	// EP detection and options; fall back to CPU if session creation with the
	// requested EP fails.
	var opts *ort.SessionOptions
	if onnxEPPreference != "" && onnxEPPreference != "cpu" {
		if o, e := ort.NewSessionOptions(); e == nil {
			_ = o.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll)
			_ = o.SetIntraOpNumThreads(0)
			_ = o.SetInterOpNumThreads(0)
			switch onnxEPPreference {
			case "cuda":
				if cu, e2 := ort.NewCUDAProviderOptions(); e2 == nil {
					_ = o.AppendExecutionProviderCUDA(cu)
					_ = cu.Destroy()
				}
			case "tensorrt":
				if trt, e2 := ort.NewTensorRTProviderOptions(); e2 == nil {
					_ = o.AppendExecutionProviderTensorRT(trt)
					_ = trt.Destroy()
				}
			case "coreml":
				_ = o.AppendExecutionProviderCoreMLV2(map[string]string{})
			case "dml":
				_ = o.AppendExecutionProviderDirectML(onnxDeviceID)
			}
			opts = o
		}
	}
	var s *ort.DynamicAdvancedSession
	if opts != nil {
		s, err = ort.NewDynamicAdvancedSession(p.modelPath, inputNames, outputNames, opts)
		_ = opts.Destroy()
	} else {
		s, err = ort.NewDynamicAdvancedSession(p.modelPath, inputNames, outputNames, nil)
	}
	if err != nil {
		return fmt.Errorf("create onnx session: %w", err)
	}
	p.session = s
	p.inputNames = inputNames
	p.outputNames = outputNames
	return nil
}

func (p *onnxEncoder) Encode(ctx context.Context, batch []encoding.Input) ([][][]float32, error) {
	if err := p.ensureSession(); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return [][][]float32{}, nil
	}
	all := make([][][]float32, 0, len(batch))
	for i := 0; i < len(batch); i += onnxBatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		end := i + onnxBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		vecs, err := p.encodeChunk(batch[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (p *onnxEncoder) encodeChunk(batch []encoding.Input) ([][][]float32, error) {
	n := len(batch)
	seq := len(batch[0].TokenIDs)
	flatIDs := make([]int64, n*seq)
	flatMask := make([]int64, n*seq)
	flatSeg := make([]int64, n*seq)
	for i, in := range batch {
		copy(flatIDs[i*seq:(i+1)*seq], in.TokenIDs)
		copy(flatMask[i*seq:(i+1)*seq], in.AttentionMask)
		copy(flatSeg[i*seq:(i+1)*seq], in.SegmentIDs)
	}
	shape := ort.NewShape(int64(n), int64(seq))
	idsTensor, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, fmt.Errorf("ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, fmt.Errorf("mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	segTensor, err := ort.NewTensor(shape, flatSeg)
	if err != nil {
		return nil, fmt.Errorf("segment tensor: %w", err)
	}
	defer segTensor.Destroy()

	inVals := make([]ort.Value, len(p.inputNames))
	for i, name := range p.inputNames {
		ln := strings.ToLower(name)
		switch {
		case strings.Contains(ln, "input_ids") || ln == "ids":
			inVals[i] = idsTensor
		case strings.Contains(ln, "attention_mask") || ln == "mask":
			inVals[i] = maskTensor
		default:
			inVals[i] = segTensor
		}
	}
	outs := make([]ort.Value, len(p.outputNames))
	if err := p.session.Run(inVals, outs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer func() {
		for _, v := range outs {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	// Expect last_hidden_state shaped [batch, seq, hidden]
	t, ok := outs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type")
	}
	data := t.GetData()
	oshape := t.GetShape()
	if len(oshape) != 3 {
		return nil, fmt.Errorf("unexpected output rank %d, want 3", len(oshape))
	}
	rows, cols, hid := int(oshape[0]), int(oshape[1]), int(oshape[2])
	if hid != p.hidden {
		return nil, fmt.Errorf("model hidden dim %d does not match configured %d", hid, p.hidden)
	}
	vecs := make([][][]float32, rows)
	for r := 0; r < rows; r++ {
		vecs[r] = make([][]float32, cols)
		for c := 0; c < cols; c++ {
			start := (r*cols + c) * hid
			raw := make([]float32, hid)
			copy(raw, data[start:start+hid])
			vecs[r][c] = raw
		}
	}
	return vecs, nil
}
