package model

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is the serialized head parameter state plus the validation loss
// it was saved at. It is overwritten only when validation loss improves
// (monotonic best-so-far policy): one writer during training, one reader
// before inference.
type Checkpoint struct {
	Weights   []float64
	Bias      float64
	HiddenDim int
	ValLoss   float64
	SavedAt   time.Time
}

// Snapshot captures the head's current parameters into a checkpoint value.
func (h *Head) Snapshot(valLoss float64) Checkpoint {
	weights := make([]float64, h.dim)
	copy(weights, h.params[:h.dim])
	return Checkpoint{
		Weights:   weights,
		Bias:      h.params[h.dim],
		HiddenDim: h.dim,
		ValLoss:   valLoss,
		SavedAt:   time.Now(),
	}
}

// FromCheckpoint rebuilds a head from persisted parameters.
func FromCheckpoint(ck Checkpoint) (*Head, error) {
	if ck.HiddenDim <= 0 || len(ck.Weights) != ck.HiddenDim {
		return nil, fmt.Errorf("checkpoint is inconsistent: hiddenDim=%d weights=%d", ck.HiddenDim, len(ck.Weights))
	}
	params := make([]float64, ck.HiddenDim+1)
	copy(params, ck.Weights)
	params[ck.HiddenDim] = ck.Bias
	return &Head{params: params, dim: ck.HiddenDim}, nil
}

// SaveCheckpoint persists via a temp file and rename so a crash mid-write
// never corrupts the previous best.
func SaveCheckpoint(path string, ck Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ckpt-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(ck); err != nil {
		tmp.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a previously saved checkpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	var ck Checkpoint
	if err := gob.NewDecoder(f).Decode(&ck); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return ck, nil
}
