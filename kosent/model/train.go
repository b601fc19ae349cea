package model

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/kosent/headline-sentiment/kosent/dataset"
	"github.com/kosent/headline-sentiment/kosent/encoder"
	"github.com/kosent/headline-sentiment/kosent/encoding"

	"github.com/ZanzyTHEbar/assert-lib"
	"gonum.org/v1/gonum/stat"
)

// TrainConfig is the fixed fine-tuning recipe.
type TrainConfig struct {
	Epochs         int
	BatchSize      int
	LearningRate   float64
	CheckpointPath string
	Seed           int64
}

// EpochStats records one epoch's losses and whether the checkpoint advanced.
type EpochStats struct {
	Epoch     int
	TrainLoss float64
	ValLoss   float64
	Improved  bool
}

// Trainer drives supervised gradient descent over the classifier head.
// The encoder is consumed as a frozen capability: its embeddings for a given
// input never change, so each split is embedded once and the cached
// [CLS]-position vectors are reused across epochs.
type Trainer struct {
	head          *Head
	seq           *encoding.SequenceEncoder
	enc           encoder.Encoder
	cfg           TrainConfig
	AssertHandler *assert.AssertHandler
	bestValLoss   float64
}

// NewTrainer wires the sequence encoder, the embedding capability and a
// freshly initialized head.
func NewTrainer(seq *encoding.SequenceEncoder, enc encoder.Encoder, cfg TrainConfig, assertHandler *assert.AssertHandler) (*Trainer, error) {
	if seq == nil || enc == nil {
		return nil, fmt.Errorf("trainer requires a sequence encoder and an embedding encoder")
	}
	if enc.HiddenDim() <= 0 {
		return nil, fmt.Errorf("encoder hidden dimension must be positive, got %d", enc.HiddenDim())
	}
	if cfg.Epochs <= 0 || cfg.BatchSize <= 0 || cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid training config: epochs=%d batchSize=%d lr=%g", cfg.Epochs, cfg.BatchSize, cfg.LearningRate)
	}
	return &Trainer{
		head:          NewHead(enc.HiddenDim(), cfg.Seed),
		seq:           seq,
		enc:           enc,
		cfg:           cfg,
		AssertHandler: assertHandler,
		bestValLoss:   math.Inf(1),
	}, nil
}

// Head exposes the trained head (e.g., for snapshotting in tests).
func (t *Trainer) Head() *Head { return t.head }

// BestValLoss returns the best validation loss seen so far.
func (t *Trainer) BestValLoss() float64 { return t.bestValLoss }

// UseHead swaps in a head restored from a checkpoint.
func (t *Trainer) UseHead(h *Head) error {
	if h.HiddenDim() != t.enc.HiddenDim() {
		return fmt.Errorf("head hidden dim %d does not match encoder %d", h.HiddenDim(), t.enc.HiddenDim())
	}
	t.head = h
	return nil
}

// clsFeatures runs texts through the sequence encoder and the embedding
// capability, keeping only the position-0 embedding per record.
func (t *Trainer) clsFeatures(ctx context.Context, texts []string) ([][]float32, error) {
	features := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += t.cfg.BatchSize {
		end := start + t.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		inputs, err := t.seq.EncodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embs, err := t.enc.Encode(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("encode embeddings: %w", err)
		}
		for i, emb := range embs {
			if len(emb) == 0 {
				return nil, fmt.Errorf("encoder returned empty sequence for record %d", start+i)
			}
			features = append(features, emb[0])
		}
	}
	return features, nil
}

// Train runs the fixed recipe: per-epoch shuffled mini-batches, BCE loss,
// Adam on the head parameters, validation after each epoch, checkpoint only
// on improved validation loss.
func (t *Trainer) Train(ctx context.Context, train, val dataset.Dataset) ([]EpochStats, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("training split is empty")
	}

	trainX, err := t.clsFeatures(ctx, train.Titles())
	if err != nil {
		return nil, fmt.Errorf("embed training split: %w", err)
	}
	valX, err := t.clsFeatures(ctx, val.Titles())
	if err != nil {
		return nil, fmt.Errorf("embed validation split: %w", err)
	}
	trainY := train.Labels()
	valY := val.Labels()

	opt := NewAdam(t.cfg.LearningRate, t.head.dim+1)
	grads := make([]float64, t.head.dim+1)
	history := make([]EpochStats, 0, t.cfg.Epochs)

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return history, ctx.Err()
		default:
		}

		perm := rand.New(rand.NewSource(t.cfg.Seed + int64(epoch))).Perm(len(trainX))
		var batchLosses []float64
		for start := 0; start < len(perm); start += t.cfg.BatchSize {
			end := start + t.cfg.BatchSize
			if end > len(perm) {
				end = len(perm)
			}
			loss := t.trainBatch(perm[start:end], trainX, trainY, opt, grads)
			batchLosses = append(batchLosses, loss)
		}
		trainLoss := stat.Mean(batchLosses, nil)

		valLoss := t.loss(valX, valY)
		improved := valLoss < t.bestValLoss
		if improved {
			t.bestValLoss = valLoss
			if t.cfg.CheckpointPath != "" {
				if err := SaveCheckpoint(t.cfg.CheckpointPath, t.head.Snapshot(valLoss)); err != nil {
					return history, fmt.Errorf("save checkpoint at epoch %d: %w", epoch, err)
				}
			}
		}
		slog.Info("epoch complete", "epoch", epoch, "trainLoss", trainLoss, "valLoss", valLoss, "improved", improved)
		history = append(history, EpochStats{Epoch: epoch, TrainLoss: trainLoss, ValLoss: valLoss, Improved: improved})
	}
	return history, nil
}

// trainBatch accumulates BCE gradients over one mini-batch and applies a
// single Adam step. Returns the mean batch loss.
func (t *Trainer) trainBatch(idx []int, x [][]float32, y []int, opt *Adam, grads []float64) float64 {
	for i := range grads {
		grads[i] = 0
	}
	var loss float64
	for _, p := range idx {
		cls := x[p]
		prob := t.head.Forward(cls)
		loss += bce(prob, y[p])
		// d(BCE)/d(logit) = p - y
		dz := prob - float64(y[p])
		for j := 0; j < t.head.dim && j < len(cls); j++ {
			grads[j] += dz * float64(cls[j])
		}
		grads[t.head.dim] += dz
	}
	n := float64(len(idx))
	for i := range grads {
		grads[i] /= n
	}
	opt.Step(t.head.params, grads)
	return loss / n
}

// loss computes mean BCE over cached features.
func (t *Trainer) loss(x [][]float32, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for i, cls := range x {
		sum += bce(t.head.Forward(cls), y[i])
	}
	return sum / float64(len(x))
}

// bce is binary cross-entropy with probability clamping away from 0 and 1.
func bce(prob float64, label int) float64 {
	const eps = 1e-7
	if prob < eps {
		prob = eps
	}
	if prob > 1-eps {
		prob = 1 - eps
	}
	if label == 1 {
		return -math.Log(prob)
	}
	return -math.Log(1 - prob)
}

// Predict scores texts with the current head, returning probabilities in
// record order.
func (t *Trainer) Predict(ctx context.Context, texts []string) ([]float64, error) {
	x, err := t.clsFeatures(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed prediction inputs: %w", err)
	}
	probs := make([]float64, len(x))
	for i, cls := range x {
		probs[i] = t.head.Forward(cls)
	}
	return probs, nil
}
