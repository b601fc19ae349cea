package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	internal "github.com/kosent/headline-sentiment/kosent"
	"github.com/kosent/headline-sentiment/kosent/config"
	"github.com/kosent/headline-sentiment/kosent/dataset"
	"github.com/kosent/headline-sentiment/kosent/encoder"
	"github.com/kosent/headline-sentiment/kosent/encoding"
	"github.com/kosent/headline-sentiment/kosent/encoding/tokenizer"
	"github.com/kosent/headline-sentiment/kosent/model"
	"github.com/kosent/headline-sentiment/kosent/store"

	assertlib "github.com/ZanzyTHEbar/assert-lib"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; defaults searched)")
	flag.Parse()

	logger := internal.GetLogger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("pipeline failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := internal.GetLogger()

	ds, err := dataset.LoadCSV(cfg.Data.Path, cfg.Data.TitleCol, cfg.Data.BodyCol, cfg.Data.LabelCol)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	ds = ds.Balance(cfg.Data.BalanceCap)
	train, val, test, err := ds.Split(cfg.Data.TrainFrac, cfg.Data.ValFrac, cfg.Data.Seed)
	if err != nil {
		return fmt.Errorf("split dataset: %w", err)
	}

	tok, err := tokenizer.New(cfg.Encoder.Tokenizer, tokenizer.Config{VocabPath: cfg.Encoder.VocabPath})
	if err != nil {
		return fmt.Errorf("build tokenizer: %w", err)
	}
	seq, err := encoding.NewSequenceEncoder(tok, cfg.Encoder.MaxSeqLen)
	if err != nil {
		return fmt.Errorf("build sequence encoder: %w", err)
	}
	encoder.SetONNXBatchSize(cfg.Encoder.BatchSize)
	enc := encoder.NewEncoder(cfg.Encoder.Provider, cfg.Encoder.HiddenDim, cfg.Encoder.ModelPath)

	trainer, err := model.NewTrainer(seq, enc, model.TrainConfig{
		Epochs:         cfg.Training.Epochs,
		BatchSize:      cfg.Training.BatchSize,
		LearningRate:   cfg.Training.LearningRate,
		CheckpointPath: cfg.Training.CheckpointPath,
		Seed:           cfg.Data.Seed,
	}, assertlib.NewAssertHandler())
	if err != nil {
		return fmt.Errorf("build trainer: %w", err)
	}

	var runStore *store.RunStore
	var runID uuid.UUID
	if cfg.Store.Enabled {
		runStore, err = store.NewRunStore(cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer runStore.Close()
		runID, err = runStore.InsertRun(store.Run{
			EncoderName:    cfg.Encoder.Provider,
			MaxSeqLen:      cfg.Encoder.MaxSeqLen,
			HiddenDim:      cfg.Encoder.HiddenDim,
			Epochs:         cfg.Training.Epochs,
			BatchSize:      cfg.Training.BatchSize,
			LearningRate:   cfg.Training.LearningRate,
			CheckpointPath: cfg.Training.CheckpointPath,
		})
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	history, err := trainer.Train(ctx, train, val)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if runStore != nil {
		for _, e := range history {
			if err := runStore.InsertEpoch(runID, e.Epoch, e.TrainLoss, e.ValLoss, e.Improved); err != nil {
				return fmt.Errorf("record epoch: %w", err)
			}
		}
	}
	if n := seq.TruncatedCount(); n > 0 {
		logger.Warn().Int64("texts", n).Msg("subword sequences were truncated; truncation is lossy")
	}

	// Reload the best checkpoint before scoring the held-out split.
	ck, err := model.LoadCheckpoint(cfg.Training.CheckpointPath)
	if err != nil {
		return fmt.Errorf("load best checkpoint: %w", err)
	}
	best, err := model.FromCheckpoint(ck)
	if err != nil {
		return fmt.Errorf("restore head: %w", err)
	}
	if err := trainer.UseHead(best); err != nil {
		return fmt.Errorf("restore head: %w", err)
	}

	probs, err := trainer.Predict(ctx, test.Titles())
	if err != nil {
		return fmt.Errorf("score test split: %w", err)
	}
	preds := model.RoundProbs(probs)
	accPct, err := model.AccuracyPercent(preds, test.Labels())
	if err != nil {
		return fmt.Errorf("compute accuracy: %w", err)
	}
	logger.Info().Float64("accuracy_pct", accPct).Int("records", test.Len()).Msg("held-out evaluation complete")

	if err := dataset.WritePredictions(cfg.Output.PredictionsPath, test, preds); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}
	if runStore != nil {
		if err := runStore.SetTestAccuracy(runID, accPct); err != nil {
			return fmt.Errorf("record accuracy: %w", err)
		}
	}

	fmt.Fprintf(os.Stdout, "test accuracy: %.2f%% (%d records)\n", accPct, test.Len())
	return nil
}
