package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

// Run is one recorded training run.
type Run struct {
	ID             uuid.UUID
	StartedAt      time.Time
	EncoderName    string
	MaxSeqLen      int
	HiddenDim      int
	Epochs         int
	BatchSize      int
	LearningRate   float64
	CheckpointPath string
	TestAccuracy   sql.NullFloat64
}

// RunStore tracks training runs, their per-epoch losses and the final test
// accuracy in a local libsql database.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens or initializes the run database at path.
func NewRunStore(path string) (*RunStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create run database directory: %w", err)
		}
	}

	slog.Info("run database path", "path", path)

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping run database: %w", err)
	}

	s := &RunStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// init sets up the run tables.
func (s *RunStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY UNIQUE,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		encoder_name TEXT,
		max_seq_len INTEGER,
		hidden_dim INTEGER,
		epochs INTEGER,
		batch_size INTEGER,
		learning_rate REAL,
		checkpoint_path TEXT,
		test_accuracy REAL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS epochs (
		run_id TEXT NOT NULL,
		epoch INTEGER NOT NULL,
		train_loss REAL,
		val_loss REAL,
		improved INTEGER,
		PRIMARY KEY (run_id, epoch)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create epochs table: %w", err)
	}
	return nil
}

// InsertRun records a new run and returns its ID.
func (s *RunStore) InsertRun(run Run) (uuid.UUID, error) {
	id := run.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be a no-op if transaction is committed

	result, err := tx.Exec(
		`INSERT INTO runs (id, encoder_name, max_seq_len, hidden_dim, epochs, batch_size, learning_rate, checkpoint_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, run.EncoderName, run.MaxSeqLen, run.HiddenDim, run.Epochs, run.BatchSize, run.LearningRate, run.CheckpointPath,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return uuid.Nil, fmt.Errorf("expected 1 row affected, got %d", rowsAffected)
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("recorded run", "id", id)
	return id, nil
}

// InsertEpoch records one epoch's losses for a run.
func (s *RunStore) InsertEpoch(runID uuid.UUID, epoch int, trainLoss, valLoss float64, improved bool) error {
	_, err := s.db.Exec(
		"INSERT INTO epochs (run_id, epoch, train_loss, val_loss, improved) VALUES (?, ?, ?, ?, ?)",
		runID, epoch, trainLoss, valLoss, improved,
	)
	if err != nil {
		return fmt.Errorf("failed to insert epoch %d: %w", epoch, err)
	}
	return nil
}

// SetTestAccuracy records the final held-out accuracy (percentage) for a run.
func (s *RunStore) SetTestAccuracy(runID uuid.UUID, accuracyPct float64) error {
	result, err := s.db.Exec("UPDATE runs SET test_accuracy = ? WHERE id = ?", accuracyPct, runID)
	if err != nil {
		return fmt.Errorf("failed to update test accuracy: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.QueryRow(
		`SELECT id, started_at, encoder_name, max_seq_len, hidden_dim, epochs, batch_size, learning_rate, checkpoint_path, test_accuracy
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.StartedAt, &run.EncoderName, &run.MaxSeqLen, &run.HiddenDim, &run.Epochs, &run.BatchSize, &run.LearningRate, &run.CheckpointPath, &run.TestAccuracy)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// EpochRecord is one stored epoch's losses.
type EpochRecord struct {
	Epoch     int
	TrainLoss float64
	ValLoss   float64
	Improved  bool
}

// GetEpochs retrieves a run's epoch history in order.
func (s *RunStore) GetEpochs(runID uuid.UUID) ([]EpochRecord, error) {
	rows, err := s.db.Query("SELECT epoch, train_loss, val_loss, improved FROM epochs WHERE run_id = ? ORDER BY epoch", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpochRecord
	for rows.Next() {
		var e EpochRecord
		if err := rows.Scan(&e.Epoch, &e.TrainLoss, &e.ValLoss, &e.Improved); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
