package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetRun(t *testing.T) {
	s := testStore(t)

	id, err := s.InsertRun(Run{
		EncoderName:    "hash",
		MaxSeqLen:      64,
		HiddenDim:      768,
		Epochs:         3,
		BatchSize:      32,
		LearningRate:   1e-3,
		CheckpointPath: "/tmp/best.ckpt",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	run, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "hash", run.EncoderName)
	assert.Equal(t, 64, run.MaxSeqLen)
	assert.Equal(t, 3, run.Epochs)
	assert.False(t, run.TestAccuracy.Valid, "accuracy not recorded yet")
}

func TestEpochHistory(t *testing.T) {
	s := testStore(t)

	id, err := s.InsertRun(Run{EncoderName: "hash"})
	require.NoError(t, err)

	require.NoError(t, s.InsertEpoch(id, 1, 0.69, 0.68, true))
	require.NoError(t, s.InsertEpoch(id, 2, 0.55, 0.60, true))
	require.NoError(t, s.InsertEpoch(id, 3, 0.48, 0.62, false))

	epochs, err := s.GetEpochs(id)
	require.NoError(t, err)
	require.Len(t, epochs, 3)
	assert.Equal(t, 1, epochs[0].Epoch)
	assert.True(t, epochs[1].Improved)
	assert.False(t, epochs[2].Improved)
	assert.InDelta(t, 0.48, epochs[2].TrainLoss, 1e-9)
}

func TestDuplicateEpochRejected(t *testing.T) {
	s := testStore(t)

	id, err := s.InsertRun(Run{EncoderName: "hash"})
	require.NoError(t, err)

	require.NoError(t, s.InsertEpoch(id, 1, 0.5, 0.5, true))
	assert.Error(t, s.InsertEpoch(id, 1, 0.4, 0.4, true))
}

func TestSetTestAccuracy(t *testing.T) {
	s := testStore(t)

	id, err := s.InsertRun(Run{EncoderName: "hash"})
	require.NoError(t, err)

	require.NoError(t, s.SetTestAccuracy(id, 87.5))

	run, err := s.GetRun(id)
	require.NoError(t, err)
	require.True(t, run.TestAccuracy.Valid)
	assert.InDelta(t, 87.5, run.TestAccuracy.Float64, 1e-9)
}

func TestSetTestAccuracyUnknownRun(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.SetTestAccuracy(uuid.New(), 50))
}
