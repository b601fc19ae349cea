package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	head := NewHead(16, 99)
	path := filepath.Join(t.TempDir(), "best.ckpt")

	require.NoError(t, SaveCheckpoint(path, head.Snapshot(0.42)))

	ck, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, 16, ck.HiddenDim)
	assert.InDelta(t, 0.42, ck.ValLoss, 1e-12)

	restored, err := FromCheckpoint(ck)
	require.NoError(t, err)

	x := make([]float32, 16)
	for i := range x {
		x[i] = float32(i) * 0.1
	}
	assert.InDelta(t, head.Forward(x), restored.Forward(x), 1e-12)
}

func TestCheckpointOverwrite(t *testing.T) {
	head := NewHead(4, 1)
	path := filepath.Join(t.TempDir(), "best.ckpt")

	require.NoError(t, SaveCheckpoint(path, head.Snapshot(0.9)))
	require.NoError(t, SaveCheckpoint(path, head.Snapshot(0.5)))

	ck, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ck.ValLoss, 1e-12)
}

func TestLoadCheckpointMissing(t *testing.T) {
	_, err := LoadCheckpoint(filepath.Join(t.TempDir(), "nope.ckpt"))
	assert.Error(t, err)
}

func TestFromCheckpointInconsistent(t *testing.T) {
	_, err := FromCheckpoint(Checkpoint{HiddenDim: 4, Weights: []float64{1, 2}})
	assert.Error(t, err)
}

func TestSnapshotIsACopy(t *testing.T) {
	head := NewHead(4, 1)
	ck := head.Snapshot(1.0)
	ck.Weights[0] = 123

	assert.NotEqual(t, 123.0, head.params[0], "mutating a snapshot must not touch the live head")
}
