package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundProbs(t *testing.T) {
	preds := RoundProbs([]float64{0.9, 0.1, 0.5, 0.4999})
	assert.Equal(t, []int{1, 0, 1, 0}, preds)
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{1, 0, 1, 1}, []int{1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)
}

func TestAccuracyPercent(t *testing.T) {
	pct, err := AccuracyPercent([]int{1, 0, 1, 1}, []int{1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 75.0, pct, 1e-12)
}

func TestAccuracyMismatchedLengths(t *testing.T) {
	_, err := Accuracy([]int{1}, []int{1, 0})
	assert.Error(t, err)
}

func TestAccuracyEmpty(t *testing.T) {
	_, err := Accuracy(nil, nil)
	assert.Error(t, err)
}
