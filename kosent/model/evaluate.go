package model

import (
	"fmt"
)

// RoundProbs thresholds probabilities at 0.5 to obtain binary predictions.
func RoundProbs(probs []float64) []int {
	preds := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			preds[i] = 1
		}
	}
	return preds
}

// Accuracy is the fraction of predictions matching labels.
func Accuracy(preds, labels []int) (float64, error) {
	if len(preds) != len(labels) {
		return 0, fmt.Errorf("prediction count %d does not match label count %d", len(preds), len(labels))
	}
	if len(preds) == 0 {
		return 0, fmt.Errorf("cannot compute accuracy of an empty set")
	}
	var match int
	for i, p := range preds {
		if p == labels[i] {
			match++
		}
	}
	return float64(match) / float64(len(preds)), nil
}

// AccuracyPercent reports accuracy as a percentage.
func AccuracyPercent(preds, labels []int) (float64, error) {
	acc, err := Accuracy(preds, labels)
	if err != nil {
		return 0, err
	}
	return acc * 100, nil
}
