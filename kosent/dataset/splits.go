package dataset

import (
	"fmt"
	"log/slog"
	"math/rand"

	roaring "github.com/RoaringBitmap/roaring"
)

// Split shuffles deterministically by seed and partitions into
// train/validation/test. Membership is tracked with roaring bitmaps so the
// partition invariant (pairwise disjoint, jointly covering) is verified
// before the splits are handed to training.
func (d Dataset) Split(trainFrac, valFrac float64, seed int64) (train, val, test Dataset, err error) {
	n := len(d.Records)
	if trainFrac <= 0 || valFrac < 0 || trainFrac+valFrac >= 1 {
		return train, val, test, fmt.Errorf("invalid split fractions train=%g val=%g", trainFrac, valFrac)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTrain := int(trainFrac * float64(n))
	nVal := int(valFrac * float64(n))

	trainBM, valBM, testBM := roaring.New(), roaring.New(), roaring.New()
	train.Records = make([]Record, 0, nTrain)
	val.Records = make([]Record, 0, nVal)
	test.Records = make([]Record, 0, n-nTrain-nVal)
	for i, p := range perm {
		switch {
		case i < nTrain:
			train.Records = append(train.Records, d.Records[p])
			trainBM.Add(uint32(p))
		case i < nTrain+nVal:
			val.Records = append(val.Records, d.Records[p])
			valBM.Add(uint32(p))
		default:
			test.Records = append(test.Records, d.Records[p])
			testBM.Add(uint32(p))
		}
	}

	if roaring.And(trainBM, valBM).GetCardinality() != 0 ||
		roaring.And(trainBM, testBM).GetCardinality() != 0 ||
		roaring.And(valBM, testBM).GetCardinality() != 0 {
		return Dataset{}, Dataset{}, Dataset{}, fmt.Errorf("split produced overlapping partitions")
	}
	if roaring.Or(roaring.Or(trainBM, valBM), testBM).GetCardinality() != uint64(n) {
		return Dataset{}, Dataset{}, Dataset{}, fmt.Errorf("split lost records: partitions do not cover the dataset")
	}

	slog.Info("split dataset", "train", train.Len(), "val", val.Len(), "test", test.Len(), "seed", seed)
	return train, val, test, nil
}
