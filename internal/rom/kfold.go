package rom

import (
	"fmt"
	"math/rand"

	"github.com/fieldline-data/rom.report/internal/metrics"
)

// KFold splits the indexes [0, n) into k folds after a seeded shuffle. The
// folds are contiguous runs of the shuffled order, they are disjoint, and
// together they cover every index exactly once; the first n%k folds carry
// the extra element.
func KFold(n, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("rom: k-fold needs k >= 2, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("rom: %d folds over %d samples", k, n)
	}

	order := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	base, extra := n/k, n%k
	at := 0
	for f := 0; f < k; f++ {
		size := base
		if f < extra {
			size++
		}
		folds[f] = append([]int(nil), order[at:at+size]...)
		at += size
	}
	return folds, nil
}

// KFoldErrors cross-validates the strategy pair over db: for each fold it
// fits a model on the remaining rows, predicts the held-out parameters, and
// scores the fold with the mean relative error over its rows. Reduction and
// regressor are refitted in place, which their Fit contracts allow.
func KFoldErrors(db *Database, reduction Reduction, regressor Regressor, k int, seed int64) ([]float64, error) {
	folds, err := KFold(db.Len(), k, seed)
	if err != nil {
		return nil, err
	}

	errs := make([]float64, 0, len(folds))
	for f, fold := range folds {
		train, test, err := db.Split(fold)
		if err != nil {
			return nil, fmt.Errorf("rom: fold %d: %w", f, err)
		}
		model, err := New(train, reduction, regressor)
		if err != nil {
			return nil, err
		}
		if err := model.Fit(); err != nil {
			return nil, fmt.Errorf("rom: fold %d: %w", f, err)
		}
		pred, err := model.Predict(test.Params)
		if err != nil {
			return nil, fmt.Errorf("rom: fold %d: %w", f, err)
		}

		var foldErr float64
		rows, _ := test.Snapshots.Dims()
		for i := 0; i < rows; i++ {
			rowErr, err := metrics.MeanRelativeError(test.Snapshots.RawRowView(i), pred.RawRowView(i))
			if err != nil {
				return nil, fmt.Errorf("rom: fold %d: %w", f, err)
			}
			foldErr += rowErr
		}
		errs = append(errs, foldErr/float64(rows))
	}
	return errs, nil
}
