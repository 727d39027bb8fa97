// Package rom builds reduced-order models: a dimensionality reduction
// composed with a regression from parameters to reduced coordinates.
//
// A model is assembled from three parts mirroring the experiment workflow:
// a Database (aligned parameter/snapshot rows), a Reduction (POD, an
// autoencoder, or both chained), and a Regressor (RBF, GPR, nearest or
// radius neighbors, or a small feed-forward network). Fit is synchronous;
// any numerical failure is returned, never retried.
package rom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Database is an aligned pair of parameter rows and snapshot rows. Row i of
// Params produced row i of Snapshots.
type Database struct {
	Params    *mat.Dense
	Snapshots *mat.Dense
}

// NewDatabase validates that params and snapshots agree on row count.
func NewDatabase(params, snapshots *mat.Dense) (*Database, error) {
	if params == nil || snapshots == nil {
		return nil, errors.New("rom: database needs both params and snapshots")
	}
	pr, _ := params.Dims()
	sr, _ := snapshots.Dims()
	if pr != sr {
		return nil, fmt.Errorf("rom: %d parameter rows but %d snapshot rows", pr, sr)
	}
	if pr == 0 {
		return nil, errors.New("rom: empty database")
	}
	return &Database{Params: params, Snapshots: snapshots}, nil
}

// NewScalarDatabase wraps a scalar parameter vector as an (n, 1) column.
func NewScalarDatabase(params []float64, snapshots *mat.Dense) (*Database, error) {
	if len(params) == 0 {
		return nil, errors.New("rom: empty parameter vector")
	}
	col := mat.NewDense(len(params), 1, append([]float64(nil), params...))
	return NewDatabase(col, snapshots)
}

// Len returns the number of (parameter, snapshot) rows.
func (db *Database) Len() int {
	n, _ := db.Params.Dims()
	return n
}

// Subset copies the rows at the given indexes, in the given order.
func (db *Database) Subset(indexes []int) (*Database, error) {
	if len(indexes) == 0 {
		return nil, errors.New("rom: empty index subset")
	}
	n := db.Len()
	_, pc := db.Params.Dims()
	_, sc := db.Snapshots.Dims()
	params := mat.NewDense(len(indexes), pc, nil)
	snaps := mat.NewDense(len(indexes), sc, nil)
	for row, idx := range indexes {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("rom: index %d out of range [0, %d)", idx, n)
		}
		params.SetRow(row, db.Params.RawRowView(idx))
		snaps.SetRow(row, db.Snapshots.RawRowView(idx))
	}
	return &Database{Params: params, Snapshots: snaps}, nil
}

// Split partitions the database into the rows listed in holdout and the
// rest. Holdout indexes keep their given order; training rows keep database
// order.
func (db *Database) Split(holdout []int) (train, test *Database, err error) {
	n := db.Len()
	held := make(map[int]bool, len(holdout))
	for _, idx := range holdout {
		if idx < 0 || idx >= n {
			return nil, nil, fmt.Errorf("rom: holdout index %d out of range [0, %d)", idx, n)
		}
		if held[idx] {
			return nil, nil, fmt.Errorf("rom: duplicate holdout index %d", idx)
		}
		held[idx] = true
	}
	if len(holdout) == 0 {
		return nil, nil, errors.New("rom: empty holdout")
	}
	if len(holdout) == n {
		return nil, nil, errors.New("rom: holdout covers every row")
	}

	var trainIdx []int
	for i := 0; i < n; i++ {
		if !held[i] {
			trainIdx = append(trainIdx, i)
		}
	}
	if train, err = db.Subset(trainIdx); err != nil {
		return nil, nil, err
	}
	if test, err = db.Subset(holdout); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
