package rom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ROM composes a database, a reduction and a regressor into one
// parameter-to-snapshot model.
type ROM struct {
	db        *Database
	reduction Reduction
	regressor Regressor
	fitted    bool
}

// New assembles an unfitted model over db.
func New(db *Database, reduction Reduction, regressor Regressor) (*ROM, error) {
	if db == nil || reduction == nil || regressor == nil {
		return nil, errors.New("rom: model needs a database, a reduction and a regressor")
	}
	return &ROM{db: db, reduction: reduction, regressor: regressor}, nil
}

// Database returns the training data the model was assembled over.
func (r *ROM) Database() *Database { return r.db }

// Reduction returns the reduction strategy.
func (r *ROM) Reduction() Reduction { return r.reduction }

// Regressor returns the regression strategy.
func (r *ROM) Regressor() Regressor { return r.regressor }

// Name describes the strategy pair, e.g. "POD+RBF".
func (r *ROM) Name() string {
	return r.reduction.Name() + "+" + r.regressor.Name()
}

// Fit learns the reduction from the snapshots, then the regression from
// parameters to reduced coordinates. It blocks until both finish.
func (r *ROM) Fit() error {
	if err := r.reduction.Fit(r.db.Snapshots); err != nil {
		return fmt.Errorf("rom: fit %s: %w", r.Name(), err)
	}
	reduced, err := r.reduction.Transform(r.db.Snapshots)
	if err != nil {
		return fmt.Errorf("rom: fit %s: %w", r.Name(), err)
	}
	if err := r.regressor.Fit(r.db.Params, reduced); err != nil {
		return fmt.Errorf("rom: fit %s: %w", r.Name(), err)
	}
	r.fitted = true
	return nil
}

// Predict maps parameter rows to full snapshots, preserving row order.
func (r *ROM) Predict(params *mat.Dense) (*mat.Dense, error) {
	if !r.fitted {
		return nil, errors.New("rom: Predict before Fit")
	}
	reduced, err := r.regressor.Predict(params)
	if err != nil {
		return nil, fmt.Errorf("rom: predict %s: %w", r.Name(), err)
	}
	full, err := r.reduction.Inverse(reduced)
	if err != nil {
		return nil, fmt.Errorf("rom: predict %s: %w", r.Name(), err)
	}
	return full, nil
}

// PredictOne maps a single parameter vector to one snapshot.
func (r *ROM) PredictOne(param []float64) ([]float64, error) {
	if len(param) == 0 {
		return nil, errors.New("rom: empty parameter vector")
	}
	out, err := r.Predict(mat.NewDense(1, len(param), append([]float64(nil), param...)))
	if err != nil {
		return nil, err
	}
	return out.RawRowView(0), nil
}
