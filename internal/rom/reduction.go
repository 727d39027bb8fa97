package rom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Reduction maps full snapshots to a low-dimensional coordinate space and
// back. Fit learns the mapping from a snapshot matrix whose rows are
// snapshots; Transform and Inverse operate row-wise.
type Reduction interface {
	Fit(snapshots *mat.Dense) error
	Transform(snapshots *mat.Dense) (*mat.Dense, error)
	Inverse(reduced *mat.Dense) (*mat.Dense, error)
	Name() string
}

// ReductionKind enumerates the supported reduction strategies.
type ReductionKind int

const (
	ReductionPOD ReductionKind = iota
	ReductionPODAE
	ReductionAE
)

func (k ReductionKind) String() string {
	switch k {
	case ReductionPOD:
		return "POD"
	case ReductionPODAE:
		return "PODAE"
	case ReductionAE:
		return "AE"
	}
	return fmt.Sprintf("reduction(%d)", int(k))
}

// ParseReductionKind maps a user-facing name to its kind.
func ParseReductionKind(s string) (ReductionKind, error) {
	switch s {
	case "POD":
		return ReductionPOD, nil
	case "PODAE":
		return ReductionPODAE, nil
	case "AE":
		return ReductionAE, nil
	}
	return 0, fmt.Errorf("rom: unknown reduction %q", s)
}

// ReductionKinds lists every strategy in presentation order.
func ReductionKinds() []ReductionKind {
	return []ReductionKind{ReductionPOD, ReductionPODAE, ReductionAE}
}

// NewReduction builds a strategy of the given kind with default options.
func NewReduction(k ReductionKind) (Reduction, error) {
	switch k {
	case ReductionPOD:
		return NewPOD(0), nil
	case ReductionPODAE:
		return NewPODAE(NewPOD(0), NewAutoencoder(AutoencoderOptions{})), nil
	case ReductionAE:
		return NewAutoencoder(AutoencoderOptions{}), nil
	}
	return nil, fmt.Errorf("rom: unknown reduction kind %d", int(k))
}

// POD reduces snapshots onto their leading left singular vectors. Rank
// limits the number of modes kept; zero keeps all of them.
type POD struct {
	Rank int

	modes *mat.Dense // points x modes
}

// NewPOD returns a POD reduction truncated to rank modes (0 = no
// truncation).
func NewPOD(rank int) *POD {
	return &POD{Rank: rank}
}

func (p *POD) Name() string { return "POD" }

// Fit computes the singular value decomposition of the snapshot matrix and
// stores the mode basis. Earlier fits are discarded.
func (p *POD) Fit(snapshots *mat.Dense) error {
	if snapshots == nil {
		return errors.New("rom: POD: nil snapshots")
	}
	n, points := snapshots.Dims()
	if n == 0 || points == 0 {
		return errors.New("rom: POD: empty snapshot matrix")
	}

	// Columns of U are the spatial modes of Xᵀ (points x snapshots).
	var svd mat.SVD
	if ok := svd.Factorize(snapshots.T(), mat.SVDThin); !ok {
		return errors.New("rom: POD: SVD did not converge")
	}
	var u mat.Dense
	svd.UTo(&u)

	_, available := u.Dims()
	rank := p.Rank
	if rank <= 0 || rank > available {
		rank = available
	}
	p.modes = mat.NewDense(points, rank, nil)
	p.modes.Copy(u.Slice(0, points, 0, rank))
	return nil
}

// Modes returns the number of modes kept by the last Fit.
func (p *POD) Modes() int {
	if p.modes == nil {
		return 0
	}
	_, r := p.modes.Dims()
	return r
}

func (p *POD) Transform(snapshots *mat.Dense) (*mat.Dense, error) {
	if p.modes == nil {
		return nil, errors.New("rom: POD: Transform before Fit")
	}
	points, _ := p.modes.Dims()
	n, cols := snapshots.Dims()
	if cols != points {
		return nil, fmt.Errorf("rom: POD: snapshots have %d points, basis has %d", cols, points)
	}
	reduced := mat.NewDense(n, p.Modes(), nil)
	reduced.Mul(snapshots, p.modes)
	return reduced, nil
}

func (p *POD) Inverse(reduced *mat.Dense) (*mat.Dense, error) {
	if p.modes == nil {
		return nil, errors.New("rom: POD: Inverse before Fit")
	}
	n, r := reduced.Dims()
	if r != p.Modes() {
		return nil, fmt.Errorf("rom: POD: %d reduced coordinates, basis has %d modes", r, p.Modes())
	}
	points, _ := p.modes.Dims()
	full := mat.NewDense(n, points, nil)
	full.Mul(reduced, p.modes.T())
	return full, nil
}
