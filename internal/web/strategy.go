package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fieldline-data/rom.report/internal/bench"
	"github.com/fieldline-data/rom.report/internal/config"
	"github.com/fieldline-data/rom.report/internal/rom"
)

// strategySpec is the reduction+regression selection parsed from a form,
// with config defaults filled in for every field the form left blank.
type strategySpec struct {
	Reduction rom.ReductionKind
	Regressor rom.RegressorKind

	PODRank int
	AE      rom.AutoencoderOptions
	RBF     rom.RBFOptions
	GPR     rom.GPROptions
	Kernel  rom.CompositeOptions
	KNN     rom.KNeighborsOptions
	Radius  rom.RadiusOptions
	ANN     rom.ANNOptions
}

// Name returns the display form, e.g. "POD+RBF".
func (s *strategySpec) Name() string {
	return s.Reduction.String() + "+" + s.Regressor.String()
}

// strategyFromForm reads the strategy fields common to the predict, k-fold,
// and benchmark forms. Unknown enum names and unparsable numbers are user
// errors, reported before any computation.
func (ws *WebServer) strategyFromForm(r *http.Request) (*strategySpec, error) {
	spec := ws.defaultStrategy()

	if v := r.FormValue("reduction"); v != "" {
		k, err := rom.ParseReductionKind(v)
		if err != nil {
			return nil, err
		}
		spec.Reduction = k
	}
	if v := r.FormValue("regressor"); v != "" {
		k, err := rom.ParseRegressorKind(v)
		if err != nil {
			return nil, err
		}
		spec.Regressor = k
	}

	var err error
	if spec.PODRank, err = formInt(r, "pod_rank", spec.PODRank); err != nil {
		return nil, err
	}
	if spec.PODRank < 0 {
		return nil, fmt.Errorf("pod_rank must not be negative, got %d", spec.PODRank)
	}

	if v := r.FormValue("rbf_kernel"); v != "" {
		if spec.RBF.Kernel, err = rom.ParseRBFBasis(v); err != nil {
			return nil, err
		}
	}
	if spec.RBF.Epsilon, err = formFloat(r, "rbf_epsilon", spec.RBF.Epsilon); err != nil {
		return nil, err
	}
	if spec.RBF.Smoothing, err = formFloat(r, "rbf_smoothing", spec.RBF.Smoothing); err != nil {
		return nil, err
	}

	if v := r.FormValue("gpr_kernel"); v != "" {
		if spec.Kernel.Kind, err = rom.ParseGPRKernelKind(v); err != nil {
			return nil, err
		}
	}
	if spec.Kernel.LengthScale, err = formFloat(r, "gpr_length_scale", spec.Kernel.LengthScale); err != nil {
		return nil, err
	}
	if spec.Kernel.Nu, err = formFloat(r, "gpr_nu", spec.Kernel.Nu); err != nil {
		return nil, err
	}
	if spec.GPR.Restarts, err = formInt(r, "gpr_restarts", spec.GPR.Restarts); err != nil {
		return nil, err
	}
	spec.GPR.NormalizeY = r.FormValue("gpr_normalize_y") != ""

	if spec.KNN.K, err = formInt(r, "neighbor_count", spec.KNN.K); err != nil {
		return nil, err
	}
	if v := r.FormValue("neighbor_weights"); v != "" {
		if spec.KNN.Weights, err = rom.ParseWeighting(v); err != nil {
			return nil, err
		}
		spec.Radius.Weights = spec.KNN.Weights
	}
	if spec.Radius.Radius, err = formFloat(r, "neighbor_radius", spec.Radius.Radius); err != nil {
		return nil, err
	}

	if v := r.FormValue("ann_hidden"); v != "" {
		if spec.ANN.Hidden, err = parseHiddenWidths(v); err != nil {
			return nil, err
		}
	}
	if v := r.FormValue("ann_activation"); v != "" {
		if spec.ANN.Activation, err = rom.ParseActivation(v); err != nil {
			return nil, err
		}
	}
	if spec.ANN.LearningRate, err = formFloat(r, "ann_learn_rate", spec.ANN.LearningRate); err != nil {
		return nil, err
	}
	if spec.ANN.MaxEpochs, err = formInt(r, "ann_max_epochs", spec.ANN.MaxEpochs); err != nil {
		return nil, err
	}

	return spec, nil
}

// defaultStrategy is the config-tuned POD+RBF starting point every form
// inherits.
func (ws *WebServer) defaultStrategy() *strategySpec {
	return defaultStrategySpec(ws.cfg)
}

func defaultStrategySpec(cfg *config.ExperimentConfig) *strategySpec {
	return &strategySpec{
		Reduction: rom.ReductionPOD,
		Regressor: rom.RegressorRBF,
		PODRank:   cfg.GetPODRank(),
		RBF: rom.RBFOptions{
			Epsilon:   cfg.GetRBFEpsilon(),
			Smoothing: cfg.GetRBFSmoothing(),
		},
		GPR: rom.GPROptions{
			Restarts: cfg.GetGPRRestarts(),
			Seed:     cfg.GetKFoldSeed(),
		},
		Kernel: rom.CompositeOptions{
			LengthScale: cfg.GetGPRLengthScale(),
		},
		KNN: rom.KNeighborsOptions{
			K: cfg.GetNeighborCount(),
		},
		Radius: rom.RadiusOptions{
			Radius: cfg.GetNeighborRadius(),
		},
		ANN: rom.ANNOptions{
			Hidden:       cfg.GetANNHidden(),
			LearningRate: cfg.GetANNLearnRate(),
			MaxEpochs:    cfg.GetANNMaxEpochs(),
			Seed:         cfg.GetKFoldSeed(),
		},
	}
}

// buildReduction instantiates the selected reduction strategy.
func (s *strategySpec) buildReduction() (rom.Reduction, error) {
	switch s.Reduction {
	case rom.ReductionPOD:
		return rom.NewPOD(s.PODRank), nil
	case rom.ReductionAE:
		return rom.NewAutoencoder(s.AE), nil
	case rom.ReductionPODAE:
		return rom.NewPODAE(rom.NewPOD(s.PODRank), rom.NewAutoencoder(s.AE)), nil
	}
	return nil, fmt.Errorf("rom: unknown reduction kind %d", int(s.Reduction))
}

// buildRegressor instantiates the selected regression strategy.
func (s *strategySpec) buildRegressor() (rom.Regressor, error) {
	switch s.Regressor {
	case rom.RegressorRBF:
		return rom.NewRBF(s.RBF), nil
	case rom.RegressorGPR:
		kernel, err := rom.BuildKernel(s.Kernel)
		if err != nil {
			return nil, err
		}
		opts := s.GPR
		opts.Kernel = kernel
		return rom.NewGPR(opts), nil
	case rom.RegressorANN:
		return rom.NewANN(s.ANN), nil
	case rom.RegressorKNeighbors:
		return rom.NewKNeighbors(s.KNN), nil
	case rom.RegressorRadius:
		return rom.NewRadiusNeighbors(s.Radius), nil
	}
	return nil, fmt.Errorf("rom: unknown regressor kind %d", int(s.Regressor))
}

// benchFactory builds config-tuned strategies for the benchmark grid, so
// grid cells match what the predict page would fit with default forms.
func benchFactory(cfg *config.ExperimentConfig) bench.Factory {
	return bench.Factory{
		Reduction: func(k rom.ReductionKind) (rom.Reduction, error) {
			spec := defaultStrategySpec(cfg)
			spec.Reduction = k
			return spec.buildReduction()
		},
		Regressor: func(k rom.RegressorKind) (rom.Regressor, error) {
			spec := defaultStrategySpec(cfg)
			spec.Regressor = k
			return spec.buildRegressor()
		},
	}
}

// parseHiddenWidths parses a comma-separated layer width list like
// "6,12,24".
func parseHiddenWidths(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	widths := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid hidden width %q", p)
		}
		if n < 1 {
			return nil, fmt.Errorf("hidden widths must be positive, got %d", n)
		}
		widths = append(widths, n)
	}
	if len(widths) == 0 {
		return nil, fmt.Errorf("hidden widths list is empty")
	}
	return widths, nil
}

func formFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

func formInt(r *http.Request, name string, def int) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func formInt64(r *http.Request, name string, def int64) (int64, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}
