package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical experiment defaults file.
// This is the single source of truth for all default experiment values.
const DefaultConfigPath = "config/experiment.defaults.json"

// ExperimentConfig represents the root configuration for model and
// dashboard defaults. The schema matches the /api/config endpoint so the
// same JSON can be used for both startup configuration and runtime
// inspection.
type ExperimentConfig struct {
	// Reduction params
	PODRank *int `json:"pod_rank,omitempty"`

	// Regressor params
	RBFEpsilon     *float64 `json:"rbf_epsilon,omitempty"`
	RBFSmoothing   *float64 `json:"rbf_smoothing,omitempty"`
	GPRRestarts    *int     `json:"gpr_restarts,omitempty"`
	GPRLengthScale *float64 `json:"gpr_length_scale,omitempty"`
	NeighborCount  *int     `json:"neighbor_count,omitempty"`
	NeighborRadius *float64 `json:"neighbor_radius,omitempty"`
	ANNHidden      []int    `json:"ann_hidden,omitempty"`
	ANNLearnRate   *float64 `json:"ann_learn_rate,omitempty"`
	ANNMaxEpochs   *int     `json:"ann_max_epochs,omitempty"`

	// Cross-validation params
	KFolds     *int   `json:"k_folds,omitempty"`
	KFoldSeed  *int64 `json:"k_fold_seed,omitempty"`
	BenchFolds *int   `json:"bench_folds,omitempty"`

	// Parameter sweep defaults for assembling snapshot sets
	ParamStart *float64 `json:"param_start,omitempty"`
	ParamEnd   *float64 `json:"param_end,omitempty"`
	ParamStep  *float64 `json:"param_step,omitempty"`

	// Visualization params
	Colormap   *string  `json:"colormap,omitempty"`
	WarpFactor *float64 `json:"warp_factor,omitempty"`

	// Server params
	SessionTTL  *string `json:"session_ttl,omitempty"` // duration string like "30m"
	MaxUploadMB *int    `json:"max_upload_mb,omitempty"`
	SaveDir     *string `json:"save_dir,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyExperimentConfig returns an ExperimentConfig with all fields set to
// nil. Use LoadExperimentConfig to load actual values from a file.
func EmptyExperimentConfig() *ExperimentConfig {
	return &ExperimentConfig{}
}

// DefaultExperimentConfig returns a config with every field populated with
// its documented default. The Get* methods return the same values for an
// empty config; this constructor exists for callers that serialize the
// full schema.
func DefaultExperimentConfig() *ExperimentConfig {
	return &ExperimentConfig{
		PODRank:        ptrInt(0),
		RBFEpsilon:     ptrFloat64(0.02),
		RBFSmoothing:   ptrFloat64(0),
		GPRRestarts:    ptrInt(10),
		GPRLengthScale: ptrFloat64(1.0),
		NeighborCount:  ptrInt(5),
		NeighborRadius: ptrFloat64(1.0),
		ANNHidden:      []int{6, 12, 24},
		ANNLearnRate:   ptrFloat64(0.1),
		ANNMaxEpochs:   ptrInt(1000),
		KFolds:         ptrInt(5),
		KFoldSeed:      ptrInt64(1),
		BenchFolds:     ptrInt(7),
		ParamStart:     ptrFloat64(-50),
		ParamEnd:       ptrFloat64(90),
		ParamStep:      ptrFloat64(20),
		Colormap:       ptrString("viridis"),
		WarpFactor:     ptrFloat64(10),
		SessionTTL:     ptrString("30m"),
		MaxUploadMB:    ptrInt(64),
		SaveDir:        ptrString("data"),
	}
}

// Effective returns a copy with every field populated, file-loaded values
// taking precedence over the documented defaults. The /api/config endpoint
// serializes this so clients always see the full schema.
func (c *ExperimentConfig) Effective() *ExperimentConfig {
	eff := DefaultExperimentConfig()
	if c == nil {
		return eff
	}
	if c.PODRank != nil {
		eff.PODRank = c.PODRank
	}
	if c.RBFEpsilon != nil {
		eff.RBFEpsilon = c.RBFEpsilon
	}
	if c.RBFSmoothing != nil {
		eff.RBFSmoothing = c.RBFSmoothing
	}
	if c.GPRRestarts != nil {
		eff.GPRRestarts = c.GPRRestarts
	}
	if c.GPRLengthScale != nil {
		eff.GPRLengthScale = c.GPRLengthScale
	}
	if c.NeighborCount != nil {
		eff.NeighborCount = c.NeighborCount
	}
	if c.NeighborRadius != nil {
		eff.NeighborRadius = c.NeighborRadius
	}
	if c.ANNHidden != nil {
		eff.ANNHidden = c.ANNHidden
	}
	if c.ANNLearnRate != nil {
		eff.ANNLearnRate = c.ANNLearnRate
	}
	if c.ANNMaxEpochs != nil {
		eff.ANNMaxEpochs = c.ANNMaxEpochs
	}
	if c.KFolds != nil {
		eff.KFolds = c.KFolds
	}
	if c.KFoldSeed != nil {
		eff.KFoldSeed = c.KFoldSeed
	}
	if c.BenchFolds != nil {
		eff.BenchFolds = c.BenchFolds
	}
	if c.ParamStart != nil {
		eff.ParamStart = c.ParamStart
	}
	if c.ParamEnd != nil {
		eff.ParamEnd = c.ParamEnd
	}
	if c.ParamStep != nil {
		eff.ParamStep = c.ParamStep
	}
	if c.Colormap != nil {
		eff.Colormap = c.Colormap
	}
	if c.WarpFactor != nil {
		eff.WarpFactor = c.WarpFactor
	}
	if c.SessionTTL != nil {
		eff.SessionTTL = c.SessionTTL
	}
	if c.MaxUploadMB != nil {
		eff.MaxUploadMB = c.MaxUploadMB
	}
	if c.SaveDir != nil {
		eff.SaveDir = c.SaveDir
	}
	return eff
}

// LoadExperimentConfig loads an ExperimentConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyExperimentConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical experiment defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *ExperimentConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // deeper packages
		"../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadExperimentConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ExperimentConfig) Validate() error {
	if c.PODRank != nil && *c.PODRank < 0 {
		return fmt.Errorf("pod_rank must be non-negative, got %d", *c.PODRank)
	}

	if c.RBFEpsilon != nil && *c.RBFEpsilon <= 0 {
		return fmt.Errorf("rbf_epsilon must be positive, got %f", *c.RBFEpsilon)
	}

	if c.RBFSmoothing != nil && *c.RBFSmoothing < 0 {
		return fmt.Errorf("rbf_smoothing must be non-negative, got %f", *c.RBFSmoothing)
	}

	if c.GPRRestarts != nil && *c.GPRRestarts < 0 {
		return fmt.Errorf("gpr_restarts must be non-negative, got %d", *c.GPRRestarts)
	}

	if c.NeighborCount != nil && *c.NeighborCount < 1 {
		return fmt.Errorf("neighbor_count must be at least 1, got %d", *c.NeighborCount)
	}

	if c.NeighborRadius != nil && *c.NeighborRadius <= 0 {
		return fmt.Errorf("neighbor_radius must be positive, got %f", *c.NeighborRadius)
	}

	for i, width := range c.ANNHidden {
		if width < 1 {
			return fmt.Errorf("ann_hidden[%d] must be at least 1, got %d", i, width)
		}
	}

	if c.KFolds != nil && *c.KFolds < 2 {
		return fmt.Errorf("k_folds must be at least 2, got %d", *c.KFolds)
	}

	if c.BenchFolds != nil && *c.BenchFolds < 2 {
		return fmt.Errorf("bench_folds must be at least 2, got %d", *c.BenchFolds)
	}

	if c.ParamStep != nil && *c.ParamStep == 0 {
		return fmt.Errorf("param_step must be non-zero")
	}

	// Warp range follows the dashboard slider.
	if c.WarpFactor != nil {
		if *c.WarpFactor < 0.1 || *c.WarpFactor > 100 {
			return fmt.Errorf("warp_factor must be between 0.1 and 100, got %f", *c.WarpFactor)
		}
	}

	// Validate SessionTTL can be parsed if set
	if c.SessionTTL != nil && *c.SessionTTL != "" {
		if _, err := time.ParseDuration(*c.SessionTTL); err != nil {
			return fmt.Errorf("invalid session_ttl '%s': %w", *c.SessionTTL, err)
		}
	}

	if c.MaxUploadMB != nil && *c.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", *c.MaxUploadMB)
	}

	return nil
}

// GetPODRank returns the pod_rank value or the default.
func (c *ExperimentConfig) GetPODRank() int {
	if c.PODRank == nil {
		return 0 // default: keep all modes
	}
	return *c.PODRank
}

// GetRBFEpsilon returns the rbf_epsilon value or the default.
func (c *ExperimentConfig) GetRBFEpsilon() float64 {
	if c.RBFEpsilon == nil {
		return 0.02
	}
	return *c.RBFEpsilon
}

// GetRBFSmoothing returns the rbf_smoothing value or the default.
func (c *ExperimentConfig) GetRBFSmoothing() float64 {
	if c.RBFSmoothing == nil {
		return 0
	}
	return *c.RBFSmoothing
}

// GetGPRRestarts returns the gpr_restarts value or the default.
func (c *ExperimentConfig) GetGPRRestarts() int {
	if c.GPRRestarts == nil {
		return 10
	}
	return *c.GPRRestarts
}

// GetGPRLengthScale returns the gpr_length_scale value or the default.
func (c *ExperimentConfig) GetGPRLengthScale() float64 {
	if c.GPRLengthScale == nil {
		return 1.0
	}
	return *c.GPRLengthScale
}

// GetNeighborCount returns the neighbor_count value or the default.
func (c *ExperimentConfig) GetNeighborCount() int {
	if c.NeighborCount == nil {
		return 5
	}
	return *c.NeighborCount
}

// GetNeighborRadius returns the neighbor_radius value or the default.
func (c *ExperimentConfig) GetNeighborRadius() float64 {
	if c.NeighborRadius == nil {
		return 1.0
	}
	return *c.NeighborRadius
}

// GetANNHidden returns the ann_hidden layer widths or the default.
func (c *ExperimentConfig) GetANNHidden() []int {
	if len(c.ANNHidden) == 0 {
		return []int{6, 12, 24}
	}
	return c.ANNHidden
}

// GetANNLearnRate returns the ann_learn_rate value or the default.
func (c *ExperimentConfig) GetANNLearnRate() float64 {
	if c.ANNLearnRate == nil {
		return 0.1
	}
	return *c.ANNLearnRate
}

// GetANNMaxEpochs returns the ann_max_epochs value or the default.
func (c *ExperimentConfig) GetANNMaxEpochs() int {
	if c.ANNMaxEpochs == nil {
		return 1000
	}
	return *c.ANNMaxEpochs
}

// GetKFolds returns the k_folds value or the default. Callers clamp it to
// the snapshot count before splitting.
func (c *ExperimentConfig) GetKFolds() int {
	if c.KFolds == nil {
		return 5
	}
	return *c.KFolds
}

// GetKFoldSeed returns the k_fold_seed value or the default.
func (c *ExperimentConfig) GetKFoldSeed() int64 {
	if c.KFoldSeed == nil {
		return 1
	}
	return *c.KFoldSeed
}

// GetBenchFolds returns the bench_folds value or the default.
func (c *ExperimentConfig) GetBenchFolds() int {
	if c.BenchFolds == nil {
		return 7
	}
	return *c.BenchFolds
}

// GetParamStart returns the param_start value or the default.
func (c *ExperimentConfig) GetParamStart() float64 {
	if c.ParamStart == nil {
		return -50
	}
	return *c.ParamStart
}

// GetParamEnd returns the param_end value or the default.
func (c *ExperimentConfig) GetParamEnd() float64 {
	if c.ParamEnd == nil {
		return 90
	}
	return *c.ParamEnd
}

// GetParamStep returns the param_step value or the default.
func (c *ExperimentConfig) GetParamStep() float64 {
	if c.ParamStep == nil {
		return 20
	}
	return *c.ParamStep
}

// GetColormap returns the colormap value or the default.
func (c *ExperimentConfig) GetColormap() string {
	if c.Colormap == nil || *c.Colormap == "" {
		return "viridis"
	}
	return *c.Colormap
}

// GetWarpFactor returns the warp_factor value or the default.
func (c *ExperimentConfig) GetWarpFactor() float64 {
	if c.WarpFactor == nil {
		return 10
	}
	return *c.WarpFactor
}

// GetSessionTTL parses and returns the SessionTTL as a time.Duration.
func (c *ExperimentConfig) GetSessionTTL() time.Duration {
	if c.SessionTTL == nil || *c.SessionTTL == "" {
		return 30 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.SessionTTL)
	if err != nil {
		return 30 * time.Minute // default on parse error
	}
	return d
}

// GetMaxUploadBytes returns the upload size cap in bytes.
func (c *ExperimentConfig) GetMaxUploadBytes() int64 {
	if c.MaxUploadMB == nil {
		return 64 << 20
	}
	return int64(*c.MaxUploadMB) << 20
}

// GetSaveDir returns the save_dir value or the default.
func (c *ExperimentConfig) GetSaveDir() string {
	if c.SaveDir == nil || *c.SaveDir == "" {
		return "data"
	}
	return *c.SaveDir
}
