package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultExperimentConfig(t *testing.T) {
	cfg := DefaultExperimentConfig()

	// Test that defaults are set via pointers
	if cfg.RBFEpsilon == nil || *cfg.RBFEpsilon != 0.02 {
		t.Errorf("Expected RBFEpsilon 0.02, got %v", cfg.RBFEpsilon)
	}
	if cfg.GPRRestarts == nil || *cfg.GPRRestarts != 10 {
		t.Errorf("Expected GPRRestarts 10, got %v", cfg.GPRRestarts)
	}
	if cfg.KFolds == nil || *cfg.KFolds != 5 {
		t.Errorf("Expected KFolds 5, got %v", cfg.KFolds)
	}
	if cfg.SessionTTL == nil || *cfg.SessionTTL != "30m" {
		t.Errorf("Expected SessionTTL '30m', got %v", cfg.SessionTTL)
	}
	if len(cfg.ANNHidden) != 3 || cfg.ANNHidden[2] != 24 {
		t.Errorf("Expected ANNHidden [6 12 24], got %v", cfg.ANNHidden)
	}

	// Default constructor must itself validate
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultExperimentConfig().Validate() = %v, want nil", err)
	}

	// Test getter methods
	if cfg.GetRBFEpsilon() != 0.02 {
		t.Errorf("GetRBFEpsilon() = %f, want 0.02", cfg.GetRBFEpsilon())
	}
	if cfg.GetColormap() != "viridis" {
		t.Errorf("GetColormap() = %s, want viridis", cfg.GetColormap())
	}
	if cfg.GetWarpFactor() != 10 {
		t.Errorf("GetWarpFactor() = %f, want 10", cfg.GetWarpFactor())
	}
}

func TestEffective(t *testing.T) {
	// Empty config: every field comes back populated with its default.
	eff := EmptyExperimentConfig().Effective()
	if eff.RBFEpsilon == nil || *eff.RBFEpsilon != 0.02 {
		t.Errorf("Expected default RBFEpsilon 0.02, got %v", eff.RBFEpsilon)
	}
	if eff.Colormap == nil || *eff.Colormap != "viridis" {
		t.Errorf("Expected default Colormap viridis, got %v", eff.Colormap)
	}
	if eff.SessionTTL == nil || *eff.SessionTTL != "30m" {
		t.Errorf("Expected default SessionTTL '30m', got %v", eff.SessionTTL)
	}

	// Partial config: set fields win, unset fields keep defaults.
	cfg := &ExperimentConfig{
		RBFEpsilon: ptrFloat64(0.5),
		KFolds:     ptrInt(10),
		SessionTTL: ptrString("2h"),
		ANNHidden:  []int{4},
	}
	eff = cfg.Effective()
	if *eff.RBFEpsilon != 0.5 {
		t.Errorf("Expected RBFEpsilon 0.5, got %v", *eff.RBFEpsilon)
	}
	if *eff.KFolds != 10 {
		t.Errorf("Expected KFolds 10, got %v", *eff.KFolds)
	}
	if *eff.SessionTTL != "2h" {
		t.Errorf("Expected SessionTTL '2h', got %v", *eff.SessionTTL)
	}
	if len(eff.ANNHidden) != 1 || eff.ANNHidden[0] != 4 {
		t.Errorf("Expected ANNHidden [4], got %v", eff.ANNHidden)
	}
	if eff.GPRRestarts == nil || *eff.GPRRestarts != 10 {
		t.Errorf("Expected unset GPRRestarts to default to 10, got %v", eff.GPRRestarts)
	}
	if eff.Colormap == nil || *eff.Colormap != "viridis" {
		t.Errorf("Expected unset Colormap to default to viridis, got %v", eff.Colormap)
	}

	// A nil receiver still serializes as the full default schema.
	var nilCfg *ExperimentConfig
	eff = nilCfg.Effective()
	if eff == nil || eff.MaxUploadMB == nil || *eff.MaxUploadMB != 64 {
		t.Errorf("Expected nil config Effective() to carry defaults, got %+v", eff)
	}
}

func TestLoadExperimentConfig(t *testing.T) {
	// Create temporary directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	// Write test config with flat schema
	testJSON := `{
  "rbf_epsilon": 0.05,
  "gpr_restarts": 3,
  "k_folds": 4,
  "param_start": -20,
  "param_end": 60,
  "param_step": 10,
  "colormap": "plasma",
  "session_ttl": "10m"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Load the config
	cfg, err := LoadExperimentConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify values
	if cfg.RBFEpsilon == nil || *cfg.RBFEpsilon != 0.05 {
		t.Errorf("Expected RBFEpsilon 0.05, got %v", cfg.RBFEpsilon)
	}
	if cfg.GPRRestarts == nil || *cfg.GPRRestarts != 3 {
		t.Errorf("Expected GPRRestarts 3, got %v", cfg.GPRRestarts)
	}
	if cfg.KFolds == nil || *cfg.KFolds != 4 {
		t.Errorf("Expected KFolds 4, got %v", cfg.KFolds)
	}
	if cfg.GetParamStart() != -20 || cfg.GetParamEnd() != 60 || cfg.GetParamStep() != 10 {
		t.Errorf("Expected sweep -20..60 step 10, got %f..%f step %f",
			cfg.GetParamStart(), cfg.GetParamEnd(), cfg.GetParamStep())
	}
	if cfg.GetColormap() != "plasma" {
		t.Errorf("Expected colormap plasma, got %s", cfg.GetColormap())
	}
	if cfg.GetSessionTTL() != 10*time.Minute {
		t.Errorf("Expected SessionTTL 10m, got %v", cfg.GetSessionTTL())
	}
}

func TestLoadExperimentConfigMissing(t *testing.T) {
	_, err := LoadExperimentConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadExperimentConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	// Write invalid JSON
	invalidJSON := `{
  "rbf_epsilon": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadExperimentConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ExperimentConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     DefaultExperimentConfig(),
			wantErr: false,
		},
		{
			name:    "empty config is valid",
			cfg:     &ExperimentConfig{},
			wantErr: false,
		},
		{
			name: "non-positive rbf epsilon",
			cfg: &ExperimentConfig{
				RBFEpsilon: ptrFloat64(0),
			},
			wantErr: true,
		},
		{
			name: "negative gpr restarts",
			cfg: &ExperimentConfig{
				GPRRestarts: ptrInt(-1),
			},
			wantErr: true,
		},
		{
			name: "neighbor count below one",
			cfg: &ExperimentConfig{
				NeighborCount: ptrInt(0),
			},
			wantErr: true,
		},
		{
			name: "zero hidden width",
			cfg: &ExperimentConfig{
				ANNHidden: []int{6, 0, 24},
			},
			wantErr: true,
		},
		{
			name: "k folds below two",
			cfg: &ExperimentConfig{
				KFolds: ptrInt(1),
			},
			wantErr: true,
		},
		{
			name: "zero param step",
			cfg: &ExperimentConfig{
				ParamStep: ptrFloat64(0),
			},
			wantErr: true,
		},
		{
			name: "warp factor below slider range",
			cfg: &ExperimentConfig{
				WarpFactor: ptrFloat64(0.01),
			},
			wantErr: true,
		},
		{
			name: "warp factor above slider range",
			cfg: &ExperimentConfig{
				WarpFactor: ptrFloat64(500),
			},
			wantErr: true,
		},
		{
			name: "invalid session ttl",
			cfg: &ExperimentConfig{
				SessionTTL: ptrString("invalid"),
			},
			wantErr: true,
		},
		{
			name: "zero max upload",
			cfg: &ExperimentConfig{
				MaxUploadMB: ptrInt(0),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetSessionTTL(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ExperimentConfig
		want time.Duration
	}{
		{
			name: "30 minutes",
			cfg: &ExperimentConfig{
				SessionTTL: ptrString("30m"),
			},
			want: 30 * time.Minute,
		},
		{
			name: "2 hours",
			cfg: &ExperimentConfig{
				SessionTTL: ptrString("2h"),
			},
			want: 2 * time.Hour,
		},
		{
			name: "nil pointer returns default",
			cfg:  &ExperimentConfig{},
			want: 30 * time.Minute,
		},
		{
			name: "empty string returns default",
			cfg: &ExperimentConfig{
				SessionTTL: ptrString(""),
			},
			want: 30 * time.Minute,
		},
		{
			name: "invalid duration returns default",
			cfg: &ExperimentConfig{
				SessionTTL: ptrString("invalid"),
			},
			want: 30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetSessionTTL()
			if got != tt.want {
				t.Errorf("GetSessionTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadExperimentConfig("../../config/experiment.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetRBFEpsilon() != 0.02 {
		t.Errorf("Expected 0.02, got %f", cfg.GetRBFEpsilon())
	}
	if cfg.GetBenchFolds() != 7 {
		t.Errorf("Expected 7, got %d", cfg.GetBenchFolds())
	}
	if cfg.GetSaveDir() != "data" {
		t.Errorf("Expected data, got %s", cfg.GetSaveDir())
	}
}

func TestLoadExperimentConfigPartial(t *testing.T) {
	// Partial config: only override epsilon; everything else should keep defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "rbf_epsilon": 0.08
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadExperimentConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	// Overridden value
	if cfg.GetRBFEpsilon() != 0.08 {
		t.Errorf("Expected overridden RBFEpsilon 0.08, got %f", cfg.GetRBFEpsilon())
	}
	// Default values should be preserved
	if cfg.GetKFolds() != 5 {
		t.Errorf("Expected default KFolds 5, got %d", cfg.GetKFolds())
	}
	if cfg.GetSessionTTL() != 30*time.Minute {
		t.Errorf("Expected default SessionTTL 30m, got %v", cfg.GetSessionTTL())
	}
	if cfg.GetMaxUploadBytes() != 64<<20 {
		t.Errorf("Expected default MaxUploadBytes 64MB, got %d", cfg.GetMaxUploadBytes())
	}
}

func TestLoadExperimentConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadExperimentConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadExperimentConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	// Create a file larger than 1MB
	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadExperimentConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestGetterDefaults(t *testing.T) {
	// Test that getter methods return expected defaults when pointers are nil
	cfg := &ExperimentConfig{} // empty config

	if cfg.GetPODRank() != 0 {
		t.Errorf("GetPODRank() = %d, want 0", cfg.GetPODRank())
	}
	if cfg.GetRBFEpsilon() != 0.02 {
		t.Errorf("GetRBFEpsilon() = %f, want 0.02", cfg.GetRBFEpsilon())
	}
	if cfg.GetGPRRestarts() != 10 {
		t.Errorf("GetGPRRestarts() = %d, want 10", cfg.GetGPRRestarts())
	}
	if cfg.GetNeighborCount() != 5 {
		t.Errorf("GetNeighborCount() = %d, want 5", cfg.GetNeighborCount())
	}
	if cfg.GetNeighborRadius() != 1.0 {
		t.Errorf("GetNeighborRadius() = %f, want 1.0", cfg.GetNeighborRadius())
	}
	if got := cfg.GetANNHidden(); len(got) != 3 || got[0] != 6 || got[1] != 12 || got[2] != 24 {
		t.Errorf("GetANNHidden() = %v, want [6 12 24]", got)
	}
	if cfg.GetKFolds() != 5 {
		t.Errorf("GetKFolds() = %d, want 5", cfg.GetKFolds())
	}
	if cfg.GetKFoldSeed() != 1 {
		t.Errorf("GetKFoldSeed() = %d, want 1", cfg.GetKFoldSeed())
	}
	if cfg.GetBenchFolds() != 7 {
		t.Errorf("GetBenchFolds() = %d, want 7", cfg.GetBenchFolds())
	}
	if cfg.GetParamStart() != -50 || cfg.GetParamEnd() != 90 || cfg.GetParamStep() != 20 {
		t.Errorf("default sweep = %f..%f step %f, want -50..90 step 20",
			cfg.GetParamStart(), cfg.GetParamEnd(), cfg.GetParamStep())
	}
	if cfg.GetColormap() != "viridis" {
		t.Errorf("GetColormap() = %s, want viridis", cfg.GetColormap())
	}
	if cfg.GetWarpFactor() != 10 {
		t.Errorf("GetWarpFactor() = %f, want 10", cfg.GetWarpFactor())
	}
	if cfg.GetSessionTTL() != 30*time.Minute {
		t.Errorf("GetSessionTTL() = %v, want 30m", cfg.GetSessionTTL())
	}
	if cfg.GetMaxUploadBytes() != 64<<20 {
		t.Errorf("GetMaxUploadBytes() = %d, want %d", cfg.GetMaxUploadBytes(), int64(64<<20))
	}
	if cfg.GetSaveDir() != "data" {
		t.Errorf("GetSaveDir() = %s, want data", cfg.GetSaveDir())
	}
}
