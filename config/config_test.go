package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Sim.PrepSteps != 96 {
		t.Errorf("prep_steps = %d, want 96", cfg.Sim.PrepSteps)
	}
	if cfg.Sim.EpisodeLen != 240 {
		t.Errorf("episode_len = %d, want 240", cfg.Sim.EpisodeLen)
	}
	if cfg.Arena.Bound != 18.0 {
		t.Errorf("bound = %v, want 18", cfg.Arena.Bound)
	}
	if cfg.Movement.Buckets != 11 {
		t.Errorf("buckets = %d, want 11", cfg.Movement.Buckets)
	}
	if cfg.Objects.MaxBoxes != 9 {
		t.Errorf("max_boxes = %d, want 9", cfg.Objects.MaxBoxes)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Derived.HalfBuckets != 5 {
		t.Errorf("HalfBuckets = %d, want 5", cfg.Derived.HalfBuckets)
	}
	if math.Abs(cfg.Derived.ForcePerBucket-12) > 1e-9 {
		t.Errorf("ForcePerBucket = %v, want 12", cfg.Derived.ForcePerBucket)
	}
	if math.Abs(cfg.Derived.TorquePerBucket-3) > 1e-9 {
		t.Errorf("TorquePerBucket = %v, want 3", cfg.Derived.TorquePerBucket)
	}
	if math.Abs(cfg.Derived.CosHalfFOV-math.Cos(135.0/2*math.Pi/180)) > 1e-12 {
		t.Errorf("CosHalfFOV = %v", cfg.Derived.CosHalfFOV)
	}
	if cfg.Derived.MaxAgentsPerWorld != 6 {
		t.Errorf("MaxAgentsPerWorld = %d, want 6", cfg.Derived.MaxAgentsPerWorld)
	}
}

func TestLoadUserOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("teams:\n  min_hiders: 2\n  max_hiders: 2\n  min_seekers: 2\n  max_seekers: 2\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}

	if cfg.Teams.MinHiders != 2 || cfg.Teams.MaxHiders != 2 {
		t.Errorf("hiders = %d..%d, want 2..2", cfg.Teams.MinHiders, cfg.Teams.MaxHiders)
	}
	// Untouched sections keep the defaults.
	if cfg.Sim.EpisodeLen != 240 {
		t.Errorf("episode_len = %d, want default 240", cfg.Sim.EpisodeLen)
	}
	if cfg.Derived.MaxAgentsPerWorld != 4 {
		t.Errorf("MaxAgentsPerWorld = %d, want 4", cfg.Derived.MaxAgentsPerWorld)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"hiders exceed table", "teams:\n  max_hiders: 4\n"},
		{"min above max", "teams:\n  min_hiders: 3\n  max_hiders: 1\n"},
		{"boxes exceed table", "objects:\n  max_boxes: 10\n"},
		{"ramps exceed table", "objects:\n  num_ramps: 3\n"},
		{"min boxes below elongated", "objects:\n  min_boxes: 2\n"},
		{"even buckets", "movement:\n  buckets: 10\n"},
		{"prep past episode", "sim:\n  prep_steps: 300\n"},
		{"zero worlds", "batch:\n  num_worlds: 0\n"},
		{"zero rejects", "objects:\n  max_rejects: 0\n"},
		{"negative log cadence", "telemetry:\n  log_every: -1\n"},
		{"negative stream cadence", "observer:\n  stream_every: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestZeroCadencesDisableOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("telemetry:\n  log_every: 0\nobserver:\n  stream_every: 0\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("zero cadences should load: %v", err)
	}
	if cfg.Telemetry.LogEvery != 0 || cfg.Observer.StreamEvery != 0 {
		t.Errorf("cadences = %d/%d, want 0/0", cfg.Telemetry.LogEvery, cfg.Observer.StreamEvery)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if loaded.Sim.PrepSteps != cfg.Sim.PrepSteps || loaded.Arena.Bound != cfg.Arena.Bound {
		t.Error("round-tripped config differs from original")
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	old := global
	global = nil
	defer func() {
		global = old
		if recover() == nil {
			t.Error("Cfg() before Init() did not panic")
		}
	}()
	Cfg()
}
