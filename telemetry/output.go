// Package telemetry handles structured experiment output: per-episode
// CSV records, the run configuration, and the checkpoint database.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/game"
)

// EpisodeRecord is one finished episode as written to episodes.csv.
type EpisodeRecord struct {
	World        uint32  `csv:"world"`
	Episode      uint32  `csv:"episode"`
	KeyA         uint32  `csv:"key_a"`
	KeyB         uint32  `csv:"key_b"`
	Hiders       int     `csv:"hiders"`
	Seekers      int     `csv:"seekers"`
	Boxes        int     `csv:"boxes"`
	Steps        int     `csv:"steps"`
	HiderReturn  float64 `csv:"hider_return"`
	SeekerReturn float64 `csv:"seeker_return"`
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir   string
	runID string

	episodeFile *os.File

	episodeHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the
// output directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{
		dir:   dir,
		runID: uuid.NewString(),
	}

	f, err := os.Create(filepath.Join(dir, "episodes.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating episodes.csv: %w", err)
	}
	om.episodeFile = f

	if err := os.WriteFile(filepath.Join(dir, "run_id"), []byte(om.runID+"\n"), 0644); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing run_id: %w", err)
	}

	return om, nil
}

// RunID returns the unique identifier assigned to this run.
func (om *OutputManager) RunID() string {
	if om == nil {
		return ""
	}
	return om.runID
}

// Dir returns the output directory, or empty when output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteEpisodes writes finished-episode summaries to episodes.csv.
func (om *OutputManager) WriteEpisodes(summaries []game.EpisodeSummary) error {
	if om == nil || len(summaries) == 0 {
		return nil
	}

	records := make([]EpisodeRecord, len(summaries))
	for i, s := range summaries {
		records[i] = EpisodeRecord{
			World:        s.World,
			Episode:      s.Episode,
			KeyA:         s.Key.A,
			KeyB:         s.Key.B,
			Hiders:       s.Hiders,
			Seekers:      s.Seekers,
			Boxes:        s.Boxes,
			Steps:        s.Steps,
			HiderReturn:  s.HiderReturn,
			SeekerReturn: s.SeekerReturn,
		}
	}

	if !om.episodeHeaderWritten {
		if err := gocsv.Marshal(records, om.episodeFile); err != nil {
			return fmt.Errorf("writing episodes: %w", err)
		}
		om.episodeHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.episodeFile); err != nil {
			return fmt.Errorf("writing episodes: %w", err)
		}
	}

	return nil
}

// Close flushes and closes the output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return om.episodeFile.Close()
}
