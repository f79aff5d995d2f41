package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/foragers/neural"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds a population at a generation boundary, enough to resume
// evolution from it.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	WorldWidth  float32 `json:"world_width"`
	WorldHeight float32 `json:"world_height"`

	Generation int32                  `json:"generation"`
	Topology   []neural.LayerTopology `json:"topology"`
	Animals    []AnimalState          `json:"animals"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// AnimalState holds one animal's persisted brain.
type AnimalState struct {
	ID         uint32    `json:"id"`
	Chromosome []float32 `json:"chromosome"`
}

// Chromosomes returns the animals' chromosomes in ID order as stored.
func (s *Snapshot) Chromosomes() [][]float32 {
	out := make([][]float32, len(s.Animals))
	for i, a := range s.Animals {
		out[i] = a.Chromosome
	}
	return out
}

// Validate checks the version and that every chromosome fits the topology.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if err := neural.Validate(s.Topology); err != nil {
		return fmt.Errorf("snapshot topology: %w", err)
	}
	want := neural.WeightCount(s.Topology)
	for i, a := range s.Animals {
		if len(a.Chromosome) != want {
			return fmt.Errorf("snapshot animal %d: %w", i, &neural.ChromosomeLengthError{Got: len(a.Chromosome), Expected: want})
		}
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_gen%d", snapshot.Generation)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_gen%d_%s", snapshot.Generation, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads and validates a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return &snapshot, nil
}
