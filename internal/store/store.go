// File: internal/store/store.go
// Description: Disk persistence for agent parameters. Keeps the best snapshot
// of a run by total-reward high-water mark so a later run can warm-start from
// the strongest policy seen so far.

package store

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/internal/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ModelSnapshot bundles every learned parameter set plus the context needed
// to judge and reproduce it.
type ModelSnapshot struct {
	RunID       string       `json:"run_id"`
	Episode     int          `json:"episode"`
	TotalReward float64      `json:"total_reward"`
	Epsilon     float64      `json:"epsilon"`
	Explorer    agent.Params `json:"explorer"`
	Actor       agent.Params `json:"actor"`
	Critic      agent.Params `json:"critic"`
}

// Store writes snapshots under a base directory, one file per run plus a
// shared best-model file.
type Store struct {
	dir    string
	best   float64
	hasBest bool
	logger *zap.Logger
}

const bestModelFile = "best_model.json"

// New creates the base directory if needed. An existing best-model file seeds
// the high-water mark so appended runs don't clobber a stronger snapshot.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}
	s := &Store{dir: dir, logger: logger.Named("store")}

	if prev, err := s.LoadBest(); err == nil {
		s.best = prev.TotalReward
		s.hasBest = true
		s.logger.Debug("Seeded high-water mark from existing best model.",
			zap.Float64("total_reward", prev.TotalReward))
	}
	return s, nil
}

// SaveIfBest persists the snapshot when its total reward beats every snapshot
// seen so far and reports whether the mark moved.
func (s *Store) SaveIfBest(snap ModelSnapshot) (bool, error) {
	if s.hasBest && snap.TotalReward <= s.best {
		return false, nil
	}
	if err := s.write(bestModelFile, snap); err != nil {
		return false, err
	}
	s.best = snap.TotalReward
	s.hasBest = true
	s.logger.Info("New best model saved.",
		zap.String("run_id", snap.RunID),
		zap.Int("episode", snap.Episode),
		zap.Float64("total_reward", snap.TotalReward))
	return true, nil
}

// SaveRun persists a run-scoped snapshot regardless of reward, for resuming
// an interrupted run.
func (s *Store) SaveRun(snap ModelSnapshot) error {
	return s.write(fmt.Sprintf("run_%s.json", snap.RunID), snap)
}

// LoadBest reads the shared best-model snapshot.
func (s *Store) LoadBest() (ModelSnapshot, error) {
	return s.read(bestModelFile)
}

// LoadRun reads a run-scoped snapshot by run ID.
func (s *Store) LoadRun(runID string) (ModelSnapshot, error) {
	return s.read(fmt.Sprintf("run_%s.json", runID))
}

func (s *Store) write(name string, snap ModelSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	path := filepath.Join(s.dir, name)

	// Write-then-rename so a crash mid-write can't truncate the previous
	// snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize snapshot %s: %w", path, err)
	}
	return nil
}

func (s *Store) read(name string) (ModelSnapshot, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelSnapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var snap ModelSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ModelSnapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}
