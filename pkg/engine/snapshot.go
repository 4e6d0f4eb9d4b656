package engine

import (
	"encoding/json"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

const DefaultSnapshotPath = ".vulndash-snapshot.json"

// SnapshotDiff is the result of comparing the current collection to a baseline
type SnapshotDiff struct {
	New       []Vulnerability `json:"new"`
	Fixed     []Vulnerability `json:"fixed"`
	Unchanged []Vulnerability `json:"unchanged"`
}

// SaveSnapshot writes all scans to path as JSON
func (s *Store) SaveSnapshot(fs afero.Fs, path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.scans, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create snapshot dir %s", dir)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write snapshot %s", path)
	}
	return nil
}

// LoadSnapshot replaces the collection with the scans stored at path
func (s *Store) LoadSnapshot(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrapf(err, "read snapshot %s", path)
	}

	var scans []ScanResult
	if err := json.Unmarshal(data, &scans); err != nil {
		return errors.Wrapf(err, "decode snapshot %s", path)
	}
	if scans == nil {
		scans = make([]ScanResult, 0)
	}

	s.mu.Lock()
	s.scans = scans
	s.mu.Unlock()
	return nil
}

// CompareSnapshot classifies the current findings against a baseline collection
func (s *Store) CompareSnapshot(baseline *Store) SnapshotDiff {
	current := s.Vulnerabilities()
	previous := baseline.Vulnerabilities()

	seen := make(map[string]bool, len(previous))
	for _, v := range previous {
		seen[v.Key()] = true
	}

	diff := SnapshotDiff{
		New:       make([]Vulnerability, 0),
		Fixed:     make([]Vulnerability, 0),
		Unchanged: make([]Vulnerability, 0),
	}

	present := make(map[string]bool, len(current))
	for _, v := range current {
		k := v.Key()
		if present[k] {
			continue
		}
		present[k] = true

		if seen[k] {
			diff.Unchanged = append(diff.Unchanged, v)
		} else {
			diff.New = append(diff.New, v)
		}
	}

	fixed := make(map[string]bool)
	for _, v := range previous {
		k := v.Key()
		if !present[k] && !fixed[k] {
			fixed[k] = true
			diff.Fixed = append(diff.Fixed, v)
		}
	}
	return diff
}
