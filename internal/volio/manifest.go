package volio

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Manifest records what one CLI run produced.
type Manifest struct {
	Tool     string   `yaml:"tool"`
	Version  string   `yaml:"version"`
	Command  string   `yaml:"command"`
	Encoder  string   `yaml:"encoder,omitempty"`
	Mode     string   `yaml:"mode,omitempty"`
	Policy   string   `yaml:"policy,omitempty"`
	Levels   int      `yaml:"levels,omitempty"`
	BgValue  float64  `yaml:"bg_value"`
	Entries  []Entry  `yaml:"entries"`
	Failures []string `yaml:"failures,omitempty"`
}

// Entry describes one converted input.
type Entry struct {
	Input     string        `yaml:"input"`
	Outputs   []string      `yaml:"outputs"`
	Shape     []int         `yaml:"shape,flow"`
	Instances int           `yaml:"instances,omitempty"`
	Energy    Stats         `yaml:"energy"`
	Classes   map[int64]int `yaml:"classes,omitempty"`
}

// Stats summarizes the foreground energies of one map.
type Stats struct {
	Foreground int     `yaml:"foreground"`
	Min        float64 `yaml:"min"`
	Max        float64 `yaml:"max"`
	Mean       float64 `yaml:"mean"`
	StdDev     float64 `yaml:"std_dev"`
}

// Summarize computes statistics over the elements of energy that differ
// from bgValue.
func Summarize(energy volume.Array[float64], bgValue float64) Stats {
	fg := make([]float64, 0, energy.Len())
	for _, v := range energy.Data {
		if v != bgValue {
			fg = append(fg, v)
		}
	}
	if len(fg) == 0 {
		return Stats{}
	}
	s := Stats{Foreground: len(fg), Min: floats.Min(fg), Max: floats.Max(fg)}
	if len(fg) == 1 {
		s.Mean = fg[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(fg, nil)
	return s
}

// ClassHistogram counts the elements of every class.
func ClassHistogram(classes volume.Array[int64]) map[int64]int {
	hist := make(map[int64]int)
	for _, c := range classes.Data {
		hist[c]++
	}
	return hist
}

// CountInstances returns the number of distinct non-zero labels.
func CountInstances(labels volume.Array[int64]) int {
	seen := make(map[int64]struct{})
	for _, v := range labels.Data {
		if v != 0 {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// WriteManifest writes m as YAML to path.
func WriteManifest(m Manifest, path string) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return &IOError{Operation: "manifest", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &IOError{Operation: "manifest", Path: path, Err: err}
	}
	return nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: manifest path is chosen by the user
	if err != nil {
		return Manifest{}, &IOError{Operation: "manifest", Path: path, Err: err}
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, &IOError{Operation: "manifest", Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return m, nil
}
