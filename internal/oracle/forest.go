package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Forest is a decision-forest classifier decoded from a JSON artifact.
// Each tree is stored as parallel node arrays: node i is a leaf when
// Left[i] is negative, otherwise it routes on Feature[i] against
// Threshold[i]. Leaf Value rows hold the class distribution.
type Forest struct {
	Version  int    `json:"version"`
	Features int    `json:"n_features"`
	Classes  int    `json:"n_classes"`
	Trees    []Tree `json:"trees"`
}

// Tree holds one decision tree in flattened form.
type Tree struct {
	Feature   []int       `json:"feature"`
	Threshold []float64   `json:"threshold"`
	Left      []int       `json:"left"`
	Right     []int       `json:"right"`
	Value     [][]float64 `json:"value"`
}

var _ Oracle = (*Forest)(nil)

// LoadForest reads and validates a forest artifact from disk.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oracle: read model artifact: %w", err)
	}

	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("oracle: decode model artifact: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("oracle: invalid model artifact: %w", err)
	}
	return &f, nil
}

// Validate checks the structural integrity of the forest.
func (f *Forest) Validate() error {
	if f.Features < 1 {
		return fmt.Errorf("n_features must be positive, got %d", f.Features)
	}
	if f.Classes < 2 {
		return fmt.Errorf("n_classes must be at least 2, got %d", f.Classes)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}

	for ti, t := range f.Trees {
		n := len(t.Feature)
		if n == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
			return fmt.Errorf("tree %d has mismatched node arrays", ti)
		}
		for i := 0; i < n; i++ {
			if t.Left[i] < 0 {
				// leaf: needs a full class distribution
				if len(t.Value[i]) != f.Classes {
					return fmt.Errorf("tree %d leaf %d has %d class values, want %d", ti, i, len(t.Value[i]), f.Classes)
				}
				continue
			}
			if t.Left[i] >= n || t.Right[i] < 0 || t.Right[i] >= n {
				return fmt.Errorf("tree %d node %d has out-of-range children", ti, i)
			}
			if t.Feature[i] < 0 || t.Feature[i] >= f.Features {
				return fmt.Errorf("tree %d node %d splits on unknown feature %d", ti, i, t.Feature[i])
			}
		}
	}
	return nil
}

// Predict implements Oracle by averaging the leaf distributions each
// vector reaches across all trees.
func (f *Forest) Predict(ctx context.Context, vectors [][]float64) ([][]float64, error) {
	out := make([][]float64, 0, len(vectors))
	for _, vec := range vectors {
		if len(vec) != f.Features {
			return nil, fmt.Errorf("%w: got %d features, model expects %d", ErrBadVector, len(vec), f.Features)
		}

		sums := make([]float64, f.Classes)
		for ti := range f.Trees {
			leaf := f.Trees[ti].walk(vec)
			if leaf == nil {
				return nil, fmt.Errorf("oracle: tree %d walk did not terminate", ti)
			}
			for c, v := range leaf {
				sums[c] += v
			}
		}

		row := make([]float64, f.Classes)
		total := 0.0
		for _, s := range sums {
			total += s
		}
		if total > 0 {
			for c := range sums {
				row[c] = sums[c] / total
			}
		} else {
			for c := range row {
				row[c] = 1.0 / float64(f.Classes)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// walk routes vec from the root to a leaf and returns its value row.
// The step guard bounds malformed trees that validation cannot catch.
func (t *Tree) walk(vec []float64) []float64 {
	i := 0
	for steps := 0; steps <= len(t.Feature); steps++ {
		if t.Left[i] < 0 {
			return t.Value[i]
		}
		if vec[t.Feature[i]] <= t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------
// File provider
// ---------------------------------------------------------------------

// FileProvider loads a forest artifact from disk on every acquisition.
// The parsed forest is cached by modification time, so an unchanged
// file costs a stat while a deleted or replaced file is noticed on the
// next run.
type FileProvider struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	cached  *Forest
}

var _ Provider = (*FileProvider)(nil)

// NewFileProvider returns a provider reading the artifact at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Oracle implements Provider.
func (p *FileProvider) Oracle(ctx context.Context) (Oracle, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, fmt.Errorf("oracle: model artifact: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && info.ModTime().Equal(p.modTime) {
		return p.cached, nil
	}

	f, err := LoadForest(p.path)
	if err != nil {
		return nil, err
	}
	p.cached = f
	p.modTime = info.ModTime()
	return f, nil
}
