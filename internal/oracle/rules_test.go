package oracle

import (
	"context"
	"errors"
	"testing"
)

// neutralVector builds a vector that triggers none of the rule
// multipliers, so the prediction equals the method base rate.
func neutralVector(methodCode int) []float64 {
	return []float64{200, 0.01, 0.5, 3, float64(methodCode)}
}

func TestRuleOracle_BaseRates(t *testing.T) {
	o := NewRuleOracle()

	tests := []struct {
		method string
		code   int
		want   float64
	}{
		{"transfer", 0, 0.02},
		{"stake", 2, 0.01},
		{"withdraw", 4, 0.08},
		{"mint", 5, 0.15},
		{"bridge", 12, 0.12},
		{"vote", 14, 0.01},
	}

	for _, tt := range tests {
		rows, err := o.Predict(context.Background(), [][]float64{neutralVector(tt.code)})
		if err != nil {
			t.Fatalf("Predict(%s) failed: %v", tt.method, err)
		}
		if !almostEqual(rows[0][1], tt.want) {
			t.Errorf("%s base rate = %f, want %f", tt.method, rows[0][1], tt.want)
		}
		if !almostEqual(rows[0][0], 1-tt.want) {
			t.Errorf("%s negative class = %f, want %f", tt.method, rows[0][0], 1-tt.want)
		}
	}
}

func TestRuleOracle_UnknownMethodUsesDefaultRate(t *testing.T) {
	o := NewRuleOracle()

	rows, err := o.Predict(context.Background(), [][]float64{neutralVector(-1)})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !almostEqual(rows[0][1], defaultRate) {
		t.Errorf("unknown method rate = %f, want %f", rows[0][1], defaultRate)
	}
}

func TestRuleOracle_Amplifiers(t *testing.T) {
	o := NewRuleOracle()

	tests := []struct {
		name   string
		vector []float64
		want   float64
	}{
		{"large amount doubles", []float64{2000, 0.01, 0.5, 3, 0}, 0.04},
		{"dust gas", []float64{200, 0.00001, 0.5, 3, 0}, 0.03},
		{"rapid fire", []float64{200, 0.01, 0.01, 3, 0}, 0.036},
		{"high frequency", []float64{200, 0.01, 0.5, 30, 0}, 0.032},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := o.Predict(context.Background(), [][]float64{tt.vector})
			if err != nil {
				t.Fatalf("Predict failed: %v", err)
			}
			if !almostEqual(rows[0][1], tt.want) {
				t.Errorf("risk = %f, want %f", rows[0][1], tt.want)
			}
		})
	}
}

func TestRuleOracle_Dampeners(t *testing.T) {
	o := NewRuleOracle()

	// mid-range amount and a calm cadence halve then soften the rate
	rows, err := o.Predict(context.Background(), [][]float64{{50, 0.01, 6, 3, 0}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !almostEqual(rows[0][1], 0.02*0.5*0.7) {
		t.Errorf("dampened risk = %f, want %f", rows[0][1], 0.02*0.5*0.7)
	}
}

func TestRuleOracle_CapsRisk(t *testing.T) {
	o := NewRuleOracle()

	// every amplifier at once: 0.15 * 2 * 1.5 * 1.8 * 1.6 would exceed the cap
	rows, err := o.Predict(context.Background(), [][]float64{{5000, 0, 0.01, 50, 5}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if rows[0][1] != maxRuleRisk {
		t.Errorf("capped risk = %f, want %f", rows[0][1], maxRuleRisk)
	}
}

func TestRuleOracle_BadVector(t *testing.T) {
	o := NewRuleOracle()

	_, err := o.Predict(context.Background(), [][]float64{{1, 2}})
	if !errors.Is(err, ErrBadVector) {
		t.Errorf("expected ErrBadVector, got %v", err)
	}
}

func TestRuleOracle_BatchOrderPreserved(t *testing.T) {
	o := NewRuleOracle()

	rows, err := o.Predict(context.Background(), [][]float64{
		neutralVector(5),  // mint 0.15
		neutralVector(14), // vote 0.01
	})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][1] < rows[1][1] {
		t.Errorf("batch order lost: %v", rows)
	}
}
